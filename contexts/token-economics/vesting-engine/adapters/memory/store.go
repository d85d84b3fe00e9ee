package memory

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	application "tokenvest/contexts/token-economics/vesting-engine/application"
	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/domain/valueobjects"
	"tokenvest/contexts/token-economics/vesting-engine/ports"

	"github.com/google/uuid"
)

// Store is an in-memory adapter implementing the vesting ports for local
// runtime and tests. It also plays the host ledger: wallets are plain balance
// entries moved by transfers inside the store lock.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]entities.VestingAccount
	accountOrder []string
	receipts     map[string]entities.ClaimReceipt
	receiptOrder []string
	balances     map[string]uint64
	transfers    []ports.Transfer
	idempotency  map[string]ports.IdempotencyRecord
	outbox       map[string]ports.OutboxMessage
	outboxOrder  []string
	outboxSent   map[string]time.Time
	failNext     error
	now          func() time.Time
	logger       *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		accounts:    make(map[string]entities.VestingAccount),
		receipts:    make(map[string]entities.ClaimReceipt),
		balances:    make(map[string]uint64),
		idempotency: make(map[string]ports.IdempotencyRecord),
		outbox:      make(map[string]ports.OutboxMessage),
		outboxSent:  make(map[string]time.Time),
		now:         func() time.Time { return time.Now().UTC() },
		logger:      application.ModuleLogger(logger, "adapter"),
	}
}

// Credit funds a wallet. Used to seed source wallets in dev and tests.
func (s *Store) Credit(wallet string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := valueobjects.CheckedAdd(s.balances[wallet], amount)
	if err != nil {
		return err
	}
	s.balances[wallet] = next
	return nil
}

// FailNextTransfer makes the next transfer fail with err, leaving every write
// of its unit unapplied.
func (s *Store) FailNextTransfer(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// SetNow freezes the store clock.
func (s *Store) SetNow(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at = at.UTC()
	s.now = func() time.Time { return at }
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) GetAccount(_ context.Context, accountID string) (entities.VestingAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[strings.TrimSpace(accountID)]
	if !ok {
		return entities.VestingAccount{}, domainerrors.ErrAccountNotFound
	}
	return cloneAccount(account), nil
}

func (s *Store) ListAccounts(_ context.Context) ([]entities.VestingAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.VestingAccount, 0, len(s.accountOrder))
	for _, id := range s.accountOrder {
		items = append(items, cloneAccount(s.accounts[id]))
	}
	return items, nil
}

func (s *Store) CreateAccountWithDeposit(
	_ context.Context,
	account entities.VestingAccount,
	deposit ports.Transfer,
	event ports.VestingEvent,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// One critical section stands in for the transaction: the account row,
	// the deposit and the outbox append succeed or fail together.
	if _, ok := s.accounts[account.AccountID]; ok {
		return domainerrors.ErrAccountExists
	}
	payload, err := application.EncodeEnvelope(event)
	if err != nil {
		return err
	}
	if err := s.checkTransferLocked(deposit); err != nil {
		return err
	}

	s.applyTransferLocked(deposit)
	s.accounts[account.AccountID] = cloneAccount(account)
	s.accountOrder = append(s.accountOrder, account.AccountID)
	s.appendOutboxLocked(event, payload)

	s.logger.Debug("account and deposit persisted in memory store",
		"event", "memory_create_account_with_deposit",
		"account_id", account.AccountID,
		"deposit_amount", deposit.Amount,
		"outbox_event_id", event.EventID,
	)
	return nil
}

func (s *Store) UpdateAccount(
	_ context.Context,
	accountID string,
	mutate func(account *entities.VestingAccount) (ports.Mutation, error),
) (entities.VestingAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[strings.TrimSpace(accountID)]
	if !ok {
		return entities.VestingAccount{}, domainerrors.ErrAccountNotFound
	}
	working := cloneAccount(current)
	mutation, err := mutate(&working)
	if err != nil {
		return entities.VestingAccount{}, err
	}

	var payload []byte
	if mutation.Event != nil {
		payload, err = application.EncodeEnvelope(*mutation.Event)
		if err != nil {
			return entities.VestingAccount{}, err
		}
	}
	if mutation.Receipt != nil {
		if _, exists := s.receipts[mutation.Receipt.ClaimID]; exists {
			return entities.VestingAccount{}, domainerrors.ErrRepositoryInvariantBroke
		}
	}
	if mutation.Transfer != nil {
		if err := s.checkTransferLocked(*mutation.Transfer); err != nil {
			return entities.VestingAccount{}, err
		}
	}

	// Everything that can fail has been checked; apply the unit.
	if mutation.Transfer != nil {
		s.applyTransferLocked(*mutation.Transfer)
	}
	s.accounts[working.AccountID] = cloneAccount(working)
	if mutation.Receipt != nil {
		s.receipts[mutation.Receipt.ClaimID] = *mutation.Receipt
		s.receiptOrder = append(s.receiptOrder, mutation.Receipt.ClaimID)
	}
	if mutation.Event != nil {
		s.appendOutboxLocked(*mutation.Event, payload)
	}
	return cloneAccount(working), nil
}

func (s *Store) GetReceipt(_ context.Context, claimID string) (entities.ClaimReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receipt, ok := s.receipts[claimID]
	if !ok {
		return entities.ClaimReceipt{}, domainerrors.ErrReceiptNotFound
	}
	return receipt, nil
}

func (s *Store) ListReceipts(_ context.Context, accountID string, identity string) ([]entities.ClaimReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]entities.ClaimReceipt, 0)
	for _, id := range s.receiptOrder {
		receipt := s.receipts[id]
		if receipt.AccountID != accountID {
			continue
		}
		if identity != "" && receipt.Identity != identity {
			continue
		}
		result = append(result, receipt)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ClaimedAt.After(result[j].ClaimedAt)
	})
	return result, nil
}

func (s *Store) Balance(_ context.Context, wallet string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[wallet], nil
}

// Transfers returns the applied transfers in order.
func (s *Store) Transfers() []ports.Transfer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ports.Transfer(nil), s.transfers...)
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.idempotency[key]
	if !ok {
		return ports.IdempotencyRecord{}, false, nil
	}
	// Expired keys are lazily evicted on read.
	if !record.ExpiresAt.IsZero() && now.After(record.ExpiresAt) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) Put(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.idempotency[record.Key]; ok {
		if existing.RequestHash != record.RequestHash {
			return domainerrors.ErrIdempotencyKeyConflict
		}
		return nil
	}
	s.idempotency[record.Key] = record
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	messages := make([]ports.OutboxMessage, 0, limit)
	for _, id := range s.outboxOrder {
		if _, sent := s.outboxSent[id]; sent {
			continue
		}
		if msg, ok := s.outbox[id]; ok {
			messages = append(messages, msg)
		}
		if len(messages) >= limit {
			break
		}
	}
	return messages, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.outbox[outboxID]; !ok {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	s.outboxSent[outboxID] = sentAt.UTC()
	return nil
}

func (s *Store) OutboxEvents() []ports.OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]ports.OutboxMessage, 0, len(s.outboxOrder))
	for _, id := range s.outboxOrder {
		if evt, ok := s.outbox[id]; ok {
			events = append(events, evt)
		}
	}
	return events
}

func (s *Store) checkTransferLocked(transfer ports.Transfer) error {
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	if s.balances[transfer.From] < transfer.Amount {
		return domainerrors.ErrInsufficientCustody
	}
	if _, err := valueobjects.CheckedAdd(s.balances[transfer.To], transfer.Amount); err != nil {
		return err
	}
	return nil
}

func (s *Store) applyTransferLocked(transfer ports.Transfer) {
	s.balances[transfer.From] -= transfer.Amount
	s.balances[transfer.To] += transfer.Amount
	s.transfers = append(s.transfers, transfer)
}

func (s *Store) appendOutboxLocked(event ports.VestingEvent, payload []byte) {
	s.outbox[event.EventID] = ports.OutboxMessage{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		CreatedAt:    event.OccurredAt.UTC(),
	}
	s.outboxOrder = append(s.outboxOrder, event.EventID)
}

func cloneAccount(account entities.VestingAccount) entities.VestingAccount {
	account.Beneficiaries = append([]entities.Beneficiary(nil), account.Beneficiaries...)
	return account
}
