package ports

import (
	"context"
	"time"

	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	contractsv1 "tokenvest/contracts/gen/events/v1"
)

// Transfer moves smallest-unit tokens between two ledger wallets.
type Transfer struct {
	From      string
	To        string
	Amount    uint64
	Reference string
}

// VestingEvent is the outbound integration payload persisted to outbox.
// Data is one of the contractsv1 *Data payloads.
type VestingEvent struct {
	EventID      string
	EventType    string
	AccountID    string
	PartitionKey string
	OccurredAt   time.Time
	Data         any
}

// Mutation is what an account update asks the repository to commit alongside
// the account itself. Nil fields are skipped.
type Mutation struct {
	Transfer *Transfer
	Receipt  *entities.ClaimReceipt
	Event    *VestingEvent
}

// AccountRepository owns account persistence and the atomic unit that ties
// account state to custody movements.
type AccountRepository interface {
	GetAccount(ctx context.Context, accountID string) (entities.VestingAccount, error)
	ListAccounts(ctx context.Context) ([]entities.VestingAccount, error)
	// CreateAccountWithDeposit must atomically persist the account, move the
	// deposit into custody and append the outbox event.
	CreateAccountWithDeposit(ctx context.Context, account entities.VestingAccount, deposit Transfer, event VestingEvent) error
	// UpdateAccount loads the account under an exclusive lock, applies mutate and
	// commits the account, transfer, receipt and event together. When mutate or
	// any write fails nothing is persisted.
	UpdateAccount(
		ctx context.Context,
		accountID string,
		mutate func(account *entities.VestingAccount) (Mutation, error),
	) (entities.VestingAccount, error)
	GetReceipt(ctx context.Context, claimID string) (entities.ClaimReceipt, error)
	// ListReceipts returns receipts newest first. An empty identity lists the
	// whole account.
	ListReceipts(ctx context.Context, accountID string, identity string) ([]entities.ClaimReceipt, error)
}

// Ledger exposes wallet balances in smallest units.
type Ledger interface {
	Balance(ctx context.Context, wallet string) (uint64, error)
}

// IdempotencyRecord captures dedupe metadata for mutating requests.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	ResourceID  string
	ExpiresAt   time.Time
}

// IdempotencyStore abstracts idempotency persistence with TTL handling.
type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

// Clock allows deterministic testing of unlock times.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts account/claim/event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
