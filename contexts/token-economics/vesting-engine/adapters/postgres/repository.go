package postgresadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "tokenvest/contexts/token-economics/vesting-engine/application"
	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/ports"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: application.ModuleLogger(logger, "adapter"),
	}
}

// Migrate creates or updates the tables owned by the vesting engine.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&accountModel{},
		&beneficiaryModel{},
		&receiptModel{},
		&balanceModel{},
		&transferModel{},
		&idempotencyModel{},
		&outboxModel{},
	)
}

func (r *Repository) GetAccount(ctx context.Context, accountID string) (entities.VestingAccount, error) {
	return r.loadAccount(r.db.WithContext(ctx), strings.TrimSpace(accountID), false)
}

func (r *Repository) ListAccounts(ctx context.Context) ([]entities.VestingAccount, error) {
	var rows []accountModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&rows).
		Error; err != nil {
		return nil, errors.Wrap(err, "list vesting accounts")
	}
	if len(rows) == 0 {
		return []entities.VestingAccount{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.AccountID)
	}
	var beneficiaryRows []beneficiaryModel
	if err := r.db.WithContext(ctx).
		Where("account_id IN ?", ids).
		Order("account_id ASC, position ASC").
		Find(&beneficiaryRows).
		Error; err != nil {
		return nil, errors.Wrap(err, "list beneficiaries")
	}
	byAccount := make(map[string][]beneficiaryModel, len(rows))
	for _, row := range beneficiaryRows {
		byAccount[row.AccountID] = append(byAccount[row.AccountID], row)
	}

	items := make([]entities.VestingAccount, 0, len(rows))
	for _, row := range rows {
		account, err := row.toEntity(byAccount[row.AccountID])
		if err != nil {
			return nil, err
		}
		items = append(items, account)
	}
	return items, nil
}

func (r *Repository) CreateAccountWithDeposit(
	ctx context.Context,
	account entities.VestingAccount,
	deposit ports.Transfer,
	event ports.VestingEvent,
) error {
	payload, err := application.EncodeEnvelope(event)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accountRow := accountModelFromEntity(account)
		if err := tx.Create(&accountRow).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrAccountExists
			}
			return errors.Wrap(err, "create vesting account")
		}
		beneficiaryRows := beneficiaryModelsFromEntity(account)
		if err := tx.Create(&beneficiaryRows).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrDuplicateBeneficiary
			}
			return errors.Wrap(err, "create beneficiaries")
		}
		if err := applyTransfer(tx, deposit, event.OccurredAt); err != nil {
			return err
		}
		return createOutbox(tx, event, payload)
	})
}

func (r *Repository) UpdateAccount(
	ctx context.Context,
	accountID string,
	mutate func(account *entities.VestingAccount) (ports.Mutation, error),
) (entities.VestingAccount, error) {
	var updated entities.VestingAccount
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := r.loadAccount(tx, strings.TrimSpace(accountID), true)
		if err != nil {
			return err
		}
		mutation, err := mutate(&account)
		if err != nil {
			return err
		}

		if mutation.Transfer != nil {
			if err := applyTransfer(tx, *mutation.Transfer, account.UpdatedAt); err != nil {
				return err
			}
		}
		if err := saveAccount(tx, account); err != nil {
			return err
		}
		if mutation.Receipt != nil {
			row := receiptModelFromEntity(*mutation.Receipt)
			if err := tx.Create(&row).Error; err != nil {
				if isUniqueViolation(err) {
					return domainerrors.ErrRepositoryInvariantBroke
				}
				return errors.Wrap(err, "create claim receipt")
			}
		}
		if mutation.Event != nil {
			payload, err := application.EncodeEnvelope(*mutation.Event)
			if err != nil {
				return err
			}
			if err := createOutbox(tx, *mutation.Event, payload); err != nil {
				return err
			}
		}
		updated = account
		return nil
	})
	if err != nil {
		return entities.VestingAccount{}, err
	}
	return updated, nil
}

func (r *Repository) GetReceipt(ctx context.Context, claimID string) (entities.ClaimReceipt, error) {
	var row receiptModel
	err := r.db.WithContext(ctx).
		Where("claim_id = ?", claimID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ClaimReceipt{}, domainerrors.ErrReceiptNotFound
		}
		return entities.ClaimReceipt{}, errors.Wrap(err, "load claim receipt")
	}
	return row.toEntity()
}

func (r *Repository) ListReceipts(ctx context.Context, accountID string, identity string) ([]entities.ClaimReceipt, error) {
	tx := r.db.WithContext(ctx).Where("account_id = ?", accountID)
	if identity != "" {
		tx = tx.Where("identity = ?", identity)
	}
	var rows []receiptModel
	if err := tx.Order("claimed_at DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list claim receipts")
	}
	items := make([]entities.ClaimReceipt, 0, len(rows))
	for _, row := range rows {
		receipt, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, receipt)
	}
	return items, nil
}

func (r *Repository) Balance(ctx context.Context, wallet string) (uint64, error) {
	var row balanceModel
	err := r.db.WithContext(ctx).
		Where("wallet = ?", wallet).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, errors.Wrapf(err, "load balance of %s", wallet)
	}
	return toUint64(row.Balance)
}

// Credit funds a wallet outside of any vesting account, for operators seeding
// source wallets.
func (r *Repository) Credit(ctx context.Context, wallet string, amount uint64, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return creditWallet(tx, wallet, amount, at)
	})
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, errors.Wrap(err, "load idempotency record")
	}

	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", key).
			Delete(&idempotencyModel{}).
			Error; err != nil {
			return ports.IdempotencyRecord{}, false, errors.Wrap(err, "expire idempotency record")
		}
		return ports.IdempotencyRecord{}, false, nil
	}

	return row.toPort(), true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModelFromPort(record)
	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return errors.Wrap(createResult.Error, "store idempotency record")
	}
	if createResult.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", record.Key).
		First(&existing).
		Error; err != nil {
		return errors.Wrap(err, "load conflicting idempotency record")
	}
	if existing.RequestHash != record.RequestHash {
		return domainerrors.ErrIdempotencyKeyConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, errors.Wrap(err, "list pending outbox")
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toPort())
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"status":  outboxStatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return errors.Wrapf(result.Error, "mark outbox %s sent", outboxID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func (r *Repository) loadAccount(tx *gorm.DB, accountID string, forUpdate bool) (entities.VestingAccount, error) {
	query := tx
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row accountModel
	if err := query.Where("account_id = ?", accountID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VestingAccount{}, domainerrors.ErrAccountNotFound
		}
		return entities.VestingAccount{}, errors.Wrap(err, "load vesting account")
	}

	var beneficiaryRows []beneficiaryModel
	if err := tx.
		Where("account_id = ?", accountID).
		Order("position ASC").
		Find(&beneficiaryRows).
		Error; err != nil {
		return entities.VestingAccount{}, errors.Wrap(err, "load beneficiaries")
	}
	return row.toEntity(beneficiaryRows)
}

func saveAccount(tx *gorm.DB, account entities.VestingAccount) error {
	result := tx.Model(&accountModel{}).
		Where("account_id = ?", account.AccountID).
		Updates(map[string]any{
			"state":           string(account.State),
			"activation_time": account.ActivationTime,
			"updated_at":      account.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "save vesting account")
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAccountNotFound
	}

	for _, beneficiary := range account.Beneficiaries {
		result := tx.Model(&beneficiaryModel{}).
			Where("account_id = ? AND identity = ?", account.AccountID, beneficiary.Identity).
			Updates(map[string]any{
				"claimed_tokens":  fromUint64(beneficiary.ClaimedTokens),
				"confirmed_round": int64(beneficiary.ConfirmedRound),
			})
		if result.Error != nil {
			return errors.Wrapf(result.Error, "save beneficiary %s", beneficiary.Identity)
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrRepositoryInvariantBroke
		}
	}
	return nil
}

// applyTransfer debits From under a row lock, credits To and records the
// transfer. It must run inside the caller's transaction.
func applyTransfer(tx *gorm.DB, transfer ports.Transfer, at time.Time) error {
	var source balanceModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("wallet = ?", transfer.From).
		First(&source).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrInsufficientCustody
		}
		return errors.Wrapf(err, "lock balance of %s", transfer.From)
	}
	amount := fromUint64(transfer.Amount)
	if source.Balance.LessThan(amount) {
		return domainerrors.ErrInsufficientCustody
	}

	if err := tx.Model(&balanceModel{}).
		Where("wallet = ?", transfer.From).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": at.UTC(),
		}).
		Error; err != nil {
		return errors.Wrapf(err, "debit %s", transfer.From)
	}
	if err := creditWallet(tx, transfer.To, transfer.Amount, at); err != nil {
		return err
	}

	row := transferModel{
		Reference:  transfer.Reference,
		FromWallet: transfer.From,
		ToWallet:   transfer.To,
		Amount:     amount,
		CreatedAt:  at.UTC(),
	}
	if err := tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return errors.Wrap(err, "record transfer")
	}
	return nil
}

func creditWallet(tx *gorm.DB, wallet string, amount uint64, at time.Time) error {
	row := balanceModel{
		Wallet:    wallet,
		Balance:   fromUint64(amount),
		UpdatedAt: at.UTC(),
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wallet"}},
		DoUpdates: clause.Assignments(map[string]any{
			"balance":    gorm.Expr("ledger_balances.balance + EXCLUDED.balance"),
			"updated_at": at.UTC(),
		}),
	}).Create(&row).Error
	return errors.Wrapf(err, "credit %s", wallet)
}

func createOutbox(tx *gorm.DB, event ports.VestingEvent, payload []byte) error {
	row := outboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    event.OccurredAt.UTC(),
	}
	if err := tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return errors.Wrap(err, "enqueue outbox event")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
