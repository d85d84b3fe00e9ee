package postgresadapter

import (
	"context"
	"database/sql"
	"math"
	"testing"
	"time"

	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/ports"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return NewRepository(db, nil), mock
}

var fixedTime = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"account_id", "initializer", "source_wallet", "custody_wallet", "token_mint",
		"total_deposited", "decimals", "rounding", "state", "activation_time",
		"created_at", "updated_at",
	}).AddRow(
		"acct-1", "alice", "wallet:alice", "custody:acct-1", "MINT",
		"1000000", 6, "remainder_to_last", "active", fixedTime.Unix(),
		fixedTime, fixedTime,
	)
}

func beneficiaryRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"account_id", "identity", "position", "allocated_tokens", "claimed_tokens",
		"lockup_delay", "initial_unlock_percent", "round_count", "round_span", "confirmed_round",
	}).AddRow("acct-1", "bob", 0, "1000000", "250000", 0, "10", 10, 10000, 0)
}

func TestGetAccountLoadsBeneficiaries(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT \* FROM "vesting_accounts" WHERE account_id = \$1`).
		WillReturnRows(accountRows())
	mock.ExpectQuery(`SELECT \* FROM "vesting_beneficiaries" WHERE account_id = \$1 ORDER BY position ASC`).
		WillReturnRows(beneficiaryRows())

	account, err := repo.GetAccount(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), account.TotalDeposited)
	assert.Equal(t, entities.LifecycleActive, account.State)
	require.Len(t, account.Beneficiaries, 1)
	assert.Equal(t, uint64(250_000), account.Beneficiaries[0].ClaimedTokens)
	assert.Equal(t, uint64(100_000), account.Beneficiaries[0].Bonus())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccountNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT \* FROM "vesting_accounts"`).
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}))

	_, err := repo.GetAccount(context.Background(), "missing")
	require.ErrorIs(t, err, domainerrors.ErrAccountNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverErrorsAreWrappedWithOperation(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT \* FROM "vesting_accounts"`).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectQuery(`SELECT \* FROM "ledger_balances"`).
		WillReturnError(sql.ErrConnDone)

	_, err := repo.GetAccount(context.Background(), "acct-1")
	require.ErrorIs(t, err, sql.ErrConnDone)
	assert.ErrorContains(t, err, "load vesting account")

	_, err = repo.Balance(context.Background(), "custody:acct-1")
	require.ErrorIs(t, err, sql.ErrConnDone)
	assert.ErrorContains(t, err, "load balance of custody:acct-1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAccountRollsBackWhenMutateFails(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "vesting_accounts" WHERE account_id = \$1 .*FOR UPDATE`).
		WillReturnRows(accountRows())
	mock.ExpectQuery(`SELECT \* FROM "vesting_beneficiaries"`).
		WillReturnRows(beneficiaryRows())
	mock.ExpectRollback()

	_, err := repo.UpdateAccount(context.Background(), "acct-1", func(account *entities.VestingAccount) (ports.Mutation, error) {
		return ports.Mutation{}, domainerrors.ErrInvalidSender
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidSender)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountRejectsShortSourceWallet(t *testing.T) {
	repo, mock := newMockRepository(t)

	account := entities.VestingAccount{
		AccountID:      "acct-2",
		Initializer:    "alice",
		SourceWallet:   "wallet:alice",
		CustodyWallet:  "custody:acct-2",
		TokenMint:      "MINT",
		TotalDeposited: 100,
		State:          entities.LifecycleUninitialized,
		Beneficiaries:  []entities.Beneficiary{{Identity: "bob", AllocatedTokens: 100, RoundCount: 1}},
		CreatedAt:      fixedTime,
		UpdatedAt:      fixedTime,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "vesting_accounts"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "vesting_beneficiaries"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "ledger_balances" WHERE wallet = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"wallet", "balance", "updated_at"}).
			AddRow("wallet:alice", "5", fixedTime))
	mock.ExpectRollback()

	err := repo.CreateAccountWithDeposit(context.Background(), account, ports.Transfer{
		From:      "wallet:alice",
		To:        "custody:acct-2",
		Amount:    100,
		Reference: "deposit:acct-2",
	}, ports.VestingEvent{EventID: "evt-1", EventType: "vesting.account_initialized", OccurredAt: fixedTime})
	require.ErrorIs(t, err, domainerrors.ErrInsufficientCustody)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceOfUnknownWalletIsZero(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT \* FROM "ledger_balances"`).
		WillReturnRows(sqlmock.NewRows([]string{"wallet", "balance", "updated_at"}))

	balance, err := repo.Balance(context.Background(), "custody:none")
	require.NoError(t, err)
	assert.Zero(t, balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPutIdempotencyConflict(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`INSERT INTO "vesting_idempotency" .* ON CONFLICT .* DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "vesting_idempotency" WHERE key = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "request_hash", "resource_id", "expires_at"}).
			AddRow("key-1", "other-hash", "claim-1", fixedTime.Add(time.Hour)))

	err := repo.Put(context.Background(), ports.IdempotencyRecord{
		Key:         "key-1",
		RequestHash: "hash",
		ResourceID:  "claim-2",
		ExpiresAt:   fixedTime.Add(time.Hour),
	})
	require.ErrorIs(t, err, domainerrors.ErrIdempotencyKeyConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAmountConversions(t *testing.T) {
	value, err := toUint64(fromUint64(math.MaxUint64))
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), value)

	_, err = toUint64(fromUint64(math.MaxUint64).Add(decimal.NewFromInt(1)))
	require.ErrorIs(t, err, domainerrors.ErrOverflow)

	_, err = toUint64(decimal.NewFromInt(-1))
	require.ErrorIs(t, err, domainerrors.ErrRepositoryInvariantBroke)

	_, err = toUint64(decimal.RequireFromString("1.5"))
	require.ErrorIs(t, err, domainerrors.ErrRepositoryInvariantBroke)
}
