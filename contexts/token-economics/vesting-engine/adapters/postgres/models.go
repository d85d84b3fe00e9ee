package postgresadapter

import (
	"math/big"
	"time"

	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/domain/schedule"
	"tokenvest/contexts/token-economics/vesting-engine/domain/valueobjects"
	"tokenvest/contexts/token-economics/vesting-engine/ports"

	"github.com/shopspring/decimal"
)

// Token amounts are stored as NUMERIC(20,0): a uint64 does not fit BIGINT.

type accountModel struct {
	AccountID      string          `gorm:"column:account_id;primaryKey"`
	Initializer    string          `gorm:"column:initializer;not null"`
	SourceWallet   string          `gorm:"column:source_wallet;not null"`
	CustodyWallet  string          `gorm:"column:custody_wallet;not null;uniqueIndex"`
	TokenMint      string          `gorm:"column:token_mint;not null"`
	TotalDeposited decimal.Decimal `gorm:"column:total_deposited;type:numeric(20,0);not null"`
	Decimals       int16           `gorm:"column:decimals;not null"`
	Rounding       string          `gorm:"column:rounding;not null"`
	State          string          `gorm:"column:state;not null"`
	ActivationTime int64           `gorm:"column:activation_time"`
	CreatedAt      time.Time       `gorm:"column:created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at"`
}

func (accountModel) TableName() string {
	return "vesting_accounts"
}

func accountModelFromEntity(account entities.VestingAccount) accountModel {
	return accountModel{
		AccountID:      account.AccountID,
		Initializer:    account.Initializer,
		SourceWallet:   account.SourceWallet,
		CustodyWallet:  account.CustodyWallet,
		TokenMint:      account.TokenMint,
		TotalDeposited: fromUint64(account.TotalDeposited),
		Decimals:       int16(account.Decimals),
		Rounding:       string(account.Rounding),
		State:          string(account.State),
		ActivationTime: account.ActivationTime,
		CreatedAt:      account.CreatedAt.UTC(),
		UpdatedAt:      account.UpdatedAt.UTC(),
	}
}

func (m accountModel) toEntity(rows []beneficiaryModel) (entities.VestingAccount, error) {
	total, err := toUint64(m.TotalDeposited)
	if err != nil {
		return entities.VestingAccount{}, err
	}
	beneficiaries := make([]entities.Beneficiary, 0, len(rows))
	for _, row := range rows {
		beneficiary, err := row.toEntity()
		if err != nil {
			return entities.VestingAccount{}, err
		}
		beneficiaries = append(beneficiaries, beneficiary)
	}
	return entities.VestingAccount{
		AccountID:      m.AccountID,
		Initializer:    m.Initializer,
		SourceWallet:   m.SourceWallet,
		CustodyWallet:  m.CustodyWallet,
		TokenMint:      m.TokenMint,
		TotalDeposited: total,
		Decimals:       uint8(m.Decimals),
		Rounding:       schedule.Rounding(m.Rounding),
		State:          entities.LifecycleState(m.State),
		ActivationTime: m.ActivationTime,
		Beneficiaries:  beneficiaries,
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}, nil
}

type beneficiaryModel struct {
	AccountID            string          `gorm:"column:account_id;primaryKey"`
	Identity             string          `gorm:"column:identity;primaryKey"`
	Position             int             `gorm:"column:position;not null"`
	AllocatedTokens      decimal.Decimal `gorm:"column:allocated_tokens;type:numeric(20,0);not null"`
	ClaimedTokens        decimal.Decimal `gorm:"column:claimed_tokens;type:numeric(20,0);not null"`
	LockupDelay          int64           `gorm:"column:lockup_delay;not null"`
	InitialUnlockPercent decimal.Decimal `gorm:"column:initial_unlock_percent;type:numeric(9,6);not null"`
	RoundCount           int64           `gorm:"column:round_count;not null"`
	RoundSpan            int64           `gorm:"column:round_span;not null"`
	ConfirmedRound       int64           `gorm:"column:confirmed_round;not null"`
}

func (beneficiaryModel) TableName() string {
	return "vesting_beneficiaries"
}

func beneficiaryModelsFromEntity(account entities.VestingAccount) []beneficiaryModel {
	rows := make([]beneficiaryModel, 0, len(account.Beneficiaries))
	for i, beneficiary := range account.Beneficiaries {
		rows = append(rows, beneficiaryModel{
			AccountID:            account.AccountID,
			Identity:             beneficiary.Identity,
			Position:             i,
			AllocatedTokens:      fromUint64(beneficiary.AllocatedTokens),
			ClaimedTokens:        fromUint64(beneficiary.ClaimedTokens),
			LockupDelay:          beneficiary.LockupDelay,
			InitialUnlockPercent: beneficiary.InitialUnlockPercent.Decimal(),
			RoundCount:           int64(beneficiary.RoundCount),
			RoundSpan:            beneficiary.RoundSpan,
			ConfirmedRound:       int64(beneficiary.ConfirmedRound),
		})
	}
	return rows
}

func (m beneficiaryModel) toEntity() (entities.Beneficiary, error) {
	allocated, err := toUint64(m.AllocatedTokens)
	if err != nil {
		return entities.Beneficiary{}, err
	}
	claimed, err := toUint64(m.ClaimedTokens)
	if err != nil {
		return entities.Beneficiary{}, err
	}
	percent, err := valueobjects.NewPercent(m.InitialUnlockPercent)
	if err != nil {
		return entities.Beneficiary{}, err
	}
	return entities.Beneficiary{
		Identity:             m.Identity,
		AllocatedTokens:      allocated,
		ClaimedTokens:        claimed,
		LockupDelay:          m.LockupDelay,
		InitialUnlockPercent: percent,
		RoundCount:           uint32(m.RoundCount),
		RoundSpan:            m.RoundSpan,
		ConfirmedRound:       uint32(m.ConfirmedRound),
	}, nil
}

type receiptModel struct {
	ClaimID        string          `gorm:"column:claim_id;primaryKey"`
	AccountID      string          `gorm:"column:account_id;index:vesting_claim_receipts_account_identity"`
	Identity       string          `gorm:"column:identity;index:vesting_claim_receipts_account_identity"`
	Destination    string          `gorm:"column:destination"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(20,0)"`
	TransferAmount decimal.Decimal `gorm:"column:transfer_amount;type:numeric(20,0)"`
	TotalClaimable decimal.Decimal `gorm:"column:total_claimable;type:numeric(20,0)"`
	ClaimedTotal   decimal.Decimal `gorm:"column:claimed_total;type:numeric(20,0)"`
	ClaimedAt      time.Time       `gorm:"column:claimed_at"`
}

func (receiptModel) TableName() string {
	return "vesting_claim_receipts"
}

func receiptModelFromEntity(receipt entities.ClaimReceipt) receiptModel {
	return receiptModel{
		ClaimID:        receipt.ClaimID,
		AccountID:      receipt.AccountID,
		Identity:       receipt.Identity,
		Destination:    receipt.Destination,
		Amount:         fromUint64(receipt.Amount),
		TransferAmount: fromUint64(receipt.TransferAmount),
		TotalClaimable: fromUint64(receipt.TotalClaimable),
		ClaimedTotal:   fromUint64(receipt.ClaimedTotal),
		ClaimedAt:      receipt.ClaimedAt.UTC(),
	}
}

func (m receiptModel) toEntity() (entities.ClaimReceipt, error) {
	values := make([]uint64, 0, 4)
	for _, value := range []decimal.Decimal{m.Amount, m.TransferAmount, m.TotalClaimable, m.ClaimedTotal} {
		converted, err := toUint64(value)
		if err != nil {
			return entities.ClaimReceipt{}, err
		}
		values = append(values, converted)
	}
	return entities.ClaimReceipt{
		ClaimID:        m.ClaimID,
		AccountID:      m.AccountID,
		Identity:       m.Identity,
		Destination:    m.Destination,
		Amount:         values[0],
		TransferAmount: values[1],
		TotalClaimable: values[2],
		ClaimedTotal:   values[3],
		ClaimedAt:      m.ClaimedAt.UTC(),
	}, nil
}

type balanceModel struct {
	Wallet    string          `gorm:"column:wallet;primaryKey"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(20,0);not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (balanceModel) TableName() string {
	return "ledger_balances"
}

type transferModel struct {
	Reference  string          `gorm:"column:reference;primaryKey"`
	FromWallet string          `gorm:"column:from_wallet;not null"`
	ToWallet   string          `gorm:"column:to_wallet;not null"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(20,0);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at"`
}

func (transferModel) TableName() string {
	return "ledger_transfers"
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	ResourceID  string    `gorm:"column:resource_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "vesting_idempotency"
}

func idempotencyModelFromPort(record ports.IdempotencyRecord) idempotencyModel {
	return idempotencyModel{
		Key:         record.Key,
		RequestHash: record.RequestHash,
		ResourceID:  record.ResourceID,
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
}

func (m idempotencyModel) toPort() ports.IdempotencyRecord {
	return ports.IdempotencyRecord{
		Key:         m.Key,
		RequestHash: m.RequestHash,
		ResourceID:  m.ResourceID,
		ExpiresAt:   m.ExpiresAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "vesting_outbox"
}

func (m outboxModel) toPort() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      append([]byte(nil), m.Payload...),
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

func fromUint64(value uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(value), 0)
}

func toUint64(value decimal.Decimal) (uint64, error) {
	if value.IsNegative() || !value.Equal(value.Truncate(0)) {
		return 0, domainerrors.ErrRepositoryInvariantBroke
	}
	integer := value.BigInt()
	if !integer.IsUint64() {
		return 0, domainerrors.ErrOverflow
	}
	return integer.Uint64(), nil
}
