package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	application "tokenvest/contexts/token-economics/vesting-engine/application"
	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/domain/schedule"
	"tokenvest/contexts/token-economics/vesting-engine/ports"
	contractsv1 "tokenvest/contracts/gen/events/v1"
)

type InitializeAccountCommand struct {
	Initializer string
	// SourceWallet defaults to the initializer's wallet.
	SourceWallet   string
	TokenMint      string
	TotalDeposited uint64
	Decimals       uint8
	Rounding       schedule.Rounding
	Beneficiaries  []entities.Beneficiary
	IdempotencyKey string
}

type InitializeAccountResult struct {
	Account  entities.VestingAccount
	Replayed bool
}

type InitializeAccountUseCase struct {
	Accounts       ports.AccountRepository
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute validates the beneficiary configuration and, in one write unit,
// creates the account and moves the deposit into its custody wallet.
func (u InitializeAccountUseCase) Execute(ctx context.Context, cmd InitializeAccountCommand) (InitializeAccountResult, error) {
	logger := application.ModuleLogger(u.Logger, "application")
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return InitializeAccountResult{}, domainerrors.ErrIdempotencyKeyMissing
	}
	if strings.TrimSpace(cmd.Initializer) == "" {
		return InitializeAccountResult{}, domainerrors.ErrInvalidSender
	}
	// Deposits may only be drawn from the initializer's own wallet.
	sourceWallet := strings.TrimSpace(cmd.SourceWallet)
	if sourceWallet == "" {
		sourceWallet = entities.WalletFor(cmd.Initializer)
	}
	if sourceWallet != entities.WalletFor(cmd.Initializer) {
		logger.Warn("initialize account source wallet rejected",
			"event", "initialize_account_source_rejected",
			"initializer", cmd.Initializer,
			"source_wallet", sourceWallet,
		)
		return InitializeAccountResult{}, domainerrors.ErrInvalidSender
	}

	now := resolveNow(u.Clock)
	requestHash := hashInitialize(cmd, sourceWallet)

	record, found, err := u.Idempotency.Get(ctx, cmd.IdempotencyKey, now)
	if err != nil {
		logger.Error("idempotency get failed",
			"event", "initialize_account_idempotency_get_failed",
			"initializer", cmd.Initializer,
			"error", err.Error(),
		)
		return InitializeAccountResult{}, err
	}
	if found {
		if record.RequestHash != requestHash {
			logger.Warn("idempotency key conflict",
				"event", "initialize_account_idempotency_conflict",
				"initializer", cmd.Initializer,
			)
			return InitializeAccountResult{}, domainerrors.ErrIdempotencyKeyConflict
		}
		account, err := u.Accounts.GetAccount(ctx, record.ResourceID)
		if err != nil {
			return InitializeAccountResult{}, err
		}
		logger.Info("initialize account replayed",
			"event", "initialize_account_replayed",
			"account_id", account.AccountID,
		)
		return InitializeAccountResult{Account: account, Replayed: true}, nil
	}

	accountID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return InitializeAccountResult{}, err
	}
	account, err := entities.NewVestingAccount(
		accountID,
		cmd.Initializer,
		sourceWallet,
		cmd.TokenMint,
		cmd.TotalDeposited,
		cmd.Decimals,
		cmd.Rounding,
		cmd.Beneficiaries,
		now,
	)
	if err != nil {
		logger.Warn("initialize account rejected",
			"event", "initialize_account_rejected",
			"initializer", cmd.Initializer,
			"configuration_error", domainerrors.IsConfiguration(err),
			"error", err.Error(),
		)
		return InitializeAccountResult{}, err
	}
	depositAmount, err := account.DepositAmount()
	if err != nil {
		return InitializeAccountResult{}, err
	}

	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return InitializeAccountResult{}, err
	}
	deposit := ports.Transfer{
		From:      account.SourceWallet,
		To:        account.CustodyWallet,
		Amount:    depositAmount,
		Reference: "deposit:" + account.AccountID,
	}
	event := ports.VestingEvent{
		EventID:      eventID,
		EventType:    contractsv1.EventTypeAccountInitialized,
		AccountID:    account.AccountID,
		PartitionKey: account.AccountID,
		OccurredAt:   now,
		Data: contractsv1.AccountInitializedData{
			AccountID:        account.AccountID,
			Initializer:      account.Initializer,
			TokenMint:        account.TokenMint,
			CustodyWallet:    account.CustodyWallet,
			TotalDeposited:   strconv.FormatUint(account.TotalDeposited, 10),
			DepositAmount:    strconv.FormatUint(depositAmount, 10),
			Decimals:         account.Decimals,
			BeneficiaryCount: len(account.Beneficiaries),
		},
	}

	if err := u.Accounts.CreateAccountWithDeposit(ctx, account, deposit, event); err != nil {
		logger.Error("initialize account failed on write transaction",
			"event", "initialize_account_write_failed",
			"account_id", account.AccountID,
			"error", err.Error(),
		)
		return InitializeAccountResult{}, err
	}

	if err := u.Idempotency.Put(ctx, ports.IdempotencyRecord{
		Key:         cmd.IdempotencyKey,
		RequestHash: requestHash,
		ResourceID:  account.AccountID,
		ExpiresAt:   now.Add(resolveIdempotencyTTL(u.IdempotencyTTL)),
	}); err != nil {
		return InitializeAccountResult{}, err
	}

	logger.Info("vesting account initialized",
		"event", "vesting_account_initialized",
		"account_id", account.AccountID,
		"initializer", account.Initializer,
		"beneficiaries", len(account.Beneficiaries),
		"deposit_amount", depositAmount,
	)
	return InitializeAccountResult{Account: account}, nil
}

func hashInitialize(cmd InitializeAccountCommand, sourceWallet string) string {
	parts := []string{
		strings.TrimSpace(cmd.Initializer),
		sourceWallet,
		strings.TrimSpace(cmd.TokenMint),
		strconv.FormatUint(cmd.TotalDeposited, 10),
		strconv.FormatUint(uint64(cmd.Decimals), 10),
		string(cmd.Rounding),
	}
	for _, b := range cmd.Beneficiaries {
		parts = append(parts, fmt.Sprintf("%s:%d:%d:%s:%d:%d",
			strings.TrimSpace(b.Identity),
			b.AllocatedTokens,
			b.LockupDelay,
			b.InitialUnlockPercent.String(),
			b.RoundCount,
			b.RoundSpan,
		))
	}
	return hashRequest(parts...)
}
