package commands

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	application "tokenvest/contexts/token-economics/vesting-engine/application"
	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/domain/services"
	"tokenvest/contexts/token-economics/vesting-engine/ports"
	contractsv1 "tokenvest/contracts/gen/events/v1"

	"github.com/cockroachdb/errors"
)

type ClaimTokensCommand struct {
	AccountID string
	Identity  string
	// Destination defaults to the beneficiary's wallet.
	Destination    string
	IdempotencyKey string
}

type ClaimTokensResult struct {
	Receipt  entities.ClaimReceipt
	Replayed bool
}

type ClaimTokensUseCase struct {
	Accounts       ports.AccountRepository
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute runs the claim workflow in this order:
// 1) idempotency lookup/replay
// 2) reconciliation under the account lock
// 3) claimed total, custody transfer, receipt and outbox in one write unit
// 4) idempotency record write.
func (u ClaimTokensUseCase) Execute(ctx context.Context, cmd ClaimTokensCommand) (ClaimTokensResult, error) {
	logger := application.ModuleLogger(u.Logger, "application")
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return ClaimTokensResult{}, domainerrors.ErrIdempotencyKeyMissing
	}
	if strings.TrimSpace(cmd.AccountID) == "" || strings.TrimSpace(cmd.Identity) == "" {
		return ClaimTokensResult{}, domainerrors.ErrInvalidRequest
	}
	identity := strings.TrimSpace(cmd.Identity)
	destination := strings.TrimSpace(cmd.Destination)
	if destination == "" {
		destination = entities.WalletFor(identity)
	}
	if entities.IsCustodyWallet(destination) {
		return ClaimTokensResult{}, errors.Wrapf(domainerrors.ErrInvalidRequest, "claim destination %q is a custody wallet", destination)
	}

	now := resolveNow(u.Clock)
	requestHash := hashRequest(strings.TrimSpace(cmd.AccountID), identity, destination)

	logger.Info("claim tokens started",
		"event", "claim_tokens_started",
		"account_id", cmd.AccountID,
		"identity", identity,
		"idempotency_key", cmd.IdempotencyKey,
	)

	record, found, err := u.Idempotency.Get(ctx, cmd.IdempotencyKey, now)
	if err != nil {
		logger.Error("idempotency get failed",
			"event", "claim_tokens_idempotency_get_failed",
			"account_id", cmd.AccountID,
			"identity", identity,
			"error", err.Error(),
		)
		return ClaimTokensResult{}, err
	}
	if found {
		// A reused idempotency key must map to an identical request payload.
		if record.RequestHash != requestHash {
			logger.Warn("idempotency key conflict",
				"event", "claim_tokens_idempotency_conflict",
				"account_id", cmd.AccountID,
				"identity", identity,
			)
			return ClaimTokensResult{}, domainerrors.ErrIdempotencyKeyConflict
		}
		receipt, err := u.Accounts.GetReceipt(ctx, record.ResourceID)
		if err != nil {
			logger.Error("idempotency replay failed to load receipt",
				"event", "claim_tokens_replay_load_failed",
				"claim_id", record.ResourceID,
				"error", err.Error(),
			)
			return ClaimTokensResult{}, err
		}
		logger.Info("claim tokens replayed from idempotency",
			"event", "claim_tokens_replayed",
			"claim_id", receipt.ClaimID,
			"account_id", receipt.AccountID,
			"identity", receipt.Identity,
		)
		return ClaimTokensResult{Receipt: receipt, Replayed: true}, nil
	}

	claimID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return ClaimTokensResult{}, err
	}
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return ClaimTokensResult{}, err
	}

	var receipt entities.ClaimReceipt
	_, err = u.Accounts.UpdateAccount(ctx, cmd.AccountID, func(account *entities.VestingAccount) (ports.Mutation, error) {
		decision, err := services.Reconcile(*account, identity, now)
		if err != nil {
			return ports.Mutation{}, err
		}
		if err := account.ApplyClaim(identity, decision.Amount, now); err != nil {
			return ports.Mutation{}, err
		}
		_, beneficiary, _ := account.FindBeneficiary(identity)

		receipt = entities.ClaimReceipt{
			ClaimID:        claimID,
			AccountID:      account.AccountID,
			Identity:       beneficiary.Identity,
			Destination:    destination,
			Amount:         decision.Amount,
			TransferAmount: decision.TransferAmount,
			TotalClaimable: decision.TotalClaimable,
			ClaimedTotal:   beneficiary.ClaimedTokens,
			ClaimedAt:      now,
		}
		return ports.Mutation{
			Transfer: &ports.Transfer{
				From:      account.CustodyWallet,
				To:        destination,
				Amount:    decision.TransferAmount,
				Reference: "claim:" + claimID,
			},
			Receipt: &receipt,
			Event: &ports.VestingEvent{
				EventID:      eventID,
				EventType:    contractsv1.EventTypeTokensClaimed,
				AccountID:    account.AccountID,
				PartitionKey: account.AccountID,
				OccurredAt:   now,
				Data: contractsv1.TokensClaimedData{
					ClaimID:        claimID,
					AccountID:      account.AccountID,
					Identity:       beneficiary.Identity,
					Destination:    destination,
					Amount:         strconv.FormatUint(decision.Amount, 10),
					TransferAmount: strconv.FormatUint(decision.TransferAmount, 10),
					ClaimedTotal:   strconv.FormatUint(beneficiary.ClaimedTokens, 10),
				},
			},
		}, nil
	})
	if err != nil {
		logger.Warn("claim tokens rejected",
			"event", "claim_tokens_rejected",
			"account_id", cmd.AccountID,
			"identity", identity,
			"error", err.Error(),
		)
		return ClaimTokensResult{}, err
	}

	if err := u.Idempotency.Put(ctx, ports.IdempotencyRecord{
		Key:         cmd.IdempotencyKey,
		RequestHash: requestHash,
		ResourceID:  receipt.ClaimID,
		ExpiresAt:   now.Add(resolveIdempotencyTTL(u.IdempotencyTTL)),
	}); err != nil {
		return ClaimTokensResult{}, err
	}

	logger.Info("tokens claimed",
		"event", "vesting_tokens_claimed",
		"claim_id", receipt.ClaimID,
		"account_id", receipt.AccountID,
		"identity", receipt.Identity,
		"amount", receipt.Amount,
		"transfer_amount", receipt.TransferAmount,
	)
	return ClaimTokensResult{Receipt: receipt}, nil
}
