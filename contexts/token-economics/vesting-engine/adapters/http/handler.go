package httpadapter

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	application "tokenvest/contexts/token-economics/vesting-engine/application"
	"tokenvest/contexts/token-economics/vesting-engine/application/commands"
	"tokenvest/contexts/token-economics/vesting-engine/application/queries"
	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/domain/schedule"
	"tokenvest/contexts/token-economics/vesting-engine/domain/valueobjects"
	httptransport "tokenvest/contexts/token-economics/vesting-engine/transport/http"

	"github.com/cockroachdb/errors"
)

type Handler struct {
	InitializeAccount commands.InitializeAccountUseCase
	ReleaseAccount    commands.ReleaseAccountUseCase
	ConfirmRound      commands.ConfirmRoundUseCase
	ClaimTokens       commands.ClaimTokensUseCase
	GetAccount        queries.GetAccountUseCase
	PreviewSchedule   queries.PreviewScheduleUseCase
	ListReceipts      queries.ListReceiptsUseCase
	Logger            *slog.Logger
}

func (h Handler) CreateAccountHandler(
	ctx context.Context,
	initializer string,
	idempotencyKey string,
	req httptransport.CreateAccountRequest,
) (httptransport.CreateAccountResponse, error) {
	logger := application.ModuleLogger(h.Logger, "transport")

	total, err := parseAmount(req.TotalDeposited)
	if err != nil {
		return httptransport.CreateAccountResponse{}, err
	}
	rounding := schedule.Rounding(strings.TrimSpace(req.Rounding))
	if !rounding.Valid() {
		return httptransport.CreateAccountResponse{}, errors.Wrapf(domainerrors.ErrInvalidRequest, "unknown rounding %q", req.Rounding)
	}
	beneficiaries := make([]entities.Beneficiary, 0, len(req.Beneficiaries))
	for _, item := range req.Beneficiaries {
		allocated, err := parseAmount(item.AllocatedTokens)
		if err != nil {
			return httptransport.CreateAccountResponse{}, err
		}
		percent, err := valueobjects.ParsePercent(item.InitialUnlockPercent)
		if err != nil {
			return httptransport.CreateAccountResponse{}, err
		}
		beneficiaries = append(beneficiaries, entities.Beneficiary{
			Identity:             item.Identity,
			AllocatedTokens:      allocated,
			LockupDelay:          item.LockupDelay,
			InitialUnlockPercent: percent,
			RoundCount:           item.RoundCount,
			RoundSpan:            item.RoundSpan,
		})
	}

	result, err := h.InitializeAccount.Execute(ctx, commands.InitializeAccountCommand{
		Initializer:    initializer,
		SourceWallet:   req.SourceWallet,
		TokenMint:      req.TokenMint,
		TotalDeposited: total,
		Decimals:       req.Decimals,
		Rounding:       rounding,
		Beneficiaries:  beneficiaries,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		logger.Warn("create account request failed",
			"event", "http_create_account_failed",
			"initializer", initializer,
			"error", err.Error(),
		)
		return httptransport.CreateAccountResponse{}, err
	}
	return httptransport.CreateAccountResponse{
		Item:     mapAccount(result.Account),
		Replayed: result.Replayed,
	}, nil
}

func (h Handler) GetAccountHandler(ctx context.Context, accountID string) (httptransport.GetAccountResponse, error) {
	account, err := h.GetAccount.Execute(ctx, accountID)
	if err != nil {
		return httptransport.GetAccountResponse{}, err
	}
	return httptransport.GetAccountResponse{Item: mapAccount(account)}, nil
}

func (h Handler) ReleaseAccountHandler(ctx context.Context, accountID string, sender string) (httptransport.GetAccountResponse, error) {
	account, err := h.ReleaseAccount.Execute(ctx, commands.ReleaseAccountCommand{
		AccountID: accountID,
		Sender:    sender,
	})
	if err != nil {
		return httptransport.GetAccountResponse{}, err
	}
	return httptransport.GetAccountResponse{Item: mapAccount(account)}, nil
}

func (h Handler) ConfirmRoundHandler(
	ctx context.Context,
	accountID string,
	sender string,
	identity string,
	req httptransport.ConfirmRoundRequest,
) (httptransport.GetAccountResponse, error) {
	account, err := h.ConfirmRound.Execute(ctx, commands.ConfirmRoundCommand{
		AccountID: accountID,
		Sender:    sender,
		Identity:  identity,
		Round:     req.Round,
	})
	if err != nil {
		return httptransport.GetAccountResponse{}, err
	}
	return httptransport.GetAccountResponse{Item: mapAccount(account)}, nil
}

func (h Handler) ClaimHandler(
	ctx context.Context,
	accountID string,
	identity string,
	idempotencyKey string,
	req httptransport.ClaimRequest,
) (httptransport.ClaimResponse, error) {
	result, err := h.ClaimTokens.Execute(ctx, commands.ClaimTokensCommand{
		AccountID:      accountID,
		Identity:       identity,
		Destination:    req.Destination,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.ClaimResponse{}, err
	}
	return httptransport.ClaimResponse{
		Receipt:  mapReceipt(result.Receipt),
		Replayed: result.Replayed,
	}, nil
}

func (h Handler) ScheduleHandler(ctx context.Context, accountID string, identity string) (httptransport.ScheduleResponse, error) {
	result, err := h.PreviewSchedule.Execute(ctx, queries.PreviewScheduleQuery{
		AccountID: accountID,
		Identity:  identity,
	})
	if err != nil {
		return httptransport.ScheduleResponse{}, err
	}

	asOf := result.AsOf.Unix()
	entries := make([]httptransport.ScheduleEntryDTO, 0, len(result.Entries))
	for _, entry := range result.Entries {
		entries = append(entries, httptransport.ScheduleEntryDTO{
			Round:       entry.Round,
			UnlockTime:  entry.UnlockTime,
			Entitlement: formatAmount(entry.Entitlement),
			Unlocked:    result.Active && entry.UnlockTime <= asOf,
		})
	}
	return httptransport.ScheduleResponse{
		AccountID:      result.AccountID,
		Identity:       result.Identity,
		Active:         result.Active,
		AsOf:           result.AsOf.Format(time.RFC3339),
		LockupEnd:      result.LockupEnd,
		Entries:        entries,
		Truncated:      result.Truncated,
		TotalAllocated: formatAmount(result.TotalAllocated),
		Vested:         formatAmount(result.Vested),
		Claimed:        formatAmount(result.Claimed),
		Claimable:      formatAmount(result.Claimable),
	}, nil
}

func (h Handler) ListReceiptsHandler(ctx context.Context, accountID string, identity string) (httptransport.ListReceiptsResponse, error) {
	result, err := h.ListReceipts.Execute(ctx, queries.ListReceiptsQuery{
		AccountID: accountID,
		Identity:  identity,
	})
	if err != nil {
		return httptransport.ListReceiptsResponse{}, err
	}
	items := make([]httptransport.ReceiptDTO, 0, len(result.Items))
	for _, receipt := range result.Items {
		items = append(items, mapReceipt(receipt))
	}
	return httptransport.ListReceiptsResponse{Items: items}, nil
}

func mapAccount(account entities.VestingAccount) httptransport.AccountDTO {
	beneficiaries := make([]httptransport.BeneficiaryDTO, 0, len(account.Beneficiaries))
	for _, b := range account.Beneficiaries {
		beneficiaries = append(beneficiaries, httptransport.BeneficiaryDTO{
			Identity:             b.Identity,
			AllocatedTokens:      formatAmount(b.AllocatedTokens),
			ClaimedTokens:        formatAmount(b.ClaimedTokens),
			LockupDelay:          b.LockupDelay,
			InitialUnlockPercent: b.InitialUnlockPercent.String(),
			RoundCount:           b.RoundCount,
			RoundSpan:            b.RoundSpan,
			ConfirmedRound:       b.ConfirmedRound,
		})
	}
	return httptransport.AccountDTO{
		AccountID:      account.AccountID,
		Initializer:    account.Initializer,
		SourceWallet:   account.SourceWallet,
		CustodyWallet:  account.CustodyWallet,
		TokenMint:      account.TokenMint,
		TotalDeposited: formatAmount(account.TotalDeposited),
		Decimals:       account.Decimals,
		Rounding:       string(account.Rounding),
		State:          string(account.State),
		ActivationTime: account.ActivationTime,
		Beneficiaries:  beneficiaries,
		CreatedAt:      account.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      account.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func mapReceipt(receipt entities.ClaimReceipt) httptransport.ReceiptDTO {
	return httptransport.ReceiptDTO{
		ClaimID:        receipt.ClaimID,
		AccountID:      receipt.AccountID,
		Identity:       receipt.Identity,
		Destination:    receipt.Destination,
		Amount:         formatAmount(receipt.Amount),
		TransferAmount: formatAmount(receipt.TransferAmount),
		TotalClaimable: formatAmount(receipt.TotalClaimable),
		ClaimedTotal:   formatAmount(receipt.ClaimedTotal),
		ClaimedAt:      receipt.ClaimedAt.UTC().Format(time.RFC3339),
	}
}

func parseAmount(raw string) (uint64, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(domainerrors.ErrInvalidRequest, "invalid amount %q", raw)
	}
	return value, nil
}

func formatAmount(value uint64) string {
	return strconv.FormatUint(value, 10)
}
