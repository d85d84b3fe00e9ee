package queries

import (
	"context"
	"log/slog"
	"strings"

	application "tokenvest/contexts/token-economics/vesting-engine/application"
	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/ports"
)

type ListReceiptsQuery struct {
	AccountID string
	Identity  string
}

type ListReceiptsResult struct {
	Items []entities.ClaimReceipt
}

type ListReceiptsUseCase struct {
	Accounts ports.AccountRepository
	Logger   *slog.Logger
}

func (u ListReceiptsUseCase) Execute(ctx context.Context, query ListReceiptsQuery) (ListReceiptsResult, error) {
	logger := application.ModuleLogger(u.Logger, "application")
	if strings.TrimSpace(query.AccountID) == "" {
		return ListReceiptsResult{}, domainerrors.ErrInvalidRequest
	}
	account, err := u.Accounts.GetAccount(ctx, query.AccountID)
	if err != nil {
		return ListReceiptsResult{}, err
	}
	if query.Identity != "" {
		if _, _, ok := account.FindBeneficiary(query.Identity); !ok {
			return ListReceiptsResult{}, domainerrors.ErrBeneficiaryNotFound
		}
	}

	items, err := u.Accounts.ListReceipts(ctx, query.AccountID, strings.TrimSpace(query.Identity))
	if err != nil {
		logger.Error("list receipts failed",
			"event", "list_receipts_failed",
			"account_id", query.AccountID,
			"identity", query.Identity,
			"error", err.Error(),
		)
		return ListReceiptsResult{}, err
	}

	logger.Debug("list receipts completed",
		"event", "list_receipts_completed",
		"account_id", query.AccountID,
		"items_count", len(items),
	)
	return ListReceiptsResult{Items: items}, nil
}
