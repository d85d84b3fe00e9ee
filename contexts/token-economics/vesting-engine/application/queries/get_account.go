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

type GetAccountUseCase struct {
	Accounts ports.AccountRepository
	Logger   *slog.Logger
}

func (u GetAccountUseCase) Execute(ctx context.Context, accountID string) (entities.VestingAccount, error) {
	if strings.TrimSpace(accountID) == "" {
		return entities.VestingAccount{}, domainerrors.ErrInvalidRequest
	}
	account, err := u.Accounts.GetAccount(ctx, accountID)
	if err != nil {
		application.ModuleLogger(u.Logger, "application").Debug("get account failed",
			"event", "get_account_failed",
			"account_id", accountID,
			"error", err.Error(),
		)
		return entities.VestingAccount{}, err
	}
	return account, nil
}
