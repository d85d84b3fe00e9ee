package commands

import (
	"context"
	"log/slog"
	"strings"

	application "tokenvest/contexts/token-economics/vesting-engine/application"
	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/ports"
	contractsv1 "tokenvest/contracts/gen/events/v1"
)

type ReleaseAccountCommand struct {
	AccountID string
	Sender    string
}

type ReleaseAccountUseCase struct {
	Accounts    ports.AccountRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute activates the account. Only the initializer may release it and it
// can be released once; the activation time anchors every lockup.
func (u ReleaseAccountUseCase) Execute(ctx context.Context, cmd ReleaseAccountCommand) (entities.VestingAccount, error) {
	logger := application.ModuleLogger(u.Logger, "application")
	if strings.TrimSpace(cmd.AccountID) == "" {
		return entities.VestingAccount{}, domainerrors.ErrInvalidRequest
	}
	now := resolveNow(u.Clock)
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return entities.VestingAccount{}, err
	}

	account, err := u.Accounts.UpdateAccount(ctx, cmd.AccountID, func(account *entities.VestingAccount) (ports.Mutation, error) {
		if account.Initializer != strings.TrimSpace(cmd.Sender) {
			return ports.Mutation{}, domainerrors.ErrInvalidSender
		}
		if err := account.Activate(now); err != nil {
			return ports.Mutation{}, err
		}
		return ports.Mutation{
			Event: &ports.VestingEvent{
				EventID:      eventID,
				EventType:    contractsv1.EventTypeAccountReleased,
				AccountID:    account.AccountID,
				PartitionKey: account.AccountID,
				OccurredAt:   now,
				Data: contractsv1.AccountReleasedData{
					AccountID:      account.AccountID,
					ActivationTime: account.ActivationTime,
				},
			},
		}, nil
	})
	if err != nil {
		logger.Warn("release account rejected",
			"event", "release_account_rejected",
			"account_id", cmd.AccountID,
			"sender", cmd.Sender,
			"error", err.Error(),
		)
		return entities.VestingAccount{}, err
	}

	logger.Info("vesting account released",
		"event", "vesting_account_released",
		"account_id", account.AccountID,
		"activation_time", account.ActivationTime,
	)
	return account, nil
}
