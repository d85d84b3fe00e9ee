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

type ConfirmRoundCommand struct {
	AccountID string
	Sender    string
	Identity  string
	Round     uint32
}

type ConfirmRoundUseCase struct {
	Accounts    ports.AccountRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute raises a beneficiary's confirmed-round floor. Rounds below the floor
// stop counting toward the claimable total.
func (u ConfirmRoundUseCase) Execute(ctx context.Context, cmd ConfirmRoundCommand) (entities.VestingAccount, error) {
	logger := application.ModuleLogger(u.Logger, "application")
	if strings.TrimSpace(cmd.AccountID) == "" || strings.TrimSpace(cmd.Identity) == "" {
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
		if err := account.ConfirmRound(cmd.Identity, cmd.Round, now); err != nil {
			return ports.Mutation{}, err
		}
		return ports.Mutation{
			Event: &ports.VestingEvent{
				EventID:      eventID,
				EventType:    contractsv1.EventTypeRoundConfirmed,
				AccountID:    account.AccountID,
				PartitionKey: account.AccountID,
				OccurredAt:   now,
				Data: contractsv1.RoundConfirmedData{
					AccountID:      account.AccountID,
					Identity:       strings.TrimSpace(cmd.Identity),
					ConfirmedRound: cmd.Round,
				},
			},
		}, nil
	})
	if err != nil {
		logger.Warn("confirm round rejected",
			"event", "confirm_round_rejected",
			"account_id", cmd.AccountID,
			"identity", cmd.Identity,
			"round", cmd.Round,
			"error", err.Error(),
		)
		return entities.VestingAccount{}, err
	}

	logger.Info("beneficiary round confirmed",
		"event", "vesting_round_confirmed",
		"account_id", account.AccountID,
		"identity", cmd.Identity,
		"round", cmd.Round,
	)
	return account, nil
}
