package queries

import (
	"context"
	"log/slog"
	"time"

	application "tokenvest/contexts/token-economics/vesting-engine/application"
	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/domain/schedule"
	"tokenvest/contexts/token-economics/vesting-engine/domain/services"
	"tokenvest/contexts/token-economics/vesting-engine/ports"

	"github.com/cockroachdb/errors"
)

// maxPreviewEntries bounds the rounds returned by one preview.
const maxPreviewEntries = 1000

type PreviewScheduleQuery struct {
	AccountID string
	Identity  string
}

// PreviewScheduleResult lists the beneficiary schedule and what is claimable
// at AsOf. For an account that has not been released yet the schedule is
// projected as if it were released at AsOf and nothing is claimable.
type PreviewScheduleResult struct {
	AccountID      string
	Identity       string
	Active         bool
	AsOf           time.Time
	LockupEnd      int64
	Entries        []schedule.Entry
	Truncated      bool
	TotalAllocated uint64
	Vested         uint64
	Claimed        uint64
	Claimable      uint64
}

type PreviewScheduleUseCase struct {
	Accounts ports.AccountRepository
	Clock    ports.Clock
	Logger   *slog.Logger
}

func (u PreviewScheduleUseCase) Execute(ctx context.Context, query PreviewScheduleQuery) (PreviewScheduleResult, error) {
	logger := application.ModuleLogger(u.Logger, "application")
	account, err := u.Accounts.GetAccount(ctx, query.AccountID)
	if err != nil {
		return PreviewScheduleResult{}, err
	}
	_, beneficiary, ok := account.FindBeneficiary(query.Identity)
	if !ok {
		return PreviewScheduleResult{}, domainerrors.ErrBeneficiaryNotFound
	}

	now := time.Now().UTC()
	if u.Clock != nil {
		now = u.Clock.Now().UTC()
	}
	activation := account.ActivationTime
	if !account.IsActive() {
		activation = now.Unix()
	}

	params, err := beneficiary.ScheduleParams(activation, account.Rounding)
	if err != nil {
		return PreviewScheduleResult{}, err
	}
	seq, err := schedule.Generate(params)
	if err != nil {
		return PreviewScheduleResult{}, err
	}
	entries := make([]schedule.Entry, 0, min(int(params.RoundCount)+1, maxPreviewEntries))
	truncated := false
	for entry := range seq {
		if len(entries) == maxPreviewEntries {
			truncated = true
			break
		}
		entries = append(entries, entry)
	}

	result := PreviewScheduleResult{
		AccountID:      account.AccountID,
		Identity:       beneficiary.Identity,
		Active:         account.IsActive(),
		AsOf:           now,
		LockupEnd:      params.StartTime,
		Entries:        entries,
		Truncated:      truncated,
		TotalAllocated: beneficiary.AllocatedTokens,
		Claimed:        beneficiary.ClaimedTokens,
	}
	if !account.IsActive() {
		return result, nil
	}

	status, err := services.Vested(account, beneficiary.Identity, now)
	switch {
	case errors.Is(err, domainerrors.ErrLockupNotExpired):
		return result, nil
	case err != nil:
		logger.Error("preview schedule failed",
			"event", "preview_schedule_failed",
			"account_id", account.AccountID,
			"identity", beneficiary.Identity,
			"error", err.Error(),
		)
		return PreviewScheduleResult{}, err
	}
	result.Vested = status.TotalClaimable
	result.Claimable = status.Claimable
	return result, nil
}
