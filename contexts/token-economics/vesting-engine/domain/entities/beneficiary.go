package entities

import (
	"strings"

	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/domain/schedule"
	"tokenvest/contexts/token-economics/vesting-engine/domain/valueobjects"
)

// Beneficiary is one participant of a vesting account. Amounts are in base
// units; transfers scale them by the account decimals.
type Beneficiary struct {
	Identity             string
	AllocatedTokens      uint64
	ClaimedTokens        uint64
	LockupDelay          int64
	InitialUnlockPercent valueobjects.Percent
	RoundCount           uint32
	RoundSpan            int64
	ConfirmedRound       uint32
}

func (b Beneficiary) Validate() error {
	if strings.TrimSpace(b.Identity) == "" {
		return domainerrors.ErrInvalidBeneficiary
	}
	if b.RoundCount == 0 {
		return domainerrors.ErrInvalidRoundCount
	}
	if b.RoundSpan < 0 {
		return domainerrors.ErrInvalidRoundSpan
	}
	if b.LockupDelay < 0 {
		return domainerrors.ErrInvalidLockupDelay
	}
	if _, err := valueobjects.NewPercent(b.InitialUnlockPercent.Decimal()); err != nil {
		return err
	}
	if b.ClaimedTokens > b.AllocatedTokens {
		return domainerrors.ErrInvalidBeneficiary
	}
	if b.ConfirmedRound > b.RoundCount {
		return domainerrors.ErrInvalidRound
	}
	return nil
}

// Bonus is the amount released at lockup expiry (round 0).
func (b Beneficiary) Bonus() uint64 {
	return b.InitialUnlockPercent.Of(b.AllocatedTokens)
}

// LockupEnd is the moment the beneficiary's schedule starts.
func (b Beneficiary) LockupEnd(activationTime int64) (int64, error) {
	return valueobjects.AddSeconds(activationTime, b.LockupDelay)
}

// ScheduleParams builds generator input for an account activated at activationTime.
// The bonus is round 0 and rounds 1..N split the full allocation; the
// reconciler clamps the unlocked sum to AllocatedTokens.
func (b Beneficiary) ScheduleParams(activationTime int64, rounding schedule.Rounding) (schedule.Params, error) {
	start, err := b.LockupEnd(activationTime)
	if err != nil {
		return schedule.Params{}, err
	}
	return schedule.Params{
		StartTime:      start,
		RoundCount:     b.RoundCount,
		RoundSpan:      b.RoundSpan,
		Total:          b.AllocatedTokens,
		Bonus:          b.Bonus(),
		ConfirmedRound: b.ConfirmedRound,
		Rounding:       rounding,
	}, nil
}

func (b Beneficiary) Remaining() uint64 {
	return valueobjects.SaturatingSub(b.AllocatedTokens, b.ClaimedTokens)
}
