package services

import (
	"time"

	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/domain/schedule"
	"tokenvest/contexts/token-economics/vesting-engine/domain/valueobjects"
)

// Decision is the outcome of a successful reconciliation: the amount payable
// now, in base units and in transfer units.
type Decision struct {
	AccountID      string
	Identity       string
	LockupEnd      int64
	TotalClaimable uint64
	AlreadyClaimed uint64
	Amount         uint64
	TransferAmount uint64
}

// Reconcile computes how much identity may claim from account at now. It does
// not mutate the account; the caller applies the decision together with the
// custody transfer.
func Reconcile(account entities.VestingAccount, identity string, now time.Time) (Decision, error) {
	status, err := Vested(account, identity, now)
	if err != nil {
		return Decision{}, err
	}
	if status.Claimable == 0 {
		return Decision{}, domainerrors.ErrClaimNotAllowed
	}
	transferAmount, err := valueobjects.ScaleToSmallestUnit(status.Claimable, account.Decimals)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		AccountID:      account.AccountID,
		Identity:       status.Identity,
		LockupEnd:      status.LockupEnd,
		TotalClaimable: status.TotalClaimable,
		AlreadyClaimed: status.AlreadyClaimed,
		Amount:         status.Claimable,
		TransferAmount: transferAmount,
	}, nil
}

// VestingStatus is the read-only view of a beneficiary at a moment in time.
type VestingStatus struct {
	Identity       string
	LockupEnd      int64
	TotalClaimable uint64
	AlreadyClaimed uint64
	Claimable      uint64
}

// Vested runs the gate checks and sums the unlocked schedule. Unlike Reconcile
// it reports a zero claimable amount instead of rejecting it.
func Vested(account entities.VestingAccount, identity string, now time.Time) (VestingStatus, error) {
	if !account.IsActive() {
		return VestingStatus{}, domainerrors.ErrNotActive
	}
	_, beneficiary, ok := account.FindBeneficiary(identity)
	if !ok {
		return VestingStatus{}, domainerrors.ErrBeneficiaryNotFound
	}

	params, err := beneficiary.ScheduleParams(account.ActivationTime, account.Rounding)
	if err != nil {
		return VestingStatus{}, err
	}
	nowUnix := now.Unix()
	if nowUnix < params.StartTime {
		return VestingStatus{}, domainerrors.ErrLockupNotExpired
	}

	entries, err := schedule.Generate(params)
	if err != nil {
		return VestingStatus{}, err
	}
	totalClaimable, err := schedule.Sum(entries, nowUnix, beneficiary.ConfirmedRound)
	if err != nil {
		return VestingStatus{}, err
	}
	if totalClaimable > beneficiary.AllocatedTokens {
		totalClaimable = beneficiary.AllocatedTokens
	}

	return VestingStatus{
		Identity:       beneficiary.Identity,
		LockupEnd:      params.StartTime,
		TotalClaimable: totalClaimable,
		AlreadyClaimed: beneficiary.ClaimedTokens,
		Claimable:      valueobjects.SaturatingSub(totalClaimable, beneficiary.ClaimedTokens),
	}, nil
}
