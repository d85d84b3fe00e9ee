package entities

import (
	"fmt"
	"math"
	"testing"
	"time"

	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/domain/schedule"
	"tokenvest/contexts/token-economics/vesting-engine/domain/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createdAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func beneficiary(identity string, allocated uint64) Beneficiary {
	return Beneficiary{
		Identity:        identity,
		AllocatedTokens: allocated,
		RoundCount:      10,
		RoundSpan:       10_000,
	}
}

func newAccount(t *testing.T, deposit uint64, beneficiaries ...Beneficiary) VestingAccount {
	t.Helper()
	account, err := NewVestingAccount("acct-1", "alice", "wallet:alice", "MINT", deposit, 6, "", beneficiaries, createdAt)
	require.NoError(t, err)
	return account
}

func TestNewVestingAccountDefaults(t *testing.T) {
	account := newAccount(t, 1_000_000, beneficiary(" bob ", 600_000), beneficiary("carol", 400_000))

	assert.Equal(t, LifecycleUninitialized, account.State)
	assert.Equal(t, "custody:acct-1", account.CustodyWallet)
	assert.Equal(t, schedule.RoundingRemainderToLast, account.Rounding)
	assert.Equal(t, "bob", account.Beneficiaries[0].Identity)

	deposit, err := account.DepositAmount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000_000), deposit)
}

func TestNewVestingAccountRejectsConfiguration(t *testing.T) {
	tooMany := make([]Beneficiary, 0, MaxBeneficiaries+1)
	for i := 0; i <= MaxBeneficiaries; i++ {
		tooMany = append(tooMany, beneficiary(fmt.Sprintf("b-%d", i), 1))
	}

	zeroRounds := beneficiary("bob", 10)
	zeroRounds.RoundCount = 0
	negativeSpan := beneficiary("bob", 10)
	negativeSpan.RoundSpan = -1
	negativeLockup := beneficiary("bob", 10)
	negativeLockup.LockupDelay = -5

	cases := []struct {
		name          string
		deposit       uint64
		decimals      uint8
		beneficiaries []Beneficiary
		want          error
	}{
		{"empty", 100, 6, nil, domainerrors.ErrInvalidBeneficiary},
		{"too many", 1_000, 6, tooMany, domainerrors.ErrTooManyBeneficiaries},
		{"duplicate", 100, 6, []Beneficiary{beneficiary("bob", 10), beneficiary("bob", 10)}, domainerrors.ErrDuplicateBeneficiary},
		{"over allocated", 100, 6, []Beneficiary{beneficiary("bob", 60), beneficiary("carol", 41)}, domainerrors.ErrAllocationExceedsDeposit},
		{"allocation sum overflow", math.MaxUint64, 0, []Beneficiary{beneficiary("bob", math.MaxUint64), beneficiary("carol", 1)}, domainerrors.ErrAllocationExceedsDeposit},
		{"zero rounds", 100, 6, []Beneficiary{zeroRounds}, domainerrors.ErrInvalidRoundCount},
		{"negative span", 100, 6, []Beneficiary{negativeSpan}, domainerrors.ErrInvalidRoundSpan},
		{"negative lockup", 100, 6, []Beneficiary{negativeLockup}, domainerrors.ErrInvalidLockupDelay},
		{"deposit overflow", 2, 19, []Beneficiary{beneficiary("bob", 1)}, domainerrors.ErrOverflow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewVestingAccount("acct-1", "alice", "wallet:alice", "MINT", tc.deposit, tc.decimals, "", tc.beneficiaries, createdAt)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNewVestingAccountAllowsFiftyBeneficiaries(t *testing.T) {
	list := make([]Beneficiary, 0, MaxBeneficiaries)
	for i := 0; i < MaxBeneficiaries; i++ {
		list = append(list, beneficiary(fmt.Sprintf("b-%d", i), 1))
	}
	account := newAccount(t, MaxBeneficiaries, list...)
	assert.Len(t, account.Beneficiaries, MaxBeneficiaries)
}

func TestActivateOnlyOnce(t *testing.T) {
	account := newAccount(t, 100, beneficiary("bob", 100))

	require.NoError(t, account.Activate(createdAt.Add(time.Hour)))
	assert.True(t, account.IsActive())
	assert.Equal(t, createdAt.Add(time.Hour).Unix(), account.ActivationTime)

	require.ErrorIs(t, account.Activate(createdAt.Add(2*time.Hour)), domainerrors.ErrAlreadyActive)
	assert.Equal(t, createdAt.Add(time.Hour).Unix(), account.ActivationTime)
}

func TestConfirmRoundIsMonotonic(t *testing.T) {
	account := newAccount(t, 100, beneficiary("bob", 100))

	require.NoError(t, account.ConfirmRound("bob", 3, createdAt))
	require.ErrorIs(t, account.ConfirmRound("bob", 2, createdAt), domainerrors.ErrInvalidRound)
	require.ErrorIs(t, account.ConfirmRound("bob", 11, createdAt), domainerrors.ErrInvalidRound)
	require.ErrorIs(t, account.ConfirmRound("dave", 4, createdAt), domainerrors.ErrBeneficiaryNotFound)

	_, bob, ok := account.FindBeneficiary("bob")
	require.True(t, ok)
	assert.Equal(t, uint32(3), bob.ConfirmedRound)
}

func TestApplyClaimNeverExceedsAllocation(t *testing.T) {
	account := newAccount(t, 100, beneficiary("bob", 60), beneficiary("carol", 40))

	require.NoError(t, account.ApplyClaim("bob", 50, createdAt))
	require.ErrorIs(t, account.ApplyClaim("bob", 11, createdAt), domainerrors.ErrRepositoryInvariantBroke)
	require.ErrorIs(t, account.ApplyClaim("bob", 0, createdAt), domainerrors.ErrClaimNotAllowed)

	assert.Equal(t, uint64(50), account.TotalClaimed())
	expected, err := account.ExpectedCustody()
	require.NoError(t, err)
	assert.Equal(t, uint64(50_000_000), expected)
}

func TestScheduleParamsSplitsFullAllocation(t *testing.T) {
	b := beneficiary("bob", 1_000_000)
	b.InitialUnlockPercent = valueobjects.MustPercent("10")
	b.LockupDelay = 3_600

	params, err := b.ScheduleParams(1_000, schedule.RoundingRemainderToLast)
	require.NoError(t, err)
	assert.Equal(t, int64(4_600), params.StartTime)
	assert.Equal(t, uint64(100_000), params.Bonus)
	assert.Equal(t, uint64(1_000_000), params.Total)

	b.LockupDelay = math.MaxInt64
	_, err = b.ScheduleParams(1_000, schedule.RoundingRemainderToLast)
	require.ErrorIs(t, err, domainerrors.ErrOverflow)
}
