package entities

import (
	"strings"
	"time"

	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/domain/schedule"
	"tokenvest/contexts/token-economics/vesting-engine/domain/valueobjects"

	mapset "github.com/deckarep/golang-set/v2"
)

// MaxBeneficiaries bounds the beneficiary collection of one account.
const MaxBeneficiaries = 50

type LifecycleState string

const (
	LifecycleUninitialized LifecycleState = "uninitialized"
	LifecycleActive        LifecycleState = "active"
)

type VestingAccount struct {
	AccountID      string
	Initializer    string
	SourceWallet   string
	CustodyWallet  string
	TokenMint      string
	TotalDeposited uint64
	Decimals       uint8
	Rounding       schedule.Rounding
	State          LifecycleState
	ActivationTime int64
	Beneficiaries  []Beneficiary
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewVestingAccount validates the setup parameters and returns an account in
// the uninitialized state. Any configuration error here keeps the account from
// being created, and therefore from ever being released.
func NewVestingAccount(
	accountID string,
	initializer string,
	sourceWallet string,
	tokenMint string,
	totalDeposited uint64,
	decimals uint8,
	rounding schedule.Rounding,
	beneficiaries []Beneficiary,
	createdAt time.Time,
) (VestingAccount, error) {
	if strings.TrimSpace(accountID) == "" ||
		strings.TrimSpace(initializer) == "" ||
		strings.TrimSpace(sourceWallet) == "" ||
		strings.TrimSpace(tokenMint) == "" {
		return VestingAccount{}, domainerrors.ErrInvalidRequest
	}
	if rounding == "" {
		rounding = schedule.RoundingRemainderToLast
	}

	account := VestingAccount{
		AccountID:      strings.TrimSpace(accountID),
		Initializer:    strings.TrimSpace(initializer),
		SourceWallet:   strings.TrimSpace(sourceWallet),
		CustodyWallet:  CustodyWalletFor(accountID),
		TokenMint:      strings.TrimSpace(tokenMint),
		TotalDeposited: totalDeposited,
		Decimals:       decimals,
		Rounding:       rounding,
		State:          LifecycleUninitialized,
		Beneficiaries:  append([]Beneficiary(nil), beneficiaries...),
		CreatedAt:      createdAt.UTC(),
		UpdatedAt:      createdAt.UTC(),
	}
	for i := range account.Beneficiaries {
		account.Beneficiaries[i].Identity = strings.TrimSpace(account.Beneficiaries[i].Identity)
		account.Beneficiaries[i].ClaimedTokens = 0
	}
	if err := account.Validate(); err != nil {
		return VestingAccount{}, err
	}
	return account, nil
}

const custodyWalletPrefix = "custody:"

func CustodyWalletFor(accountID string) string {
	return custodyWalletPrefix + strings.TrimSpace(accountID)
}

// IsCustodyWallet reports whether wallet is held by a vesting account.
func IsCustodyWallet(wallet string) bool {
	return strings.HasPrefix(strings.TrimSpace(wallet), custodyWalletPrefix)
}

func WalletFor(identity string) string {
	return "wallet:" + strings.TrimSpace(identity)
}

func (a VestingAccount) Validate() error {
	if len(a.Beneficiaries) == 0 {
		return domainerrors.ErrInvalidBeneficiary
	}
	if len(a.Beneficiaries) > MaxBeneficiaries {
		return domainerrors.ErrTooManyBeneficiaries
	}
	if !a.Rounding.Valid() {
		return domainerrors.ErrInvalidRequest
	}
	if _, err := valueobjects.ScaleToSmallestUnit(a.TotalDeposited, a.Decimals); err != nil {
		return err
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	var allocated uint64
	for _, beneficiary := range a.Beneficiaries {
		if err := beneficiary.Validate(); err != nil {
			return err
		}
		if !seen.Add(beneficiary.Identity) {
			return domainerrors.ErrDuplicateBeneficiary
		}
		sum, err := valueobjects.CheckedAdd(allocated, beneficiary.AllocatedTokens)
		if err != nil {
			return domainerrors.ErrAllocationExceedsDeposit
		}
		allocated = sum
	}
	if allocated > a.TotalDeposited {
		return domainerrors.ErrAllocationExceedsDeposit
	}
	return nil
}

func (a VestingAccount) IsActive() bool {
	return a.State == LifecycleActive
}

// FindBeneficiary returns the position of identity in insertion order.
func (a VestingAccount) FindBeneficiary(identity string) (int, Beneficiary, bool) {
	identity = strings.TrimSpace(identity)
	for i, beneficiary := range a.Beneficiaries {
		if beneficiary.Identity == identity {
			return i, beneficiary, true
		}
	}
	return -1, Beneficiary{}, false
}

// Activate moves the account to Active. It can happen only once.
func (a *VestingAccount) Activate(at time.Time) error {
	if a.State == LifecycleActive {
		return domainerrors.ErrAlreadyActive
	}
	a.State = LifecycleActive
	a.ActivationTime = at.UTC().Unix()
	a.UpdatedAt = at.UTC()
	return nil
}

// ConfirmRound raises the confirmed-round floor of one beneficiary. The floor
// is never lowered and never exceeds the beneficiary's round count.
func (a *VestingAccount) ConfirmRound(identity string, round uint32, at time.Time) error {
	index, beneficiary, ok := a.FindBeneficiary(identity)
	if !ok {
		return domainerrors.ErrBeneficiaryNotFound
	}
	if round < beneficiary.ConfirmedRound || round > beneficiary.RoundCount {
		return domainerrors.ErrInvalidRound
	}
	a.Beneficiaries[index].ConfirmedRound = round
	a.UpdatedAt = at.UTC()
	return nil
}

// ApplyClaim records a paid amount. Callers run it in the same atomic unit as
// the custody transfer.
func (a *VestingAccount) ApplyClaim(identity string, amount uint64, at time.Time) error {
	index, beneficiary, ok := a.FindBeneficiary(identity)
	if !ok {
		return domainerrors.ErrBeneficiaryNotFound
	}
	if amount == 0 {
		return domainerrors.ErrClaimNotAllowed
	}
	claimed, err := valueobjects.CheckedAdd(beneficiary.ClaimedTokens, amount)
	if err != nil {
		return err
	}
	if claimed > beneficiary.AllocatedTokens {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	a.Beneficiaries[index].ClaimedTokens = claimed
	a.UpdatedAt = at.UTC()
	return nil
}

// TotalClaimed sums claimed tokens across beneficiaries.
func (a VestingAccount) TotalClaimed() uint64 {
	var total uint64
	for _, beneficiary := range a.Beneficiaries {
		total += beneficiary.ClaimedTokens
	}
	return total
}

// ExpectedCustody is the custody balance, in smallest units, that an account
// holds when every claim so far has been paid from it.
func (a VestingAccount) ExpectedCustody() (uint64, error) {
	return valueobjects.ScaleToSmallestUnit(
		valueobjects.SaturatingSub(a.TotalDeposited, a.TotalClaimed()),
		a.Decimals,
	)
}

// DepositAmount is the setup transfer into custody, in smallest units.
func (a VestingAccount) DepositAmount() (uint64, error) {
	return valueobjects.ScaleToSmallestUnit(a.TotalDeposited, a.Decimals)
}
