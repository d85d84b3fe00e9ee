package errors

import crdb "github.com/cockroachdb/errors"

// Configuration errors. These are raised while an account is being set up and
// must keep it from ever becoming active.
var (
	ErrInvalidRoundCount        = crdb.New("round count must be greater than zero")
	ErrInvalidRoundSpan         = crdb.New("round span must not be negative")
	ErrInvalidUnlockPercent     = crdb.New("initial unlock percent must be between 0 and 100")
	ErrInvalidLockupDelay       = crdb.New("lockup delay must not be negative")
	ErrInvalidBeneficiary       = crdb.New("beneficiary is invalid")
	ErrDuplicateBeneficiary     = crdb.New("beneficiary identity is duplicated")
	ErrTooManyBeneficiaries     = crdb.New("beneficiary limit exceeded")
	ErrAllocationExceedsDeposit = crdb.New("allocated tokens exceed total deposit")
)

// State gates.
var (
	ErrNotActive        = crdb.New("vesting account is not active")
	ErrAlreadyActive    = crdb.New("vesting account is already active")
	ErrLockupNotExpired = crdb.New("lockup period has not expired yet")
	ErrClaimNotAllowed  = crdb.New("not allowed to claim new tokens currently")
	ErrInvalidRound     = crdb.New("confirmed round is out of range")
)

// Lookup and arithmetic failures.
var (
	ErrBeneficiaryNotFound = crdb.New("beneficiary does not exist in account")
	ErrAccountNotFound     = crdb.New("vesting account not found")
	ErrAccountExists       = crdb.New("vesting account already exists")
	ErrReceiptNotFound     = crdb.New("claim receipt not found")
	ErrOverflow            = crdb.New("amount overflows the transfer range")
)

// Host boundary failures.
var (
	ErrInvalidSender            = crdb.New("sender is not the account initializer")
	ErrInvalidRequest           = crdb.New("vesting request is invalid")
	ErrInsufficientCustody      = crdb.New("custody balance is insufficient")
	ErrIdempotencyKeyConflict   = crdb.New("idempotency key reused with different request")
	ErrIdempotencyKeyMissing    = crdb.New("idempotency key is required")
	ErrRepositoryInvariantBroke = crdb.New("repository invariant violated")
)

// IsConfiguration reports whether err is a setup-time configuration error.
func IsConfiguration(err error) bool {
	return crdb.IsAny(err,
		ErrInvalidRoundCount,
		ErrInvalidRoundSpan,
		ErrInvalidUnlockPercent,
		ErrInvalidLockupDelay,
		ErrInvalidBeneficiary,
		ErrDuplicateBeneficiary,
		ErrTooManyBeneficiaries,
		ErrAllocationExceedsDeposit,
	)
}
