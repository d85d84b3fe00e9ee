package v1

// Event types published by the vesting engine.
const (
	EventTypeAccountInitialized = "vesting.account_initialized"
	EventTypeAccountReleased    = "vesting.account_released"
	EventTypeRoundConfirmed     = "vesting.round_confirmed"
	EventTypeTokensClaimed      = "vesting.tokens_claimed"
)

// Amounts are carried as base-10 strings so consumers without 64-bit unsigned
// integers do not lose precision.

type AccountInitializedData struct {
	AccountID        string `json:"account_id"`
	Initializer      string `json:"initializer"`
	TokenMint        string `json:"token_mint"`
	CustodyWallet    string `json:"custody_wallet"`
	TotalDeposited   string `json:"total_deposited"`
	DepositAmount    string `json:"deposit_amount"`
	Decimals         uint8  `json:"decimals"`
	BeneficiaryCount int    `json:"beneficiary_count"`
}

type AccountReleasedData struct {
	AccountID      string `json:"account_id"`
	ActivationTime int64  `json:"activation_time"`
}

type RoundConfirmedData struct {
	AccountID      string `json:"account_id"`
	Identity       string `json:"identity"`
	ConfirmedRound uint32 `json:"confirmed_round"`
}

type TokensClaimedData struct {
	ClaimID        string `json:"claim_id"`
	AccountID      string `json:"account_id"`
	Identity       string `json:"identity"`
	Destination    string `json:"destination"`
	Amount         string `json:"amount"`
	TransferAmount string `json:"transfer_amount"`
	ClaimedTotal   string `json:"claimed_total"`
}
