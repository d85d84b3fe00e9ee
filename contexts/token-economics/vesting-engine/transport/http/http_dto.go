package httptransport

// Token amounts are base-10 strings; they can exceed the integer range of
// JSON consumers.

type BeneficiaryRequest struct {
	Identity             string `json:"identity"`
	AllocatedTokens      string `json:"allocated_tokens"`
	LockupDelay          int64  `json:"lockup_delay"`
	InitialUnlockPercent string `json:"initial_unlock_percent,omitempty"`
	RoundCount           uint32 `json:"round_count"`
	RoundSpan            int64  `json:"round_span"`
}

type CreateAccountRequest struct {
	SourceWallet   string               `json:"source_wallet,omitempty"`
	TokenMint      string               `json:"token_mint"`
	TotalDeposited string               `json:"total_deposited"`
	Decimals       uint8                `json:"decimals"`
	Rounding       string               `json:"rounding,omitempty"`
	Beneficiaries  []BeneficiaryRequest `json:"beneficiaries"`
}

type BeneficiaryDTO struct {
	Identity             string `json:"identity"`
	AllocatedTokens      string `json:"allocated_tokens"`
	ClaimedTokens        string `json:"claimed_tokens"`
	LockupDelay          int64  `json:"lockup_delay"`
	InitialUnlockPercent string `json:"initial_unlock_percent"`
	RoundCount           uint32 `json:"round_count"`
	RoundSpan            int64  `json:"round_span"`
	ConfirmedRound       uint32 `json:"confirmed_round"`
}

type AccountDTO struct {
	AccountID      string           `json:"account_id"`
	Initializer    string           `json:"initializer"`
	SourceWallet   string           `json:"source_wallet"`
	CustodyWallet  string           `json:"custody_wallet"`
	TokenMint      string           `json:"token_mint"`
	TotalDeposited string           `json:"total_deposited"`
	Decimals       uint8            `json:"decimals"`
	Rounding       string           `json:"rounding"`
	State          string           `json:"state"`
	ActivationTime int64            `json:"activation_time,omitempty"`
	Beneficiaries  []BeneficiaryDTO `json:"beneficiaries"`
	CreatedAt      string           `json:"created_at"`
	UpdatedAt      string           `json:"updated_at"`
}

type CreateAccountResponse struct {
	Item     AccountDTO `json:"item"`
	Replayed bool       `json:"replayed,omitempty"`
}

type GetAccountResponse struct {
	Item AccountDTO `json:"item"`
}

type ConfirmRoundRequest struct {
	Round uint32 `json:"round"`
}

type ClaimRequest struct {
	Destination string `json:"destination,omitempty"`
}

type ReceiptDTO struct {
	ClaimID        string `json:"claim_id"`
	AccountID      string `json:"account_id"`
	Identity       string `json:"identity"`
	Destination    string `json:"destination"`
	Amount         string `json:"amount"`
	TransferAmount string `json:"transfer_amount"`
	TotalClaimable string `json:"total_claimable"`
	ClaimedTotal   string `json:"claimed_total"`
	ClaimedAt      string `json:"claimed_at"`
}

type ClaimResponse struct {
	Receipt  ReceiptDTO `json:"receipt"`
	Replayed bool       `json:"replayed,omitempty"`
}

type ListReceiptsResponse struct {
	Items []ReceiptDTO `json:"items"`
}

type ScheduleEntryDTO struct {
	Round       uint32 `json:"round"`
	UnlockTime  int64  `json:"unlock_time"`
	Entitlement string `json:"entitlement"`
	Unlocked    bool   `json:"unlocked"`
}

type ScheduleResponse struct {
	AccountID      string             `json:"account_id"`
	Identity       string             `json:"identity"`
	Active         bool               `json:"active"`
	AsOf           string             `json:"as_of"`
	LockupEnd      int64              `json:"lockup_end"`
	Entries        []ScheduleEntryDTO `json:"entries"`
	Truncated      bool               `json:"truncated,omitempty"`
	TotalAllocated string             `json:"total_allocated"`
	Vested         string             `json:"vested"`
	Claimed        string             `json:"claimed"`
	Claimable      string             `json:"claimable"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
