package entities

import "time"

// ClaimReceipt is the durable record of one successful claim.
type ClaimReceipt struct {
	ClaimID        string
	AccountID      string
	Identity       string
	Destination    string
	Amount         uint64
	TransferAmount uint64
	TotalClaimable uint64
	ClaimedTotal   uint64
	ClaimedAt      time.Time
}
