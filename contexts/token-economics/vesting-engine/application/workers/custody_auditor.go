package workers

import (
	"context"
	"log/slog"

	application "tokenvest/contexts/token-economics/vesting-engine/application"
	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	"tokenvest/contexts/token-economics/vesting-engine/ports"
)

// Mismatch describes one account whose custody wallet disagrees with its
// claimed totals.
type Mismatch struct {
	AccountID      string
	CustodyWallet  string
	Expected       uint64
	Actual         uint64
	TotalClaimed   uint64
	TotalDeposited uint64
	Reason         string
}

// CustodyAuditor checks that custody_balance == (deposited - claimed) * 10^decimals
// for every account and that no account has paid out more than it holds.
type CustodyAuditor struct {
	Accounts ports.AccountRepository
	Ledger   ports.Ledger
	Logger   *slog.Logger
}

func (a CustodyAuditor) RunOnce(ctx context.Context) ([]Mismatch, error) {
	logger := application.ModuleLogger(a.Logger, "worker")
	accounts, err := a.Accounts.ListAccounts(ctx)
	if err != nil {
		logger.Error("custody audit list accounts failed",
			"event", "custody_audit_list_failed",
			"error", err.Error(),
		)
		return nil, err
	}

	var mismatches []Mismatch
	for _, account := range accounts {
		mismatch, ok, err := a.audit(ctx, account)
		if err != nil {
			return mismatches, err
		}
		if !ok {
			continue
		}
		logMismatch(logger, mismatch)
		mismatches = append(mismatches, mismatch)
	}

	logger.Debug("custody audit completed",
		"event", "custody_audit_completed",
		"accounts", len(accounts),
		"mismatches", len(mismatches),
	)
	return mismatches, nil
}

// AuditAccount checks a single account, typically right after a claim moved
// funds out of its custody wallet.
func (a CustodyAuditor) AuditAccount(ctx context.Context, accountID string) (Mismatch, bool, error) {
	logger := application.ModuleLogger(a.Logger, "worker")
	account, err := a.Accounts.GetAccount(ctx, accountID)
	if err != nil {
		return Mismatch{}, false, err
	}
	mismatch, ok, err := a.audit(ctx, account)
	if err != nil || !ok {
		return Mismatch{}, false, err
	}
	logMismatch(logger, mismatch)
	return mismatch, true, nil
}

func logMismatch(logger *slog.Logger, mismatch Mismatch) {
	logger.Error("custody audit mismatch",
		"event", "custody_audit_mismatch",
		"account_id", mismatch.AccountID,
		"custody_wallet", mismatch.CustodyWallet,
		"expected", mismatch.Expected,
		"actual", mismatch.Actual,
		"reason", mismatch.Reason,
	)
}

func (a CustodyAuditor) audit(ctx context.Context, account entities.VestingAccount) (Mismatch, bool, error) {
	balance, err := a.Ledger.Balance(ctx, account.CustodyWallet)
	if err != nil {
		return Mismatch{}, false, err
	}
	mismatch := Mismatch{
		AccountID:      account.AccountID,
		CustodyWallet:  account.CustodyWallet,
		Actual:         balance,
		TotalClaimed:   account.TotalClaimed(),
		TotalDeposited: account.TotalDeposited,
	}
	if mismatch.TotalClaimed > account.TotalDeposited {
		mismatch.Reason = "claimed_exceeds_deposit"
		return mismatch, true, nil
	}
	expected, err := account.ExpectedCustody()
	if err != nil {
		return Mismatch{}, false, err
	}
	mismatch.Expected = expected
	if balance != expected {
		mismatch.Reason = "custody_balance_mismatch"
		return mismatch, true, nil
	}
	return Mismatch{}, false, nil
}
