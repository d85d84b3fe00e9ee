package commands

import (
	"fmt"
	"time"

	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/domain/schedule"
	"tokenvest/contexts/token-economics/vesting-engine/domain/services"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newReconcileCmd() *cobra.Command {
	var (
		flags    beneficiaryFlags
		claimed  uint64
		decimals uint8
		now      int64
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compute the claim decision for one beneficiary at a point in time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			beneficiary, err := flags.beneficiary()
			if err != nil {
				return err
			}
			account, err := previewAccount(beneficiary, decimals, schedule.Rounding(flags.rounding), flags.activation, claimed)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			decision, err := services.Reconcile(account, beneficiary.Identity, time.Unix(now, 0))
			switch {
			case errors.IsAny(err, domainerrors.ErrClaimNotAllowed, domainerrors.ErrLockupNotExpired):
				fmt.Fprintln(out, pterm.Warning.Sprintf("nothing to claim: %v", err))
				return nil
			case err != nil:
				return err
			}

			data := pterm.TableData{
				{"Field", "Value"},
				{"lockup_end", fmt.Sprint(decision.LockupEnd)},
				{"total_claimable", fmt.Sprint(decision.TotalClaimable)},
				{"already_claimed", fmt.Sprint(decision.AlreadyClaimed)},
				{"amount", fmt.Sprint(decision.Amount)},
				{"transfer_amount", fmt.Sprint(decision.TransferAmount)},
			}
			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, table)
			fmt.Fprintln(out, pterm.Success.Sprintf("claimable %d base units", decision.Amount))
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().Uint64Var(&claimed, "claimed", 0, "tokens already claimed in base units")
	cmd.Flags().Uint8Var(&decimals, "decimals", 0, "token decimals used for the transfer amount")
	cmd.Flags().Int64Var(&now, "now", 0, "evaluation time as unix seconds")
	return cmd
}

// previewAccount builds an active single-beneficiary account that holds
// exactly the beneficiary's allocation.
func previewAccount(
	beneficiary entities.Beneficiary,
	decimals uint8,
	rounding schedule.Rounding,
	activation int64,
	claimed uint64,
) (entities.VestingAccount, error) {
	account, err := entities.NewVestingAccount(
		"preview",
		"vestingctl",
		entities.WalletFor("vestingctl"),
		"PREVIEW",
		beneficiary.AllocatedTokens,
		decimals,
		rounding,
		[]entities.Beneficiary{beneficiary},
		time.Unix(activation, 0),
	)
	if err != nil {
		return entities.VestingAccount{}, err
	}
	if err := account.Activate(time.Unix(activation, 0)); err != nil {
		return entities.VestingAccount{}, err
	}
	if claimed > 0 {
		if err := account.ApplyClaim(beneficiary.Identity, claimed, time.Unix(activation, 0)); err != nil {
			return entities.VestingAccount{}, err
		}
	}
	return account, nil
}
