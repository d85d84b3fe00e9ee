package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// NewRootCmd builds the vestingctl command tree. Every subcommand runs the
// pure engine locally; nothing is read from or written to storage.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vestingctl",
		Short: "Inspect token vesting schedules and claim decisions",
		Long: `vestingctl evaluates vesting parameters offline.

Examples:
  vestingctl schedule --allocated 1000000 --rounds 10 --span 10000 --percent 10
  vestingctl reconcile --allocated 1000000 --rounds 10 --span 10000 --now 5000 --claimed 100000`,
		SilenceUsage: true,
	}
	root.AddCommand(newScheduleCmd())
	root.AddCommand(newReconcileCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show vestingctl version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "vestingctl "+Version)
		},
	}
}
