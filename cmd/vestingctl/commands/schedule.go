package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"tokenvest/contexts/token-economics/vesting-engine/domain/schedule"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

type scheduleRow struct {
	Round       uint32 `json:"round"`
	UnlockTime  int64  `json:"unlock_time"`
	Entitlement uint64 `json:"entitlement"`
}

func newScheduleCmd() *cobra.Command {
	var (
		flags      beneficiaryFlags
		limit      int
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the unlock schedule for one beneficiary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			beneficiary, err := flags.beneficiary()
			if err != nil {
				return err
			}
			params, err := beneficiary.ScheduleParams(flags.activation, schedule.Rounding(flags.rounding))
			if err != nil {
				return err
			}
			entries, err := schedule.Generate(params)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = 50
			}

			rows := make([]scheduleRow, 0, min(limit, int(params.RoundCount)+1))
			truncated := false
			for entry := range entries {
				if len(rows) == limit {
					truncated = true
					break
				}
				rows = append(rows, scheduleRow(entry))
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(rows)
			}

			data := pterm.TableData{{"Round", "Unlock time", "Unix", "Entitlement"}}
			for _, row := range rows {
				data = append(data, []string{
					strconv.FormatUint(uint64(row.Round), 10),
					time.Unix(row.UnlockTime, 0).UTC().Format(time.RFC3339),
					strconv.FormatInt(row.UnlockTime, 10),
					strconv.FormatUint(row.Entitlement, 10),
				})
			}
			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, table)
			if truncated {
				fmt.Fprintln(out, pterm.Warning.Sprintf("showing first %d of %d rounds", limit, params.RoundCount))
			}
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to print")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "output rows as JSON")
	return cmd
}
