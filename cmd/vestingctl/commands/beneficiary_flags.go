package commands

import (
	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	"tokenvest/contexts/token-economics/vesting-engine/domain/schedule"
	"tokenvest/contexts/token-economics/vesting-engine/domain/valueobjects"

	"github.com/spf13/cobra"
)

type beneficiaryFlags struct {
	identity   string
	allocated  uint64
	percent    string
	lockup     int64
	rounds     uint32
	span       int64
	confirmed  uint32
	activation int64
	rounding   string
}

func (f *beneficiaryFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.identity, "identity", "beneficiary", "beneficiary identity")
	flags.Uint64Var(&f.allocated, "allocated", 0, "allocated tokens in base units")
	flags.StringVar(&f.percent, "percent", "0", "initial unlock percent released at lockup end")
	flags.Int64Var(&f.lockup, "lockup", 0, "lockup delay in seconds after activation")
	flags.Uint32Var(&f.rounds, "rounds", 1, "number of linear rounds")
	flags.Int64Var(&f.span, "span", 0, "seconds from lockup end to the last round")
	flags.Uint32Var(&f.confirmed, "confirmed", 0, "confirmed round floor")
	flags.Int64Var(&f.activation, "activation", 0, "activation time as unix seconds")
	flags.StringVar(&f.rounding, "rounding", string(schedule.RoundingRemainderToLast), "remainder_to_last or truncate")
}

func (f beneficiaryFlags) beneficiary() (entities.Beneficiary, error) {
	percent, err := valueobjects.ParsePercent(f.percent)
	if err != nil {
		return entities.Beneficiary{}, err
	}
	beneficiary := entities.Beneficiary{
		Identity:             f.identity,
		AllocatedTokens:      f.allocated,
		LockupDelay:          f.lockup,
		InitialUnlockPercent: percent,
		RoundCount:           f.rounds,
		RoundSpan:            f.span,
		ConfirmedRound:       f.confirmed,
	}
	if err := beneficiary.Validate(); err != nil {
		return entities.Beneficiary{}, err
	}
	return beneficiary, nil
}
