package vestingengine

import (
	"log/slog"
	"time"

	httpadapter "tokenvest/contexts/token-economics/vesting-engine/adapters/http"
	"tokenvest/contexts/token-economics/vesting-engine/adapters/memory"
	"tokenvest/contexts/token-economics/vesting-engine/application/commands"
	"tokenvest/contexts/token-economics/vesting-engine/application/queries"
	"tokenvest/contexts/token-economics/vesting-engine/application/workers"
	"tokenvest/contexts/token-economics/vesting-engine/ports"
)

// Module is the composition surface of the vesting engine.
// Runtime wiring should consume Handler; Store is exposed for tests/inspection.
type Module struct {
	Handler httpadapter.Handler
	Auditor workers.CustodyAuditor
	Store   *memory.Store
}

type Dependencies struct {
	Accounts       ports.AccountRepository
	Ledger         ports.Ledger
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// NewModule wires the vesting use cases against explicit ports.
func NewModule(deps Dependencies) Module {
	handler := httpadapter.Handler{
		InitializeAccount: commands.InitializeAccountUseCase{
			Accounts:       deps.Accounts,
			Idempotency:    deps.Idempotency,
			Clock:          deps.Clock,
			IDGenerator:    deps.IDGenerator,
			IdempotencyTTL: deps.IdempotencyTTL,
			Logger:         deps.Logger,
		},
		ReleaseAccount: commands.ReleaseAccountUseCase{
			Accounts:    deps.Accounts,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Logger:      deps.Logger,
		},
		ConfirmRound: commands.ConfirmRoundUseCase{
			Accounts:    deps.Accounts,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Logger:      deps.Logger,
		},
		ClaimTokens: commands.ClaimTokensUseCase{
			Accounts:       deps.Accounts,
			Idempotency:    deps.Idempotency,
			Clock:          deps.Clock,
			IDGenerator:    deps.IDGenerator,
			IdempotencyTTL: deps.IdempotencyTTL,
			Logger:         deps.Logger,
		},
		GetAccount: queries.GetAccountUseCase{
			Accounts: deps.Accounts,
			Logger:   deps.Logger,
		},
		PreviewSchedule: queries.PreviewScheduleUseCase{
			Accounts: deps.Accounts,
			Clock:    deps.Clock,
			Logger:   deps.Logger,
		},
		ListReceipts: queries.ListReceiptsUseCase{
			Accounts: deps.Accounts,
			Logger:   deps.Logger,
		},
		Logger: deps.Logger,
	}

	return Module{
		Handler: handler,
		Auditor: workers.CustodyAuditor{
			Accounts: deps.Accounts,
			Ledger:   deps.Ledger,
			Logger:   deps.Logger,
		},
	}
}

// NewInMemoryModule wires the use cases against the in-memory store, which
// also acts as ledger. Used for local runs without Postgres and in tests.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore(logger)
	module := NewModule(Dependencies{
		Accounts:       store,
		Ledger:         store,
		Idempotency:    store,
		Clock:          store,
		IDGenerator:    store,
		IdempotencyTTL: 7 * 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
