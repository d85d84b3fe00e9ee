package application

import "log/slog"

const moduleName = "token-economics/vesting-engine"

func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// ModuleLogger tags every record with the module and layer keys used across
// the service.
func ModuleLogger(logger *slog.Logger, layer string) *slog.Logger {
	return ResolveLogger(logger).With("module", moduleName, "layer", layer)
}
