package application

import "log/slog"

const ModuleName = "marketplace/listing-engine"

func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
