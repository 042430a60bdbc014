package application

import "log/slog"

// ResolveLogger returns logger, or the process default when none was wired.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
