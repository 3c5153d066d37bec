// Package logger builds the process slog.Logger: JSON records in prod, text
// records everywhere else, each tagged with the environment and service name.
package logger
