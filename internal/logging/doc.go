// Package logging provides structured logging for Ralph runs.
//
// It wraps log/slog to produce JSON-formatted log entries written to a
// rotating file in Ralph's state directory (or stderr when no directory is
// configured). Child loggers carry persistent attributes such as the task ID
// and target folder so every entry from a run can be correlated after the
// fact.
package logging
