// Package logging provides the structured logging used across apitap's
// components: a slog.TextHandler-backed logger with subsystem tags and a
// separate audit trail for security-sensitive operations against the
// credential store and replay engine.
package logging
