// Package auth provides the shared authentication-status types surfaced by
// the CLI auth commands, independent of how the credential store persists
// them.
package auth
