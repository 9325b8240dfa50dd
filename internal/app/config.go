package app

// Config carries the process-wide options derived from CLI flags. It is
// distinct from config.AppConfig: this struct holds invocation-level
// choices (debug output, JSON rendering), while config.AppConfig holds
// the persisted tunables (timeouts, byte caps) loaded from disk.
type Config struct {
	Debug  bool
	Silent bool
	JSON   bool
}

// NewConfig constructs a Config from the flags the root command parses.
func NewConfig(debug, silent, json bool) *Config {
	return &Config{Debug: debug, Silent: silent, JSON: json}
}
