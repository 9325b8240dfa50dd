package app

import (
	"fmt"
	"io"
	"os"

	"apitap/internal/refresh"
	"apitap/pkg/logging"
)

// Application bootstraps logging and the wired service registry, then
// hands control to a command. It follows a two-phase pattern: bootstrap
// (logging, config, service wiring) happens once in NewApplication, and
// every command handler afterward only touches Services.
type Application struct {
	Config   *Config
	Services *Services
}

// NewApplication performs the complete bootstrap sequence: configures
// logging, loads the non-secret app config, and wires every C1-C10
// component into a Services registry.
func NewApplication(cfg *Config, browserFactory refresh.BrowserFactory) (*Application, error) {
	logLevel := logging.LevelInfo
	if cfg.Debug {
		logLevel = logging.LevelDebug
	}
	var output io.Writer = os.Stderr
	if cfg.Silent {
		output = io.Discard
	}
	logging.InitForCLI(logLevel, output)

	if browserFactory == nil {
		browserFactory = NullBrowserFactory
	}
	services, err := InitializeServices(browserFactory)
	if err != nil {
		logging.Error("Bootstrap", err, "failed to initialize services")
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &Application{Config: cfg, Services: services}, nil
}
