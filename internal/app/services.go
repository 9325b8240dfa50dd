package app

import (
	"context"
	"fmt"

	"apitap/internal/adapter"
	"apitap/internal/browse"
	"apitap/internal/cache"
	"apitap/internal/config"
	"apitap/internal/crypto"
	"apitap/internal/generator"
	"apitap/internal/refresh"
	"apitap/internal/replay"
	"apitap/internal/skillstore"
	"apitap/internal/store"
	"apitap/internal/verifier"
)

// ToolVersion is stamped into every skill file this process generates.
const ToolVersion = "apitap/dev"

// Services is the central registry of wired components every command
// operates against. Fields are borrowed handles shared process-wide
// (spec §9); nothing here is a singleton package-level variable, so
// tests can construct an independent Services per case.
type Services struct {
	AppConfig       config.AppConfig
	CredentialStore *store.Store
	SkillStore      *skillstore.Store
	Cache           *cache.Cache
	Generator       *generator.Generator
	Verifier        *verifier.Verifier
	Refresh         *refresh.Orchestrator
	Replay          *replay.Engine
	Browse          *browse.Orchestrator
	ContentReader   *adapter.HTTPContentReader
	Sessions        *CaptureSessions
}

// InitializeServices wires every component together: credential store
// and skill store share the machine-derived key, the refresh
// orchestrator and replay engine share the credential store handle, and
// the session cache and capture-session table start empty.
func InitializeServices(browserFactory refresh.BrowserFactory) (*Services, error) {
	if err := config.EnsureRootDir(); err != nil {
		return nil, fmt.Errorf("app: ensure state directory: %w", err)
	}
	appCfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("app: load config: %w", err)
	}

	credsPath, err := config.CredentialStorePath()
	if err != nil {
		return nil, fmt.Errorf("app: resolve credential store path: %w", err)
	}
	skillsDir, err := config.SkillsDir()
	if err != nil {
		return nil, fmt.Errorf("app: resolve skills directory: %w", err)
	}

	key := crypto.DeriveKey(crypto.MachineID())
	credentialStore := store.New(credsPath, key)
	skillStore := skillstore.New(skillsDir, key)

	orchestrator := refresh.New(credentialStore, browserFactory)
	engine := replay.New(credentialStore, orchestrator)
	skillCache := cache.New()

	return &Services{
		AppConfig:       appCfg,
		CredentialStore: credentialStore,
		SkillStore:      skillStore,
		Cache:           skillCache,
		Generator:       generator.New(ToolVersion),
		Verifier:        verifier.New(appCfg.VerifyPostsOnSave),
		Refresh:         orchestrator,
		Replay:          engine,
		Browse:          browse.New(skillCache, skillStore, adapter.NullDiscovery{}, engine),
		ContentReader:   adapter.NewHTTPContentReader(),
		Sessions:        NewCaptureSessions(),
	}, nil
}

// NullBrowserFactory is the default BrowserFactory used when no real
// browser automation adapter has been wired in: it always fails, so a
// domain that actually needs browser-driven refresh surfaces a clear
// error instead of silently doing nothing.
func NullBrowserFactory(_ context.Context, _ string, _ bool) (adapter.Browser, error) {
	return nil, fmt.Errorf("app: no browser automation adapter configured")
}
