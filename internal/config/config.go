// Package config resolves apitap's state root directory and loads the
// small non-secret app config file, following the teacher's
// defaults-first-then-overlay loading pattern.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	dirEnv       = "APITAP_DIR"
	skillsDirEnv = "APITAP_SKILLS_DIR"
	defaultDir   = ".apitap"
	configFile   = "config.yaml"
)

// AppConfig holds the non-secret, user-editable settings apitap loads at
// startup. Secrets never live here — they live encrypted in the
// credential store.
type AppConfig struct {
	MaxBytes          int           `yaml:"max_bytes"`
	VerifyOnSave      bool          `yaml:"verify_on_save"`
	VerifyPostsOnSave bool          `yaml:"verify_posts_on_save"`
	DiscoveryTimeout  time.Duration `yaml:"discovery_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
}

// Defaults returns the built-in configuration applied before any
// config.yaml overlay.
func Defaults() AppConfig {
	return AppConfig{
		MaxBytes:          1 << 20, // 1 MiB
		VerifyOnSave:      true,
		VerifyPostsOnSave: false,
		DiscoveryTimeout:  5 * time.Second,
		RequestTimeout:    30 * time.Second,
	}
}

// RootDir returns apitap's state root, honoring APITAP_DIR, defaulting to
// ~/.apitap.
func RootDir() (string, error) {
	if v := os.Getenv(dirEnv); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, defaultDir), nil
}

// SkillsDir returns the directory skill files are stored in, honoring
// APITAP_SKILLS_DIR, defaulting to <root>/skills.
func SkillsDir() (string, error) {
	if v := os.Getenv(skillsDirEnv); v != "" {
		return v, nil
	}
	root, err := RootDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "skills"), nil
}

// CredentialStorePath returns the path of the single encrypted
// credential-store file.
func CredentialStorePath() (string, error) {
	root, err := RootDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "credentials.enc"), nil
}

// Load reads <root>/config.yaml over Defaults(). A missing file is not an
// error: Defaults() alone is returned.
func Load() (AppConfig, error) {
	cfg := Defaults()

	root, err := RootDir()
	if err != nil {
		return cfg, err
	}
	path := filepath.Join(root, configFile)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// EnsureRootDir creates the state root and skills directory if absent.
func EnsureRootDir() error {
	root, err := RootDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return fmt.Errorf("config: create root dir: %w", err)
	}
	skills, err := SkillsDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(skills, 0o700); err != nil {
		return fmt.Errorf("config: create skills dir: %w", err)
	}
	return nil
}
