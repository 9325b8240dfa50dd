package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootDirEnvOverride(t *testing.T) {
	t.Setenv(dirEnv, "/tmp/apitap-test-root")
	dir, err := RootDir()
	require.NoError(t, err)
	require.Equal(t, "/tmp/apitap-test-root", dir)
}

func TestSkillsDirDefaultsUnderRoot(t *testing.T) {
	t.Setenv(dirEnv, "/tmp/apitap-test-root")
	t.Setenv(skillsDirEnv, "")
	dir, err := SkillsDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/tmp/apitap-test-root", "skills"), dir)
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv(dirEnv, t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(dirEnv, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFile), []byte("max_bytes: 2048\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 2048, cfg.MaxBytes)
	require.Equal(t, Defaults().VerifyOnSave, cfg.VerifyOnSave)
}

func TestEnsureRootDirCreatesSkillsDir(t *testing.T) {
	t.Setenv(dirEnv, filepath.Join(t.TempDir(), "nested"))
	require.NoError(t, EnsureRootDir())

	skills, err := SkillsDir()
	require.NoError(t, err)
	info, err := os.Stat(skills)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
