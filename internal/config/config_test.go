package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchDocumentedValues(t *testing.T) {
	c := Defaults()
	assert.Equal(t, int64(86_400_000), c.HealTTLMs)
	assert.Equal(t, 1000, c.HealMaxEntries)
	assert.Equal(t, 0.7, c.HealMinSuccessRate)
	assert.Equal(t, 50, c.RateLimitN)
	assert.Equal(t, int64(60_000), c.RateLimitWindowMs)
	assert.Equal(t, uint32(3), c.BreakerFailThreshold)
	assert.Equal(t, int64(60_000), c.BreakerOpenMs)
	assert.Equal(t, 0.60, c.OCRConfidenceMin)
	assert.Equal(t, int64(120_000), c.ActionabilityTimeoutMs)
	assert.Equal(t, int64(120_000), c.CondClickTimeoutMs)
	require.NoError(t, c.Validate())
}

func TestProjectFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".raengine.toml"), []byte("heal_max_entries = 250\n"), 0o644))

	t.Setenv("HOME", t.TempDir())
	cfg, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.HealMaxEntries)
}

func TestEnvVarsOverrideProjectFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".raengine.toml"), []byte("rate_limit_n = 10\n"), 0o644))

	t.Setenv("HOME", t.TempDir())
	t.Setenv("RATE_LIMIT_N", "99")
	cfg, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.RateLimitN)
}

func TestFlagsOverrideEverything(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".raengine.toml"), []byte("cb_fail_threshold = 7\n"), 0o644))
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CB_FAIL_THRESHOLD", "8")

	want := uint32(9)
	cfg, err := Load(dir, &FlagOverrides{BreakerFailThreshold: &want})
	require.NoError(t, err)
	assert.Equal(t, uint32(9), cfg.BreakerFailThreshold)
}

func TestDeriveDurationsTracksMillisFields(t *testing.T) {
	want := int64(5000)
	cfg, err := Load(t.TempDir(), &FlagOverrides{HealTTLMs: &want})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), cfg.HealTTLMs)
	assert.Equal(t, int64(5000)*1_000_000, cfg.HealTTL.Nanoseconds())
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	c := Defaults()
	c.HealMinSuccessRate = 1.5
	assert.Error(t, c.Validate())

	c = Defaults()
	c.RateLimitN = 0
	assert.Error(t, c.Validate())

	c = Defaults()
	c.BreakerFailThreshold = 0
	assert.Error(t, c.Validate())
}

func TestExpandedStorePathResolvesTilde(t *testing.T) {
	c := Config{StorePath: "~/.raengine/engine.db"}
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := c.ExpandedStorePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".raengine", "engine.db"), path)
}

func TestExpandedStorePathLeavesAbsolutePathAlone(t *testing.T) {
	c := Config{StorePath: "/var/lib/raengine/engine.db"}
	path, err := c.ExpandedStorePath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/raengine/engine.db", path)
}
