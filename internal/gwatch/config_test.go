package gwatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)
}

func TestLoadConfig_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search-path: C:\\symbols\ninvade: true\nno-arm: false\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, `C:\symbols`, cfg.SearchPath)
	require.NotNil(t, cfg.Invade)
	assert.True(t, *cfg.Invade)
	require.NotNil(t, cfg.NoArm)
	assert.False(t, *cfg.NoArm)
	assert.Nil(t, cfg.Log)
}

func TestConfig_MergeOverridesOnlySetFields(t *testing.T) {
	base := DefaultConfig()
	noArmOverride := false
	override := Config{NoArm: &noArmOverride}

	merged := base.Merge(override)

	assert.Equal(t, base.SearchPath, merged.SearchPath)
	assert.Equal(t, base.Invade, merged.Invade)
	require.NotNil(t, merged.NoArm)
	assert.False(t, *merged.NoArm)
}

func TestConfig_MergeChainsThreeLayers(t *testing.T) {
	logOn := true
	fileCfg := Config{SearchPath: "D:\\sym"}
	cliCfg := Config{Log: &logOn}

	merged := DefaultConfig().Merge(fileCfg).Merge(cliCfg)

	assert.Equal(t, `D:\sym`, merged.SearchPath)
	require.NotNil(t, merged.Log)
	assert.True(t, *merged.Log)
	require.NotNil(t, merged.Invade)
	assert.True(t, *merged.Invade) // untouched by either override, stays at DefaultConfig's value
}
