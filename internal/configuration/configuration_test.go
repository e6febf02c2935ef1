package configuration

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitSeedsDefaultsWhenNoConfigFileExists(t *testing.T) {
	require.NoError(t, Init(t.TempDir()))
	assert.Equal(t, "info", Settings.GetString("logging.level"))
	assert.Equal(t, "text", Settings.GetString("logging.format"))
	assert.Equal(t, 0, Settings.GetInt("build.parallelism"))
	assert.False(t, Settings.GetBool("build.disable_cache"))
}

func TestInitReadsPersistedOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir))
	Settings.Set("logging.level", "debug")
	require.NoError(t, Settings.WriteConfigAs(dir+"/aily-builder.yaml"))

	Settings = viper.New()
	require.NoError(t, Init(dir))
	assert.Equal(t, "debug", Settings.GetString("logging.level"))
}
