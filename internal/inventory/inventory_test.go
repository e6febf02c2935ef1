package inventory

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitGeneratesInstallationIDWhenFileMissing(t *testing.T) {
	Store = viper.New()
	require.NoError(t, Init(t.TempDir()))
	assert.NotEmpty(t, InstallationID())
}

func TestInitReusesPersistedInstallationID(t *testing.T) {
	dir := t.TempDir()
	Store = viper.New()
	require.NoError(t, Init(dir))
	first := InstallationID()
	require.NotEmpty(t, first)

	Store = viper.New()
	require.NoError(t, Init(dir))
	assert.Equal(t, first, InstallationID())
}
