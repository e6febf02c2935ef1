package fqbn

import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func TestParseValid(t *testing.T) {
	f, err := Parse("arduino:avr:uno")
	require.NoError(t, err)
	assert.Equal(t, "arduino", f.Package)
	assert.Equal(t, "avr", f.Platform)
	assert.Equal(t, "uno", f.BoardID)
	assert.Equal(t, "arduino:avr:uno", f.String())
}

func TestParseWithOptions(t *testing.T) {
	f, err := Parse("esp32:esp32:esp32dev:PartitionScheme=huge_app,UploadSpeed=921600")
	require.NoError(t, err)
	assert.Equal(t, "huge_app", f.Options["PartitionScheme"])
	assert.Equal(t, "921600", f.Options["UploadSpeed"])
}

func TestParseInvalid(t *testing.T) {
	for _, s := range []string{"", "arduino:avr", "arduino::uno", ":avr:uno", "arduino:avr:uno$bad:x=1", "a b:avr:uno"} {
		_, err := Parse(s)
		assert.Error(t, err, s)
	}
}

func TestIsSTM32(t *testing.T) {
	f, err := Parse("STMicroelectronics:stm32:Nucleo_64")
	require.NoError(t, err)
	assert.True(t, f.IsSTM32())

	f2, err := Parse("arduino:avr:uno")
	require.NoError(t, err)
	assert.False(t, f2.IsSTM32())
}
