package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArchOfExtractsArchitectureSegment(t *testing.T) {
	assert.Equal(t, "avr", archOf("arduino:avr:uno"))
	assert.Equal(t, "samd", archOf("arduino:samd:mkrzero:opt=small"))
}

func TestArchOfHandlesMalformedFQBN(t *testing.T) {
	assert.Equal(t, "", archOf("arduino"))
}

func TestSplitNStopsAtRequestedPartCount(t *testing.T) {
	assert.Equal(t, []string{"arduino", "avr", "uno:opt=small"}, splitN("arduino:avr:uno:opt=small", ':', 3))
}
