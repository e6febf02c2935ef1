package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumNamedCapturesAddsAcrossMultipleMatches(t *testing.T) {
	text := "Sketch uses 1000 bytes\nGlobal variables use 200 bytes\n"
	total := sumNamedCaptures(text, `uses? (\d+) bytes`)
	assert.Equal(t, int64(1200), total)
}

func TestSumNamedCapturesSumsMultipleGroupsPerMatch(t *testing.T) {
	text := "text=100 data=50\n"
	total := sumNamedCaptures(text, `text=(\d+) data=(\d+)`)
	assert.Equal(t, int64(150), total)
}

func TestSumNamedCapturesReturnsZeroForEmptyPattern(t *testing.T) {
	assert.Equal(t, int64(0), sumNamedCaptures("anything", ""))
}

func TestSumNamedCapturesReturnsZeroWhenNothingMatches(t *testing.T) {
	assert.Equal(t, int64(0), sumNamedCaptures("no numbers here", `uses (\d+) bytes`))
}
