package macros

import "testing"

import "github.com/stretchr/testify/assert"

func TestEvalDefined(t *testing.T) {
	env := Empty().Extend("ESP32", "")
	assert.True(t, Eval("defined(ESP32)", env))
	assert.True(t, Eval("defined ESP32", env))
	assert.False(t, Eval("defined(AVR)", env))
	assert.False(t, Eval("!defined(ESP32)", env))
}

func TestEvalComparisons(t *testing.T) {
	env := Empty().Extend("ARDUINO", "10812")
	assert.True(t, Eval("ARDUINO >= 10800", env))
	assert.False(t, Eval("ARDUINO < 10800", env))
	assert.True(t, Eval("ARDUINO == 10812", env))
}

func TestEvalLogical(t *testing.T) {
	env := Empty().Extend("A", "1").Extend("B", "0")
	assert.True(t, Eval("A && !B", env))
	assert.True(t, Eval("A || B", env))
	assert.False(t, Eval("!A && B", env))
}

func TestEvalChainedIdentifier(t *testing.T) {
	env := Empty().Extend("A", "B").Extend("B", "5")
	assert.True(t, Eval("A == 5", env))
}

func TestEvalMalformedIsFalse(t *testing.T) {
	env := Empty()
	assert.False(t, Eval("((unbalanced", env))
	assert.False(t, Eval("", env))
}

func TestEnvExtendIsImmutable(t *testing.T) {
	base := Empty().Extend("X", "1")
	child := base.Extend("Y", "2")
	assert.True(t, child.Defined("X"))
	assert.True(t, child.Defined("Y"))
	assert.False(t, base.Defined("Y"))
}
