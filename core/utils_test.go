package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Hello", CleanString("  Hello\t\n"))
	assert.Equal(t, "hello", CleanString("  Hello ", true))
	assert.Equal(t, "", CleanString("   "))
}
