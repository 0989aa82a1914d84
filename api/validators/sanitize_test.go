package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "skis", SanitizeString("  skis \n", 0))
	assert.Equal(t, "abc", SanitizeString("a\x00b\x07c", 10))
	assert.Equal(t, "abc", SanitizeString("abcdef", 3))
	// "é" is two bytes; a 2-byte cut must not leave half of it behind.
	assert.Equal(t, "a", SanitizeString("aé", 2))
}

func TestSanitizeFilterLowercases(t *testing.T) {
	assert.Equal(t, "snowboards", SanitizeFilter(" SnowBoards ", 50))
}
