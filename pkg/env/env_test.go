package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetFallsBackOnBlank(t *testing.T) {
	t.Setenv("PEAKRENT_TEST_BLANK", "   ")
	assert.Equal(t, "fallback", Get("PEAKRENT_TEST_BLANK", "fallback"))

	t.Setenv("PEAKRENT_TEST_SET", "value")
	assert.Equal(t, "value", Get("PEAKRENT_TEST_SET", "fallback"))
}

func TestFirstPicksEarliestSetKey(t *testing.T) {
	t.Setenv("PEAKRENT_TEST_A", "")
	t.Setenv("PEAKRENT_TEST_B", "8080")
	assert.Equal(t, "8080", First("9000", "PEAKRENT_TEST_A", "PEAKRENT_TEST_B"))
	assert.Equal(t, "9000", First("9000", "PEAKRENT_TEST_A"))
}
