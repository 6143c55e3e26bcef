package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 5, ParseIntDefault("", 5))
	assert.Equal(t, 3, ParseIntDefault("3", 5))
	assert.Equal(t, 5, ParseIntDefault("tres", 5))
	assert.Equal(t, -1, ParseIntDefault("-1", 5))
}

func TestCalculate(t *testing.T) {
	offset, limit := Calculate(1, 20)
	assert.Equal(t, 0, offset)
	assert.Equal(t, 20, limit)

	offset, limit = Calculate(3, 10)
	assert.Equal(t, 20, offset)
	assert.Equal(t, 10, limit)

	// out-of-range values fall back to defaults
	offset, limit = Calculate(0, 0)
	assert.Equal(t, 0, offset)
	assert.Equal(t, DefaultPageSize, limit)

	_, limit = Calculate(1, 500)
	assert.Equal(t, DefaultPageSize, limit)
}
