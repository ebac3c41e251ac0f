package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestISOWeekday(t *testing.T) {
	// 2025-01-06 is a Monday.
	monday := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		assert.Equal(t, i+1, ISOWeekday(monday.AddDate(0, 0, i)))
	}
}

func TestBusinessLocation(t *testing.T) {
	loc := BusinessLocation()
	assert.NotNil(t, loc)

	// Converting is a no-op on the instant itself.
	now := UTCNow()
	assert.True(t, now.Equal(InBusinessTime(now)))
}

func TestNormalizeMatchValue(t *testing.T) {
	assert.Equal(t, "almaty", NormalizeMatchValue("  Almaty "))
	assert.Equal(t, "", NormalizeMatchValue("   "))
	assert.Equal(t, "ru", NormalizeMatchValue("RU"))
}
