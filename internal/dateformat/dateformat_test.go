package dateformat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-09-09 15:30 UTC is 10:30 in Bogota.
var sample = time.Date(2025, 9, 9, 15, 30, 0, 0, time.UTC)

func TestFormats(t *testing.T) {
	assert.Equal(t, "martes, 9 de septiembre de 2025, 10:30 a. m.", DateTime(sample))
	assert.Equal(t, "martes, 9 de sept del 2025, 10:30 a. m.", DateTimeAbbr(sample))
	assert.Equal(t, "martes, 9 de sept del 2025", DateAbbr(sample))
	assert.Equal(t, "9 de sept del 2025", DateOnly(sample))
	assert.Equal(t, "", DateTime(time.Time{}))
}

func TestDayBoundaryUsesBogota(t *testing.T) {
	// 03:00 UTC on the 10th is still the 9th in Bogota.
	late := time.Date(2025, 9, 10, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-09-09", YMDKey(late))
	assert.Equal(t, "10:00 p. m.", clock(late.In(Bogota)))
	assert.True(t, IsToday(late, sample))

	nextDay := time.Date(2025, 9, 10, 18, 0, 0, 0, time.UTC)
	assert.True(t, IsYesterday(sample, nextDay))
	assert.False(t, IsYesterday(nextDay, nextDay))
}

func TestFromYMDKey(t *testing.T) {
	assert.Equal(t, "9 de sept del 2025", FromYMDKey("2025-09-09"))
	assert.Equal(t, "1 de ene del 2024", FromYMDKey("2024-01-01"))
	assert.Equal(t, "", FromYMDKey("2025-13-01"))
	assert.Equal(t, "", FromYMDKey("09/09/2025"))
}

func TestParse(t *testing.T) {
	for _, in := range []string{"2025-09-09T15:30:00Z", "2025-09-09 15:30:00", "2025-09-09T15:30:00"} {
		got, ok := Parse(in)
		require.True(t, ok, in)
		assert.True(t, got.Equal(sample), in)
	}
	got, ok := Parse("2025-09-09")
	require.True(t, ok)
	assert.Equal(t, 9, got.Day())

	_, ok = Parse("ayer")
	assert.False(t, ok)
}
