package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("2024-02-29")
	require.True(t, ok)
	assert.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, d)

	d, ok = ParseDate("2024-1-5")
	require.True(t, ok)
	assert.Equal(t, "2024-01-05", d.String())

	for _, bad := range []string{"", "2024-02", "2024/02/01", "2023-02-29", "2024-13-01", "2024-00-10", "abc-01-01", "2024-01-01T00:00",
		"+2024-01-01", "2024-+1-05", "2024-01--5", "2024- 1-05"} {
		_, ok := ParseDate(bad)
		assert.False(t, ok, "ParseDate(%q)", bad)
	}
}

func TestDate_Compare(t *testing.T) {
	a := MustParseDate("2024-01-31")
	b := MustParseDate("2024-02-01")
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, b, a.AddDays(1))
	assert.Equal(t, 1, a.DaysUntil(b))
	assert.Equal(t, -1, b.DaysUntil(a))
}

func TestNewDate_Clamps(t *testing.T) {
	assert.Equal(t, "2023-02-28", NewDate(2023, time.February, 31).String())
	assert.Equal(t, "2024-02-29", NewDate(2024, time.February, 31).String())
	assert.Equal(t, "2024-04-01", NewDate(2024, time.April, 0).String())
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 31, DaysIn(2024, time.January))
	assert.Equal(t, 29, DaysIn(2024, time.February))
	assert.Equal(t, 28, DaysIn(2100, time.February))
	assert.Equal(t, 30, DaysIn(2024, time.November))
}

func TestDate_Zero(t *testing.T) {
	var d Date
	assert.True(t, d.IsZero())
	assert.False(t, d.Valid())
}
