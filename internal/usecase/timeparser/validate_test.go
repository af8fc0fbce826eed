package timeparser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func parsedAt(t *testing.T, instant, tz string) ParsedTime {
	at := mustTime(t, instant)
	return ParsedTime{Instant: &at, Timezone: tz, Success: true}
}

func TestValidateParsedTime(t *testing.T) {
	p := newTestParser(nil)
	now := mustTime(t, "2026-01-02T14:00:00Z")

	v := p.ValidateParsedTime(parsedAt(t, "2026-01-06T15:00:00Z", "America/New_York"), now)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Errors)
	assert.Empty(t, v.Warnings)

	v = p.ValidateParsedTime(parsedAt(t, "2026-01-01T15:00:00Z", "America/New_York"), now)
	assert.False(t, v.Valid)
	assert.Contains(t, v.Errors, "time is in the past")

	// Independence Day 2026 falls on a Saturday and is observed Friday July 3
	v = p.ValidateParsedTime(parsedAt(t, "2026-07-03T14:00:00Z", "America/New_York"), now)
	assert.False(t, v.Valid)
	assert.Len(t, v.Errors, 1)

	v = p.ValidateParsedTime(parsedAt(t, "2026-01-10T15:00:00Z", "America/New_York"), now)
	assert.True(t, v.Valid)
	assert.Len(t, v.Warnings, 1)

	v = p.ValidateParsedTime(parsedAt(t, "2026-01-07T01:00:00Z", "America/New_York"), now)
	assert.True(t, v.Valid)
	assert.Len(t, v.Warnings, 1)

	v = p.ValidateParsedTime(ParsedTime{Success: false}, now)
	assert.False(t, v.Valid)
}

func TestFederalHoliday(t *testing.T) {
	cases := map[string]string{
		"2026-01-01": "New Year's Day",
		"2026-01-19": "Martin Luther King Jr. Day",
		"2026-05-25": "Memorial Day",
		"2026-07-03": "Independence Day",
		"2026-11-26": "Thanksgiving Day",
		"2027-12-31": "New Year's Day",
	}
	for day, want := range cases {
		d, _ := time.Parse("2006-01-02", day)
		name, ok := FederalHoliday(d)
		assert.True(t, ok, day)
		assert.Equal(t, want, name, day)
	}

	for _, day := range []string{"2026-07-04", "2026-01-05", "2026-12-31"} {
		d, _ := time.Parse("2006-01-02", day)
		_, ok := FederalHoliday(d)
		assert.False(t, ok, day)
	}
}
