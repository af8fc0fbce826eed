package timeparser

import (
	"fmt"
	"time"
)

// Validation is the outcome of ValidateParsedTime. Errors make a time
// unusable; warnings are surfaced to the human reviewer.
type Validation struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// ValidateParsedTime checks the time is in the future, not on a US federal
// holiday, and inside business hours
func (p *Parser) ValidateParsedTime(pt ParsedTime, now time.Time) Validation {
	var v Validation
	if !pt.Success || pt.Instant == nil {
		v.Errors = append(v.Errors, "time could not be parsed")
		return v
	}

	loc, err := time.LoadLocation(pt.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := pt.Instant.In(loc)

	if !pt.Instant.After(now) {
		v.Errors = append(v.Errors, "time is in the past")
	}
	if name, ok := FederalHoliday(local); ok {
		v.Errors = append(v.Errors, fmt.Sprintf("%s is a holiday (%s)", local.Format(dateLayout), name))
	}
	if p.hours.WeekdaysOnly && (local.Weekday() == time.Saturday || local.Weekday() == time.Sunday) {
		v.Warnings = append(v.Warnings, fmt.Sprintf("%s is a weekend", local.Format(dateLayout)))
	}
	if !pt.DateOnly && (local.Hour() < p.hours.StartHour || local.Hour() >= p.hours.EndHour) {
		v.Warnings = append(v.Warnings, fmt.Sprintf("%s is outside business hours (%02d:00-%02d:00)",
			local.Format("3:04 PM"), p.hours.StartHour, p.hours.EndHour))
	}

	v.Valid = len(v.Errors) == 0
	return v
}
