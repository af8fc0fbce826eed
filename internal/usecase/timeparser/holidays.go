package timeparser

import "time"

type holiday struct {
	name string
	date time.Time
}

// federalHolidays returns the observed US federal holidays for a year.
// Fixed-date holidays on a Saturday are observed Friday, on a Sunday Monday,
// so New Year's Day can land on Dec 31 of the previous year.
func federalHolidays(year int) []holiday {
	fixed := func(name string, m time.Month, d int) holiday {
		t := time.Date(year, m, d, 0, 0, 0, 0, time.UTC)
		switch t.Weekday() {
		case time.Saturday:
			t = t.AddDate(0, 0, -1)
		case time.Sunday:
			t = t.AddDate(0, 0, 1)
		}
		return holiday{name: name, date: t}
	}
	nth := func(name string, m time.Month, wd time.Weekday, n int) holiday {
		t := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
		for t.Weekday() != wd {
			t = t.AddDate(0, 0, 1)
		}
		return holiday{name: name, date: t.AddDate(0, 0, 7*(n-1))}
	}
	last := func(name string, m time.Month, wd time.Weekday) holiday {
		t := time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC)
		for t.Weekday() != wd {
			t = t.AddDate(0, 0, -1)
		}
		return holiday{name: name, date: t}
	}

	return []holiday{
		fixed("New Year's Day", time.January, 1),
		nth("Martin Luther King Jr. Day", time.January, time.Monday, 3),
		nth("Washington's Birthday", time.February, time.Monday, 3),
		last("Memorial Day", time.May, time.Monday),
		fixed("Juneteenth", time.June, 19),
		fixed("Independence Day", time.July, 4),
		nth("Labor Day", time.September, time.Monday, 1),
		nth("Columbus Day", time.October, time.Monday, 2),
		fixed("Veterans Day", time.November, 11),
		nth("Thanksgiving Day", time.November, time.Thursday, 4),
		fixed("Christmas Day", time.December, 25),
	}
}

// FederalHoliday reports whether the calendar day of t is an observed US
// federal holiday
func FederalHoliday(t time.Time) (string, bool) {
	for _, year := range []int{t.Year(), t.Year() + 1} {
		for _, h := range federalHolidays(year) {
			if sameDay(h.date, t) {
				return h.name, true
			}
		}
	}
	return "", false
}
