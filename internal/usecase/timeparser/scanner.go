package timeparser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

type tokenKind int

const (
	tokDate tokenKind = iota
	tokTime
	tokZone
)

// components is the partially resolved shape of one time expression. The
// rule scanner and the AI extractor both produce it.
type components struct {
	iso *time.Time

	year       int
	month      time.Month
	day        int
	weekday    time.Weekday
	hasWeekday bool
	modifier   string
	relDays    int
	hasRel     bool
	weekOnly   bool

	hasClock   bool
	hour       int
	minute     int
	meridiem   string
	twentyFour bool
	period     string

	zone     *time.Location
	zoneName string
}

func (c components) hasDate() bool {
	return c.iso != nil || c.day > 0 || c.hasWeekday || c.hasRel || c.weekOnly
}

func (c components) hasTime() bool {
	return c.iso != nil || c.hasClock || c.period != ""
}

// merge folds o into c. It reports false when both carry the same field.
func (c *components) merge(o components) bool {
	if (c.day > 0 && o.day > 0) || (c.hasWeekday && o.hasWeekday) || (c.hasRel && o.hasRel) ||
		(c.hasClock && o.hasClock) || (c.period != "" && o.period != "") || (c.iso != nil || o.iso != nil) ||
		(c.weekOnly && o.weekOnly) {
		return false
	}
	if o.day > 0 {
		c.year, c.month, c.day = o.year, o.month, o.day
	}
	if o.hasWeekday {
		c.weekday, c.hasWeekday, c.modifier = o.weekday, true, o.modifier
	}
	if o.hasRel {
		c.relDays, c.hasRel = o.relDays, true
	}
	if o.weekOnly {
		c.weekOnly = true
	}
	if o.hasClock {
		c.hasClock, c.hour, c.minute, c.meridiem, c.twentyFour = true, o.hour, o.minute, o.meridiem, o.twentyFour
	}
	if o.period != "" {
		c.period = o.period
	}
	return true
}

type token struct {
	kind       tokenKind
	start, end int
	c          components
}

const monthNames = `january|jan|february|feb|march|mar|april|apr|may|june|jun|july|jul|august|aug|september|sept|sep|october|oct|november|nov|december|dec`
const weekdayNames = `monday|mon|tuesday|tues|tue|wednesday|wed|thursday|thurs|thur|thu|friday|fri|saturday|sunday`
const meridiems = `a\.m\.|p\.m\.|am|pm`

var (
	reISO       = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})(?:[t ](\d{2}):(\d{2})(?::\d{2})?(z|[+-]\d{2}:?\d{2})?)?`)
	reMonthDay  = regexp.MustCompile(`\b(` + monthNames + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s*(\d{4})\b)?`)
	reDayMonth  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthNames + `)\b(?:,?\s*(\d{4})\b)?`)
	reNumeric   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b`)
	reRelative  = regexp.MustCompile(`\b(day after tomorrow|tomorrow|today|tonight)\b`)
	reWeekday   = regexp.MustCompile(`\b(?:(next|this|coming)\s+)?(` + weekdayNames + `)\b(?:,?\s+(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)\b)?`)
	reNextWeek  = regexp.MustCompile(`\bnext\s+week\b`)
	reInDays    = regexp.MustCompile(`\bin\s+(\d{1,2}|a|one|two|three|four|five|six|seven)\s+(days?|weeks?)\b`)
	reTheNth    = regexp.MustCompile(`\bthe\s+(\d{1,2})(?:st|nd|rd|th)\b`)
	reClock     = regexp.MustCompile(`\b(\d{1,2})[:.](\d{2})(?:\s*(` + meridiems + `))?`)
	reHourMerid = regexp.MustCompile(`\b(\d{1,2})\s*(` + meridiems + `)`)
	reNoon      = regexp.MustCompile(`\b(noon|midday|midnight)\b`)
	rePeriod    = regexp.MustCompile(`\b(early morning|morning|afternoon|evening|end of the day|end of day|eod|lunchtime|lunch|first thing)\b`)
	reAtHour    = regexp.MustCompile(`(?:\bat|\baround|\babout|@)\s*(\d{1,2})\b`)
	reZone      = regexp.MustCompile(`\b(est|edt|et|eastern|cst|cdt|ct|central|mst|mdt|mt|mountain|pst|pdt|pt|pacific|gmt|utc|bst|cet|cest|ist|aest|jst)\b`)
	reOrdinalNo = regexp.MustCompile(`^\s+(?:one|option|slot|time|suggestion)\b`)
	reCountNoun = regexp.MustCompile(`^\s*(?:minutes?|mins?|hours?|hrs?|days?|weeks?|people|of|percent|%)`)
)

var monthByName = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdayByName = map[string]time.Weekday{
	"mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday, "thu": time.Thursday,
	"fri": time.Friday, "sat": time.Saturday, "sun": time.Sunday,
}

var smallNumbers = map[string]int{
	"a": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6, "seven": 7,
}

// periodHours are the default hours assumed for a period-only expression
var periodHours = map[string]int{
	"early morning": 8,
	"morning":       9,
	"first thing":   9,
	"lunch":         12,
	"lunchtime":     12,
	"afternoon":     14,
	"evening":       17,
	"end of day":    17,
	"eod":           17,
}

var zoneNames = map[string]string{
	"est": "America/New_York", "edt": "America/New_York", "et": "America/New_York", "eastern": "America/New_York",
	"cst": "America/Chicago", "cdt": "America/Chicago", "ct": "America/Chicago", "central": "America/Chicago",
	"mst": "America/Denver", "mdt": "America/Denver", "mt": "America/Denver", "mountain": "America/Denver",
	"pst": "America/Los_Angeles", "pdt": "America/Los_Angeles", "pt": "America/Los_Angeles", "pacific": "America/Los_Angeles",
	"gmt": "UTC", "utc": "UTC",
	"bst": "Europe/London", "cet": "Europe/Paris", "cest": "Europe/Paris",
	"ist": "Asia/Kolkata", "aest": "Australia/Sydney", "jst": "Asia/Tokyo",
}

func normalize(text string) string {
	text = strings.ToLower(text)
	return strings.NewReplacer("’", "'", "‘", "'", " ", " ").Replace(text)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func lookupMonth(name string) time.Month {
	if len(name) > 3 {
		name = name[:3]
	}
	return monthByName[name]
}

func lookupWeekday(name string) time.Weekday {
	return weekdayByName[name[:3]]
}

func zoneLocation(abbr string) (*time.Location, bool) {
	name, ok := zoneNames[abbr]
	if !ok {
		return nil, false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, false
	}
	return loc, true
}

func letterAt(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return false
	}
	return unicode.IsLetter(rune(text[i]))
}

func meridiemOf(s string) string {
	if s == "" {
		return ""
	}
	if s[0] == 'a' {
		return "am"
	}
	return "pm"
}

// scanner collects non-overlapping tokens from normalized text
type scanner struct {
	text   string
	taken  []bool
	tokens []token
}

func (s *scanner) free(start, end int) bool {
	for i := start; i < end; i++ {
		if s.taken[i] {
			return false
		}
	}
	return true
}

func (s *scanner) add(kind tokenKind, start, end int, c components) {
	for i := start; i < end; i++ {
		s.taken[i] = true
	}
	s.tokens = append(s.tokens, token{kind: kind, start: start, end: end, c: c})
}

// each runs fn for every free match of re; fn returns false to skip the match
func (s *scanner) each(re *regexp.Regexp, kind tokenKind, fn func(m []string, end int) (components, bool)) {
	for _, idx := range re.FindAllStringSubmatchIndex(s.text, -1) {
		start, end := idx[0], idx[1]
		if !s.free(start, end) {
			continue
		}
		groups := make([]string, len(idx)/2)
		for g := range groups {
			if idx[2*g] >= 0 {
				groups[g] = s.text[idx[2*g]:idx[2*g+1]]
			}
		}
		c, ok := fn(groups, end)
		if !ok {
			continue
		}
		s.add(kind, start, end, c)
	}
}

// scan tokenizes text and groups adjacent tokens into expressions
func scan(text string) []expression {
	s := &scanner{text: normalize(text)}
	s.taken = make([]bool, len(s.text))

	s.each(reISO, tokDate, func(m []string, _ int) (components, bool) {
		c := components{year: atoi(m[1]), month: time.Month(atoi(m[2])), day: atoi(m[3])}
		if m[4] == "" {
			return c, true
		}
		if m[6] != "" {
			layout := "2006-01-02T15:04Z07:00"
			zone := strings.ToUpper(m[6])
			if zone != "Z" && !strings.Contains(zone, ":") {
				zone = zone[:3] + ":" + zone[3:]
			}
			t, err := time.Parse(layout, m[1]+"-"+m[2]+"-"+m[3]+"T"+m[4]+":"+m[5]+zone)
			if err != nil {
				return c, false
			}
			return components{iso: &t}, true
		}
		c.hasClock, c.hour, c.minute, c.twentyFour = true, atoi(m[4]), atoi(m[5]), true
		return c, true
	})
	s.each(reMonthDay, tokDate, func(m []string, _ int) (components, bool) {
		return components{month: lookupMonth(m[1]), day: atoi(m[2]), year: atoi(m[3])}, true
	})
	s.each(reDayMonth, tokDate, func(m []string, _ int) (components, bool) {
		return components{day: atoi(m[1]), month: lookupMonth(m[2]), year: atoi(m[3])}, true
	})
	s.each(reNumeric, tokDate, func(m []string, _ int) (components, bool) {
		month, day := atoi(m[1]), atoi(m[2])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return components{}, false
		}
		year := atoi(m[3])
		if year > 0 && year < 100 {
			year += 2000
		}
		return components{month: time.Month(month), day: day, year: year}, true
	})
	s.each(reRelative, tokDate, func(m []string, _ int) (components, bool) {
		switch m[1] {
		case "tomorrow":
			return components{hasRel: true, relDays: 1}, true
		case "day after tomorrow":
			return components{hasRel: true, relDays: 2}, true
		case "tonight":
			return components{hasRel: true, period: "evening"}, true
		}
		return components{hasRel: true}, true
	})
	s.each(reWeekday, tokDate, func(m []string, _ int) (components, bool) {
		c := components{weekday: lookupWeekday(m[2]), hasWeekday: true, modifier: m[1]}
		if c.modifier == "coming" {
			c.modifier = ""
		}
		if m[3] != "" {
			c.day = atoi(m[3])
		}
		return c, true
	})
	s.each(reNextWeek, tokDate, func([]string, int) (components, bool) {
		return components{weekOnly: true}, true
	})
	s.each(reInDays, tokDate, func(m []string, _ int) (components, bool) {
		n, ok := smallNumbers[m[1]]
		if !ok {
			n = atoi(m[1])
		}
		if strings.HasPrefix(m[2], "week") {
			n *= 7
		}
		return components{hasRel: true, relDays: n}, true
	})
	s.each(reTheNth, tokDate, func(m []string, end int) (components, bool) {
		// "the 2nd one" refers to an option, not a date
		if reOrdinalNo.MatchString(s.text[end:]) {
			return components{}, false
		}
		return components{day: atoi(m[1])}, true
	})
	s.each(reClock, tokTime, func(m []string, end int) (components, bool) {
		if letterAt(s.text, end) || (end < len(s.text) && unicode.IsDigit(rune(s.text[end]))) {
			return components{}, false
		}
		return components{
			hasClock:   true,
			hour:       atoi(m[1]),
			minute:     atoi(m[2]),
			meridiem:   meridiemOf(m[3]),
			twentyFour: len(m[1]) == 2 && m[1][0] == '0',
		}, true
	})
	s.each(reHourMerid, tokTime, func(m []string, end int) (components, bool) {
		if letterAt(s.text, end) {
			return components{}, false
		}
		return components{hasClock: true, hour: atoi(m[1]), meridiem: meridiemOf(m[2])}, true
	})
	s.each(reNoon, tokTime, func(m []string, _ int) (components, bool) {
		if m[1] == "midnight" {
			return components{hasClock: true, hour: 0, twentyFour: true}, true
		}
		return components{hasClock: true, hour: 12, twentyFour: true}, true
	})
	s.each(rePeriod, tokTime, func(m []string, _ int) (components, bool) {
		p := m[1]
		if p == "end of the day" {
			p = "end of day"
		}
		return components{period: p}, true
	})
	s.each(reAtHour, tokTime, func(m []string, end int) (components, bool) {
		if end < len(s.text) && (s.text[end] == ':' || s.text[end] == '/') {
			return components{}, false
		}
		if reCountNoun.MatchString(s.text[end:]) {
			return components{}, false
		}
		return components{hasClock: true, hour: atoi(m[1])}, true
	})
	s.each(reZone, tokZone, func(m []string, _ int) (components, bool) {
		loc, ok := zoneLocation(m[1])
		if !ok {
			return components{}, false
		}
		return components{zone: loc, zoneName: strings.ToUpper(m[1])}, true
	})

	sort.Slice(s.tokens, func(i, j int) bool { return s.tokens[i].start < s.tokens[j].start })
	return s.group()
}

// expression is a group of adjacent tokens describing one point in time
type expression struct {
	start, end int
	raw        string
	c          components
}

var connectors = map[string]bool{
	"at": true, "on": true, "the": true, "around": true, "about": true, "by": true,
	"in": true, "from": true, "say": true, "maybe": true, "of": true, "starting": true,
}

func (s *scanner) joinable(from, to int) bool {
	if to-from > 16 {
		return false
	}
	gap := s.text[from:to]
	if strings.ContainsAny(gap, ".?!;\n") {
		return false
	}
	for _, w := range strings.FieldsFunc(gap, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) {
		if !connectors[w] {
			return false
		}
	}
	return true
}

func (s *scanner) group() []expression {
	var out []expression
	var cur *expression
	flush := func() {
		if cur != nil && (cur.c.hasDate() || cur.c.hasTime()) {
			cur.raw = strings.TrimSpace(s.text[cur.start:cur.end])
			out = append(out, *cur)
		}
		cur = nil
	}

	for _, t := range s.tokens {
		if t.kind == tokZone {
			if cur != nil && cur.c.hasTime() && cur.c.zone == nil && s.joinable(cur.end, t.start) {
				cur.c.zone, cur.c.zoneName = t.c.zone, t.c.zoneName
				cur.end = t.end
			}
			continue
		}
		if cur != nil && s.joinable(cur.end, t.start) {
			merged := cur.c
			if merged.merge(t.c) {
				cur.c = merged
				cur.end = t.end
				continue
			}
		}
		flush()
		cur = &expression{start: t.start, end: t.end, c: t.c}
	}
	flush()
	return out
}
