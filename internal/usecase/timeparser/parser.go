package timeparser

import (
	"context"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

// Extractor is the text-completion "extract" contract
type Extractor interface {
	Extract(ctx context.Context, prompt string) (string, error)
}

// Context carries what a parse is relative to
type Context struct {
	Timezone         string
	ReferenceInstant time.Time
	EmailBodyExcerpt string
	ProposedTimes    []entities.ProposedTime
}

// ParsedTime is one resolved time expression
type ParsedTime struct {
	Raw          string                  `json:"raw"`
	Instant      *time.Time              `json:"instant,omitempty"`
	Display      string                  `json:"display"`
	Timezone     string                  `json:"timezone"`
	Confidence   entities.ConfidenceTier `json:"confidence"`
	Reasoning    string                  `json:"reasoning"`
	WasConverted bool                    `json:"was_converted"`
	Success      bool                    `json:"success"`
	Errors       []string                `json:"errors,omitempty"`

	// DateOnly means no hour was given; Instant is the start of business hours
	DateOnly bool `json:"date_only,omitempty"`
	// TimeOnly means no date was given; Instant is the next occurrence
	TimeOnly bool   `json:"time_only,omitempty"`
	Source   string `json:"source"`
}

const (
	SourceRules = "rules"
	SourceAI    = "ai"
)

// Parser turns natural-language time expressions into absolute instants
type Parser struct {
	extractor Extractor
	hours     config.BusinessHoursRules
	logger    *zap.Logger
	now       func() time.Time
}

// NewParser creates a parser. extractor may be nil, in which case only the
// rule scanner is used.
func NewParser(extractor Extractor, hours config.BusinessHoursRules, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		extractor: extractor,
		hours:     hours,
		logger:    logger,
		now:       time.Now,
	}
}

// ParseTime parses a single expression. When the input holds several
// expressions the first is returned with low confidence.
func (p *Parser) ParseTime(ctx context.Context, input string, pctx Context) ParsedTime {
	results := p.ExtractTimesFromText(ctx, input, pctx)
	if len(results) == 0 {
		return ParsedTime{
			Raw:        input,
			Timezone:   pctx.Timezone,
			Confidence: entities.ConfidenceLow,
			Reasoning:  "no time expression found",
			Errors:     []string{"no time expression found"},
		}
	}
	first := results[0]
	if len(results) > 1 && first.Success {
		first.Confidence = entities.ConfidenceLow
		first.Reasoning = appendReason(first.Reasoning, fmt.Sprintf("input holds %d time expressions", len(results)))
	}
	return first
}

// ParseTimes parses each input independently
func (p *Parser) ParseTimes(ctx context.Context, inputs []string, pctx Context) []ParsedTime {
	out := make([]ParsedTime, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, p.ParseTime(ctx, in, pctx))
	}
	return out
}

// ExtractTimesFromText scans free text for every time expression. The rule
// scanner runs first; the extractor is consulted only when it finds nothing.
func (p *Parser) ExtractTimesFromText(ctx context.Context, text string, pctx Context) []ParsedTime {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	exprs := scan(text)
	if len(exprs) > 0 {
		out := make([]ParsedTime, 0, len(exprs))
		for _, e := range exprs {
			pt := p.resolve(e.c, e.raw, pctx)
			pt.Source = SourceRules
			out = append(out, pt)
		}
		return out
	}

	if p.extractor == nil {
		return nil
	}
	return p.extractWithAI(ctx, text, pctx)
}

func (p *Parser) location(tz string) (*time.Location, error) {
	if tz == "" {
		return nil, fmt.Errorf("timezone is required")
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q", tz)
	}
	return loc, nil
}

// resolve turns components into an absolute instant in the caller's zone,
// or in the zone named by the text when it carries one
func (p *Parser) resolve(c components, raw string, pctx Context) ParsedTime {
	pt := ParsedTime{Raw: raw, Confidence: entities.ConfidenceHigh}
	var reasons []string

	loc, err := p.location(pctx.Timezone)
	if err != nil {
		pt.Timezone = pctx.Timezone
		pt.Confidence = entities.ConfidenceLow
		pt.Errors = append(pt.Errors, err.Error())
		return pt
	}
	if c.zone != nil {
		if c.zone.String() != loc.String() {
			pt.WasConverted = true
			reasons = append(reasons, fmt.Sprintf("explicit zone %s overrides %s", c.zoneName, loc.String()))
		}
		loc = c.zone
	}
	pt.Timezone = loc.String()

	if c.iso != nil {
		inst := c.iso.UTC()
		pt.Instant = &inst
		pt.Display = inst.In(loc).Format(displayLayout)
		pt.Success = true
		pt.Reasoning = "ISO-8601 timestamp"
		return pt
	}

	ref := pctx.ReferenceInstant
	if ref.IsZero() {
		ref = p.now()
		reasons = append(reasons, "no received instant, relative to current time")
	}
	refLocal := ref.In(loc)

	dateConf := entities.ConfidenceHigh
	var y int
	var m time.Month
	var d int
	if c.hasDate() {
		r, err := resolveDate(c, refLocal)
		if err != nil {
			pt.Confidence = entities.ConfidenceLow
			pt.Errors = append(pt.Errors, err.Error())
			pt.Reasoning = strings.Join(reasons, "; ")
			return pt
		}
		y, m, d, dateConf = r.year, r.month, r.day, r.confidence
		if r.reason != "" {
			reasons = append(reasons, r.reason)
		}
	}

	hour, minute := p.hours.StartHour, 0
	timeConf := entities.ConfidenceHigh
	switch {
	case c.hasClock:
		h, conf, reason, err := resolveHour(c)
		if err != nil {
			pt.Confidence = entities.ConfidenceLow
			pt.Errors = append(pt.Errors, err.Error())
			pt.Reasoning = strings.Join(reasons, "; ")
			return pt
		}
		hour, minute, timeConf = h, c.minute, conf
		if reason != "" {
			reasons = append(reasons, reason)
		}
	case c.period != "":
		hour = periodHours[c.period]
		timeConf = entities.ConfidenceLow
		reasons = append(reasons, fmt.Sprintf("%q names a period, not a specific hour", c.period))
	default:
		pt.DateOnly = true
		timeConf = entities.ConfidenceLow
		reasons = append(reasons, "no time of day given")
	}

	var inst time.Time
	if c.hasDate() {
		inst = time.Date(y, m, d, hour, minute, 0, 0, loc)
	} else {
		pt.TimeOnly = true
		inst = time.Date(refLocal.Year(), refLocal.Month(), refLocal.Day(), hour, minute, 0, 0, loc)
		if !inst.After(ref) {
			inst = inst.AddDate(0, 0, 1)
		}
		dateConf = entities.ConfidenceMedium
		reasons = append(reasons, "no date given, assumed next occurrence")
	}

	utc := inst.UTC()
	pt.Instant = &utc
	pt.Confidence = entities.Lower(dateConf, timeConf)
	if pt.DateOnly {
		pt.Display = inst.Format(dateLayout)
	} else {
		pt.Display = inst.Format(displayLayout)
	}
	pt.Success = true
	pt.Reasoning = strings.Join(reasons, "; ")
	if pt.Reasoning == "" {
		pt.Reasoning = "explicit date and time"
	}
	return pt
}

const (
	displayLayout = "Mon Jan 2, 3:04 PM MST"
	dateLayout    = "Mon Jan 2"
)

type resolvedDate struct {
	year       int
	month      time.Month
	day        int
	confidence entities.ConfidenceTier
	reason     string
}

func validDate(y int, m time.Month, d int) bool {
	t := time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	return t.Year() == y && t.Month() == m && t.Day() == d
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func resolveDate(c components, ref time.Time) (resolvedDate, error) {
	today := dateOf(ref)
	out := resolvedDate{confidence: entities.ConfidenceHigh}
	set := func(t time.Time) {
		out.year, out.month, out.day = t.Year(), t.Month(), t.Day()
	}

	switch {
	case c.hasRel:
		set(today.AddDate(0, 0, c.relDays))

	case c.weekOnly:
		// Monday of next week
		offset := (int(time.Monday) - int(today.Weekday()) + 7) % 7
		if offset == 0 {
			offset = 7
		}
		set(today.AddDate(0, 0, offset))
		out.confidence = entities.ConfidenceLow
		out.reason = "week given without a day"

	case c.month > 0 && c.day > 0:
		y := c.year
		if y == 0 {
			y = today.Year()
			if validDate(y, c.month, c.day) && time.Date(y, c.month, c.day, 0, 0, 0, 0, today.Location()).Before(today) {
				y++
			}
		}
		if !validDate(y, c.month, c.day) {
			return out, fmt.Errorf("%s %d is not a valid date", c.month, c.day)
		}
		out.year, out.month, out.day = y, c.month, c.day
		if c.hasWeekday {
			if wd := time.Date(y, c.month, c.day, 12, 0, 0, 0, time.UTC).Weekday(); wd != c.weekday {
				out.confidence = entities.ConfidenceLow
				out.reason = fmt.Sprintf("%s %d falls on a %s, not a %s", c.month, c.day, wd, c.weekday)
			}
		}

	case c.day > 0:
		return resolveDayOfMonth(c, today)

	case c.hasWeekday:
		offset := (int(c.weekday) - int(today.Weekday()) + 7) % 7
		switch c.modifier {
		case "this":
		case "next":
			// a day still ahead in the current week means the one after
			if offset == 0 || isoIndex(c.weekday) > isoIndex(today.Weekday()) {
				offset += 7
			}
			out.confidence = entities.ConfidenceMedium
			out.reason = fmt.Sprintf("read \"next %s\" as the one %d days out", strings.ToLower(c.weekday.String()), offset)
		default:
			if offset == 0 {
				offset = 7
			}
		}
		set(today.AddDate(0, 0, offset))
	}
	return out, nil
}

// resolveDayOfMonth handles "the 5th" and "Monday the 5th". With a weekday it
// prefers the nearest month where both agree.
func resolveDayOfMonth(c components, today time.Time) (resolvedDate, error) {
	out := resolvedDate{confidence: entities.ConfidenceHigh}
	var nearest, aligned *time.Time
	for i := 0; i < 3; i++ {
		first := time.Date(today.Year(), today.Month()+time.Month(i), 1, 0, 0, 0, 0, today.Location())
		if !validDate(first.Year(), first.Month(), c.day) {
			continue
		}
		cand := time.Date(first.Year(), first.Month(), c.day, 0, 0, 0, 0, today.Location())
		if cand.Before(today) {
			continue
		}
		if nearest == nil {
			n := cand
			nearest = &n
		}
		if c.hasWeekday && cand.Weekday() == c.weekday && aligned == nil {
			a := cand
			aligned = &a
		}
	}
	if nearest == nil {
		return out, fmt.Errorf("no upcoming month has a day %d", c.day)
	}

	pick := *nearest
	switch {
	case !c.hasWeekday:
		out.confidence = entities.ConfidenceMedium
		out.reason = fmt.Sprintf("day %d assumed to be in %s", c.day, pick.Month())
	case aligned == nil:
		out.confidence = entities.ConfidenceLow
		out.reason = fmt.Sprintf("no upcoming month has %s the %d; used %s", c.weekday, c.day, pick.Format(dateLayout))
	case !aligned.Equal(*nearest):
		pick = *aligned
		out.confidence = entities.ConfidenceMedium
		out.reason = fmt.Sprintf("%s the %d aligns in %s", c.weekday, c.day, pick.Month())
	}
	out.year, out.month, out.day = pick.Year(), pick.Month(), pick.Day()
	return out, nil
}

// isoIndex numbers days Monday=0 .. Sunday=6
func isoIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// resolveHour applies am/pm rules to a clock reading
func resolveHour(c components) (int, entities.ConfidenceTier, string, error) {
	h := c.hour
	if h > 23 || c.minute > 59 {
		return 0, entities.ConfidenceLow, "", fmt.Errorf("%d:%02d is not a valid time", c.hour, c.minute)
	}
	switch c.meridiem {
	case "am":
		if h > 12 {
			return h, entities.ConfidenceMedium, "am given with a 24-hour reading", nil
		}
		if h == 12 {
			h = 0
		}
		return h, entities.ConfidenceHigh, "", nil
	case "pm":
		if h > 12 {
			return h, entities.ConfidenceMedium, "pm given with a 24-hour reading", nil
		}
		if h < 12 {
			h += 12
		}
		return h, entities.ConfidenceHigh, "", nil
	}

	if c.twentyFour || h >= 13 || h == 0 {
		return h, entities.ConfidenceHigh, "", nil
	}
	switch c.period {
	case "afternoon", "evening", "end of day", "eod":
		if h < 12 {
			h += 12
		}
		return h, entities.ConfidenceHigh, "", nil
	case "morning", "early morning", "first thing":
		return h, entities.ConfidenceHigh, "", nil
	}
	switch {
	case h == 12:
		return 12, entities.ConfidenceMedium, "12 without am/pm read as noon", nil
	case h >= 8:
		return h, entities.ConfidenceMedium, fmt.Sprintf("%d without am/pm read as morning", h), nil
	default:
		return h + 12, entities.ConfidenceMedium, fmt.Sprintf("%d without am/pm read as afternoon", h), nil
	}
}

func appendReason(base, extra string) string {
	if base == "" {
		return extra
	}
	return base + "; " + extra
}
