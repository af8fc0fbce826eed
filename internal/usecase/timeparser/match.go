package timeparser

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
)

// MatchResult is the outcome of resolving a reply against proposed candidates
type MatchResult struct {
	Matched    bool
	Index      int
	Proposed   entities.ProposedTime
	Confidence entities.ConfidenceTier
	Reasoning  string
}

var negationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bnot\s+(?:on\s+|at\s+)?(?:the\s+)?(?:` + weekdayNames + `|first|second|third|last|that|this|those|these|\d)`),
	regexp.MustCompile(`\b(?:doesn't|doesnt|does not|don't|dont|do not|won't|wont|will not|isn't|is not)\s+(?:really\s+)?(?:work|suit|fit)`),
	regexp.MustCompile(`\b(?:can't|cant|cannot|can not|couldn't|could not)\s+(?:do|make|attend)\b`),
	regexp.MustCompile(`\b(?:none of|neither|no good|not available|unavailable|not possible)\b`),
	regexp.MustCompile(`\b(?:i'm|i am)\s+(?:busy|booked|out)\b`),
	regexp.MustCompile(`\b(?:that's|that is|thats)\s+not\s+what\s+i\s+meant\b`),
}

var (
	reOrdinalRef = regexp.MustCompile(`\b(?:the\s+)?(first|1st|second|2nd|third|3rd|fourth|4th|last)\s+(?:one|option|slot|time|suggestion)\b`)
	reOptionRef  = regexp.MustCompile(`\boption\s+#?(\d)\b`)
)

var ordinalIndex = map[string]int{
	"first": 0, "1st": 0, "second": 1, "2nd": 1, "third": 2, "3rd": 2, "fourth": 3, "4th": 3,
}

// HasNegation reports whether text rejects or corrects a time
func HasNegation(text string) bool {
	lower := normalize(text)
	for _, re := range negationPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// MatchToProposedTime resolves references such as "the first one", "Tuesday"
// or "10:30" against the proposed candidates. Candidates are compared as
// instants. Text that negates or corrects a time never matches.
func (p *Parser) MatchToProposedTime(ctx context.Context, text string, pctx Context) MatchResult {
	none := MatchResult{Index: -1, Confidence: entities.ConfidenceLow}
	n := len(pctx.ProposedTimes)
	if n == 0 {
		none.Reasoning = "no proposed times to match against"
		return none
	}
	if HasNegation(text) {
		none.Reasoning = "reply contains a negation or correction"
		return none
	}

	lower := normalize(text)
	if m := reOrdinalRef.FindStringSubmatch(lower); m != nil {
		idx := n - 1
		if m[1] != "last" {
			idx = ordinalIndex[m[1]]
		}
		if idx < n {
			return p.matched(pctx, idx, entities.ConfidenceHigh, fmt.Sprintf("reply refers to %q", m[0]))
		}
	}
	if m := reOptionRef.FindStringSubmatch(lower); m != nil {
		if idx := atoi(m[1]) - 1; idx >= 0 && idx < n {
			return p.matched(pctx, idx, entities.ConfidenceHigh, fmt.Sprintf("reply refers to %q", m[0]))
		}
	}

	loc, err := p.location(pctx.Timezone)
	if err != nil {
		none.Reasoning = err.Error()
		return none
	}

	hit := -1
	var hitConf entities.ConfidenceTier
	var hitReason string
	for _, e := range scan(text) {
		pt := p.resolve(e.c, e.raw, pctx)
		if !pt.Success || pt.Instant == nil {
			continue
		}
		zone := loc
		if e.c.zone != nil {
			zone = e.c.zone
		}
		local := pt.Instant.In(zone)

		var hits []int
		for i, cand := range pctx.ProposedTimes {
			cl := cand.Instant.In(zone)
			switch {
			case pt.TimeOnly:
				// same clock reading on the candidate's own day
				if t := dateAt(cl, local.Hour(), local.Minute()); t.Equal(cand.Instant) {
					hits = append(hits, i)
				}
			case pt.DateOnly:
				if sameDay(cl, local) {
					hits = append(hits, i)
				}
			default:
				if pt.Instant.Equal(cand.Instant) {
					hits = append(hits, i)
				}
			}
		}
		if len(hits) != 1 {
			continue
		}

		conf := pt.Confidence
		if pt.DateOnly {
			conf = entities.ConfidenceMedium
		}
		if hit >= 0 && hit != hits[0] {
			none.Reasoning = "reply references more than one proposed time"
			return none
		}
		hit, hitConf = hits[0], conf
		hitReason = fmt.Sprintf("%q matches proposed time %d", e.raw, hits[0]+1)
	}

	if hit < 0 {
		none.Reasoning = "no proposed time matched"
		return none
	}
	return p.matched(pctx, hit, hitConf, hitReason)
}

func (p *Parser) matched(pctx Context, idx int, conf entities.ConfidenceTier, reason string) MatchResult {
	return MatchResult{
		Matched:    true,
		Index:      idx,
		Proposed:   pctx.ProposedTimes[idx],
		Confidence: conf,
		Reasoning:  reason,
	}
}

// dateAt returns t's calendar day at the given clock reading in t's zone
func dateAt(t time.Time, hour, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
