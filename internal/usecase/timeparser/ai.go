package timeparser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/pkg/ai"
	"github.com/johnquangdev/meeting-scheduler/pkg/validator"
)

// aiExpression is the component shape the extractor must return. It never
// carries a computed timestamp.
type aiExpression struct {
	Raw          string `json:"raw" validate:"required,max=200"`
	Year         int    `json:"year" validate:"omitempty,min=2000,max=2100"`
	Month        int    `json:"month" validate:"omitempty,min=1,max=12"`
	Day          int    `json:"day" validate:"omitempty,min=1,max=31"`
	Weekday      string `json:"weekday" validate:"omitempty,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	RelativeDays *int   `json:"relative_days" validate:"omitempty,min=0,max=60"`
	Hour         *int   `json:"hour" validate:"omitempty,min=0,max=23"`
	Minute       *int   `json:"minute" validate:"omitempty,min=0,max=59"`
	Period       string `json:"period" validate:"omitempty,oneof=am pm morning afternoon evening"`
	Timezone     string `json:"timezone" validate:"omitempty,max=64"`
}

type aiPayload struct {
	Expressions []aiExpression `json:"expressions" validate:"max=10,dive"`
}

const extractPrompt = `Find every date or time expression in the message below.
Reference date: %s (%s). Reader timezone: %s.
Return JSON: {"expressions":[{"raw":"<text>","year":0,"month":0,"day":0,"weekday":"","relative_days":null,"hour":null,"minute":null,"period":"","timezone":""}]}
Use 0, null or "" for anything not stated. "hour" is 0-23 unless "period" is "am" or "pm".
"timezone" is an abbreviation or IANA name only when the text states one. Do not compute timestamps.

Message:
%s`

func (p *Parser) extractWithAI(ctx context.Context, text string, pctx Context) []ParsedTime {
	ref := pctx.ReferenceInstant
	if ref.IsZero() {
		ref = p.now()
	}
	loc, err := p.location(pctx.Timezone)
	if err != nil {
		return []ParsedTime{{Raw: text, Timezone: pctx.Timezone, Confidence: entities.ConfidenceLow, Errors: []string{err.Error()}, Source: SourceAI}}
	}
	refLocal := ref.In(loc)
	prompt := fmt.Sprintf(extractPrompt, refLocal.Format("2006-01-02"), refLocal.Weekday(), loc.String(), text)

	raw, err := p.extractor.Extract(ctx, prompt)
	if err != nil {
		p.logger.Warn("⚠️ Time extraction call failed", zap.Error(err))
		return []ParsedTime{failed(text, pctx.Timezone, "extraction failed: "+err.Error())}
	}

	var payload aiPayload
	if err := json.Unmarshal([]byte(ai.ExtractJSON(raw)), &payload); err != nil {
		p.logger.Warn("⚠️ Time extraction returned invalid JSON", zap.Error(err))
		return []ParsedTime{failed(text, pctx.Timezone, "extraction returned invalid JSON")}
	}
	if err := validator.ValidateStruct(payload); err != nil {
		p.logger.Warn("⚠️ Time extraction failed schema validation", zap.Error(err))
		return []ParsedTime{failed(text, pctx.Timezone, "extraction failed schema validation")}
	}

	out := make([]ParsedTime, 0, len(payload.Expressions))
	for _, e := range payload.Expressions {
		c, ok := e.components()
		if !ok {
			continue
		}
		pt := p.resolve(c, e.Raw, pctx)
		pt.Source = SourceAI
		// extractor output never reaches high confidence
		if pt.Success {
			pt.Confidence = entities.Lower(pt.Confidence, entities.ConfidenceMedium)
			pt.Reasoning = appendReason(pt.Reasoning, "components extracted by model")
		}
		out = append(out, pt)
	}
	return out
}

func failed(raw, tz, msg string) ParsedTime {
	return ParsedTime{
		Raw:        raw,
		Timezone:   tz,
		Confidence: entities.ConfidenceLow,
		Reasoning:  msg,
		Errors:     []string{msg},
		Source:     SourceAI,
	}
}

func (e aiExpression) components() (components, bool) {
	var c components
	if e.Month > 0 && e.Day > 0 {
		c.year, c.month, c.day = e.Year, time.Month(e.Month), e.Day
	} else if e.Day > 0 {
		c.day = e.Day
	}
	if e.Weekday != "" {
		c.weekday, c.hasWeekday = lookupWeekday(e.Weekday), true
	}
	if e.RelativeDays != nil {
		c.relDays, c.hasRel = *e.RelativeDays, true
	}
	if e.Hour != nil {
		c.hasClock, c.hour = true, *e.Hour
		if e.Minute != nil {
			c.minute = *e.Minute
		}
	}
	switch e.Period {
	case "am", "pm":
		if c.hasClock {
			c.meridiem = e.Period
		}
	case "":
	default:
		c.period = e.Period
	}
	if e.Timezone != "" {
		if loc, ok := zoneLocation(strings.ToLower(e.Timezone)); ok {
			c.zone, c.zoneName = loc, strings.ToUpper(e.Timezone)
		} else if loc, err := time.LoadLocation(e.Timezone); err == nil {
			c.zone, c.zoneName = loc, e.Timezone
		}
	}
	if c.hasClock && c.meridiem == "" && c.period == "" {
		c.twentyFour = true
	}
	return c, c.hasDate() || c.hasTime()
}
