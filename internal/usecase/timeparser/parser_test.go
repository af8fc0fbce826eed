package timeparser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

type fakeExtractor struct {
	reply  string
	err    error
	calls  int
	prompt string
}

func (f *fakeExtractor) Extract(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.reply, f.err
}

func newTestParser(ex Extractor) *Parser {
	return NewParser(ex, config.DefaultRules().BusinessHours, zap.NewNop())
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return v
}

func TestParseTime_RoundTripsStatedHour(t *testing.T) {
	p := newTestParser(nil)
	loc, _ := time.LoadLocation("America/Los_Angeles")
	pctx := Context{Timezone: "America/Los_Angeles", ReferenceInstant: mustTime(t, "2026-03-02T17:00:00Z")}

	cases := []struct {
		input        string
		year         int
		month        time.Month
		day          int
		hour, minute int
		confidence   entities.ConfidenceTier
	}{
		{"tomorrow at 3pm", 2026, time.March, 3, 15, 0, entities.ConfidenceHigh},
		{"Friday 9:15am", 2026, time.March, 6, 9, 15, entities.ConfidenceHigh},
		{"Jan 20 at noon", 2027, time.January, 20, 12, 0, entities.ConfidenceHigh},
		{"2026-04-01 16:45", 2026, time.April, 1, 16, 45, entities.ConfidenceHigh},
		{"March 10th at 4", 2026, time.March, 10, 16, 0, entities.ConfidenceMedium},
		{"the day after tomorrow at 10 a.m.", 2026, time.March, 4, 10, 0, entities.ConfidenceHigh},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			pt := p.ParseTime(context.Background(), tc.input, pctx)
			require.True(t, pt.Success, "errors: %v", pt.Errors)
			require.NotNil(t, pt.Instant)

			local := pt.Instant.In(loc)
			assert.Equal(t, tc.year, local.Year())
			assert.Equal(t, tc.month, local.Month())
			assert.Equal(t, tc.day, local.Day())
			assert.Equal(t, tc.hour, local.Hour())
			assert.Equal(t, tc.minute, local.Minute())
			assert.Equal(t, tc.confidence, pt.Confidence)
			assert.Equal(t, "America/Los_Angeles", pt.Timezone)
			assert.Equal(t, SourceRules, pt.Source)
		})
	}
}

func TestParseTime_ExplicitZoneConverts(t *testing.T) {
	p := newTestParser(nil)
	pctx := Context{Timezone: "America/New_York", ReferenceInstant: mustTime(t, "2026-01-02T14:00:00Z")}

	pt := p.ParseTime(context.Background(), "Jan 6 at 3pm PST", pctx)
	require.True(t, pt.Success)
	assert.True(t, pt.WasConverted)
	assert.Equal(t, "America/Los_Angeles", pt.Timezone)
	assert.True(t, pt.Instant.Equal(mustTime(t, "2026-01-06T23:00:00Z")))
	assert.Equal(t, entities.ConfidenceHigh, pt.Confidence)
}

func TestParseTime_WeekdayDayOfMonthConflicts(t *testing.T) {
	p := newTestParser(nil)

	t.Run("aligned in the nearest month", func(t *testing.T) {
		pctx := Context{Timezone: "America/New_York", ReferenceInstant: mustTime(t, "2026-01-01T15:00:00Z")}
		pt := p.ParseTime(context.Background(), "Monday the 5th at 2pm", pctx)
		require.True(t, pt.Success)
		assert.True(t, pt.Instant.Equal(mustTime(t, "2026-01-05T19:00:00Z")))
		assert.Equal(t, entities.ConfidenceHigh, pt.Confidence)
	})

	t.Run("aligned in a later month", func(t *testing.T) {
		pctx := Context{Timezone: "America/New_York", ReferenceInstant: mustTime(t, "2026-01-01T15:00:00Z")}
		pt := p.ParseTime(context.Background(), "Friday the 13th at 2pm", pctx)
		require.True(t, pt.Success)
		assert.True(t, pt.Instant.Equal(mustTime(t, "2026-02-13T19:00:00Z")))
		assert.Equal(t, entities.ConfidenceMedium, pt.Confidence)
	})

	t.Run("never aligned", func(t *testing.T) {
		pctx := Context{Timezone: "America/New_York", ReferenceInstant: mustTime(t, "2026-02-01T15:00:00Z")}
		pt := p.ParseTime(context.Background(), "Monday the 5th at 2pm", pctx)
		require.True(t, pt.Success)
		assert.Equal(t, entities.ConfidenceLow, pt.Confidence)
		assert.Contains(t, pt.Reasoning, "no upcoming month")
	})
}

func TestParseTime_VagueExpressionsAreLowConfidence(t *testing.T) {
	p := newTestParser(nil)
	pctx := Context{Timezone: "America/New_York", ReferenceInstant: mustTime(t, "2026-01-02T14:00:00Z")}

	pt := p.ParseTime(context.Background(), "Can we do Tuesday afternoon instead?", pctx)
	require.True(t, pt.Success)
	assert.Equal(t, entities.ConfidenceLow, pt.Confidence)
	assert.Equal(t, 14, pt.Instant.In(mustLoc(t, "America/New_York")).Hour())

	pt = p.ParseTime(context.Background(), "sometime next week", pctx)
	require.True(t, pt.Success)
	assert.True(t, pt.DateOnly)
	assert.Equal(t, entities.ConfidenceLow, pt.Confidence)

	pt = p.ParseTime(context.Background(), "Tuesday or Wednesday at 2pm", pctx)
	assert.Equal(t, entities.ConfidenceLow, pt.Confidence)
}

func TestParseTime_Unparseable(t *testing.T) {
	p := newTestParser(nil)
	pctx := Context{Timezone: "America/New_York", ReferenceInstant: mustTime(t, "2026-01-02T14:00:00Z")}

	pt := p.ParseTime(context.Background(), "sounds good, thanks!", pctx)
	assert.False(t, pt.Success)
	assert.Nil(t, pt.Instant)
	assert.NotEmpty(t, pt.Errors)

	pt = p.ParseTime(context.Background(), "Feb 30 at 10am", pctx)
	assert.False(t, pt.Success)
	assert.NotEmpty(t, pt.Errors)

	pt = p.ParseTime(context.Background(), "10am", Context{Timezone: "Mars/Olympus"})
	assert.False(t, pt.Success)
}

func TestParseTimes_Batch(t *testing.T) {
	p := newTestParser(nil)
	pctx := Context{Timezone: "UTC", ReferenceInstant: mustTime(t, "2026-01-02T08:00:00Z")}

	out := p.ParseTimes(context.Background(), []string{"Jan 5 9am", "whenever"}, pctx)
	require.Len(t, out, 2)
	assert.True(t, out[0].Success)
	assert.False(t, out[1].Success)
}

func TestExtractTimesFromText_FindsEveryExpression(t *testing.T) {
	p := newTestParser(nil)
	pctx := Context{Timezone: "America/New_York", ReferenceInstant: mustTime(t, "2026-01-02T14:00:00Z")}

	body := "Tuesday at 2pm won't work for me. Could we try Wednesday at 4pm or Thursday 10:00 instead?"
	out := p.ExtractTimesFromText(context.Background(), body, pctx)
	require.Len(t, out, 3)
	assert.True(t, out[1].Instant.Equal(mustTime(t, "2026-01-07T21:00:00Z")))
	assert.True(t, out[2].Instant.Equal(mustTime(t, "2026-01-08T15:00:00Z")))
}

func TestExtractTimesFromText_FallsBackToExtractor(t *testing.T) {
	pctx := Context{Timezone: "America/New_York", ReferenceInstant: mustTime(t, "2026-01-02T14:00:00Z")}

	ex := &fakeExtractor{reply: "```json\n{\"expressions\":[{\"raw\":\"after the offsite\",\"month\":1,\"day\":8,\"hour\":11,\"minute\":0}]}\n```"}
	p := newTestParser(ex)
	out := p.ExtractTimesFromText(context.Background(), "let's meet right after the offsite", pctx)
	require.Len(t, out, 1)
	assert.Equal(t, 1, ex.calls)
	assert.Contains(t, ex.prompt, "2026-01-02")
	assert.True(t, out[0].Success)
	assert.Equal(t, SourceAI, out[0].Source)
	assert.Equal(t, entities.ConfidenceMedium, out[0].Confidence)
	assert.True(t, out[0].Instant.Equal(mustTime(t, "2026-01-08T16:00:00Z")))

	// the scanner handles this one without the model
	ex.calls = 0
	p.ExtractTimesFromText(context.Background(), "Jan 8 at 11am", pctx)
	assert.Equal(t, 0, ex.calls)
}

func TestExtractTimesFromText_RejectsBadExtractorOutput(t *testing.T) {
	pctx := Context{Timezone: "America/New_York", ReferenceInstant: mustTime(t, "2026-01-02T14:00:00Z")}

	for name, ex := range map[string]*fakeExtractor{
		"schema":  {reply: `{"expressions":[{"raw":"x","month":13,"day":1}]}`},
		"json":    {reply: `I think you mean Tuesday`},
		"failure": {err: errors.New("groq returned status 503")},
	} {
		t.Run(name, func(t *testing.T) {
			out := newTestParser(ex).ExtractTimesFromText(context.Background(), "after the offsite", pctx)
			require.Len(t, out, 1)
			assert.False(t, out[0].Success)
			assert.Nil(t, out[0].Instant)
			assert.Equal(t, entities.ConfidenceLow, out[0].Confidence)
		})
	}
}

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}
