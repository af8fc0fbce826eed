package timeparser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
)

func proposals(t *testing.T, instants ...string) []entities.ProposedTime {
	out := make([]entities.ProposedTime, 0, len(instants))
	for _, s := range instants {
		out = append(out, entities.ProposedTime{Instant: mustTime(t, s), Source: entities.TimeSourceInitialProposal})
	}
	return out
}

func TestMatchToProposedTime_ClockReadingMatchesInstant(t *testing.T) {
	p := newTestParser(nil)
	pctx := Context{
		Timezone:         "America/New_York",
		ReferenceInstant: mustTime(t, "2026-01-02T14:00:00Z"),
		ProposedTimes:    proposals(t, "2026-01-05T15:30:00Z"),
	}

	m := p.MatchToProposedTime(context.Background(), "10:30 works for me", pctx)
	require.True(t, m.Matched, m.Reasoning)
	assert.Equal(t, 0, m.Index)
	assert.True(t, m.Proposed.Instant.Equal(mustTime(t, "2026-01-05T15:30:00Z")))
	assert.True(t, m.Confidence.AtLeast(entities.ConfidenceMedium))
}

func TestMatchToProposedTime_NegationNeverMatches(t *testing.T) {
	p := newTestParser(nil)
	pctx := Context{
		Timezone:         "America/New_York",
		ReferenceInstant: mustTime(t, "2026-01-02T14:00:00Z"),
		ProposedTimes:    proposals(t, "2026-01-05T15:30:00Z", "2026-01-06T19:00:00Z"),
	}

	for _, text := range []string{
		"Not Monday at 10:30, sorry",
		"10:30 doesn't work for me",
		"I can't make the first one",
		"Neither of those, Tuesday at 2pm is out",
		"that's not what I meant, Tuesday at 2pm was for the other call",
		"I’m busy Monday at 10:30",
	} {
		m := p.MatchToProposedTime(context.Background(), text, pctx)
		assert.False(t, m.Matched, text)
		assert.Equal(t, -1, m.Index, text)
	}
}

func TestMatchToProposedTime_References(t *testing.T) {
	p := newTestParser(nil)
	pctx := Context{
		Timezone:         "America/New_York",
		ReferenceInstant: mustTime(t, "2026-01-02T14:00:00Z"),
		ProposedTimes:    proposals(t, "2026-01-05T15:30:00Z", "2026-01-06T19:00:00Z", "2026-01-07T16:00:00Z"),
	}

	cases := []struct {
		text  string
		index int
		conf  entities.ConfidenceTier
	}{
		{"The second one works", 1, entities.ConfidenceHigh},
		{"let's go with option 3", 2, entities.ConfidenceHigh},
		{"the last slot is best", 2, entities.ConfidenceHigh},
		{"Tuesday works great", 1, entities.ConfidenceMedium},
		{"Monday Jan 5 at 10:30am ET is perfect", 0, entities.ConfidenceHigh},
		{"2026-01-07T16:00:00Z", 2, entities.ConfidenceHigh},
	}
	for _, tc := range cases {
		m := p.MatchToProposedTime(context.Background(), tc.text, pctx)
		require.True(t, m.Matched, "%s: %s", tc.text, m.Reasoning)
		assert.Equal(t, tc.index, m.Index, tc.text)
		assert.Equal(t, tc.conf, m.Confidence, tc.text)
	}
}

func TestMatchToProposedTime_NoMatch(t *testing.T) {
	p := newTestParser(nil)
	pctx := Context{
		Timezone:         "America/New_York",
		ReferenceInstant: mustTime(t, "2026-01-02T14:00:00Z"),
		ProposedTimes:    proposals(t, "2026-01-05T15:30:00Z", "2026-01-05T19:00:00Z"),
	}

	// both candidates fall on Monday
	m := p.MatchToProposedTime(context.Background(), "Monday is fine", pctx)
	assert.False(t, m.Matched)

	m = p.MatchToProposedTime(context.Background(), "Monday at 10:30 or 2pm, either", pctx)
	assert.False(t, m.Matched)

	m = p.MatchToProposedTime(context.Background(), "Thursday at 9am?", pctx)
	assert.False(t, m.Matched)

	m = p.MatchToProposedTime(context.Background(), "10:30 works", Context{Timezone: "UTC"})
	assert.False(t, m.Matched)
}

func TestMatchToProposedTime_ComparesInstantsAcrossZones(t *testing.T) {
	p := newTestParser(nil)
	pctx := Context{
		Timezone:         "America/New_York",
		ReferenceInstant: mustTime(t, "2026-01-02T14:00:00Z"),
		ProposedTimes:    proposals(t, "2026-01-05T15:30:00Z"),
	}

	// 7:30am Pacific is the same instant as the 10:30 Eastern proposal
	m := p.MatchToProposedTime(context.Background(), "Jan 5 at 7:30am PT", pctx)
	require.True(t, m.Matched, m.Reasoning)
	assert.Equal(t, 0, m.Index)
}
