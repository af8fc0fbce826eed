package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDraftEffectiveAppliesOverlayWithoutMutatingPayload(t *testing.T) {
	subject := "Edited subject"
	d := &Draft{
		Payload: DraftPayload{
			To:      []string{"jane@acme.com"},
			Subject: "Original",
			Body:    "Hello",
		},
		UserEdits: &DraftEdits{Subject: &subject, Cc: []string{"boss@acme.com"}},
	}

	eff := d.Effective()
	assert.Equal(t, "Edited subject", eff.Subject)
	assert.Equal(t, []string{"boss@acme.com"}, eff.Cc)
	assert.Equal(t, "Hello", eff.Body)

	assert.Equal(t, "Original", d.Payload.Subject)
	assert.Empty(t, d.Payload.Cc)
}

func TestDraftCanRetry(t *testing.T) {
	d := &Draft{Status: DraftStatusFailed, RetryCount: 2, MaxRetries: 3}
	assert.True(t, d.CanRetry())
	d.RetryCount = 3
	assert.False(t, d.CanRetry())
	d.Status = DraftStatusApproved
	d.RetryCount = 0
	assert.False(t, d.CanRetry())
}

func TestDraftIsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	d := &Draft{ExpiresAt: &past}
	assert.True(t, d.IsExpired(now))
	d.ExpiresAt = nil
	assert.False(t, d.IsExpired(now))
}

func TestContactEmailPatternRecordReply(t *testing.T) {
	p := &ContactEmailPattern{ContactEmail: "jane@acme.com"}
	at := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	for _, h := range []int{2, 4, 6, 8} {
		p.RecordReply(time.Duration(h)*time.Hour, at)
	}
	assert.Equal(t, 4, p.ResponseCount)
	assert.Equal(t, int64(5*3600), p.AvgLatencySeconds)
	assert.Equal(t, int64(5*3600), p.MedianLatency)
	assert.Equal(t, int64(2*3600), p.FastestLatency)
	assert.Equal(t, int64(8*3600), p.SlowestLatency)
	assert.Equal(t, 4, p.TypicalHours[10])
	assert.Equal(t, 4, p.TypicalDays[int(time.Tuesday)])

	p.RecordReply(20*time.Hour, at)
	assert.Equal(t, DeviationMuchSlower, p.Deviation)
}

func TestContactEmailPatternBoundsSamples(t *testing.T) {
	p := &ContactEmailPattern{}
	for i := 0; i < MaxLatencySamples+10; i++ {
		p.RecordReply(time.Minute, time.Now())
	}
	assert.Len(t, p.LatencySamples, MaxLatencySamples)
	assert.Equal(t, MaxLatencySamples+10, p.ResponseCount)
}
