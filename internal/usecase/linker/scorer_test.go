package linker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

var now = time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)

func scorer() *Scorer {
	return NewScorer(config.DefaultRules().Linker)
}

type signals struct {
	deal, thread, domain, activity, subject bool
}

func buildInput(sig signals) Input {
	companyID := uuid.New()
	in := Input{SenderEmail: "sarah@acme.com", Subject: "Quick sync", Now: now}
	if sig.deal {
		in.Deals = []*entities.Deal{{ID: uuid.New(), CompanyID: companyID, Name: "Acme renewal", IsActive: true}}
	}
	if sig.thread {
		id := uuid.New()
		in.ThreadDealID = &id
	}
	if sig.domain {
		in.DomainCompany = &entities.Company{ID: companyID, Name: "Acme", Domain: "acme.com"}
	}
	if sig.activity {
		last := now.Add(-time.Hour)
		in.SenderContact = &entities.Contact{ID: uuid.New(), CompanyID: &companyID, Email: "sarah@acme.com", LastActivityAt: &last}
	}
	if sig.subject {
		in.Subject = "Re: Acme renewal"
	}
	return in
}

func TestScoreAllSignalsAutoLinks(t *testing.T) {
	s := scorer().Score(buildInput(signals{true, true, true, true, true}))
	assert.Equal(t, 40, s.Participant)
	assert.Equal(t, 30, s.Thread)
	assert.Equal(t, 15, s.Domain)
	assert.Equal(t, 10, s.Activity)
	assert.Equal(t, 5, s.Subject)
	assert.Equal(t, 100, s.Total)
	assert.Equal(t, DecisionAutoLink, s.Decision)
	assert.NotNil(t, s.DealID)
	assert.NotNil(t, s.ContactID)
	assert.NotNil(t, s.CompanyID)
}

func TestScoreIsMonotonic(t *testing.T) {
	sc := scorer()
	set := func(sig *signals, i int) {
		switch i {
		case 0:
			sig.deal = true
		case 1:
			sig.thread = true
		case 2:
			sig.domain = true
		case 3:
			sig.activity = true
		case 4:
			sig.subject = true
		}
	}
	for mask := 0; mask < 32; mask++ {
		var base signals
		for i := 0; i < 5; i++ {
			if mask&(1<<i) != 0 {
				set(&base, i)
			}
		}
		before := sc.Score(buildInput(base)).Total
		for i := 0; i < 5; i++ {
			if mask&(1<<i) != 0 {
				continue
			}
			more := base
			set(&more, i)
			after := sc.Score(buildInput(more)).Total
			assert.GreaterOrEqual(t, after, before, "mask %05b plus signal %d", mask, i)
		}
	}
}

func TestScoreMultipleDealsHalveParticipant(t *testing.T) {
	in := buildInput(signals{})
	in.Deals = []*entities.Deal{{ID: uuid.New(), Name: "Renewal"}, {ID: uuid.New(), Name: "Expansion"}}

	s := scorer().Score(in)
	assert.Equal(t, 20, s.Participant)
	assert.Contains(t, s.Reasoning, "2 candidate deals")
}

func TestScoreFreeMailDomainNeverMatches(t *testing.T) {
	in := buildInput(signals{domain: true})
	in.SenderEmail = "sarah@gmail.com"

	s := scorer().Score(in)
	assert.Zero(t, s.Domain)
	assert.Nil(t, s.CompanyID)
	assert.Equal(t, DecisionNone, s.Decision)
}

func TestScoreActivityOutsideWindow(t *testing.T) {
	in := buildInput(signals{activity: true})
	old := now.Add(-8 * 24 * time.Hour)
	in.SenderContact.LastActivityAt = &old

	s := scorer().Score(in)
	assert.Zero(t, s.Activity)
	// the known contact still earns a quarter of the participant weight
	assert.Equal(t, 10, s.Participant)
}

func TestScoreThresholds(t *testing.T) {
	sc := scorer()
	tests := []struct {
		total int
		want  Decision
	}{
		{100, DecisionAutoLink},
		{85, DecisionAutoLink},
		{84, DecisionSuggest},
		{60, DecisionSuggest},
		{59, DecisionNone},
		{0, DecisionNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sc.decide(tt.total), "total %d", tt.total)
	}
}

func TestScoreClampedToHundred(t *testing.T) {
	rules := config.DefaultRules().Linker
	rules.Weights.Participant = 80
	rules.Weights.Thread = 80

	s := NewScorer(rules).Score(buildInput(signals{deal: true, thread: true}))
	assert.Equal(t, 100, s.Total)
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, jaccard("Re: Acme renewal", "Acme Renewal"))
	assert.Zero(t, jaccard("Lunch?", "Acme renewal"))
	assert.InDelta(t, 0.5, jaccard("acme renewal", "acme"), 0.001)
}
