package sla

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

// Calculator derives response due dates from the rule table and the
// contact's observed reply speed
type Calculator struct {
	rules    config.SLARules
	patterns repositories.PatternRepository
}

// NewCalculator creates a due date calculator. patterns may be nil.
func NewCalculator(rules config.SLARules, patterns repositories.PatternRepository) *Calculator {
	return &Calculator{rules: rules, patterns: patterns}
}

// Window returns the rule window for the request's deal stage and persona
func (c *Calculator) Window(req *entities.SchedulingRequest) time.Duration {
	return time.Duration(c.rules.HoursFor(req.DealStage, req.ContactPersona)) * time.Hour
}

// DueAt returns since plus the rule window, pushed out to the velocity bound
// for contacts with enough reply history
func (c *Calculator) DueAt(ctx context.Context, req *entities.SchedulingRequest, since time.Time) (time.Time, error) {
	due := since.Add(c.Window(req))

	contact := req.PrimaryContact()
	if c.patterns == nil || contact == nil {
		return due, nil
	}
	p, err := c.patterns.FindByEmail(ctx, strings.ToLower(contact.Email))
	if err != nil {
		return due, fmt.Errorf("failed to load contact pattern: %w", err)
	}
	if p == nil || p.ResponseCount < c.rules.MinResponsesForVelocity {
		return due, nil
	}

	slow := since.Add(time.Duration(float64(p.AvgLatency()) * c.rules.VelocityMultiplier))
	if slow.After(due) {
		due = slow
	}
	return due, nil
}
