package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Rules is the immutable business rule set. It is loaded once at startup and
// passed by value into the services that need it.
type Rules struct {
	SLA           SLARules           `yaml:"sla"`
	Linker        LinkerRules        `yaml:"linker"`
	Drafts        DraftRules         `yaml:"drafts"`
	Reminders     ReminderRules      `yaml:"reminders"`
	BusinessHours BusinessHoursRules `yaml:"business_hours"`
	Intent        IntentRules        `yaml:"intent"`
}

// SLARule sets the response window for a deal stage and contact persona.
// An empty stage or persona matches anything.
type SLARule struct {
	DealStage string `yaml:"deal_stage"`
	Persona   string `yaml:"persona"`
	Hours     int    `yaml:"hours"`
}

// SLARules configures the follow-up monitor
type SLARules struct {
	DefaultHours            int       `yaml:"default_hours"`
	WarningPercent          float64   `yaml:"warning_percent"`
	OverduePercent          float64   `yaml:"overdue_percent"`
	VelocityMultiplier      float64   `yaml:"velocity_multiplier"`
	MinResponsesForVelocity int       `yaml:"min_responses_for_velocity"`
	MaxFollowUps            int       `yaml:"max_follow_ups"`
	Rules                   []SLARule `yaml:"rules"`
}

// HoursFor returns the window for a stage/persona pair. Exact matches win
// over single-field matches, which win over the default.
func (s SLARules) HoursFor(dealStage, persona string) int {
	best, bestScore := s.DefaultHours, -1
	for _, r := range s.Rules {
		if (r.DealStage != "" && r.DealStage != dealStage) || (r.Persona != "" && r.Persona != persona) {
			continue
		}
		score := 0
		if r.DealStage != "" {
			score += 2
		}
		if r.Persona != "" {
			score++
		}
		if score > bestScore {
			best, bestScore = r.Hours, score
		}
	}
	return best
}

// LinkerWeights are the maximum points per signal
type LinkerWeights struct {
	Participant int `yaml:"participant"`
	Thread      int `yaml:"thread"`
	Domain      int `yaml:"domain"`
	Activity    int `yaml:"activity"`
	Subject     int `yaml:"subject"`
}

// LinkerRules configures confidence-scored entity linking
type LinkerRules struct {
	Weights            LinkerWeights `yaml:"weights"`
	AutoLinkThreshold  int           `yaml:"auto_link_threshold"`
	SuggestThreshold   int           `yaml:"suggest_threshold"`
	ActivityWindowDays int           `yaml:"activity_window_days"`
	FreeMailDomains    []string      `yaml:"free_mail_domains"`
}

// DraftRules configures the approval queue
type DraftRules struct {
	ExpiryHours           int `yaml:"expiry_hours"`
	MaxRetries            int `yaml:"max_retries"`
	StuckExecutingMinutes int `yaml:"stuck_executing_minutes"`
}

// Expiry returns the pending lifetime of a draft
func (d DraftRules) Expiry() time.Duration {
	return time.Duration(d.ExpiryHours) * time.Hour
}

// ReminderRules configures reminders and the no-show check
type ReminderRules struct {
	WindowHours        int `yaml:"window_hours"`
	NoShowGraceMinutes int `yaml:"no_show_grace_minutes"`
}

// BusinessHoursRules bounds acceptable meeting times
type BusinessHoursRules struct {
	StartHour    int  `yaml:"start_hour"`
	EndHour      int  `yaml:"end_hour"`
	WeekdaysOnly bool `yaml:"weekdays_only"`
}

// IntentRules configures classification
type IntentRules struct {
	CacheTTLMinutes int `yaml:"cache_ttl_minutes"`
}

// DefaultRules returns the built-in rule set
func DefaultRules() Rules {
	return Rules{
		SLA: SLARules{
			DefaultHours:            48,
			WarningPercent:          75,
			OverduePercent:          100,
			VelocityMultiplier:      1.5,
			MinResponsesForVelocity: 3,
			MaxFollowUps:            3,
		},
		Linker: LinkerRules{
			Weights:            LinkerWeights{Participant: 40, Thread: 30, Domain: 15, Activity: 10, Subject: 5},
			AutoLinkThreshold:  85,
			SuggestThreshold:   60,
			ActivityWindowDays: 7,
			FreeMailDomains: []string{
				"gmail.com", "googlemail.com", "yahoo.com", "hotmail.com", "outlook.com",
				"live.com", "icloud.com", "me.com", "aol.com", "proton.me", "protonmail.com",
			},
		},
		Drafts: DraftRules{
			ExpiryHours:           72,
			MaxRetries:            3,
			StuckExecutingMinutes: 15,
		},
		Reminders: ReminderRules{
			WindowHours:        24,
			NoShowGraceMinutes: 30,
		},
		BusinessHours: BusinessHoursRules{
			StartHour:    8,
			EndHour:      18,
			WeekdaysOnly: true,
		},
		Intent: IntentRules{
			CacheTTLMinutes: 60,
		},
	}
}

// LoadRules reads the YAML rules file over the defaults. A missing file yields the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rules, nil
		}
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules file: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// Validate checks the rule set is internally consistent
func (r Rules) Validate() error {
	if r.SLA.DefaultHours <= 0 {
		return fmt.Errorf("sla.default_hours must be positive")
	}
	if r.SLA.WarningPercent <= 0 || r.SLA.WarningPercent >= r.SLA.OverduePercent {
		return fmt.Errorf("sla.warning_percent must be positive and below sla.overdue_percent")
	}
	if r.Linker.SuggestThreshold >= r.Linker.AutoLinkThreshold {
		return fmt.Errorf("linker.suggest_threshold must be below linker.auto_link_threshold")
	}
	if r.BusinessHours.StartHour < 0 || r.BusinessHours.EndHour > 24 || r.BusinessHours.StartHour >= r.BusinessHours.EndHour {
		return fmt.Errorf("business_hours must satisfy 0 <= start_hour < end_hour <= 24")
	}
	if r.Drafts.MaxRetries < 0 {
		return fmt.Errorf("drafts.max_retries must not be negative")
	}
	return nil
}
