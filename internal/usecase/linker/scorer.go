package linker

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

// Decision is what the score allows
type Decision string

const (
	DecisionAutoLink Decision = "auto_link"
	DecisionSuggest  Decision = "suggest"
	DecisionNone     Decision = "none"
)

// Input is the evidence gathered for one inbound message
type Input struct {
	SenderEmail string
	Subject     string
	Now         time.Time

	// SenderContact is the CRM contact for the sender, if known
	SenderContact *entities.Contact
	// Deals are the active deals reachable from the sender
	Deals []*entities.Deal
	// ThreadDealID and ThreadCompanyID are links the conversation already carries
	ThreadDealID    *uuid.UUID
	ThreadCompanyID *uuid.UUID
	// DomainCompany is the company owning the sender's email domain
	DomainCompany *entities.Company
}

// Score is the additive confidence breakdown
type Score struct {
	Total       int
	Participant int
	Thread      int
	Domain      int
	Activity    int
	Subject     int

	CompanyID *uuid.UUID
	ContactID *uuid.UUID
	DealID    *uuid.UUID

	Decision  Decision
	Reasoning string
}

// Scorer computes link confidence from independent, capped signals
type Scorer struct {
	rules    config.LinkerRules
	freeMail map[string]bool
}

// NewScorer creates a scorer over immutable linker rules
func NewScorer(rules config.LinkerRules) *Scorer {
	free := make(map[string]bool, len(rules.FreeMailDomains))
	for _, d := range rules.FreeMailDomains {
		free[strings.ToLower(d)] = true
	}
	return &Scorer{rules: rules, freeMail: free}
}

// IsFreeMail reports whether the domain belongs to a consumer mail provider
func (s *Scorer) IsFreeMail(domain string) bool {
	return s.freeMail[strings.ToLower(domain)]
}

// Score evaluates the evidence. Each signal only adds points, so the total
// never drops when a signal is added.
func (s *Scorer) Score(in Input) Score {
	w := s.rules.Weights
	var out Score
	var reasons []string

	// participant / relationship
	switch {
	case len(in.Deals) == 1:
		out.Participant = w.Participant
		id := in.Deals[0].ID
		out.DealID = &id
		reasons = append(reasons, fmt.Sprintf("participant %d (unique active deal %q)", out.Participant, in.Deals[0].Name))
	case len(in.Deals) > 1:
		out.Participant = w.Participant / 2
		reasons = append(reasons, fmt.Sprintf("participant %d (%d candidate deals)", out.Participant, len(in.Deals)))
	case in.SenderContact != nil:
		out.Participant = w.Participant / 4
		reasons = append(reasons, fmt.Sprintf("participant %d (known contact, no active deal)", out.Participant))
	}

	// thread continuity
	switch {
	case in.ThreadDealID != nil:
		out.Thread = w.Thread
		id := *in.ThreadDealID
		out.DealID = &id
		reasons = append(reasons, fmt.Sprintf("thread %d (conversation linked to a deal)", out.Thread))
	case in.ThreadCompanyID != nil:
		out.Thread = w.Thread / 2
		reasons = append(reasons, fmt.Sprintf("thread %d (conversation linked to a company)", out.Thread))
	}

	// domain to company
	domain := domainOf(in.SenderEmail)
	if in.DomainCompany != nil && domain != "" && !s.IsFreeMail(domain) {
		out.Domain = w.Domain
		reasons = append(reasons, fmt.Sprintf("domain %d (%s is %s)", out.Domain, domain, in.DomainCompany.Name))
	}

	// recent activity, decaying across the window
	if in.SenderContact != nil && in.SenderContact.LastActivityAt != nil && s.rules.ActivityWindowDays > 0 {
		window := time.Duration(s.rules.ActivityWindowDays) * 24 * time.Hour
		age := in.Now.Sub(*in.SenderContact.LastActivityAt)
		if age >= 0 && age <= window {
			pts := int(math.Round(float64(w.Activity) * (1 - float64(age)/float64(window))))
			if pts < 1 {
				pts = 1
			}
			out.Activity = pts
			reasons = append(reasons, fmt.Sprintf("activity %d (last touch %s ago)", out.Activity, age.Truncate(time.Hour)))
		}
	}

	// subject similarity against candidate names
	best, bestDeal := 0.0, (*entities.Deal)(nil)
	for _, d := range in.Deals {
		if sim := jaccard(in.Subject, d.Name); sim > best {
			best, bestDeal = sim, d
		}
	}
	if in.DomainCompany != nil {
		if sim := jaccard(in.Subject, in.DomainCompany.Name); sim > best {
			best, bestDeal = sim, nil
		}
	}
	if best > 0 {
		out.Subject = int(math.Round(best * float64(w.Subject)))
		if out.Subject > 0 {
			reasons = append(reasons, fmt.Sprintf("subject %d (similarity %.2f)", out.Subject, best))
		}
	}
	if out.DealID == nil && bestDeal != nil {
		id := bestDeal.ID
		out.DealID = &id
	}

	out.Total = out.Participant + out.Thread + out.Domain + out.Activity + out.Subject
	if out.Total > 100 {
		out.Total = 100
	}
	if out.Total < 0 {
		out.Total = 0
	}

	// entity choice
	if in.SenderContact != nil {
		id := in.SenderContact.ID
		out.ContactID = &id
		if in.SenderContact.CompanyID != nil {
			cid := *in.SenderContact.CompanyID
			out.CompanyID = &cid
		}
	}
	if out.CompanyID == nil && in.DomainCompany != nil && out.Domain > 0 {
		cid := in.DomainCompany.ID
		out.CompanyID = &cid
	}
	if out.CompanyID == nil && in.ThreadCompanyID != nil {
		cid := *in.ThreadCompanyID
		out.CompanyID = &cid
	}

	out.Decision = s.decide(out.Total)
	if len(reasons) == 0 {
		reasons = append(reasons, "no matching signals")
	}
	out.Reasoning = fmt.Sprintf("%s = %d", strings.Join(reasons, ", "), out.Total)
	return out
}

func (s *Scorer) decide(total int) Decision {
	switch {
	case total >= s.rules.AutoLinkThreshold:
		return DecisionAutoLink
	case total >= s.rules.SuggestThreshold:
		return DecisionSuggest
	}
	return DecisionNone
}

func domainOf(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

var stopWords = map[string]bool{
	"re": true, "fw": true, "fwd": true, "the": true, "a": true, "an": true, "and": true,
	"of": true, "for": true, "to": true, "with": true, "meeting": true, "call": true, "inc": true,
}

func tokens(s string) map[string]bool {
	out := map[string]bool{}
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(f) > 1 && !stopWords[f] {
			out[f] = true
		}
	}
	return out
}

func jaccard(a, b string) float64 {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for t := range ta {
		if tb[t] {
			inter++
		}
	}
	return float64(inter) / float64(len(ta)+len(tb)-inter)
}
