// Package memstore is an in-process implementation of the repository contracts.
// It backs STORE_DRIVER=memory and the use-case tests, and keeps the same
// conditional-update semantics as the GORM repositories.
package memstore

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
)

// Store holds every table behind one mutex
type Store struct {
	mu sync.Mutex

	requests    map[uuid.UUID]*entities.SchedulingRequest
	actions     map[uuid.UUID][]*entities.SchedulingAction
	drafts      map[uuid.UUID]*entities.Draft
	draftKeys   map[string]uuid.UUID
	patterns    map[string]*entities.ContactEmailPattern
	inbound     map[uuid.UUID]*entities.InboundMessage
	inboundKeys map[string]uuid.UUID
	workItems   map[uuid.UUID]*entities.WorkItem
	jobRuns     []*entities.JobRun

	companies map[uuid.UUID]*entities.Company
	contacts  map[uuid.UUID]*entities.Contact
	deals     map[uuid.UUID]*entities.Deal
}

// New creates an empty store
func New() *Store {
	return &Store{
		requests:    make(map[uuid.UUID]*entities.SchedulingRequest),
		actions:     make(map[uuid.UUID][]*entities.SchedulingAction),
		drafts:      make(map[uuid.UUID]*entities.Draft),
		draftKeys:   make(map[string]uuid.UUID),
		patterns:    make(map[string]*entities.ContactEmailPattern),
		inbound:     make(map[uuid.UUID]*entities.InboundMessage),
		inboundKeys: make(map[string]uuid.UUID),
		workItems:   make(map[uuid.UUID]*entities.WorkItem),
		companies:   make(map[uuid.UUID]*entities.Company),
		contacts:    make(map[uuid.UUID]*entities.Contact),
		deals:       make(map[uuid.UUID]*entities.Deal),
	}
}

// Requests returns the scheduling request repository
func (s *Store) Requests() *RequestRepository { return &RequestRepository{s: s} }

// Actions returns the audit log repository
func (s *Store) Actions() *ActionRepository { return &ActionRepository{s: s} }

// Drafts returns the draft repository
func (s *Store) Drafts() *DraftRepository { return &DraftRepository{s: s} }

// Patterns returns the response-velocity repository
func (s *Store) Patterns() *PatternRepository { return &PatternRepository{s: s} }

// Inbound returns the inbound message repository
func (s *Store) Inbound() *InboundRepository { return &InboundRepository{s: s} }

// WorkItems returns the work item repository
func (s *Store) WorkItems() *WorkItemRepository { return &WorkItemRepository{s: s} }

// JobRuns returns the job run repository
func (s *Store) JobRuns() *JobRunRepository { return &JobRunRepository{s: s} }

// Directory returns the CRM directory reader
func (s *Store) Directory() *DirectoryRepository { return &DirectoryRepository{s: s} }

// SeedCompany adds a CRM company
func (s *Store) SeedCompany(c entities.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.ID] = &c
}

// SeedContact adds a CRM contact
func (s *Store) SeedContact(c entities.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[c.ID] = &c
}

// SeedDeal adds a CRM deal
func (s *Store) SeedDeal(d entities.Deal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals[d.ID] = &d
}

// clone deep-copies a row so callers never share memory with the store
func clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		panic(err)
	}
	return out
}

func sortByTime[T any](rows []*T, at func(*T) time.Time, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return at(rows[i]).After(at(rows[j]))
		}
		return at(rows[i]).Before(at(rows[j]))
	})
}

func limitRows[T any](rows []*T, limit int) []*T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
