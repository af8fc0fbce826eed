package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
)

// PatternRepository is the in-memory response-velocity table
type PatternRepository struct{ s *Store }

var _ repositories.PatternRepository = (*PatternRepository)(nil)

// FindByEmail retrieves a profile
func (r *PatternRepository) FindByEmail(_ context.Context, email string) (*entities.ContactEmailPattern, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return clone(r.s.patterns[lower(email)]), nil
}

// Upsert inserts or replaces a profile
func (r *PatternRepository) Upsert(_ context.Context, pattern *entities.ContactEmailPattern) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pattern.ContactEmail = lower(pattern.ContactEmail)
	pattern.UpdatedAt = time.Now().UTC()
	r.s.patterns[pattern.ContactEmail] = clone(pattern)
	return nil
}

// InboundRepository is the in-memory inbound message table
type InboundRepository struct{ s *Store }

var _ repositories.InboundRepository = (*InboundRepository)(nil)

// Create inserts a message; provider ids are unique
func (r *InboundRepository) Create(_ context.Context, msg *entities.InboundMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.inboundKeys[msg.ProviderMessageID]; ok {
		return repositories.ErrDuplicateKey
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	r.s.inbound[msg.ID] = clone(msg)
	r.s.inboundKeys[msg.ProviderMessageID] = msg.ID
	return nil
}

// FindByID retrieves a message
func (r *InboundRepository) FindByID(_ context.Context, id uuid.UUID) (*entities.InboundMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return clone(r.s.inbound[id]), nil
}

// ListUnprocessed retrieves unhandled messages, oldest first
func (r *InboundRepository) ListUnprocessed(_ context.Context, limit int) ([]*entities.InboundMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entities.InboundMessage
	for _, m := range r.s.inbound {
		if m.ProcessedAt == nil {
			out = append(out, clone(m))
		}
	}
	sortByTime(out, func(m *entities.InboundMessage) time.Time { return m.ReceivedAt }, false)
	return limitRows(out, limit), nil
}

// LatestForRequest retrieves the newest message of a request
func (r *InboundRepository) LatestForRequest(_ context.Context, requestID uuid.UUID) (*entities.InboundMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *entities.InboundMessage
	for _, m := range r.s.inbound {
		if m.SchedulingRequestID == nil || *m.SchedulingRequestID != requestID {
			continue
		}
		if latest == nil || m.ReceivedAt.After(latest.ReceivedAt) {
			latest = m
		}
	}
	return clone(latest), nil
}

// MarkProcessed records the processing outcome
func (r *InboundRepository) MarkProcessed(_ context.Context, msg *entities.InboundMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.inbound[msg.ID]
	if !ok {
		return nil
	}
	current.SchedulingRequestID = msg.SchedulingRequestID
	current.ProcessedAt = msg.ProcessedAt
	current.ProcessingError = msg.ProcessingError
	current.LinkSuggestion = msg.LinkSuggestion
	return nil
}

// WorkItemRepository is the in-memory work item table
type WorkItemRepository struct{ s *Store }

var _ repositories.WorkItemRepository = (*WorkItemRepository)(nil)

// Create inserts a work item
func (r *WorkItemRepository) Create(_ context.Context, item *entities.WorkItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	r.s.workItems[item.ID] = clone(item)
	return nil
}

// FindByID retrieves a work item
func (r *WorkItemRepository) FindByID(_ context.Context, id uuid.UUID) (*entities.WorkItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return clone(r.s.workItems[id]), nil
}

// List retrieves work items by status, newest first
func (r *WorkItemRepository) List(_ context.Context, status entities.WorkItemStatus, limit int) ([]*entities.WorkItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entities.WorkItem
	for _, it := range r.s.workItems {
		if status == "" || it.Status == status {
			out = append(out, clone(it))
		}
	}
	sortByTime(out, func(w *entities.WorkItem) time.Time { return w.CreatedAt }, true)
	return limitRows(out, limit), nil
}

// Resolve closes an open work item
func (r *WorkItemRepository) Resolve(_ context.Context, id uuid.UUID, resolvedBy string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.workItems[id]
	if !ok || it.Status != entities.WorkItemOpen {
		return repositories.ErrConcurrentUpdate
	}
	it.Status = entities.WorkItemResolved
	it.ResolvedBy = resolvedBy
	it.ResolvedAt = &at
	return nil
}

// JobRunRepository is the in-memory job history
type JobRunRepository struct{ s *Store }

var _ repositories.JobRunRepository = (*JobRunRepository)(nil)

// Create inserts a run record
func (r *JobRunRepository) Create(_ context.Context, run *entities.JobRun) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	r.s.jobRuns = append(r.s.jobRuns, clone(run))
	return nil
}

// ListRecent retrieves the latest runs of a job, newest first
func (r *JobRunRepository) ListRecent(_ context.Context, jobName string, limit int) ([]*entities.JobRun, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entities.JobRun
	for _, run := range r.s.jobRuns {
		if run.JobName == jobName {
			out = append(out, clone(run))
		}
	}
	sortByTime(out, func(j *entities.JobRun) time.Time { return j.StartedAt }, true)
	return limitRows(out, limit), nil
}

// DirectoryRepository reads the seeded CRM records
type DirectoryRepository struct{ s *Store }

var _ repositories.DirectoryRepository = (*DirectoryRepository)(nil)

// FindContactsByEmails retrieves contacts matching any address
func (r *DirectoryRepository) FindContactsByEmails(_ context.Context, emails []string) ([]*entities.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[string]bool, len(emails))
	for _, e := range emails {
		want[lower(e)] = true
	}
	var out []*entities.Contact
	for _, c := range r.s.contacts {
		if want[lower(c.Email)] {
			out = append(out, clone(c))
		}
	}
	return out, nil
}

// FindCompanyByDomain retrieves a company by domain
func (r *DirectoryRepository) FindCompanyByDomain(_ context.Context, domain string) (*entities.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.companies {
		if lower(c.Domain) == lower(domain) {
			return clone(c), nil
		}
	}
	return nil, nil
}

// FindActiveDeals retrieves open deals of a company
func (r *DirectoryRepository) FindActiveDeals(_ context.Context, companyID uuid.UUID) ([]*entities.Deal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entities.Deal
	for _, d := range r.s.deals {
		if d.CompanyID == companyID && d.IsActive {
			out = append(out, clone(d))
		}
	}
	return out, nil
}

// FindDealByID retrieves a deal
func (r *DirectoryRepository) FindDealByID(_ context.Context, id uuid.UUID) (*entities.Deal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return clone(r.s.deals[id]), nil
}
