package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
)

// RequestRepository is the in-memory scheduling request table
type RequestRepository struct{ s *Store }

var _ repositories.SchedulingRequestRepository = (*RequestRepository)(nil)

func (r *RequestRepository) threadTaken(req *entities.SchedulingRequest) bool {
	if req.ExternalThreadID == nil || *req.ExternalThreadID == "" {
		return false
	}
	for id, other := range r.s.requests {
		if id == req.ID || other.UserID != req.UserID || other.ExternalThreadID == nil {
			continue
		}
		if *other.ExternalThreadID == *req.ExternalThreadID {
			return true
		}
	}
	return false
}

// Create inserts a request
func (r *RequestRepository) Create(_ context.Context, req *entities.SchedulingRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if _, ok := r.s.requests[req.ID]; ok || r.threadTaken(req) {
		return repositories.ErrDuplicateKey
	}
	for i := range req.Attendees {
		if req.Attendees[i].ID == uuid.Nil {
			req.Attendees[i].ID = uuid.New()
		}
		req.Attendees[i].RequestID = req.ID
	}
	r.s.requests[req.ID] = clone(req)
	return nil
}

// FindByID retrieves a request
func (r *RequestRepository) FindByID(_ context.Context, id uuid.UUID) (*entities.SchedulingRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return clone(r.s.requests[id]), nil
}

// FindByThread retrieves the request that owns a thread
func (r *RequestRepository) FindByThread(_ context.Context, userID uuid.UUID, threadID string) (*entities.SchedulingRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, req := range r.s.requests {
		if req.UserID == userID && req.ExternalThreadID != nil && *req.ExternalThreadID == threadID {
			return clone(req), nil
		}
	}
	return nil, nil
}

// UpdateIfUnchanged saves the request when status and version still match
func (r *RequestRepository) UpdateIfUnchanged(_ context.Context, req *entities.SchedulingRequest, expectedStatus entities.RequestStatus, expectedVersion int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.requests[req.ID]
	if !ok || current.Status != expectedStatus || current.Version != expectedVersion {
		return repositories.ErrConcurrentUpdate
	}
	if r.threadTaken(req) {
		return repositories.ErrDuplicateKey
	}
	req.Version = expectedVersion + 1
	req.UpdatedAt = time.Now().UTC()
	stored := clone(req)
	stored.Attendees = current.Attendees
	r.s.requests[req.ID] = stored
	return nil
}

// List retrieves requests matching the filters, least recently updated first
func (r *RequestRepository) List(_ context.Context, filters repositories.RequestFilters) ([]*entities.SchedulingRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entities.SchedulingRequest
	for _, req := range r.s.requests {
		if len(filters.Statuses) > 0 && !containsStatus(filters.Statuses, req.Status) {
			continue
		}
		if filters.UserID != nil && req.UserID != *filters.UserID {
			continue
		}
		if filters.ConfirmedAfter != nil && (req.ConfirmedTime == nil || req.ConfirmedTime.Before(*filters.ConfirmedAfter)) {
			continue
		}
		if filters.ConfirmedBefore != nil && (req.ConfirmedTime == nil || !req.ConfirmedTime.Before(*filters.ConfirmedBefore)) {
			continue
		}
		out = append(out, clone(req))
	}
	sortByTime(out, func(q *entities.SchedulingRequest) time.Time { return q.UpdatedAt }, false)
	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			return nil, nil
		}
		out = out[filters.Offset:]
	}
	return limitRows(out, filters.Limit), nil
}

// FindConfirmedForUser retrieves confirmed meetings of a user in a window
func (r *RequestRepository) FindConfirmedForUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.SchedulingRequest, error) {
	return r.List(ctx, repositories.RequestFilters{
		Statuses:        []entities.RequestStatus{entities.StatusConfirmed, entities.StatusReminderSent},
		UserID:          &userID,
		ConfirmedAfter:  &from,
		ConfirmedBefore: &to,
	})
}

// CountByStatus counts requests in a status
func (r *RequestRepository) CountByStatus(_ context.Context, status entities.RequestStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, req := range r.s.requests {
		if req.Status == status {
			n++
		}
	}
	return n, nil
}

// CountBySLAStatus counts awaiting requests by SLA status
func (r *RequestRepository) CountBySLAStatus(_ context.Context, status entities.SLAStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, req := range r.s.requests {
		if req.Status == entities.StatusAwaitingResponse && req.SLAStatus == status {
			n++
		}
	}
	return n, nil
}

func containsStatus(list []entities.RequestStatus, s entities.RequestStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ActionRepository is the in-memory audit log
type ActionRepository struct{ s *Store }

var _ repositories.ActionRepository = (*ActionRepository)(nil)

// Append assigns the next per-request sequence
func (r *ActionRepository) Append(_ context.Context, action *entities.SchedulingAction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if action.ID == uuid.Nil {
		action.ID = uuid.New()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}
	action.Sequence = int64(len(r.s.actions[action.RequestID]) + 1)
	r.s.actions[action.RequestID] = append(r.s.actions[action.RequestID], clone(action))
	return nil
}

// ListByRequest returns actions in insertion order
func (r *ActionRepository) ListByRequest(_ context.Context, requestID uuid.UUID) ([]*entities.SchedulingAction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := r.s.actions[requestID]
	out := make([]*entities.SchedulingAction, 0, len(rows))
	for _, a := range rows {
		out = append(out, clone(a))
	}
	return out, nil
}
