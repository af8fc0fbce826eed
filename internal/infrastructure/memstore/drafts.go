package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
)

// DraftRepository is the in-memory draft table
type DraftRepository struct{ s *Store }

var _ repositories.DraftRepository = (*DraftRepository)(nil)

// Create inserts a draft; the idempotency key is unique
func (r *DraftRepository) Create(_ context.Context, draft *entities.Draft) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.draftKeys[draft.IdempotencyKey]; ok {
		return repositories.ErrDuplicateKey
	}
	if draft.ID == uuid.Nil {
		draft.ID = uuid.New()
	}
	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now
	r.s.drafts[draft.ID] = clone(draft)
	r.s.draftKeys[draft.IdempotencyKey] = draft.ID
	return nil
}

// FindByID retrieves a draft
func (r *DraftRepository) FindByID(_ context.Context, id uuid.UUID) (*entities.Draft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return clone(r.s.drafts[id]), nil
}

// FindByIdempotencyKey retrieves a draft by key
func (r *DraftRepository) FindByIdempotencyKey(_ context.Context, key string) (*entities.Draft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.draftKeys[key]
	if !ok {
		return nil, nil
	}
	return clone(r.s.drafts[id]), nil
}

// SaveIfStatus writes the draft while the stored status is still from
func (r *DraftRepository) SaveIfStatus(_ context.Context, draft *entities.Draft, from entities.DraftStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.drafts[draft.ID]
	if !ok || current.Status != from {
		return repositories.ErrClaimLost
	}
	draft.UpdatedAt = time.Now().UTC()
	r.s.drafts[draft.ID] = clone(draft)
	return nil
}

func (r *DraftRepository) filter(keep func(*entities.Draft) bool) []*entities.Draft {
	var out []*entities.Draft
	for _, d := range r.s.drafts {
		if keep(d) {
			out = append(out, clone(d))
		}
	}
	sortByTime(out, func(d *entities.Draft) time.Time { return d.CreatedAt }, false)
	return out
}

// ListByStatus retrieves drafts in a status, oldest first
func (r *DraftRepository) ListByStatus(_ context.Context, status entities.DraftStatus, limit int) ([]*entities.Draft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return limitRows(r.filter(func(d *entities.Draft) bool { return d.Status == status }), limit), nil
}

// ListByRequest retrieves drafts of a request
func (r *DraftRepository) ListByRequest(_ context.Context, requestID uuid.UUID) ([]*entities.Draft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(d *entities.Draft) bool { return d.RequestID == requestID }), nil
}

// ListExpired retrieves pending drafts past expiry
func (r *DraftRepository) ListExpired(_ context.Context, now time.Time, limit int) ([]*entities.Draft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return limitRows(r.filter(func(d *entities.Draft) bool {
		return d.Status == entities.DraftStatusPending && d.ExpiresAt != nil && d.ExpiresAt.Before(now)
	}), limit), nil
}

// CountByStatus counts drafts in a status
func (r *DraftRepository) CountByStatus(_ context.Context, status entities.DraftStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, d := range r.s.drafts {
		if d.Status == status {
			n++
		}
	}
	return n, nil
}

// CountStuckExecuting counts executing drafts claimed before the cutoff
func (r *DraftRepository) CountStuckExecuting(_ context.Context, claimedBefore time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, d := range r.s.drafts {
		if d.Status == entities.DraftStatusExecuting && d.ClaimedAt != nil && d.ClaimedAt.Before(claimedBefore) {
			n++
		}
	}
	return n, nil
}
