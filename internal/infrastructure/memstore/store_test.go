package memstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
)

func TestDraftClaimOnlyOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := New().Drafts()
	d := &entities.Draft{
		RequestID:      uuid.New(),
		Type:           entities.DraftTypeEmailFollowUp,
		Status:         entities.DraftStatusApproved,
		IdempotencyKey: "k1",
	}
	require.NoError(t, repo.Create(ctx, d))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mine, _ := repo.FindByID(ctx, d.ID)
			mine.Status = entities.DraftStatusExecuting
			if err := repo.SaveIfStatus(ctx, mine, entities.DraftStatusApproved); err == nil {
				atomic.AddInt32(&wins, 1)
			} else {
				assert.ErrorIs(t, err, repositories.ErrClaimLost)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestDraftIdempotencyKeyUnique(t *testing.T) {
	ctx := context.Background()
	repo := New().Drafts()
	require.NoError(t, repo.Create(ctx, &entities.Draft{IdempotencyKey: "dup"}))
	assert.ErrorIs(t, repo.Create(ctx, &entities.Draft{IdempotencyKey: "dup"}), repositories.ErrDuplicateKey)
}

func TestRequestUpdateIfUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := New().Requests()
	req := entities.NewSchedulingRequest(uuid.New(), "Demo", entities.MeetingTypeDemo, 30, "UTC")
	require.NoError(t, repo.Create(ctx, req))

	stale, _ := repo.FindByID(ctx, req.ID)

	req.Status = entities.StatusProposing
	require.NoError(t, repo.UpdateIfUnchanged(ctx, req, entities.StatusInitiated, 1))
	assert.Equal(t, 2, req.Version)

	stale.Status = entities.StatusCancelled
	assert.ErrorIs(t, repo.UpdateIfUnchanged(ctx, stale, entities.StatusInitiated, 1), repositories.ErrConcurrentUpdate)

	got, _ := repo.FindByID(ctx, req.ID)
	assert.Equal(t, entities.StatusProposing, got.Status)
}

func TestRequestThreadUniquePerUser(t *testing.T) {
	ctx := context.Background()
	repo := New().Requests()
	user := uuid.New()
	thread := "thread-1"

	a := entities.NewSchedulingRequest(user, "A", entities.MeetingTypeDemo, 30, "UTC")
	a.ExternalThreadID = &thread
	require.NoError(t, repo.Create(ctx, a))

	b := entities.NewSchedulingRequest(user, "B", entities.MeetingTypeDemo, 30, "UTC")
	b.ExternalThreadID = &thread
	assert.ErrorIs(t, repo.Create(ctx, b), repositories.ErrDuplicateKey)

	c := entities.NewSchedulingRequest(uuid.New(), "C", entities.MeetingTypeDemo, 30, "UTC")
	c.ExternalThreadID = &thread
	assert.NoError(t, repo.Create(ctx, c))
}

func TestActionsSequenced(t *testing.T) {
	ctx := context.Background()
	repo := New().Actions()
	reqID := uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Append(ctx, entities.NewAction(reqID, entities.ActionTransition, entities.ActorAutomation, "")))
	}
	actions, err := repo.ListByRequest(ctx, reqID)
	require.NoError(t, err)
	require.Len(t, actions, 3)
	for i, a := range actions {
		assert.Equal(t, int64(i+1), a.Sequence)
	}
}
