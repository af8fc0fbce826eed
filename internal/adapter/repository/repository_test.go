package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func approvedDraft() *entities.Draft {
	return &entities.Draft{
		ID:             uuid.New(),
		RequestID:      uuid.New(),
		Type:           entities.DraftTypeEmailFollowUp,
		Status:         entities.DraftStatusExecuting,
		Confidence:     entities.ConfidenceHigh,
		IdempotencyKey: "followup:req:1",
		MaxRetries:     3,
	}
}

func TestDraftSaveIfStatusClaimWins(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDraftRepository(db)

	mock.ExpectExec(`UPDATE "drafts" SET .* WHERE .*id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveIfStatus(context.Background(), approvedDraft(), entities.DraftStatusApproved)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftSaveIfStatusClaimLost(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDraftRepository(db)

	mock.ExpectExec(`UPDATE "drafts" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveIfStatus(context.Background(), approvedDraft(), entities.DraftStatusApproved)
	assert.ErrorIs(t, err, repositories.ErrClaimLost)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftCreateDuplicateKey(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDraftRepository(db)

	mock.ExpectQuery(`INSERT INTO "drafts"`).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "idx_drafts_idempotency_key" (SQLSTATE 23505)`))

	d := approvedDraft()
	d.Status = entities.DraftStatusPending
	err := repo.Create(context.Background(), d)
	assert.ErrorIs(t, err, repositories.ErrDuplicateKey)
}

func TestRequestUpdateIfUnchangedConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchedulingRequestRepository(db)

	req := entities.NewSchedulingRequest(uuid.New(), "Demo", entities.MeetingTypeDemo, 30, "UTC")
	req.Status = entities.StatusProposing

	mock.ExpectExec(`UPDATE "scheduling_requests" SET .* WHERE .*id = \$\d+ AND status = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateIfUnchanged(context.Background(), req, entities.StatusInitiated, 1)
	assert.ErrorIs(t, err, repositories.ErrConcurrentUpdate)
	assert.Equal(t, 1, req.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestUpdateIfUnchangedBumpsVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchedulingRequestRepository(db)

	req := entities.NewSchedulingRequest(uuid.New(), "Demo", entities.MeetingTypeDemo, 30, "UTC")
	mock.ExpectExec(`UPDATE "scheduling_requests" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateIfUnchanged(context.Background(), req, entities.StatusInitiated, 1))
	assert.Equal(t, 2, req.Version)
}

func TestTranslateCreateError(t *testing.T) {
	assert.Nil(t, translateCreateError(nil))
	assert.ErrorIs(t, translateCreateError(gorm.ErrDuplicatedKey), repositories.ErrDuplicateKey)
	other := errors.New("connection refused")
	assert.Equal(t, other, translateCreateError(other))
}
