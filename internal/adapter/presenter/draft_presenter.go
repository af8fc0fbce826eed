package presenter

import (
	"github.com/johnquangdev/meeting-scheduler/internal/adapter/dto/draft"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
)

// ToDraftResponse converts a Draft, resolving the reviewer's edits into the
// payload that will actually go out
func ToDraftResponse(d *entities.Draft) *draft.DraftResponse {
	if d == nil {
		return nil
	}
	left := d.MaxRetries - d.RetryCount
	if left < 0 {
		left = 0
	}
	return &draft.DraftResponse{
		Draft:       d,
		Effective:   d.Effective(),
		RetriesLeft: left,
	}
}

// ToDraftListResponse converts a slice of drafts
func ToDraftListResponse(drafts []*entities.Draft) *draft.DraftListResponse {
	out := make([]*draft.DraftResponse, len(drafts))
	for i, d := range drafts {
		out[i] = ToDraftResponse(d)
	}
	return &draft.DraftListResponse{Drafts: out, Count: len(out)}
}
