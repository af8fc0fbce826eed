package draft

import "github.com/johnquangdev/meeting-scheduler/internal/domain/entities"

// DraftResponse is a draft together with the payload that would be sent
type DraftResponse struct {
	*entities.Draft
	Effective   entities.DraftPayload `json:"effective"`
	RetriesLeft int                   `json:"retries_left"`
}

// DraftListResponse represents the approval queue
type DraftListResponse struct {
	Drafts []*DraftResponse `json:"drafts"`
	Count  int              `json:"count"`
}
