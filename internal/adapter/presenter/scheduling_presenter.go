package presenter

import (
	"github.com/johnquangdev/meeting-scheduler/internal/adapter/dto/scheduling"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
)

// ToRequestResponse converts a SchedulingRequest to its API shape
func ToRequestResponse(r *entities.SchedulingRequest) *scheduling.RequestResponse {
	if r == nil {
		return nil
	}

	allowed := entities.AllowedTransitions(r.Status)
	transitions := make([]string, 0, len(allowed))
	for _, s := range allowed {
		transitions = append(transitions, string(s))
	}

	response := &scheduling.RequestResponse{
		SchedulingRequest:  r,
		AllowedTransitions: transitions,
	}
	if pc := r.PrimaryContact(); pc != nil {
		response.PrimaryContact = pc.Email
	}
	return response
}

// ToRequestListResponse converts a slice of requests
func ToRequestListResponse(reqs []*entities.SchedulingRequest) *scheduling.RequestListResponse {
	out := make([]*scheduling.RequestResponse, len(reqs))
	for i, r := range reqs {
		out[i] = ToRequestResponse(r)
	}
	return &scheduling.RequestListResponse{Requests: out, Count: len(out)}
}

// ToActionResponses converts the audit trail, keeping its order
func ToActionResponses(actions []*entities.SchedulingAction) []*scheduling.ActionResponse {
	out := make([]*scheduling.ActionResponse, len(actions))
	for i, a := range actions {
		resp := &scheduling.ActionResponse{
			Sequence:       a.Sequence,
			ActionType:     string(a.ActionType),
			Actor:          string(a.Actor),
			PreviousStatus: string(a.PreviousStatus),
			NewStatus:      string(a.NewStatus),
			MessageSubject: a.MessageSubject,
			BodyRef:        a.BodyRef,
			Reasoning:      a.Reasoning,
			CreatedAt:      a.CreatedAt,
		}
		if a.DraftID != nil {
			resp.DraftID = a.DraftID.String()
		}
		out[i] = resp
	}
	return out
}
