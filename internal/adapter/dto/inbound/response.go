package inbound

import (
	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/response"
)

// ReceiveResponse is the stored message and, when processed inline, the outcome
type ReceiveResponse struct {
	Message *entities.InboundMessage `json:"message"`
	Outcome *response.Outcome        `json:"outcome,omitempty"`
}
