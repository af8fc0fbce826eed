package workitem

import "github.com/johnquangdev/meeting-scheduler/internal/domain/entities"

// WorkItemListResponse represents the review queue
type WorkItemListResponse struct {
	WorkItems []*entities.WorkItem `json:"work_items"`
	Count     int                  `json:"count"`
}
