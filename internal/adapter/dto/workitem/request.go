package workitem

// ListWorkItemsRequest represents query parameters for the review queue
type ListWorkItemsRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=open resolved"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=200"`
}

// ResolveRequest closes a work item
type ResolveRequest struct {
	ResolvedBy string `json:"resolved_by" validate:"required,max=255"`
}
