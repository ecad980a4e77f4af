package handler

// UpdateStatusRequest changes one institution's approval status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// UpdateAssigneeRequest assigns or reassigns an approval.
type UpdateAssigneeRequest struct {
	Assignee string `json:"assignee"`
}
