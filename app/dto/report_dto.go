package dto

import "time"

// ReportUserRequest flags a user for moderation
type ReportUserRequest struct {
	ReportedUserID string `json:"reportedUserId" validate:"required,max=128"`
	Reason         string `json:"reason,omitempty" validate:"omitempty,max=500"`
	Context        string `json:"context,omitempty" validate:"omitempty,max=1000"`
}

// ReportUserResponse acknowledges a report
type ReportUserResponse struct {
	ReportedAt *time.Time `json:"reportedAt,omitempty"`
}
