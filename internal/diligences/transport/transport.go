package transport

import (
	"time"

	"github.com/google/uuid"

	"jurisconnect_backend/internal/diligences/repository"
)

type CreateRequest struct {
	Title       string `json:"title" binding:"required,min=3,max=200"`
	Description string `json:"description" binding:"required,min=10"`
	Priority    string `json:"priority" binding:"required,oneof=low medium high urgent"`
	Value       string `json:"value" binding:"required"`
	Deadline    string `json:"deadline" binding:"required"`
	City        string `json:"city" binding:"required"`
	State       string `json:"state" binding:"required,len=2"`
}

type ListQuery struct {
	Status string `form:"status"`
	State  string `form:"state"`
	City   string `form:"city"`
	Limit  int    `form:"limit,default=50" binding:"omitempty,min=1,max=200"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
}

type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

type AssignRequest struct {
	CorrespondentID uuid.UUID `json:"correspondentId" binding:"required"`
}

type AutoAssignRequest struct {
	Specialty       string      `json:"specialty"`
	MinRating       float64     `json:"minRating" binding:"omitempty,min=0,max=5"`
	MaxResponseTime float64     `json:"maxResponseTimeHours" binding:"omitempty,min=0"`
	Exclude         []uuid.UUID `json:"exclude"`
}

type DiligenceResponse struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Priority        string     `json:"priority"`
	Value           string     `json:"value"`
	Deadline        time.Time  `json:"deadline"`
	City            string     `json:"city"`
	State           string     `json:"state"`
	ClientID        uuid.UUID  `json:"clientId"`
	CorrespondentID *uuid.UUID `json:"correspondentId,omitempty"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type ListResponse struct {
	Items  []DiligenceResponse `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

func ToDiligenceResponse(d *repository.Diligence) DiligenceResponse {
	return DiligenceResponse{
		ID:              d.ID,
		Title:           d.Title,
		Description:     d.Description,
		Priority:        d.Priority,
		Value:           d.Value.StringFixed(2),
		Deadline:        d.Deadline,
		City:            d.City,
		State:           d.State,
		ClientID:        d.ClientID,
		CorrespondentID: d.CorrespondentID,
		Status:          string(d.Status),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}
