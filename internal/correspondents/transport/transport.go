package transport

import (
	"time"

	"github.com/google/uuid"

	"jurisconnect_backend/internal/correspondents/repository"
)

type ProfileResponse struct {
	ID                   uuid.UUID `json:"id"`
	UserID               uuid.UUID `json:"userId"`
	Name                 string    `json:"name"`
	Phone                *string   `json:"phone,omitempty"`
	State                string    `json:"state"`
	City                 string    `json:"city"`
	Specialties          []string  `json:"specialties"`
	Rating               float64   `json:"rating"`
	RatingCount          int       `json:"ratingCount"`
	CompletionRate       float64   `json:"completionRate"`
	AvgResponseTimeHours float64   `json:"avgResponseTimeHours"`
	Active               bool      `json:"active"`
	Verified             bool      `json:"verified"`
	CreatedAt            time.Time `json:"createdAt"`
}

func ToProfileResponse(p *repository.Profile) ProfileResponse {
	return ProfileResponse{
		ID:                   p.ID,
		UserID:               p.UserID,
		Name:                 p.Name,
		Phone:                p.Phone,
		State:                p.State,
		City:                 p.City,
		Specialties:          p.Specialties,
		Rating:               p.Rating,
		RatingCount:          p.RatingCount,
		CompletionRate:       p.CompletionRate,
		AvgResponseTimeHours: p.AvgResponseTimeHours,
		Active:               p.Active,
		Verified:             p.Verified,
		CreatedAt:            p.CreatedAt,
	}
}

type ListQuery struct {
	State    string `form:"state"`
	City     string `form:"city"`
	Verified *bool  `form:"verified"`
	Limit    int    `form:"limit,default=50" binding:"omitempty,min=1,max=200"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
}

type VerifyRequest struct {
	Verified bool `json:"verified"`
}

type RateRequest struct {
	Value int `json:"value" binding:"required,min=1,max=5"`
}

type UpdateProfileRequest struct {
	Phone       *string  `json:"phone" binding:"omitempty"`
	State       *string  `json:"state" binding:"omitempty,len=2"`
	City        *string  `json:"city" binding:"omitempty"`
	Specialties []string `json:"specialties" binding:"omitempty,dive,min=1"`
}
