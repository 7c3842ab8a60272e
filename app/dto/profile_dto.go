package dto

import (
	"time"

	"github.com/google/uuid"
)

type ProfileDTO struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type GetProfileResponse struct {
	Message string     `json:"message"`
	Profile ProfileDTO `json:"profile"`
}

type UpdateProfileRequest struct {
	UserID   uuid.UUID `json:"-"`
	Email    *string   `json:"email,omitempty" validate:"omitempty,email,max=320"`
	FullName *string   `json:"full_name,omitempty" validate:"omitempty,max=255"`
}
