package profiles

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/richxcame/schoolrun/pkg/validation"
)

// Profile is a parent's or driver's personal information
type Profile struct {
	UserID uuid.UUID   `json:"user_id"`
	Role   models.Role `json:"role"`
	validation.PersonalInfo
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Child is a child registered by a parent
type Child struct {
	ID       uuid.UUID `json:"id"`
	ParentID uuid.UUID `json:"parent_id"`
	validation.ChildInfo
	CreatedAt time.Time `json:"created_at"`
}

// Vehicle is the car a driver uses for school runs
type Vehicle struct {
	DriverID uuid.UUID `json:"driver_id"`
	validation.VehicleInfo
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateProfileRequest replaces the caller's personal information
type UpdateProfileRequest struct {
	validation.PersonalInfo
	Language string `json:"language,omitempty" validate:"omitempty,oneof=en af zu"`
}
