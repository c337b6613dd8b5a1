package profiles

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryInterface defines the persistence operations for profiles,
// children and vehicles
type RepositoryInterface interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpsertProfile(ctx context.Context, p *Profile) error
	GetLanguage(ctx context.Context, userID uuid.UUID) (string, error)

	CreateChild(ctx context.Context, child *Child) error
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]Child, error)
	ChildBelongsTo(ctx context.Context, parentID, childID uuid.UUID) (bool, error)

	GetVehicle(ctx context.Context, driverID uuid.UUID) (*Vehicle, error)
	UpsertVehicle(ctx context.Context, v *Vehicle) error
}
