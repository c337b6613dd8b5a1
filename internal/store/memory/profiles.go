package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/schoolrun/internal/profiles"
)

var _ profiles.RepositoryInterface = (*ProfileRepository)(nil)

// ProfileRepository implements profiles.RepositoryInterface
type ProfileRepository struct {
	s *Store
}

// GetProfile retrieves a user's profile
func (r *ProfileRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*profiles.Profile, error) {
	var p profiles.Profile
	err := r.s.exec(ctx, func(db *tables) error {
		found, exists := db.profiles[userID]
		if !exists {
			return pgx.ErrNoRows
		}
		p = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProfile creates or replaces a profile. An existing profile keeps
// its role and creation time.
func (r *ProfileRepository) UpsertProfile(ctx context.Context, p *profiles.Profile) error {
	return r.s.exec(ctx, func(db *tables) error {
		row := *p
		if existing, exists := db.profiles[p.UserID]; exists {
			row.Role = existing.Role
			row.CreatedAt = existing.CreatedAt
		} else if row.CreatedAt.IsZero() {
			row.CreatedAt = row.UpdatedAt
		}
		db.profiles[p.UserID] = row
		return nil
	})
}

// GetLanguage returns the user's preferred language
func (r *ProfileRepository) GetLanguage(ctx context.Context, userID uuid.UUID) (string, error) {
	p, err := r.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.Language, nil
}

// CreateChild registers a child
func (r *ProfileRepository) CreateChild(ctx context.Context, child *profiles.Child) error {
	return r.s.exec(ctx, func(db *tables) error {
		if _, exists := db.children[child.ID]; exists {
			return uniqueViolation("children_pkey")
		}
		db.children[child.ID] = *child
		return nil
	})
}

// ListChildren returns the parent's children, oldest registration first
func (r *ProfileRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]profiles.Child, error) {
	children := []profiles.Child{}
	err := r.s.exec(ctx, func(db *tables) error {
		for _, c := range db.children {
			if c.ParentID == parentID {
				children = append(children, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(children, func(i, j int) bool {
		return children[i].CreatedAt.Before(children[j].CreatedAt)
	})
	return children, nil
}

// ChildBelongsTo reports whether the child is registered to the parent
func (r *ProfileRepository) ChildBelongsTo(ctx context.Context, parentID, childID uuid.UUID) (bool, error) {
	belongs := false
	err := r.s.exec(ctx, func(db *tables) error {
		c, exists := db.children[childID]
		belongs = exists && c.ParentID == parentID
		return nil
	})
	return belongs, err
}

// GetVehicle returns the driver's vehicle
func (r *ProfileRepository) GetVehicle(ctx context.Context, driverID uuid.UUID) (*profiles.Vehicle, error) {
	var v profiles.Vehicle
	err := r.s.exec(ctx, func(db *tables) error {
		found, exists := db.vehicles[driverID]
		if !exists {
			return pgx.ErrNoRows
		}
		v = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// UpsertVehicle creates or replaces the driver's vehicle
func (r *ProfileRepository) UpsertVehicle(ctx context.Context, v *profiles.Vehicle) error {
	return r.s.exec(ctx, func(db *tables) error {
		db.vehicles[v.DriverID] = *v
		return nil
	})
}
