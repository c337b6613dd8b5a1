package profiles

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/schoolrun/pkg/database"
)

// Repository handles profile persistence
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new profiles repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetProfile retrieves a user's profile
func (r *Repository) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	p := &Profile{UserID: userID}
	var email *string
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT role, first_name, last_name, phone, id_number, email, language, created_at, updated_at
		FROM profiles
		WHERE user_id = $1`,
		userID,
	).Scan(&p.Role, &p.FirstName, &p.LastName, &p.Phone, &p.IDNumber, &email, &p.Language, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if email != nil {
		p.Email = *email
	}
	return p, nil
}

// UpsertProfile creates or replaces a profile
func (r *Repository) UpsertProfile(ctx context.Context, p *Profile) error {
	var email *string
	if p.Email != "" {
		email = &p.Email
	}
	_, err := database.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO profiles (user_id, role, first_name, last_name, phone, id_number, email, language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (user_id) DO UPDATE
		SET first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			phone = EXCLUDED.phone,
			id_number = EXCLUDED.id_number,
			email = EXCLUDED.email,
			language = EXCLUDED.language,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.Role, p.FirstName, p.LastName, p.Phone, p.IDNumber, email, p.Language, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetLanguage returns the user's preferred language
func (r *Repository) GetLanguage(ctx context.Context, userID uuid.UUID) (string, error) {
	var lang string
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT language FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&lang)
	return lang, err
}

// CreateChild registers a child
func (r *Repository) CreateChild(ctx context.Context, c *Child) error {
	_, err := database.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO children (id, parent_id, first_name, last_name, school, grade, date_of_birth, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.ParentID, c.FirstName, c.LastName, c.School, c.Grade, c.DateOfBirth, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create child: %w", err)
	}
	return nil
}

// ListChildren returns a parent's children
func (r *Repository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]Child, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, `
		SELECT id, first_name, last_name, school, grade, date_of_birth, created_at
		FROM children
		WHERE parent_id = $1
		ORDER BY created_at ASC`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()

	children := make([]Child, 0)
	for rows.Next() {
		c := Child{ParentID: parentID}
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.School, &c.Grade, &c.DateOfBirth, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, c)
	}
	return children, rows.Err()
}

// ChildBelongsTo reports whether childID is registered to parentID
func (r *Repository) ChildBelongsTo(ctx context.Context, parentID, childID uuid.UUID) (bool, error) {
	var exists bool
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM children WHERE id = $1 AND parent_id = $2)`,
		childID, parentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check child: %w", err)
	}
	return exists, nil
}

// GetVehicle retrieves a driver's vehicle
func (r *Repository) GetVehicle(ctx context.Context, driverID uuid.UUID) (*Vehicle, error) {
	v := &Vehicle{DriverID: driverID}
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT make, model, year, color, plate, vin, seats, updated_at
		FROM vehicles
		WHERE driver_id = $1`,
		driverID,
	).Scan(&v.Make, &v.Model, &v.Year, &v.Color, &v.Plate, &v.VIN, &v.Seats, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// UpsertVehicle creates or replaces a driver's vehicle
func (r *Repository) UpsertVehicle(ctx context.Context, v *Vehicle) error {
	_, err := database.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO vehicles (driver_id, make, model, year, color, plate, vin, seats, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (driver_id) DO UPDATE
		SET make = EXCLUDED.make,
			model = EXCLUDED.model,
			year = EXCLUDED.year,
			color = EXCLUDED.color,
			plate = EXCLUDED.plate,
			vin = EXCLUDED.vin,
			seats = EXCLUDED.seats,
			updated_at = EXCLUDED.updated_at`,
		v.DriverID, v.Make, v.Model, v.Year, v.Color, v.Plate, v.VIN, v.Seats, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save vehicle: %w", err)
	}
	return nil
}
