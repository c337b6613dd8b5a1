package validation

import (
	"strings"
	"time"
)

// PersonalInfo is the profile data a parent or driver provides
type PersonalInfo struct {
	FirstName string `json:"first_name" validate:"required,min=2,max=100,person_name"`
	LastName  string `json:"last_name" validate:"required,min=2,max=100,person_name"`
	Phone     string `json:"phone" validate:"required,za_phone"`
	IDNumber  string `json:"id_number" validate:"required,sa_id"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
}

// ChildInfo describes a child registered by a parent
type ChildInfo struct {
	FirstName   string    `json:"first_name" validate:"required,min=2,max=100,person_name"`
	LastName    string    `json:"last_name" validate:"required,min=2,max=100,person_name"`
	School      string    `json:"school" validate:"required,min=2,max=200"`
	Grade       string    `json:"grade" validate:"required,max=20"`
	DateOfBirth time.Time `json:"date_of_birth" validate:"required"`
}

// VehicleInfo describes a driver's vehicle
type VehicleInfo struct {
	Make  string `json:"make" validate:"required,max=50"`
	Model string `json:"model" validate:"required,max=50"`
	Year  int    `json:"year" validate:"required,vehicle_year"`
	Color string `json:"color" validate:"required,max=30"`
	Plate string `json:"plate" validate:"required,plate"`
	VIN   string `json:"vin" validate:"required,vin"`
	Seats int    `json:"seats" validate:"required,gte=1,lte=16"`
}

// ValidatePersonalInfo validates a profile
func ValidatePersonalInfo(p PersonalInfo) *ValidationError {
	return collect(&p, nil)
}

// ValidateChildInfo validates a child, who must be of school-going age
func ValidateChildInfo(c ChildInfo, now time.Time) *ValidationError {
	return collect(&c, func(v *ValidationError) {
		if c.DateOfBirth.IsZero() {
			return
		}
		if c.DateOfBirth.After(now) {
			v.AddError("date_of_birth", "date_of_birth cannot be in the future")
			return
		}
		age := now.Year() - c.DateOfBirth.Year()
		if now.YearDay() < c.DateOfBirth.YearDay() {
			age--
		}
		if age < 3 || age > 19 {
			v.AddError("date_of_birth", "child must be between 3 and 19 years old")
		}
	})
}

// ValidateVehicleInfo validates a vehicle. Plate and VIN are normalised to
// upper case on the returned value.
func ValidateVehicleInfo(v VehicleInfo) (VehicleInfo, *ValidationError) {
	v.Plate = strings.ToUpper(strings.TrimSpace(v.Plate))
	v.VIN = strings.ToUpper(strings.TrimSpace(v.VIN))
	return v, collect(&v, nil)
}

func collect(s interface{}, extra func(*ValidationError)) *ValidationError {
	out := &ValidationError{Errors: map[string]string{}}
	if err := ValidateStruct(s); err != nil {
		if verr, ok := err.(*ValidationError); ok {
			out = verr
		} else {
			out.AddError("_", err.Error())
		}
	}
	if extra != nil {
		extra(out)
	}
	if !out.HasErrors() {
		return nil
	}
	return out
}
