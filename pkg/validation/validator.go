package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once

	personNameRegex = regexp.MustCompile(`^[\p{L}][\p{L} '\-]*[\p{L}]$`)
	saIDRegex       = regexp.MustCompile(`^\d{13}$`)
	zaPhoneRegex    = regexp.MustCompile(`^(\+27|0)[6-8]\d{8}$`)
	vinRegex        = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)
	plateRegex      = regexp.MustCompile(`^[A-Z0-9][A-Z0-9 \-]{1,9}[A-Z0-9]$`)
	cardNumberRegex = regexp.MustCompile(`^\d{12,19}$`)
)

// Get returns the shared validator with the custom tags registered
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New()

		// report json names so field errors match the request body
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		_ = validate.RegisterValidation("person_name", func(fl validator.FieldLevel) bool {
			return personNameRegex.MatchString(strings.TrimSpace(fl.Field().String()))
		})
		_ = validate.RegisterValidation("sa_id", func(fl validator.FieldLevel) bool {
			return IsValidSAID(fl.Field().String())
		})
		_ = validate.RegisterValidation("za_phone", func(fl validator.FieldLevel) bool {
			return zaPhoneRegex.MatchString(normalizePhone(fl.Field().String()))
		})
		_ = validate.RegisterValidation("vin", func(fl validator.FieldLevel) bool {
			return vinRegex.MatchString(strings.ToUpper(fl.Field().String()))
		})
		_ = validate.RegisterValidation("plate", func(fl validator.FieldLevel) bool {
			return plateRegex.MatchString(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
		})
		_ = validate.RegisterValidation("card_number", func(fl validator.FieldLevel) bool {
			n := strings.ReplaceAll(fl.Field().String(), " ", "")
			return cardNumberRegex.MatchString(n) && LuhnValid(n)
		})
		_ = validate.RegisterValidation("vehicle_year", func(fl validator.FieldLevel) bool {
			year := int(fl.Field().Int())
			return year >= 1990 && year <= time.Now().Year()+1
		})
		_ = validate.RegisterValidation("future", func(fl validator.FieldLevel) bool {
			t, ok := fl.Field().Interface().(time.Time)
			return ok && t.After(time.Now())
		})
	})
	return validate
}

// ValidateStruct validates s and converts failures to *ValidationError
func ValidateStruct(s interface{}) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return NewValidationError(verrs)
	}
	return err
}

// LuhnValid reports whether a digit string passes the Luhn checksum
func LuhnValid(digits string) bool {
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// IsValidSAID checks a South African ID number: 13 digits, a real
// YYMMDD birth date, citizenship digit 0 or 1 and a Luhn check digit.
func IsValidSAID(id string) bool {
	if !saIDRegex.MatchString(id) {
		return false
	}
	if _, err := time.Parse("060102", id[:6]); err != nil {
		return false
	}
	if id[10] != '0' && id[10] != '1' {
		return false
	}
	return LuhnValid(id)
}

func normalizePhone(p string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(p)
}
