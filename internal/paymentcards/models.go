package paymentcards

import (
	"time"

	"github.com/google/uuid"
)

// Brand is a card network detected from the number's prefix
type Brand string

const (
	BrandVisa       Brand = "visa"
	BrandMastercard Brand = "mastercard"
	BrandAmex       Brand = "amex"
	BrandDiners     Brand = "diners"
	BrandDiscover   Brand = "discover"
	BrandJCB        Brand = "jcb"
	BrandUnknown    Brand = "unknown"
)

// Card is a saved payment card. Only the last four digits are kept.
type Card struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	LastFour       string    `json:"last_four"`
	Brand          Brand     `json:"brand"`
	ExpiryMonth    int       `json:"expiry_month"`
	ExpiryYear     int       `json:"expiry_year"`
	CardholderName string    `json:"cardholder_name"`
	BankName       string    `json:"bank_name"`
	IsDefault      bool      `json:"is_default"`
	CreatedAt      time.Time `json:"created_at"`
}

// AddCardRequest is the body of POST /cards
type AddCardRequest struct {
	Number         string `json:"number" validate:"required,card_number"`
	ExpiryMonth    int    `json:"expiry_month" validate:"required,gte=1,lte=12"`
	ExpiryYear     int    `json:"expiry_year" validate:"required,gte=2000,lte=2100"`
	CardholderName string `json:"cardholder_name" validate:"required,min=2,max=100,person_name"`
	BankName       string `json:"bank_name" validate:"omitempty,max=100"`
}
