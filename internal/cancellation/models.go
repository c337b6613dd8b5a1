package cancellation

import (
	"github.com/shopspring/decimal"
)

// Penalty is the charge for cancelling a ride plus a message for the user
type Penalty struct {
	Amount  decimal.Decimal `json:"amount"`
	Message string          `json:"message"`
}

// IsZero reports whether nothing will be charged
func (p Penalty) IsZero() bool {
	return !p.Amount.IsPositive()
}

// ReasonCode identifies a predefined cancellation reason
type ReasonCode string

// Parent reasons
const (
	ReasonParentChildSick       ReasonCode = "child_sick"
	ReasonParentScheduleChanged ReasonCode = "schedule_changed"
	ReasonParentOwnTransport    ReasonCode = "own_transport"
	ReasonParentDriverLate      ReasonCode = "driver_late"
	ReasonParentSafetyConcern   ReasonCode = "safety_concern"
	ReasonParentOther           ReasonCode = "other"
)

// Driver reasons
const (
	ReasonDriverVehicleIssue      ReasonCode = "vehicle_issue"
	ReasonDriverChildNoShow       ReasonCode = "child_no_show"
	ReasonDriverParentUnreachable ReasonCode = "parent_unreachable"
	ReasonDriverUnsafePickup      ReasonCode = "unsafe_pickup"
	ReasonDriverEmergency         ReasonCode = "emergency"
	ReasonDriverOther             ReasonCode = "other"
)

// ReasonOption is a cancellation reason a user can pick
type ReasonOption struct {
	Code        ReasonCode `json:"code"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
}

// ReasonsResponse lists the reasons available to one party
type ReasonsResponse struct {
	Reasons []ReasonOption `json:"reasons"`
}
