package rides

import (
	"net/http"

	"github.com/richxcame/schoolrun/pkg/common"
)

var (
	// ErrAlreadyAccepted is returned to the loser of a concurrent accept
	ErrAlreadyAccepted = common.NewDomainError(http.StatusConflict, common.ReasonAlreadyAccepted, "this ride is no longer available")
	// ErrRequestNotFound is returned when a request was cancelled, expired or never existed
	ErrRequestNotFound = common.NewDomainError(http.StatusNotFound, common.ReasonRequestNotFound, "this ride is no longer available")
	// ErrOTPExpired is returned when the pickup code is older than its validity
	ErrOTPExpired = common.NewDomainError(http.StatusBadRequest, common.ReasonOTPExpired, "the pickup code has expired, ask the parent for a new one")
	// ErrInvalidOTP is returned for a wrong pickup code
	ErrInvalidOTP = common.NewDomainError(http.StatusBadRequest, common.ReasonInvalidOTP, "invalid pickup code")
	// ErrStateConflict is returned when the ride is not in a state that allows the action
	ErrStateConflict = common.NewDomainError(http.StatusConflict, common.ReasonStateConflict, "cannot perform this action now")
	// ErrTooManyAttempts is returned once the pickup code attempt budget is spent
	ErrTooManyAttempts = common.NewDomainError(http.StatusTooManyRequests, common.ReasonTooManyAttempts, "too many attempts, try again later")

	ErrDriverOffline = common.NewDomainError(http.StatusConflict, common.ReasonStateConflict, "go online to accept ride requests")
	ErrDriverBusy    = common.NewDomainError(http.StatusConflict, common.ReasonStateConflict, "finish your current ride first")
	ErrRideNotFound  = common.NewNotFoundError("ride not found", nil)
)
