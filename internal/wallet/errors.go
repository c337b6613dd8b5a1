package wallet

import (
	"net/http"

	"github.com/richxcame/schoolrun/pkg/common"
)

var (
	// ErrInsufficientFunds is returned when a debit would make a balance negative
	ErrInsufficientFunds = common.NewDomainError(http.StatusPaymentRequired, common.ReasonInsufficientFunds, "insufficient wallet balance")
	// ErrNoPaymentCard is returned for deposits and withdrawals without a saved card
	ErrNoPaymentCard = common.NewDomainError(http.StatusBadRequest, common.ReasonValidation, "add a payment card first")
	// ErrAlreadyRecorded is returned when a ride charge was already written
	ErrAlreadyRecorded = common.NewDomainError(http.StatusConflict, common.ReasonConflict, "transaction already recorded")
)
