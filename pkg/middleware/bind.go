package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/validation"
)

// BindJSON decodes the request body into req and validates it. On failure
// it writes a 400 response and returns false.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		common.AppErrorResponse(c, common.NewBadRequestError("invalid request body", err))
		return false
	}

	if err := validation.ValidateStruct(req); err != nil {
		var verr *validation.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, common.Response{
				Success: false,
				Error: &common.ErrorInfo{
					Code:    http.StatusBadRequest,
					Reason:  common.ReasonValidation,
					Message: verr.Error(),
				},
				Data: verr.Errors,
			})
			return false
		}
		common.AppErrorResponse(c, common.NewBadRequestError("invalid request", err))
		return false
	}
	return true
}
