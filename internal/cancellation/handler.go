package cancellation

import (
	"github.com/gin-gonic/gin"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/middleware"
)

// Handler handles HTTP requests for cancellation metadata
type Handler struct {
	service *Service
}

// NewHandler creates a new cancellation handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetReasons lists the cancellation reasons for the caller's role
// GET /api/v1/cancellation/reasons
func (h *Handler) GetReasons(c *gin.Context) {
	role, err := middleware.GetUserRole(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	common.SuccessResponse(c, h.service.GetCancellationReasons(role))
}

// RegisterRoutes mounts the cancellation endpoints on an authenticated group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/cancellation/reasons", h.GetReasons)
}
