package notifications

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/middleware"
	"github.com/richxcame/schoolrun/pkg/pagination"
)

// Handler handles HTTP requests for the notification inbox
type Handler struct {
	service *Service
}

// NewHandler creates a new notifications handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListNotifications returns the caller's inbox
// GET /api/v1/notifications?limit=20&offset=0
func (h *Handler) ListNotifications(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	params := pagination.ParseParams(c)
	out, total, err := h.service.ListNotifications(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		common.HandleError(c, err, "failed to list notifications")
		return
	}

	common.SuccessResponseWithMeta(c, out, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// MarkRead flags a notification as read
// POST /api/v1/notifications/:id/read
func (h *Handler) MarkRead(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.AppErrorResponse(c, common.NewBadRequestError("invalid notification ID", err))
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), userID, id); err != nil {
		common.HandleError(c, err, "failed to mark notification read")
		return
	}

	common.SuccessResponse(c, gin.H{"message": "notification marked as read"})
}

// RegisterRoutes mounts the inbox endpoints on an authenticated group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	n := rg.Group("/notifications")
	{
		n.GET("", h.ListNotifications)
		n.POST("/:id/read", h.MarkRead)
	}
}
