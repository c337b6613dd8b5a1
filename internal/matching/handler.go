package matching

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/middleware"
)

// Handler handles HTTP requests for driver availability and offers
type Handler struct {
	service *Service
}

// NewHandler creates a new matching handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListEligible lists the requests the calling driver may accept
func (h *Handler) ListEligible(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	reqs, err := h.service.ListEligibleRequests(c.Request.Context(), driverID)
	if err != nil {
		common.HandleError(c, err, "failed to list requests")
		return
	}

	common.SuccessResponse(c, reqs)
}

// DeclineRequest hides a request from the calling driver
// POST /api/v1/ride-requests/:id/decline
func (h *Handler) DeclineRequest(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.AppErrorResponse(c, common.NewBadRequestError("invalid request ID", err))
		return
	}

	if err := h.service.DeclineRequest(c.Request.Context(), driverID, requestID); err != nil {
		common.HandleError(c, err, "failed to decline request")
		return
	}

	common.SuccessResponse(c, gin.H{"message": "request declined"})
}

// SetStatus toggles the calling driver online or offline
// PUT /api/v1/drivers/me/status
func (h *Handler) SetStatus(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	var req StatusRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	if err := h.service.SetOnline(c.Request.Context(), driverID, *req.Online); err != nil {
		common.HandleError(c, err, "failed to update status")
		return
	}

	common.SuccessResponse(c, gin.H{"online": *req.Online})
}

// UpdateLocation stores the calling driver's position
// PUT /api/v1/drivers/me/location
func (h *Handler) UpdateLocation(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	var req LocationRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	if err := h.service.UpdateLocation(c.Request.Context(), driverID, req.Latitude, req.Longitude); err != nil {
		common.HandleError(c, err, "failed to update location")
		return
	}

	common.SuccessResponse(c, gin.H{"message": "location updated"})
}

// RegisterRoutes mounts the driver presence endpoints; the group must
// already require the driver role
func (h *Handler) RegisterRoutes(drivers *gin.RouterGroup) {
	drivers.PUT("/me/status", h.SetStatus)
	drivers.PUT("/me/location", h.UpdateLocation)
}
