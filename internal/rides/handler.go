package rides

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/internal/matching"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/middleware"
	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/richxcame/schoolrun/pkg/pagination"
)

// Handler handles HTTP requests for ride requests and rides
type Handler struct {
	service  *Service
	matching *matching.Handler
}

// NewHandler creates a new rides handler. Drivers listing requests are
// served by the matching handler.
func NewHandler(service *Service, matching *matching.Handler) *Handler {
	return &Handler{service: service, matching: matching}
}

// ========================================
// RIDE REQUESTS
// ========================================

// CreateRequest posts a new ride request
// POST /api/v1/ride-requests
func (h *Handler) CreateRequest(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	var req CreateRequestInput
	if !middleware.BindJSON(c, &req) {
		return
	}

	created, err := h.service.CreateRequest(c.Request.Context(), actor, &req)
	if err != nil {
		common.HandleError(c, err, "failed to create ride request")
		return
	}

	common.CreatedResponse(c, created)
}

// ListRequests returns the parent's own requests, or the requests a driver
// may accept
// GET /api/v1/ride-requests
func (h *Handler) ListRequests(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	if actor.IsDriver() {
		h.matching.ListEligible(c)
		return
	}

	reqs, err := h.service.ListMyRequests(c.Request.Context(), actor)
	if err != nil {
		common.HandleError(c, err, "failed to list ride requests")
		return
	}

	common.SuccessResponse(c, reqs)
}

// CancelRequest withdraws a pending request
// DELETE /api/v1/ride-requests/:id
func (h *Handler) CancelRequest(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	requestID, ok := parseID(c, "invalid request ID")
	if !ok {
		return
	}

	if err := h.service.CancelRequest(c.Request.Context(), actor, requestID); err != nil {
		common.HandleError(c, err, "failed to cancel ride request")
		return
	}

	common.SuccessResponse(c, gin.H{"message": "ride request cancelled"})
}

// AcceptRequest turns a request into a scheduled ride for the driver
// POST /api/v1/ride-requests/:id/accept
func (h *Handler) AcceptRequest(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	requestID, ok := parseID(c, "invalid request ID")
	if !ok {
		return
	}

	ride, err := h.service.AcceptRequest(c.Request.Context(), actor, requestID)
	if err != nil {
		common.HandleError(c, err, "failed to accept ride request")
		return
	}

	common.CreatedResponse(c, ride)
}

// ========================================
// RIDES
// ========================================

// ListActive returns the caller's scheduled and in-progress rides
// GET /api/v1/rides/active
func (h *Handler) ListActive(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	rides, err := h.service.ListActiveRides(c.Request.Context(), actor)
	if err != nil {
		common.HandleError(c, err, "failed to list rides")
		return
	}

	common.SuccessResponse(c, rides)
}

// ListHistory returns the caller's completed and cancelled rides
// GET /api/v1/rides/history?limit=20&offset=0
func (h *Handler) ListHistory(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	params := pagination.ParseParams(c)
	rides, total, err := h.service.ListRideHistory(c.Request.Context(), actor, params.Limit, params.Offset)
	if err != nil {
		common.HandleError(c, err, "failed to list ride history")
		return
	}

	common.SuccessResponseWithMeta(c, rides, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// GetRide returns one ride
// GET /api/v1/rides/:id
func (h *Handler) GetRide(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	rideID, ok := parseID(c, "invalid ride ID")
	if !ok {
		return
	}

	ride, err := h.service.GetRide(c.Request.Context(), actor, rideID)
	if err != nil {
		common.HandleError(c, err, "failed to get ride")
		return
	}

	common.SuccessResponse(c, ride)
}

// VerifyOTP starts the ride with the parent's pickup code
// POST /api/v1/rides/:id/verify-otp
func (h *Handler) VerifyOTP(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	rideID, ok := parseID(c, "invalid ride ID")
	if !ok {
		return
	}

	var req VerifyOTPInput
	if !middleware.BindJSON(c, &req) {
		return
	}

	ride, err := h.service.VerifyOTP(c.Request.Context(), actor, rideID, req.Code)
	if err != nil {
		common.HandleError(c, err, "failed to verify pickup code")
		return
	}

	common.SuccessResponse(c, ride)
}

// RegenerateOTP issues a fresh pickup code
// POST /api/v1/rides/:id/otp
func (h *Handler) RegenerateOTP(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	rideID, ok := parseID(c, "invalid ride ID")
	if !ok {
		return
	}

	ride, err := h.service.RegenerateOTP(c.Request.Context(), actor, rideID)
	if err != nil {
		common.HandleError(c, err, "failed to regenerate pickup code")
		return
	}

	common.SuccessResponse(c, ride)
}

// Complete finishes the ride and pays the driver
// POST /api/v1/rides/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	rideID, ok := parseID(c, "invalid ride ID")
	if !ok {
		return
	}

	ride, err := h.service.Complete(c.Request.Context(), actor, rideID)
	if err != nil {
		common.HandleError(c, err, "failed to complete ride")
		return
	}

	common.SuccessResponse(c, ride)
}

// Cancel cancels the ride, charging the caller any penalty
// POST /api/v1/rides/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	rideID, ok := parseID(c, "invalid ride ID")
	if !ok {
		return
	}

	var req CancelInput
	if c.Request.ContentLength > 0 && !middleware.BindJSON(c, &req) {
		return
	}

	ride, err := h.service.Cancel(c.Request.Context(), actor, rideID, req.Reason)
	if err != nil {
		common.HandleError(c, err, "failed to cancel ride")
		return
	}

	common.SuccessResponse(c, ride)
}

// CancellationPreview shows the penalty cancelling now would incur
// GET /api/v1/rides/:id/cancellation-preview
func (h *Handler) CancellationPreview(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	rideID, ok := parseID(c, "invalid ride ID")
	if !ok {
		return
	}

	preview, err := h.service.CancellationPreview(c.Request.Context(), actor, rideID)
	if err != nil {
		common.HandleError(c, err, "failed to preview cancellation")
		return
	}

	common.SuccessResponse(c, preview)
}

// UpdateLocation records the driver's position on the ride
// PUT /api/v1/rides/:id/location
func (h *Handler) UpdateLocation(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	rideID, ok := parseID(c, "invalid ride ID")
	if !ok {
		return
	}

	var req LocationInput
	if !middleware.BindJSON(c, &req) {
		return
	}

	if err := h.service.UpdateRideLocation(c.Request.Context(), actor, rideID, &req); err != nil {
		common.HandleError(c, err, "failed to update ride location")
		return
	}

	common.SuccessResponse(c, gin.H{"message": "location updated"})
}

// RegisterRoutes mounts the request and ride endpoints on an authenticated group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	parent := middleware.RequireRole(models.RoleParent)
	driver := middleware.RequireRole(models.RoleDriver)

	reqs := rg.Group("/ride-requests")
	{
		reqs.POST("", parent, h.CreateRequest)
		reqs.GET("", h.ListRequests)
		reqs.DELETE("/:id", parent, h.CancelRequest)
		reqs.POST("/:id/accept", driver, h.AcceptRequest)
		reqs.POST("/:id/decline", driver, h.matching.DeclineRequest)
	}

	rides := rg.Group("/rides")
	{
		rides.GET("/active", h.ListActive)
		rides.GET("/history", h.ListHistory)
		rides.GET("/:id", h.GetRide)
		rides.GET("/:id/cancellation-preview", h.CancellationPreview)
		rides.POST("/:id/verify-otp", driver, h.VerifyOTP)
		rides.POST("/:id/otp", parent, h.RegenerateOTP)
		rides.POST("/:id/complete", driver, h.Complete)
		rides.POST("/:id/cancel", h.Cancel)
		rides.PUT("/:id/location", driver, h.UpdateLocation)
	}
}

func parseID(c *gin.Context, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.AppErrorResponse(c, common.NewBadRequestError(message, err))
		return uuid.Nil, false
	}
	return id, true
}
