package profiles

import (
	"github.com/gin-gonic/gin"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/middleware"
	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/richxcame/schoolrun/pkg/validation"
)

// Handler handles HTTP requests for profiles
type Handler struct {
	service *Service
}

// NewHandler creates a new profiles handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetProfile returns the caller's profile
// GET /api/v1/profile
func (h *Handler) GetProfile(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	p, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		common.HandleError(c, err, "failed to get profile")
		return
	}

	common.SuccessResponse(c, p)
}

// UpdateProfile replaces the caller's personal information
// PUT /api/v1/profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	var req UpdateProfileRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	p, err := h.service.UpdateProfile(c.Request.Context(), actor, &req)
	if err != nil {
		common.HandleError(c, err, "failed to update profile")
		return
	}

	common.SuccessResponse(c, p)
}

// ListChildren returns the caller's children
// GET /api/v1/children
func (h *Handler) ListChildren(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	children, err := h.service.ListChildren(c.Request.Context(), actor)
	if err != nil {
		common.HandleError(c, err, "failed to list children")
		return
	}

	common.SuccessResponse(c, children)
}

// AddChild registers a child
// POST /api/v1/children
func (h *Handler) AddChild(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	var req validation.ChildInfo
	if !middleware.BindJSON(c, &req) {
		return
	}

	child, err := h.service.AddChild(c.Request.Context(), actor, req)
	if err != nil {
		common.HandleError(c, err, "failed to register child")
		return
	}

	common.CreatedResponse(c, child)
}

// GetVehicle returns the caller's vehicle
// GET /api/v1/vehicle
func (h *Handler) GetVehicle(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	v, err := h.service.GetVehicle(c.Request.Context(), actor)
	if err != nil {
		common.HandleError(c, err, "failed to get vehicle")
		return
	}

	common.SuccessResponse(c, v)
}

// SetVehicle registers or replaces the caller's vehicle
// PUT /api/v1/vehicle
func (h *Handler) SetVehicle(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	var req validation.VehicleInfo
	if !middleware.BindJSON(c, &req) {
		return
	}

	v, err := h.service.SetVehicle(c.Request.Context(), actor, req)
	if err != nil {
		common.HandleError(c, err, "failed to save vehicle")
		return
	}

	common.SuccessResponse(c, v)
}

// RegisterRoutes mounts the profile endpoints on an authenticated group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/profile", h.GetProfile)
	rg.PUT("/profile", h.UpdateProfile)

	children := rg.Group("/children", middleware.RequireRole(models.RoleParent))
	{
		children.GET("", h.ListChildren)
		children.POST("", h.AddChild)
	}

	vehicle := rg.Group("/vehicle", middleware.RequireRole(models.RoleDriver))
	{
		vehicle.GET("", h.GetVehicle)
		vehicle.PUT("", h.SetVehicle)
	}
}
