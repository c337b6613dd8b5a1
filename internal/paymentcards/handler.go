package paymentcards

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/middleware"
)

// Handler handles HTTP requests for payment cards
type Handler struct {
	service *Service
}

// NewHandler creates a new payment cards handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListCards lists the caller's cards
// GET /api/v1/cards
func (h *Handler) ListCards(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	cards, err := h.service.ListCards(c.Request.Context(), userID)
	if err != nil {
		common.HandleError(c, err, "failed to list cards")
		return
	}

	common.SuccessResponse(c, cards)
}

// AddCard saves a new card
// POST /api/v1/cards
func (h *Handler) AddCard(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	var req AddCardRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	card, err := h.service.AddCard(c.Request.Context(), userID, &req)
	if err != nil {
		common.HandleError(c, err, "failed to add card")
		return
	}

	common.CreatedResponse(c, card)
}

// SetDefault makes a card the default
// PUT /api/v1/cards/:id/default
func (h *Handler) SetDefault(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.AppErrorResponse(c, common.NewBadRequestError("invalid card ID", err))
		return
	}

	if err := h.service.SetDefault(c.Request.Context(), userID, cardID); err != nil {
		common.HandleError(c, err, "failed to set default card")
		return
	}

	common.SuccessResponse(c, gin.H{"message": "default card updated"})
}

// DeleteCard removes a card
// DELETE /api/v1/cards/:id
func (h *Handler) DeleteCard(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.AppErrorResponse(c, common.NewBadRequestError("invalid card ID", err))
		return
	}

	if err := h.service.DeleteCard(c.Request.Context(), userID, cardID); err != nil {
		common.HandleError(c, err, "failed to delete card")
		return
	}

	common.SuccessResponse(c, gin.H{"message": "card deleted"})
}

// RegisterRoutes mounts the card endpoints on an authenticated group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	cards := rg.Group("/cards")
	{
		cards.GET("", h.ListCards)
		cards.POST("", h.AddCard)
		cards.PUT("/:id/default", h.SetDefault)
		cards.DELETE("/:id", h.DeleteCard)
	}
}
