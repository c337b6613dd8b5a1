package wallet

import (
	"github.com/gin-gonic/gin"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/middleware"
	"github.com/richxcame/schoolrun/pkg/pagination"
)

// Handler handles HTTP requests for wallets
type Handler struct {
	service *Service
}

// NewHandler creates a new wallet handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetWallet returns the caller's balance
// GET /api/v1/wallet
func (h *Handler) GetWallet(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	w, err := h.service.GetWallet(c.Request.Context(), userID)
	if err != nil {
		common.HandleError(c, err, "failed to get wallet")
		return
	}

	common.SuccessResponse(c, w)
}

// ListTransactions returns the caller's ledger
// GET /api/v1/wallet/transactions?limit=20&offset=0
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	params := pagination.ParseParams(c)
	txs, total, err := h.service.ListTransactions(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		common.HandleError(c, err, "failed to list transactions")
		return
	}

	common.SuccessResponseWithMeta(c, txs, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// Reconcile compares the cached balance with the ledger
// GET /api/v1/wallet/reconcile
func (h *Handler) Reconcile(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	rec, err := h.service.VerifyBalance(c.Request.Context(), userID)
	if err != nil {
		common.HandleError(c, err, "failed to verify balance")
		return
	}

	common.SuccessResponse(c, rec)
}

// Deposit tops up the caller's wallet
// POST /api/v1/wallet/deposit
func (h *Handler) Deposit(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	var req DepositRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	txn, err := h.service.Deposit(c.Request.Context(), actor, &req)
	if err != nil {
		common.HandleError(c, err, "failed to deposit funds")
		return
	}

	common.CreatedResponse(c, txn)
}

// Withdraw pays out the caller's earnings
// POST /api/v1/wallet/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	var req WithdrawRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	txn, err := h.service.Withdraw(c.Request.Context(), actor, &req)
	if err != nil {
		common.HandleError(c, err, "failed to withdraw funds")
		return
	}

	common.CreatedResponse(c, txn)
}

// RegisterRoutes mounts the wallet endpoints on an authenticated group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	w := rg.Group("/wallet")
	{
		w.GET("", h.GetWallet)
		w.GET("/transactions", h.ListTransactions)
		w.GET("/reconcile", h.Reconcile)
		w.POST("/deposit", h.Deposit)
		w.POST("/withdraw", h.Withdraw)
	}
}
