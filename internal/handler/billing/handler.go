package billing

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medflow/medflow-api/internal/handler"
	"github.com/medflow/medflow-api/internal/middleware"
	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/service/billing"
)

type Handler struct {
	service billing.Service
}

func NewHandler(service billing.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", auth.RequirePermission("invoice:create"), h.CreateInvoice)
		invoices.GET("", auth.RequirePermission("invoice:read"), h.ListInvoices)
		invoices.GET("/:id", auth.RequirePermission("invoice:read"), h.GetInvoice)
		invoices.POST("/:id/issue", auth.RequirePermission("invoice:create"), h.IssueInvoice)
		invoices.POST("/:id/pay", auth.RequirePermission("invoice:create"), h.PayInvoice)
		invoices.POST("/:id/cancel", auth.RequirePermission("invoice:create"), h.CancelInvoice)
	}
}

func (h *Handler) CreateInvoice(c *gin.Context) {
	var req model.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	actorID, err := handler.ActorID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user ID"))
		return
	}

	inv, err := h.service.CreateInvoice(c.Request.Context(), actorID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(inv))
}

func (h *Handler) GetInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice ID"))
		return
	}

	inv, err := h.service.GetInvoice(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(inv))
}

func (h *Handler) ListInvoices(c *gin.Context) {
	var filters model.InvoiceFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	invoices, err := h.service.ListInvoices(c.Request.Context(), &filters)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(invoices))
}

func (h *Handler) IssueInvoice(c *gin.Context) {
	h.transition(c, h.service.IssueInvoice, "invoice issued")
}

func (h *Handler) PayInvoice(c *gin.Context) {
	h.transition(c, h.service.PayInvoice, "invoice paid")
}

func (h *Handler) CancelInvoice(c *gin.Context) {
	h.transition(c, h.service.CancelInvoice, "invoice cancelled")
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, actorID, id uuid.UUID) error, msg string) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice ID"))
		return
	}

	actorID, err := handler.ActorID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user ID"))
		return
	}

	if err := fn(c.Request.Context(), actorID, id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"message": msg}))
}
