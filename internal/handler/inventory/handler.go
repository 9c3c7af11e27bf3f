package inventory

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medflow/medflow-api/internal/handler"
	"github.com/medflow/medflow-api/internal/middleware"
	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/service/inventory"
)

type Handler struct {
	service inventory.Service
}

func NewHandler(service inventory.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	items := rg.Group("/inventory")
	{
		items.POST("", auth.RequirePermission("inventory:write"), h.CreateItem)
		items.GET("", auth.RequirePermission("inventory:read"), h.ListItems)
		items.GET("/:id", auth.RequirePermission("inventory:read"), h.GetItem)
		items.DELETE("/:id", auth.RequirePermission("inventory:write"), h.DeleteItem)
		items.POST("/:id/adjust", auth.RequirePermission("inventory:adjust"), h.AdjustStock)
	}
}

func (h *Handler) CreateItem(c *gin.Context) {
	var req model.CreateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	actorID, err := handler.ActorID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user ID"))
		return
	}

	item, err := h.service.CreateItem(c.Request.Context(), actorID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(item))
}

func (h *Handler) GetItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid item ID"))
		return
	}

	item, err := h.service.GetItem(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(item))
}

func (h *Handler) ListItems(c *gin.Context) {
	var filters model.InventoryFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	items, err := h.service.ListItems(c.Request.Context(), &filters)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) DeleteItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid item ID"))
		return
	}

	actorID, err := handler.ActorID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user ID"))
		return
	}

	if err := h.service.DeleteItem(c.Request.Context(), actorID, id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"message": "item deleted"}))
}

func (h *Handler) AdjustStock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid item ID"))
		return
	}

	var req model.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	actorID, err := handler.ActorID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user ID"))
		return
	}

	item, err := h.service.AdjustStock(c.Request.Context(), actorID, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(item))
}
