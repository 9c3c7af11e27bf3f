package audit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medflow/medflow-api/internal/handler"
	"github.com/medflow/medflow-api/internal/middleware"
	"github.com/medflow/medflow-api/internal/service/audit"
)

type Handler struct {
	service audit.Service
}

func NewHandler(service audit.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	logs := rg.Group("/audit")
	{
		logs.GET("/logs", auth.RequirePermission("audit:read"), h.ListLogs)
		logs.GET("/stats", auth.RequirePermission("audit:read"), h.GetStats)
	}
}

func (h *Handler) ListLogs(c *gin.Context) {
	filters := make(map[string]interface{})

	if v := c.Query("user_id"); v != "" {
		filters["user_id"] = v
	}
	if v := c.Query("action"); v != "" {
		filters["action"] = v
	}
	if v := c.Query("entity_type"); v != "" {
		filters["entity_type"] = v
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("from must be RFC3339"))
			return
		}
		filters["from"] = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("to must be RFC3339"))
			return
		}
		filters["to"] = t
	}

	logs, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(logs))
}

func (h *Handler) GetStats(c *gin.Context) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("from must be RFC3339"))
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("to must be RFC3339"))
			return
		}
		to = t
	}

	stats, err := h.service.GetStats(c.Request.Context(), from, to)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(stats))
}
