package appointment

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medflow/medflow-api/internal/handler"
	"github.com/medflow/medflow-api/internal/middleware"
	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/service/scheduling"
)

type Handler struct {
	service scheduling.Service
}

func NewHandler(service scheduling.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	appointments := rg.Group("/appointments")
	{
		appointments.POST("", auth.RequirePermission("appointment:create"), h.BookAppointment)
		appointments.GET("", auth.RequirePermission("appointment:read"), h.ListAppointments)
		appointments.GET("/:id", auth.RequirePermission("appointment:read"), h.GetAppointment)
		appointments.POST("/:id/cancel", auth.RequirePermission("appointment:cancel"), h.CancelAppointment)
		appointments.POST("/:id/complete", auth.RequirePermission("appointment:complete"), h.CompleteAppointment)
		appointments.POST("/:id/reschedule", auth.RequirePermission("appointment:update"), h.RescheduleAppointment)
	}

	doctors := rg.Group("/doctors")
	{
		doctors.GET("/:id/availability", auth.RequirePermission("appointment:read"), h.GetAvailability)
	}
}

func (h *Handler) BookAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	actorID, err := handler.ActorID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user ID"))
		return
	}

	apt, err := h.service.BookAppointment(c.Request.Context(), actorID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(apt))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	apt, err := h.service.GetAppointment(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	var filters model.AppointmentFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	appointments, err := h.service.ListAppointments(c.Request.Context(), &filters)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	actorID, err := handler.ActorID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user ID"))
		return
	}

	if err := h.service.CancelAppointment(c.Request.Context(), actorID, id, req.Reason); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"message": "appointment cancelled"}))
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	actorID, err := handler.ActorID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user ID"))
		return
	}

	if err := h.service.CompleteAppointment(c.Request.Context(), actorID, id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"message": "appointment completed"}))
}

func (h *Handler) RescheduleAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	var req struct {
		StartTime time.Time `json:"start_time" binding:"required"`
		EndTime   time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	actorID, err := handler.ActorID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user ID"))
		return
	}

	apt, err := h.service.RescheduleAppointment(c.Request.Context(), actorID, id, req.StartTime, req.EndTime)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) GetAvailability(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}

	day, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("date must be YYYY-MM-DD"))
		return
	}

	slotMinutes := 30
	if v := c.Query("slot_minutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid slot_minutes"))
			return
		}
		slotMinutes = n
	}

	from := time.Date(day.Year(), day.Month(), day.Day(), 8, 0, 0, 0, day.Location())
	to := time.Date(day.Year(), day.Month(), day.Day(), 18, 0, 0, 0, day.Location())

	slots, err := h.service.GetAvailability(c.Request.Context(), doctorID, from, to, time.Duration(slotMinutes)*time.Minute)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(slots))
}
