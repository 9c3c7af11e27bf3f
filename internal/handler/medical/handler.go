package medical

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medflow/medflow-api/internal/handler"
	"github.com/medflow/medflow-api/internal/middleware"
	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/service/medical"
)

type Handler struct {
	service medical.Service
}

func NewHandler(service medical.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	encounters := rg.Group("/encounters")
	{
		encounters.POST("", auth.RequirePermission("encounter:create"), h.CreateEncounter)
		encounters.GET("/:id", auth.RequirePermission("encounter:read"), h.GetEncounter)
		encounters.POST("/:id/complete", auth.RequirePermission("encounter:write"), h.CompleteEncounter)
		encounters.POST("/:id/vitals", auth.RequirePermission("vitals:record"), h.RecordVitals)
		encounters.POST("/:id/diagnoses", auth.RequirePermission("diagnosis:create"), h.AddDiagnosis)
	}

	patients := rg.Group("/patients")
	{
		patients.GET("/:id/summary", auth.RequirePermission("encounter:read"), h.GetClinicalSummary)
	}
}

func (h *Handler) CreateEncounter(c *gin.Context) {
	var req model.CreateEncounterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	actorID, err := handler.ActorID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user ID"))
		return
	}

	enc, err := h.service.CreateEncounter(c.Request.Context(), actorID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(enc))
}

func (h *Handler) GetEncounter(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid encounter ID"))
		return
	}

	enc, err := h.service.GetEncounter(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(enc))
}

func (h *Handler) CompleteEncounter(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid encounter ID"))
		return
	}

	var req struct {
		AssessmentPlan string `json:"assessment_plan"`
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

	if err := h.service.CompleteEncounter(c.Request.Context(), actorID, id, req.AssessmentPlan); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"message": "encounter completed"}))
}

func (h *Handler) RecordVitals(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid encounter ID"))
		return
	}

	var vitals model.VitalSigns
	if err := c.ShouldBindJSON(&vitals); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	actorID, err := handler.ActorID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user ID"))
		return
	}

	alerts, err := h.service.RecordVitals(c.Request.Context(), actorID, id, &vitals)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"vitals": vitals,
		"alerts": alerts,
	}))
}

func (h *Handler) AddDiagnosis(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid encounter ID"))
		return
	}

	var req model.CreateDiagnosisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	actorID, err := handler.ActorID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user ID"))
		return
	}

	d, err := h.service.AddDiagnosis(c.Request.Context(), actorID, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(d))
}

func (h *Handler) GetClinicalSummary(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	summary, err := h.service.GetClinicalSummary(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}
