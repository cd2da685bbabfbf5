package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"trafficwatch-backend/internal/services"
	"trafficwatch-backend/pkg/localstore"
	"trafficwatch-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type IncidentHandler struct {
	incidentService *services.IncidentService
	validator       *validator.Validate
}

func NewIncidentHandler(incidentService *services.IncidentService) *IncidentHandler {
	return &IncidentHandler{
		incidentService: incidentService,
		validator:       validator.New(),
	}
}

// storeErrorResponse maps incident store failures onto HTTP statuses.
func storeErrorResponse(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, localstore.ErrNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, message, err)
	case errors.Is(err, localstore.ErrNotInitialized), errors.Is(err, localstore.ErrInitialization):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, message, err)
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, message, err)
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Valid numeric ID is required", err)
		return 0, false
	}
	return id, true
}

// GetIncidents retrieves incidents, optionally filtered by status or severity
func (h *IncidentHandler) GetIncidents(c *gin.Context) {
	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), c.Query("status"), c.Query("severity"))
	if err != nil {
		storeErrorResponse(c, "Failed to retrieve incidents", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Incidents retrieved successfully", incidents)
}

// GetIncident retrieves a single incident by ID
func (h *IncidentHandler) GetIncident(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	incident, err := h.incidentService.GetIncident(c.Request.Context(), id)
	if err != nil {
		storeErrorResponse(c, "Failed to retrieve incident", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Incident retrieved successfully", incident)
}

// GetFeed returns the merged triage feed of incidents and pending reports
func (h *IncidentHandler) GetFeed(c *gin.Context) {
	feed, err := h.incidentService.Feed(c.Request.Context())
	if err != nil {
		storeErrorResponse(c, "Failed to retrieve feed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Feed retrieved successfully", feed)
}

// CreateIncident records a new incident
func (h *IncidentHandler) CreateIncident(c *gin.Context) {
	var req services.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	incident, err := h.incidentService.CreateIncident(c.Request.Context(), &req)
	if err != nil {
		storeErrorResponse(c, "Failed to create incident", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Incident created successfully", incident)
}

// UpdateIncident applies a partial update to an incident
func (h *IncidentHandler) UpdateIncident(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UpdateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	incident, err := h.incidentService.UpdateIncident(c.Request.Context(), id, &req)
	if err != nil {
		storeErrorResponse(c, "Failed to update incident", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Incident updated successfully", incident)
}

// DeleteIncident removes an incident. Deleting an unknown ID succeeds.
func (h *IncidentHandler) DeleteIncident(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.incidentService.DeleteIncident(c.Request.Context(), id); err != nil {
		storeErrorResponse(c, "Failed to delete incident", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Incident deleted successfully", nil)
}

// ClearStore wipes the incident store
func (h *IncidentHandler) ClearStore(c *gin.Context) {
	if err := h.incidentService.ClearStore(c.Request.Context()); err != nil {
		storeErrorResponse(c, "Failed to clear incident store", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Incident store cleared successfully", nil)
}
