package handlers

import (
	"net/http"

	"trafficwatch-backend/internal/services"
	"trafficwatch-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type ReportHandler struct {
	incidentService *services.IncidentService
	validator       *validator.Validate
}

func NewReportHandler(incidentService *services.IncidentService) *ReportHandler {
	return &ReportHandler{
		incidentService: incidentService,
		validator:       validator.New(),
	}
}

// SubmitReport files a citizen report under the authenticated user
func (h *ReportHandler) SubmitReport(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	var req services.SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	report, err := h.incidentService.SubmitReport(c.Request.Context(), userID.(string), &req)
	if err != nil {
		storeErrorResponse(c, "Failed to submit report", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Report submitted successfully", report)
}

// GetReports retrieves reports for triage, optionally filtered by user or status
func (h *ReportHandler) GetReports(c *gin.Context) {
	reports, err := h.incidentService.ListReports(c.Request.Context(), c.Query("userId"), c.Query("status"))
	if err != nil {
		storeErrorResponse(c, "Failed to retrieve reports", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Reports retrieved successfully", reports)
}

// GetMyReports retrieves the authenticated user's own reports
func (h *ReportHandler) GetMyReports(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	reports, err := h.incidentService.ListReports(c.Request.Context(), userID.(string), "")
	if err != nil {
		storeErrorResponse(c, "Failed to retrieve reports", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Reports retrieved successfully", reports)
}

// GetReport retrieves a single report by ID
func (h *ReportHandler) GetReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	report, err := h.incidentService.GetReport(c.Request.Context(), id)
	if err != nil {
		storeErrorResponse(c, "Failed to retrieve report", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Report retrieved successfully", report)
}

// ApproveReport promotes a report into a confirmed incident
func (h *ReportHandler) ApproveReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.incidentService.ApproveReport(c.Request.Context(), id)
	if err != nil {
		// A partial result means the incident exists but the report status
		// update failed; surface both so the operator can reconcile.
		if result != nil && result.IncidentID != 0 {
			utils.ErrorResponse(c, http.StatusInternalServerError, "Report promoted but status update failed", err)
			return
		}
		storeErrorResponse(c, "Failed to approve report", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Report approved successfully", result)
}

// RejectReport marks a report as rejected
func (h *ReportHandler) RejectReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	report, err := h.incidentService.RejectReport(c.Request.Context(), id)
	if err != nil {
		storeErrorResponse(c, "Failed to reject report", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Report rejected successfully", report)
}
