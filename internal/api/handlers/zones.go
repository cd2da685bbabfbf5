package handlers

import (
	"net/http"
	"strconv"

	"trafficwatch-backend/internal/services"
	"trafficwatch-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type ZoneHandler struct {
	zoneService *services.ZoneService
	validator   *validator.Validate
}

func NewZoneHandler(zoneService *services.ZoneService) *ZoneHandler {
	return &ZoneHandler{
		zoneService: zoneService,
		validator:   validator.New(),
	}
}

// GetZones retrieves traffic zones, optionally filtered by district or
// congestion level
func (h *ZoneHandler) GetZones(c *gin.Context) {
	if district := c.Query("district"); district != "" {
		zones, err := h.zoneService.GetZonesByDistrict(district)
		if err != nil {
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve zones", err)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "Zones retrieved successfully", zones)
		return
	}

	if level := c.Query("congestion"); level != "" {
		zones, err := h.zoneService.GetZonesByCongestion(level)
		if err != nil {
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve zones", err)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "Zones retrieved successfully", zones)
		return
	}

	zones, err := h.zoneService.GetAllZones()
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve zones", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Zones retrieved successfully", zones)
}

// GetZone retrieves a specific zone by ID
func (h *ZoneHandler) GetZone(c *gin.Context) {
	zoneID := c.Param("id")
	if zoneID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Zone ID is required", nil)
		return
	}

	zone, err := h.zoneService.GetZoneByID(zoneID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Zone not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Zone retrieved successfully", zone)
}

// GetNearbyZones retrieves zones around a coordinate
func (h *ZoneHandler) GetNearbyZones(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Valid lat parameter is required", err)
		return
	}

	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Valid lng parameter is required", err)
		return
	}

	radiusKm := 5.0
	if raw := c.Query("radius"); raw != "" {
		if radiusKm, err = strconv.ParseFloat(raw, 64); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Valid radius parameter is required", err)
			return
		}
	}

	zones, err := h.zoneService.GetNearbyZones(lat, lng, radiusKm)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve zones", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Zones retrieved successfully", zones)
}

// CreateZone creates a new traffic zone
func (h *ZoneHandler) CreateZone(c *gin.Context) {
	var req services.CreateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	zone, err := h.zoneService.CreateZone(&req)
	if err != nil {
		utils.ErrorResponse(c, http.StatusConflict, "Failed to create zone", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Zone created successfully", zone)
}

// UpdateZone updates an existing zone
func (h *ZoneHandler) UpdateZone(c *gin.Context) {
	zoneID := c.Param("id")
	if zoneID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Zone ID is required", nil)
		return
	}

	var req services.UpdateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	zone, err := h.zoneService.UpdateZone(zoneID, &req)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to update zone", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Zone updated successfully", zone)
}

// ReportCongestion records a live congestion reading for a zone
func (h *ZoneHandler) ReportCongestion(c *gin.Context) {
	zoneID := c.Param("id")
	if zoneID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Zone ID is required", nil)
		return
	}

	var req struct {
		CongestionLevel string  `json:"congestionLevel" validate:"required,oneof=low moderate high severe"`
		AvgSpeed        float64 `json:"avgSpeed" validate:"min=0"`
		VehicleCount    int     `json:"vehicleCount" validate:"min=0"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	if err := h.zoneService.ReportCongestion(zoneID, req.CongestionLevel, req.AvgSpeed, req.VehicleCount); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to record congestion", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Congestion recorded successfully", nil)
}

// DeleteZone removes a traffic zone
func (h *ZoneHandler) DeleteZone(c *gin.Context) {
	zoneID := c.Param("id")
	if zoneID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Zone ID is required", nil)
		return
	}

	if err := h.zoneService.DeleteZone(zoneID); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to delete zone", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Zone deleted successfully", nil)
}
