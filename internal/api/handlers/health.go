package handlers

import (
	"net/http"
	"time"

	"trafficwatch-backend/internal/models"
	"trafficwatch-backend/pkg/database"
	"trafficwatch-backend/pkg/localstore"
	"trafficwatch-backend/pkg/redis"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthHandler reports on the three backends the dashboard depends on:
// MongoDB for the registry collections, Redis for caching and throttling,
// and the incident store layered on the same Redis keyspace.
type HealthHandler struct {
	db          *mongo.Database
	redisClient *redis.Client
	store       *localstore.Store
}

type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]interface{} `json:"services"`
}

func NewHealthHandler(db *mongo.Database, redisClient *redis.Client, store *localstore.Store) *HealthHandler {
	return &HealthHandler{
		db:          db,
		redisClient: redisClient,
		store:       store,
	}
}

// HealthCheck returns 200 when every backend answers, 503 otherwise.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Timestamp: time.Now(),
		Services:  make(map[string]interface{}),
	}

	healthy := true
	for name, check := range map[string]func(*gin.Context) map[string]interface{}{
		"mongodb":        h.checkMongoDB,
		"redis":          h.checkRedis,
		"incident_store": h.checkIncidentStore,
	} {
		status := check(c)
		response.Services[name] = status
		if ok, _ := status["healthy"].(bool); !ok {
			healthy = false
		}
	}

	if healthy {
		response.Status = "healthy"
		c.JSON(http.StatusOK, response)
		return
	}
	response.Status = "unhealthy"
	c.JSON(http.StatusServiceUnavailable, response)
}

func (h *HealthHandler) checkMongoDB(*gin.Context) map[string]interface{} {
	status := map[string]interface{}{"healthy": false}

	if h.db == nil {
		status["error"] = "database client not initialized"
		return status
	}

	if err := database.Health(h.db); err != nil {
		status["error"] = err.Error()
		return status
	}

	status["healthy"] = true
	return status
}

func (h *HealthHandler) checkRedis(*gin.Context) map[string]interface{} {
	status := map[string]interface{}{"healthy": false}

	if h.redisClient == nil {
		status["error"] = "redis client not initialized"
		return status
	}

	hs := h.redisClient.HealthCheck()
	status["healthy"] = hs.IsConnected
	status["connectionInfo"] = hs.ConnectionInfo
	status["responseTime"] = hs.ResponseTime.String()
	status["lastPing"] = hs.LastPing
	if hs.Error != "" {
		status["error"] = hs.Error
	}

	return status
}

// checkIncidentStore verifies the store answers queries, and surfaces its
// record counts since operators read this endpoint during an outage.
func (h *HealthHandler) checkIncidentStore(c *gin.Context) map[string]interface{} {
	status := map[string]interface{}{"healthy": false}

	if h.store == nil {
		status["error"] = "incident store not initialized"
		return status
	}

	incidents, err := h.store.CountIncidents(c.Request.Context())
	if err != nil {
		status["error"] = err.Error()
		return status
	}
	pending, err := h.store.CountUserReportsByStatus(c.Request.Context(), models.ReportStatusPending)
	if err != nil {
		status["error"] = err.Error()
		return status
	}

	status["healthy"] = true
	status["incidents"] = incidents
	status["pendingReports"] = pending
	return status
}
