package handlers

import (
	"net/http"

	"github.com/ndewijer/portfolio-tracker/internal/service"
)

// SystemHandler handles system-related HTTP requests
type SystemHandler struct {
	systemService *service.SystemService
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(systemService *service.SystemService) *SystemHandler {
	return &SystemHandler{
		systemService: systemService,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string `json:"status"`
	Database     string `json:"database"`
	CachedPrices int    `json:"cachedPrices"`
	Error        string `json:"error,omitempty"`
}

// Health checks the health of the system and price cache connectivity.
//
// Endpoint: GET /api/system/health
// Response: 200 OK with HealthResponse
// Error: 503 Service Unavailable if the price cache cannot be reached
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.systemService.CacheEnabled() {
		respondJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Database: "disabled"})
		return
	}

	// Check database health
	if err := h.systemService.CheckHealth(); err != nil {
		response := HealthResponse{
			Status:   "unhealthy",
			Database: "disconnected",
			Error:    err.Error(),
		}
		respondJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	count, err := h.systemService.CachedPrices(r.Context())
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:   "unhealthy",
			Database: "connected",
			Error:    err.Error(),
		})
		return
	}

	// System is healthy
	response := HealthResponse{
		Status:       "healthy",
		Database:     "connected",
		CachedPrices: count,
	}
	respondJSON(w, http.StatusOK, response)
}

// VersionInfoResponse represents the version check response.
type VersionInfoResponse struct {
	AppVersion string `json:"app_version"`
}

// Version handles GET requests to retrieve the application version.
//
// Endpoint: GET /api/system/version
// Response: 200 OK with VersionInfoResponse
func (h *SystemHandler) Version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, VersionInfoResponse{AppVersion: h.systemService.CheckVersion()})
}
