package api

import (
	"net/http"
	"time"

	"github.com/bookswapapp/bookswap-server/internal/http/response"
)

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
}

// handleHealthCheck reports overall server health with component checks.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]ComponentHealth)
	overall := "healthy"

	start := time.Now()
	if err := s.store.Ping(); err != nil {
		components["database"] = ComponentHealth{
			Status:  "unhealthy",
			Message: err.Error(),
		}
		overall = "unhealthy"
	} else {
		components["database"] = ComponentHealth{
			Status:  "healthy",
			Latency: time.Since(start).String(),
		}
	}

	resp := HealthResponse{Status: overall, Components: components}

	status := http.StatusOK
	if overall != "healthy" {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, resp, s.logger)
}
