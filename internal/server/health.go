package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse represents the JSON response for health endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Service   string            `json:"service"`
	Version   string            `json:"version,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// LivenessHandler checks if the server is running and accepting requests.
// Always returns 200 OK.
func (s *Server) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.logger.DebugContext(ctx, "liveness check requested")

	writeHealth(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   serviceName,
		Version:   version,
	})
}

// ReadinessHandler returns 200 when both scoped-directory roots are usable
// and both engine binaries resolve, 503 otherwise
func (s *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.logger.DebugContext(ctx, "readiness check requested")

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   serviceName,
		Version:   version,
		Checks:    make(map[string]string),
	}

	ready := true
	check := func(name string, ok bool, good, bad string) {
		if ok {
			response.Checks[name] = good
			return
		}
		response.Checks[name] = bad
		ready = false
	}

	check("workspaces", s.workspaces.IsAccessible(), "accessible", "inaccessible")
	check("profiles", s.profiles.IsAccessible(), "accessible", "inaccessible")
	check("libreoffice", s.document.IsAvailable(), "available", "not found")
	check("ffmpeg", s.media.IsAvailable(), "available", "not found")

	if !ready {
		response.Status = "unhealthy"
		writeHealth(w, http.StatusServiceUnavailable, response)
		s.logger.ErrorContext(ctx, "readiness check failed", "checks", response.Checks)
		return
	}

	writeHealth(w, http.StatusOK, response)
	s.logger.DebugContext(ctx, "readiness check completed", "status", "healthy")
}

func writeHealth(w http.ResponseWriter, status int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
