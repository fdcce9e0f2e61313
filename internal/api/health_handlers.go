package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Uptime     string                     `json:"uptime" doc:"Time since the server started"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"storage": s.checkStorage(ctx),
		"sse":     s.checkSSEManager(),
		"ai":      s.checkAI(),
	}

	overall := "healthy"
	for _, c := range components {
		switch c.Status {
		case "unhealthy":
			overall = "unhealthy"
		case "degraded":
			if overall == "healthy" {
				overall = "degraded"
			}
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Uptime:     time.Since(s.startedAt).Round(time.Second).String(),
			Components: components,
		},
	}, nil
}

// checkStorage reads the books collection to prove the backend answers.
func (s *Server) checkStorage(ctx context.Context) ComponentHealth {
	if s.backend == nil {
		return ComponentHealth{Status: "degraded", Message: "storage not configured"}
	}

	start := time.Now()
	_, err := s.backend.GetAll(ctx, "books")
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "storage read failed",
		}
	}
	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
		Message: string(s.backend.Kind()) + " backend",
	}
}

func (s *Server) checkSSEManager() ComponentHealth {
	if s.sseManager == nil {
		return ComponentHealth{Status: "degraded", Message: "SSE manager not configured"}
	}

	switch n := s.sseManager.ClientCount(); n {
	case 0:
		return ComponentHealth{Status: "healthy", Message: "no connected clients"}
	case 1:
		return ComponentHealth{Status: "healthy", Message: "1 connected client"}
	default:
		return ComponentHealth{Status: "healthy", Message: strconv.Itoa(n) + " connected clients"}
	}
}

func (s *Server) checkAI() ComponentHealth {
	if s.services == nil || s.services.Chat == nil {
		return ComponentHealth{Status: "degraded", Message: "no AI provider configured"}
	}
	return ComponentHealth{Status: "healthy", Message: s.cfg.AI.Provider}
}
