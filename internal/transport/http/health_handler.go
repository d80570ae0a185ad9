package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	service ResolverService
	started time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(service ResolverService) *HealthHandler {
	return &HealthHandler{service: service, started: time.Now()}
}

// Routes returns the router for health endpoints.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Health)
	return r
}

type healthResponse struct {
	Status     string `json:"status"`
	Identities int    `json:"identities"`
	UptimeSec  int64  `json:"uptime_seconds"`
}

// Health handles GET /healthz. The service is ready once the index
// holds at least one history; an empty index still answers queries
// (everything passes through) so it reports degraded, not down.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	identities := h.service.Index().Identities()
	status := "ok"
	if identities == 0 {
		status = "degraded"
	}

	render.JSON(w, r, healthResponse{
		Status:     status,
		Identities: identities,
		UptimeSec:  int64(time.Since(h.started).Seconds()),
	})
}
