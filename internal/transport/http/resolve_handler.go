package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "tickmap/internal/errors"
	"tickmap/internal/infrastructure"
	"tickmap/internal/mapping"
	"tickmap/pkg/contracts/domain"
)

var validate = validator.New()

// ResolveHandler exposes the symbol resolver over HTTP.
type ResolveHandler struct {
	service ResolverService
	reload  ReloadFunc
	logger  *slog.Logger
	metrics *infrastructure.ResolverMetrics
}

// NewResolveHandler creates a handler around a resolver service.
func NewResolveHandler(service ResolverService, reload ReloadFunc, logger *slog.Logger, metrics *infrastructure.ResolverMetrics) *ResolveHandler {
	return &ResolveHandler{service: service, reload: reload, logger: logger, metrics: metrics}
}

// Routes returns the router for resolver endpoints.
func (h *ResolveHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/resolve", h.Resolve)
	r.Get("/identities/{identity}/ticker", h.TickerOnDate)
	r.Get("/identities/{identity}/active", h.ActiveOn)
	r.Get("/identities/{identity}/history", h.History)
	r.Post("/reload", h.Reload)
	return r
}

// resolveResponse is the payload for GET /resolve.
type resolveResponse struct {
	Success bool                  `json:"success"`
	Symbol  domain.ResolvedSymbol `json:"symbol"`
	AsOf    string                `json:"as_of"`
}

// Resolve handles GET /resolve?ticker=X&date=yyyyMMdd.
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ticker := r.URL.Query().Get("ticker")
	if err := validate.Var(ticker, "required,min=1,max=10"); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.InvalidParameterError("ticker", err)))
		return
	}

	date, apiErr := dateParam(r, "date")
	if apiErr != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apiErr))
		return
	}

	symbol := h.service.ResolveTicker(ticker, date)
	h.metrics.RecordResolveQuery(ctx, symbol.HasMapping)

	h.logger.DebugContext(ctx, "ticker resolved",
		slog.String("ticker", ticker),
		slog.String("date", date.Format(mapping.DateFormat)),
		slog.Bool("has_mapping", symbol.HasMapping))

	render.JSON(w, r, resolveResponse{
		Success: true,
		Symbol:  symbol,
		AsOf:    date.Format(mapping.DateFormat),
	})
}

// tickerOnDateResponse is the payload for the identity ticker lookup.
type tickerOnDateResponse struct {
	Success  bool   `json:"success"`
	Identity string `json:"identity"`
	Ticker   string `json:"ticker"`
	Date     string `json:"date"`
}

// TickerOnDate handles GET /identities/{identity}/ticker?date=yyyyMMdd.
func (h *ResolveHandler) TickerOnDate(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	date, apiErr := dateParam(r, "date")
	if apiErr != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apiErr))
		return
	}

	ticker, ok := h.service.TickerOnDate(identity, date)
	if !ok {
		render.Render(w, r, apierrors.NewErrorResponse(
			apierrors.NotFoundError("tradable ticker for identity "+identity)))
		return
	}

	render.JSON(w, r, tickerOnDateResponse{
		Success:  true,
		Identity: identity,
		Ticker:   ticker,
		Date:     date.Format(mapping.DateFormat),
	})
}

// activeOnResponse is the payload for the activity check.
type activeOnResponse struct {
	Success  bool                `json:"success"`
	Identity string              `json:"identity"`
	Date     string              `json:"date"`
	Status   domain.SymbolStatus `json:"status"`
}

// ActiveOn handles GET /identities/{identity}/active?date=yyyyMMdd.
func (h *ResolveHandler) ActiveOn(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	date, apiErr := dateParam(r, "date")
	if apiErr != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apiErr))
		return
	}

	status := domain.SymbolStatusDelisted
	if h.service.IsActiveOn(identity, date) {
		status = domain.SymbolStatusActive
	}

	render.JSON(w, r, activeOnResponse{
		Success:  true,
		Identity: identity,
		Date:     date.Format(mapping.DateFormat),
		Status:   status,
	})
}

// historyResponse is the payload for the full-history lookup.
type historyResponse struct {
	Success  bool                  `json:"success"`
	Identity string                `json:"identity"`
	Changes  []domain.TickerChange `json:"changes"`
}

// History handles GET /identities/{identity}/history.
func (h *ResolveHandler) History(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	hist, ok := h.service.Index().History(identity)
	if !ok {
		render.Render(w, r, apierrors.NewErrorResponse(
			apierrors.NotFoundError("identity "+identity)))
		return
	}

	changes := make([]domain.TickerChange, 0, len(hist.Events))
	for _, ev := range hist.Events {
		changes = append(changes, domain.TickerChange{
			EffectiveDate: ev.EffectiveDate,
			Ticker:        ev.Ticker,
		})
	}

	render.JSON(w, r, historyResponse{Success: true, Identity: identity, Changes: changes})
}

// reloadResponse is the payload for POST /reload.
type reloadResponse struct {
	Success bool     `json:"success"`
	Loaded  int      `json:"loaded"`
	Dropped []string `json:"dropped,omitempty"`
}

// Reload handles POST /reload: rebuild the index from disk and swap
// it in atomically. In-flight queries keep the index they loaded.
func (h *ResolveHandler) Reload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.reload(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "index reload failed", slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.IndexRebuildError(err)))
		return
	}

	dropped := make([]string, 0, len(report.Dropped))
	for _, d := range report.Dropped {
		dropped = append(dropped, d.Identity)
	}

	h.logger.InfoContext(ctx, "index reloaded",
		slog.Int("loaded", report.Loaded),
		slog.Int("dropped", len(dropped)))

	render.JSON(w, r, reloadResponse{Success: true, Loaded: report.Loaded, Dropped: dropped})
}

// dateParam parses a required yyyyMMdd query parameter.
func dateParam(r *http.Request, name string) (time.Time, *apierrors.APIError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, apierrors.NewWithDetails(http.StatusBadRequest, "MISSING_PARAMETER",
			"Required parameter is missing", name)
	}
	date, err := time.Parse(mapping.DateFormat, raw)
	if err != nil {
		return time.Time{}, apierrors.InvalidParameterError(name, err)
	}
	return date, nil
}
