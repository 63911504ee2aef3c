package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/korjavin/tienda/internal/cart"
	"github.com/korjavin/tienda/internal/catalog"
	"github.com/korjavin/tienda/internal/metrics"
	"github.com/korjavin/tienda/internal/notify"
	"github.com/korjavin/tienda/internal/order"
	"github.com/korjavin/tienda/internal/session"
	"github.com/korjavin/tienda/internal/store"
)

// Suggester answers fuzzy name queries; *store.Store implements it.
type Suggester interface {
	Suggest(q string, limit int) ([]store.Record, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Catalog   *catalog.Index
	Suggester Suggester
	Manifest  *store.Manifest
	Sessions  *session.Store
	Orders    *order.Dispatcher
	Metrics   *metrics.Registry
	Now       func() time.Time

	searchHist   *metrics.Histogram
	suggestHist  *metrics.Histogram
	cartHist     *metrics.Histogram
	checkoutHist *metrics.Histogram
	ordersSent   *metrics.Counter
	ordersFailed *metrics.Counter
}

func (h *Handler) init() {
	if h.Metrics == nil {
		h.Metrics = metrics.NewRegistry()
	}
	if h.Now == nil {
		h.Now = time.Now
	}
	h.searchHist = h.Metrics.Histogram("catalog_search", metrics.BucketsLookup)
	h.suggestHist = h.Metrics.Histogram("catalog_suggest", metrics.BucketsRemote)
	h.cartHist = h.Metrics.Histogram("cart_update", metrics.BucketsLookup)
	h.checkoutHist = h.Metrics.Histogram("checkout", metrics.BucketsRemote)
	h.ordersSent = h.Metrics.Counter("orders_sent")
	h.ordersFailed = h.Metrics.Counter("orders_failed")
}

// Health returns a liveness check with catalog and manifest metadata.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":   "ok",
		"products": h.Catalog.Len(),
		"sessions": h.Sessions.Len(),
	}
	if h.Manifest != nil {
		resp["schema_version"] = h.Manifest.SchemaVersion
		resp["build_time"] = h.Manifest.BuildTime
		resp["source"] = h.Manifest.Source
	}
	writeJSON(w, http.StatusOK, resp)
}

// MetricsReport serves latency percentiles and counters.
func (h *Handler) MetricsReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Metrics.Report())
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, cart.ErrIndexOutOfRange):
		status = http.StatusNotFound
	case errors.Is(err, cart.ErrInvalidQuantity):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, order.ErrEmptyOrder):
		status = http.StatusConflict
	case errors.Is(err, notify.ErrDeliveryFailed):
		status = http.StatusBadGateway
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
