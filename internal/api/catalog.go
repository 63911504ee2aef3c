package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/korjavin/tienda/internal/catalog"
)

type searchResponse struct {
	Query   string            `json:"query"`
	Count   int               `json:"count"`
	Results []catalog.Product `json:"results"`
}

// Search finds products whose name contains q, ignoring case and accents.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, h.Catalog.SearchByContent)
}

// Prefix finds products whose name starts with q.
func (h *Handler) Prefix(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, h.Catalog.SearchByPrefix)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, fn func(string) []catalog.Product) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		badRequest(w, "missing query parameter 'q'")
		return
	}

	start := time.Now()
	results := fn(q)
	h.searchHist.Since(start)

	slog.DebugContext(r.Context(), "catalog search", "query", q, "results", len(results))
	writeJSON(w, http.StatusOK, searchResponse{Query: q, Count: len(results), Results: results})
}

// Groups lists products grouped by initials, optionally filtered.
func (h *Handler) Groups(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	groups := h.Catalog.Groups(r.URL.Query().Get("filter"))
	h.searchHist.Since(start)
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

// Suggest runs a typo-tolerant search against the full-text index.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		badRequest(w, "missing query parameter 'q'")
		return
	}

	limit := 10
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if n, err := strconv.Atoi(ls); err == nil && n > 0 {
			limit = n
		}
	}

	start := time.Now()
	records, err := h.Suggester.Suggest(q, limit)
	h.suggestHist.Since(start)
	if err != nil {
		writeError(w, r, err)
		return
	}

	results := make([]catalog.Product, len(records))
	for i, rec := range records {
		results[i] = catalog.Product{Name: rec.Name, Price: rec.Price}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: q, Count: len(results), Results: results})
}
