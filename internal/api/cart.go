package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/korjavin/tienda/internal/cart"
	"github.com/korjavin/tienda/internal/notify"
	"github.com/korjavin/tienda/internal/order"
)

// maxQuantity is the largest quantity accepted per add.
const maxQuantity = 100

type cartResponse struct {
	ID string `json:"id"`
	order.Summary
	PriceWarning string `json:"price_warning,omitempty"`
}

func newCartResponse(id string, l *cart.Ledger) cartResponse {
	resp := cartResponse{ID: id, Summary: order.FormatSummary(l)}
	if resp.PriceErr != nil {
		resp.PriceWarning = resp.PriceErr.Error()
	}
	return resp
}

type addItemRequest struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

type checkoutRequest struct {
	CustomerName string `json:"customer_name"`
}

// CreateCart starts a new session with an empty cart.
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	id := h.Sessions.Create()
	slog.InfoContext(r.Context(), "cart created", "cart_id", id)
	writeJSON(w, http.StatusCreated, newCartResponse(id, cart.NewLedger()))
}

// GetCart returns the cart contents, totals and display text.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, func(l *cart.Ledger) error { return nil })
}

// DeleteCart ends the session.
func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Delete(r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem appends a line item for a catalog product, identified by its exact
// name and price as returned by the catalog endpoints.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Price = strings.TrimSpace(req.Price)
	if req.Name == "" || req.Price == "" {
		badRequest(w, "name and price are required")
		return
	}
	if req.Quantity < 1 || req.Quantity > maxQuantity {
		writeJSON(w, http.StatusUnprocessableEntity,
			errorResponse{Error: "quantity must be between 1 and " + strconv.Itoa(maxQuantity)})
		return
	}
	p, ok := h.Catalog.Find(req.Name, req.Price)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "product not in catalog"})
		return
	}

	h.withCart(w, r, func(l *cart.Ledger) error {
		return l.Add(p.Name, p.Price, req.Quantity)
	})
}

// RemoveItem drops the line item at the given position.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		badRequest(w, "index must be an integer")
		return
	}
	h.withCart(w, r, func(l *cart.Ledger) error { return l.RemoveAt(index) })
}

// ClearCart removes every line item but keeps the session.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, func(l *cart.Ledger) error {
		l.Clear()
		return nil
	})
}

// withCart runs fn on the session's ledger and answers with the cart state.
func (h *Handler) withCart(w http.ResponseWriter, r *http.Request, fn func(*cart.Ledger) error) {
	id := r.PathValue("id")
	start := time.Now()

	var resp cartResponse
	err := h.Sessions.With(id, func(l *cart.Ledger) error {
		if err := fn(l); err != nil {
			return err
		}
		resp = newCartResponse(id, l)
		return nil
	})
	h.cartHist.Since(start)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Checkout sends the order to the shop and empties the cart on success.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
	}

	id := r.PathValue("id")
	start := time.Now()

	var receipt order.Receipt
	err := h.Sessions.With(id, func(l *cart.Ledger) error {
		var err error
		receipt, err = h.Orders.Submit(r.Context(), l, strings.TrimSpace(req.CustomerName), h.Now())
		return err
	})
	h.checkoutHist.Since(start)
	if err != nil {
		if errors.Is(err, notify.ErrDeliveryFailed) {
			h.ordersFailed.Inc()
		}
		slog.WarnContext(r.Context(), "checkout failed", "cart_id", id, "error", err)
		writeError(w, r, err)
		return
	}

	h.ordersSent.Inc()
	slog.InfoContext(r.Context(), "order sent",
		"cart_id", id,
		"lines", receipt.Lines,
		"total", receipt.TotalText,
	)
	writeJSON(w, http.StatusOK, receipt)
}
