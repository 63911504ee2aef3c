package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korjavin/tienda/internal/catalog"
	"github.com/korjavin/tienda/internal/notify"
	"github.com/korjavin/tienda/internal/order"
	"github.com/korjavin/tienda/internal/session"
	"github.com/korjavin/tienda/internal/store"
)

const testKey = "secret"

type suggesterStub struct {
	records []store.Record
	limit   int
}

func (s *suggesterStub) Suggest(q string, limit int) ([]store.Record, error) {
	s.limit = limit
	return s.records, nil
}

type notifierStub struct {
	err     error
	payload string
}

func (n *notifierStub) Send(_ context.Context, payload, _ string) error {
	n.payload = payload
	return n.err
}

type cartBody struct {
	ID            string `json:"id"`
	DisplayText   string `json:"display_text"`
	TotalText     string `json:"total_text"`
	TotalQuantity int    `json:"total_quantity"`
	Lines         []struct {
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
		Text     string `json:"text"`
	} `json:"lines"`
}

type testServer struct {
	mux      *http.ServeMux
	notifier *notifierStub
	suggest  *suggesterStub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	idx, _ := catalog.Build([]catalog.Row{
		{Name: "Pan Lactal", Price: "1500"},
		{Name: "Café Molido", Price: "2.350,50"},
		{Name: "Pan Integral", Price: "1800"},
	})
	ts := &testServer{
		mux:      http.NewServeMux(),
		notifier: &notifierStub{},
		suggest:  &suggesterStub{records: []store.Record{{Seq: 1, Name: "Café Molido", Price: "2.350,50"}}},
	}
	h := &Handler{
		Catalog:   idx,
		Suggester: ts.suggest,
		Sessions:  session.NewStore(time.Hour),
		Orders:    order.NewDispatcher(ts.notifier, "whatsapp:+5491100000000"),
		Now:       func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	RegisterRoutes(ts.mux, []string{testKey}, h)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", testKey)
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) newCart(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/carts", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var c cartBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	require.NotEmpty(t, c.ID)
	return c.ID
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartBody {
	t.Helper()
	var c cartBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	return c
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/catalog/search?q=pan", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "Pan Lactal", resp.Results[0].Name)
	assert.Equal(t, "Pan Integral", resp.Results[1].Name)
}

func TestSearch_AccentInsensitive(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/catalog/search?q=CAFE", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Café Molido", resp.Results[0].Name)
}

func TestSearch_MissingQuery(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/v1/catalog/search?q=%20", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPrefix(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/catalog/prefix?q=molido", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Results)
}

func TestGroups(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/catalog/initials?filter=pan", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Groups []catalog.Group `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Groups, 2)
	assert.Equal(t, "PI", resp.Groups[0].Initials)
	assert.Equal(t, "PL", resp.Groups[1].Initials)
}

func TestSuggest(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/catalog/suggest?q=cafe+molid&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, ts.suggest.limit)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "2.350,50", resp.Results[0].Price)
}

func TestAPIKeyRequired(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/search?q=pan", nil)
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCartFlow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.newCart(t)
	base := "/api/v1/carts/" + id

	rec := ts.do(t, http.MethodPost, base+"/items", `{"name":"Pan Lactal","price":"1500","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodPost, base+"/items", `{"name":"Pan Integral","price":"1800","quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	c := decodeCart(t, ts.do(t, http.MethodGet, base, ""))
	assert.Equal(t, id, c.ID)
	assert.Equal(t, 3, c.TotalQuantity)
	assert.Equal(t, "4.800,00", c.TotalText)
	require.Len(t, c.Lines, 2)
	assert.Equal(t, "2 x Pan Lactal ($1500 c/u)", c.Lines[0].Text)

	rec = ts.do(t, http.MethodDelete, base+"/items/0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	c = decodeCart(t, rec)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "Pan Integral", c.Lines[0].Name)

	rec = ts.do(t, http.MethodDelete, base+"/items", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No hay productos en el carrito.", decodeCart(t, rec).DisplayText)

	rec = ts.do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddItem_Validation(t *testing.T) {
	ts := newTestServer(t)
	base := "/api/v1/carts/" + ts.newCart(t)

	tests := []struct {
		body string
		want int
	}{
		{`{"name":"Pan Lactal","price":"1500","quantity":0}`, http.StatusUnprocessableEntity},
		{`{"name":"Pan Lactal","price":"1500","quantity":101}`, http.StatusUnprocessableEntity},
		{`{"name":"Pan Lactal","price":"1500","quantity":-3}`, http.StatusUnprocessableEntity},
		{`{"name":" ","price":"1500","quantity":1}`, http.StatusBadRequest},
		{`{"name":"Pan Lactal","price":"","quantity":1}`, http.StatusBadRequest},
		{`not json`, http.StatusBadRequest},
		{`{"name":"Pan Lactal","price":"0.01","quantity":1}`, http.StatusNotFound},
		{`{"name":"Pan Lactal","price":"1e999999999","quantity":1}`, http.StatusNotFound},
		{`{"name":"Pan Dulce","price":"1500","quantity":1}`, http.StatusNotFound},
		{`{"name":"Pan Lactal","price":"1500","quantity":100}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, base+"/items", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	c := decodeCart(t, ts.do(t, http.MethodGet, base, ""))
	assert.Equal(t, 100, c.TotalQuantity)
	assert.Equal(t, "150.000,00", c.TotalText)
}

func TestAddItem_ForgedPriceLeavesCartUntouched(t *testing.T) {
	ts := newTestServer(t)
	base := "/api/v1/carts/" + ts.newCart(t)

	rec := ts.do(t, http.MethodPost, base+"/items", `{"name":"Café Molido","price":"0.01","quantity":2}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, base+"/items", `{"name":"Café Molido","price":"2.350,50","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := decodeCart(t, rec)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "4.701,00", c.TotalText)
}

func TestRemoveItem_Errors(t *testing.T) {
	ts := newTestServer(t)
	base := "/api/v1/carts/" + ts.newCart(t)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, base+"/items/0", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodDelete, base+"/items/x", "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/v1/carts/nope/items/0", "").Code)
}

func TestCheckout(t *testing.T) {
	ts := newTestServer(t)
	base := "/api/v1/carts/" + ts.newCart(t)
	ts.do(t, http.MethodPost, base+"/items", `{"name":"Pan Lactal","price":"1500","quantity":2}`)

	rec := ts.do(t, http.MethodPost, base+"/checkout", `{"customer_name":"Ana"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var receipt order.Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.Equal(t, "Ana", receipt.Customer)
	assert.Equal(t, "3.000,00", receipt.TotalText)
	assert.Contains(t, ts.notifier.payload, "*Cliente:* Ana")

	c := decodeCart(t, ts.do(t, http.MethodGet, base, ""))
	assert.Empty(t, c.Lines)

	m := ts.do(t, http.MethodGet, "/metrics", "")
	assert.Contains(t, m.Body.String(), `"orders_sent":1`)
}

func TestCheckout_Empty(t *testing.T) {
	ts := newTestServer(t)
	base := "/api/v1/carts/" + ts.newCart(t)

	rec := ts.do(t, http.MethodPost, base+"/checkout", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckout_DeliveryFailureKeepsCart(t *testing.T) {
	ts := newTestServer(t)
	ts.notifier.err = fmt.Errorf("%w: boom", notify.ErrDeliveryFailed)
	base := "/api/v1/carts/" + ts.newCart(t)
	ts.do(t, http.MethodPost, base+"/items", `{"name":"Pan Lactal","price":"1500","quantity":1}`)

	rec := ts.do(t, http.MethodPost, base+"/checkout", `{"customer_name":"Ana"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	c := decodeCart(t, ts.do(t, http.MethodGet, base, ""))
	assert.Len(t, c.Lines, 1)

	m := ts.do(t, http.MethodGet, "/metrics", "")
	assert.Contains(t, m.Body.String(), `"orders_failed":1`)
}
