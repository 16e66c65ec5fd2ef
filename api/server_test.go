package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/sim"
	"github.com/rustyeddy/papertrade/store"
)

func testServer(t *testing.T) (*Server, *store.Memory) {
	t.Helper()

	st := store.NewMemory()
	bars := market.NewBarStore()
	reg := sim.NewRegistry(sim.Options{
		Bars:   bars,
		Store:  st,
		Logger: zerolog.Nop(),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		reg.StopAll(ctx)
	})

	srv := NewServer(ServerConfig{Addr: "127.0.0.1:0"}, reg, st, nil, nil, zerolog.Nop())
	return srv, st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func tradeFixture(simID string) ledger.Trade {
	return ledger.Trade{
		ID:           "t-1",
		SimulationID: simID,
		Symbol:       "ACME",
		Side:         ledger.Buy,
		Quantity:     10,
		Price:        100,
		Time:         time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestStartListStop(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/simulations", map[string]any{
		"symbol":                "ACME",
		"strategy":              "momentum",
		"initial_balance":       10000,
		"tick_interval_seconds": 3600,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	simID := decode[startResponse](t, rec).SimulationID
	require.NotEmpty(t, simID)

	rec = doJSON(t, h, http.MethodGet, "/simulations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]simulationResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, simID, list[0].ID)
	assert.Equal(t, "momentum", list[0].Strategy)

	rec = doJSON(t, h, http.MethodDelete, "/simulations/"+simID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/simulations/"+simID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[simulationResponse](t, rec)
	assert.Equal(t, string(store.StatusStopped), got.Status)
	assert.NotNil(t, got.EndTime)
}

func TestStartValidation(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/simulations", map[string]any{
		"strategy":        "momentum",
		"initial_balance": 10000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/simulations", map[string]any{
		"symbol":          "ACME",
		"strategy":        "astrology",
		"initial_balance": 10000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/simulations", bytes.NewBufferString("not json"))
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestUnknownSimulation(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.Handler()

	assert.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodGet, "/simulations/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodDelete, "/simulations/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodGet, "/simulations/nope/trades", nil).Code)
}

func TestTradesListing(t *testing.T) {
	srv, st := testServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/simulations", map[string]any{
		"id":                    "sim-t",
		"symbol":                "ACME",
		"strategy":              "momentum",
		"initial_balance":       10000,
		"tick_interval_seconds": 3600,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Seed a trade directly; the runner's ticks are an hour apart.
	require.NoError(t, st.AppendTrade(context.Background(), tradeFixture("sim-t")))

	rec = doJSON(t, h, http.MethodGet, "/simulations/sim-t/trades", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	trades := decode[[]tradeResponse](t, rec)
	require.Len(t, trades, 1)
	assert.Equal(t, "buy", trades[0].Side)
	assert.Equal(t, int64(10), trades[0].Quantity)
}
