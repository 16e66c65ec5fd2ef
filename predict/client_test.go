package predict

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "ACME", r.URL.Query().Get("symbol"))
		json.NewEncoder(w).Encode(Prediction{
			Symbol:     "ACME",
			Price:      105.5,
			Confidence: 0.8,
			Direction:  "up",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	p, err := c.Predict(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, "ACME", p.Symbol)
	assert.Equal(t, 105.5, p.Price)
	assert.Equal(t, 0.8, p.Confidence)
}

func TestPredictFillsSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]float64{"predicted_price": 99, "confidence": 0.7})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	p, err := c.Predict(context.Background(), "GLOBEX")
	require.NoError(t, err)
	assert.Equal(t, "GLOBEX", p.Symbol)
}

func TestPredictBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model reloading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var failures int
	c := NewClient(srv.URL, time.Second)
	c.OnError = func() { failures++ }

	_, err := c.Predict(context.Background(), "ACME")
	assert.Error(t, err)
	assert.Equal(t, 1, failures)
}

func TestPredictMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Predict(context.Background(), "ACME")
	assert.Error(t, err)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	for i := 0; i < 3; i++ {
		_, err := c.Predict(context.Background(), "ACME")
		require.Error(t, err)
	}
	require.Equal(t, 3, hits)

	// Breaker is open now: the request never reaches the server.
	_, err := c.Predict(context.Background(), "ACME")
	assert.Error(t, err)
	assert.Equal(t, 3, hits)
}

func TestRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(Prediction{Symbol: "ACME", Price: 100, Confidence: 0.9})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	// The limiter allows a burst of 5; the sixth immediate call is refused.
	for i := 0; i < 5; i++ {
		_, err := c.Predict(context.Background(), "ACME")
		require.NoError(t, err)
	}
	_, err := c.Predict(context.Background(), "ACME")
	assert.Error(t, err)
}
