// Package predict is the HTTP client for the external price-prediction
// service consulted by the external-signal strategy. Calls are bounded by a
// timeout, rate limited, and guarded by a circuit breaker so a degraded
// service slows nothing down and fails fast.
package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Prediction is one model output for a symbol.
type Prediction struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"predicted_price"`
	Confidence float64 `json:"confidence"`
	Direction  string  `json:"direction"`
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter

	// OnError, when set, is invoked once per failed Predict call.
	OnError func()
}

// NewClient builds a prediction client against baseURL. timeout bounds each
// request end to end.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	settings := gobreaker.Settings{
		Name:     "prediction-service",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("prediction breaker state change")
		},
	}

	return &Client{
		baseURL:    baseURL,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Predict asks the service for a prediction on symbol. Any failure (timeout,
// open breaker, bad status, malformed body) comes back as an error; callers
// treat all of them as "no signal this tick".
func (c *Client) Predict(ctx context.Context, symbol string) (Prediction, error) {
	if !c.limiter.Allow() {
		return Prediction{}, fmt.Errorf("predict: rate limited for %s", symbol)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx, symbol)
	})
	if err != nil {
		if c.OnError != nil {
			c.OnError()
		}
		return Prediction{}, err
	}
	return out.(Prediction), nil
}

func (c *Client) fetch(ctx context.Context, symbol string) (Prediction, error) {
	u := fmt.Sprintf("%s/predict?symbol=%s", c.baseURL, url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: request %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Prediction{}, fmt.Errorf("predict: unexpected status %d for %s", resp.StatusCode, symbol)
	}

	var p Prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Prediction{}, fmt.Errorf("predict: decode response: %w", err)
	}
	if p.Symbol == "" {
		p.Symbol = symbol
	}
	return p, nil
}
