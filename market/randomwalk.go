package market

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RandomWalk generates synthetic bars for demo and development runs where no
// external data feed is configured. Each call to Next advances the symbol's
// price by a bounded random step around the previous close.
type RandomWalk struct {
	mu   sync.Mutex
	rng  *rand.Rand
	last map[string]float64

	// Volatility is the maximum relative move per bar (default 0.03).
	Volatility float64
}

func NewRandomWalk(seed int64) *RandomWalk {
	return &RandomWalk{
		rng:        rand.New(rand.NewSource(seed)),
		last:       make(map[string]float64),
		Volatility: 0.03,
	}
}

// Seed sets the starting price for a symbol. Symbols without a seed start
// at 100.
func (w *RandomWalk) Seed(symbol string, price float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last[symbol] = price
}

// Next produces the next bar for symbol, stamped now.
func (w *RandomWalk) Next(symbol string, now time.Time) Bar {
	w.mu.Lock()
	defer w.mu.Unlock()

	open, ok := w.last[symbol]
	if !ok || open <= 0 {
		open = 100
	}

	step := (w.rng.Float64()*2 - 1) * w.Volatility
	close := open * (1 + step)

	high := open
	if close > high {
		high = close
	}
	high *= 1 + w.rng.Float64()*w.Volatility/2

	low := open
	if close < low {
		low = close
	}
	low *= 1 - w.rng.Float64()*w.Volatility/2

	w.last[symbol] = close

	return Bar{
		Symbol: symbol,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: 1000 + w.rng.Float64()*9000,
		Time:   now,
	}
}

// Run emits a bar for each symbol every interval, delivering them to sink,
// until ctx is cancelled. Sink errors stop the feed.
func (w *RandomWalk) Run(ctx context.Context, interval time.Duration, symbols []string, sink func(Bar) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			for _, sym := range symbols {
				if err := sink(w.Next(sym, now)); err != nil {
					return err
				}
			}
		}
	}
}
