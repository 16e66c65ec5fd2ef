package sim

import (
	"time"

	"github.com/rustyeddy/papertrade/store"
)

// Event is emitted after every tick and on terminal transitions so
// presentation layers can mirror the latest persisted state. Delivery is
// best effort; the store holds the authoritative snapshot.
type Event struct {
	SimulationID string       `json:"simulation_id"`
	Status       store.Status `json:"status"`
	Value        float64      `json:"value"`
	WinRate      float64      `json:"win_rate"`
	ProfitLoss   float64      `json:"profit_loss"`
	TradeCount   int          `json:"trade_count"`
	Time         time.Time    `json:"time"`
}

// Publisher receives metrics events. Implementations must not block; a slow
// subscriber is the publisher's problem, not the runner's.
type Publisher interface {
	Publish(Event)
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
