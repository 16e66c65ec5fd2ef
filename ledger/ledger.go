package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/papertrade/internal/id"
)

var (
	// ErrInsufficientFunds rejects a buy whose value exceeds the cash balance.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrInsufficientPosition rejects a sell whose quantity exceeds the held
	// position. Shorting is not supported.
	ErrInsufficientPosition = errors.New("ledger: insufficient position")
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Signal is a proposed trade produced by a strategy. Signals are transient:
// they live for one tick and only the resulting Trade is recorded.
type Signal struct {
	Symbol     string
	Side       Side
	Quantity   int64
	Price      float64
	Confidence float64
	Rationale  string
}

// Position is a holding in one symbol. AvgCost is the weighted-average cost
// basis, recomputed on every buy and untouched by sells.
type Position struct {
	Quantity int64
	AvgCost  float64
}

// Account is the cash balance plus open positions of one simulation. The
// Ledger that owns it is the only writer.
type Account struct {
	Balance   float64
	Positions map[string]Position
}

// Position returns the held position for symbol, zero-valued if none.
func (a Account) Position(symbol string) Position {
	return a.Positions[symbol]
}

// Trade is the immutable record of one executed signal. RealizedPL is set on
// sells only; buys leave it nil until a matching close.
type Trade struct {
	ID           string
	SimulationID string
	Symbol       string
	Side         Side
	Quantity     int64
	Price        float64
	Time         time.Time
	RealizedPL   *float64
}

// Ledger applies trade signals to one account, enforcing solvency, and keeps
// the append-only trade history. It is the single point of balance and
// position mutation; it is not safe for concurrent use and is meant to be
// owned exclusively by one simulation runner.
type Ledger struct {
	simID  string
	acct   Account
	trades []Trade
}

func New(simID string, initialBalance float64) *Ledger {
	return &Ledger{
		simID: simID,
		acct: Account{
			Balance:   initialBalance,
			Positions: make(map[string]Position),
		},
	}
}

// Account returns a snapshot copy of the account. Mutating the returned
// value does not affect the ledger.
func (l *Ledger) Account() Account {
	snap := Account{
		Balance:   l.acct.Balance,
		Positions: make(map[string]Position, len(l.acct.Positions)),
	}
	for sym, pos := range l.acct.Positions {
		snap.Positions[sym] = pos
	}
	return snap
}

// Trades returns the trade history, oldest first. The returned slice shares
// backing storage with the ledger; callers must not modify it.
func (l *Ledger) Trades() []Trade {
	return l.trades
}

// Apply executes one signal against the account. On success exactly one
// Trade is appended and returned. On failure the account is unchanged.
func (l *Ledger) Apply(sig Signal, now time.Time) (Trade, error) {
	if sig.Quantity <= 0 {
		return Trade{}, fmt.Errorf("ledger: non-positive quantity %d", sig.Quantity)
	}
	if sig.Price <= 0 {
		return Trade{}, fmt.Errorf("ledger: non-positive price %v", sig.Price)
	}

	switch sig.Side {
	case Buy:
		return l.buy(sig, now)
	case Sell:
		return l.sell(sig, now)
	default:
		return Trade{}, fmt.Errorf("ledger: unknown side %q", sig.Side)
	}
}

func (l *Ledger) buy(sig Signal, now time.Time) (Trade, error) {
	value := float64(sig.Quantity) * sig.Price
	if value > l.acct.Balance {
		return Trade{}, fmt.Errorf("%w: need %.2f, have %.2f",
			ErrInsufficientFunds, value, l.acct.Balance)
	}

	l.acct.Balance -= value

	pos := l.acct.Positions[sig.Symbol]
	newQty := pos.Quantity + sig.Quantity
	pos.AvgCost = (float64(pos.Quantity)*pos.AvgCost + value) / float64(newQty)
	pos.Quantity = newQty
	l.acct.Positions[sig.Symbol] = pos

	return l.record(sig, now, nil), nil
}

func (l *Ledger) sell(sig Signal, now time.Time) (Trade, error) {
	pos, ok := l.acct.Positions[sig.Symbol]
	if !ok || pos.Quantity < sig.Quantity {
		return Trade{}, fmt.Errorf("%w: want %d, hold %d %s",
			ErrInsufficientPosition, sig.Quantity, pos.Quantity, sig.Symbol)
	}

	l.acct.Balance += float64(sig.Quantity) * sig.Price

	realized := float64(sig.Quantity) * (sig.Price - pos.AvgCost)

	pos.Quantity -= sig.Quantity
	if pos.Quantity == 0 {
		delete(l.acct.Positions, sig.Symbol)
	} else {
		l.acct.Positions[sig.Symbol] = pos
	}

	return l.record(sig, now, &realized), nil
}

func (l *Ledger) record(sig Signal, now time.Time, realized *float64) Trade {
	tr := Trade{
		ID:           id.New(),
		SimulationID: l.simID,
		Symbol:       sig.Symbol,
		Side:         sig.Side,
		Quantity:     sig.Quantity,
		Price:        sig.Price,
		Time:         now,
		RealizedPL:   realized,
	}
	l.trades = append(l.trades, tr)
	return tr
}
