// Package pricing resolves currency rates used to size order deposits.
package pricing

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

// LedgerUnit is the symbol of the native ledger currency. Every deposit is
// sized as rate(src_currency -> LedgerUnit) * amount.
const LedgerUnit = "QRK"

// ErrNoFreshQuote indicates that no oracle produced a quote within the
// configured freshness window.
var ErrNoFreshQuote = errors.New("pricing: no fresh oracle quote available")

// PriceQuote captures an exchange rate for a specific currency pair along with
// the timestamp reported by the upstream oracle and the oracle identifier.
type PriceQuote struct {
	Rate      *big.Rat
	Timestamp time.Time
	Source    string
}

// Clone returns a deep copy of the quote.
func (q PriceQuote) Clone() PriceQuote {
	clone := PriceQuote{Timestamp: q.Timestamp, Source: q.Source}
	if q.Rate != nil {
		clone.Rate = new(big.Rat).Set(q.Rate)
	}
	return clone
}

// PriceOracle resolves an exchange rate for the provided base/quote pair.
type PriceOracle interface {
	GetRate(base, quote string) (PriceQuote, error)
}

func normaliseSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ManualOracle provides an in-memory oracle used for tests and operator
// overrides.
type ManualOracle struct {
	mu     sync.RWMutex
	quotes map[string]PriceQuote
}

// NewManualOracle constructs an empty manual oracle instance.
func NewManualOracle() *ManualOracle {
	return &ManualOracle{quotes: make(map[string]PriceQuote)}
}

func manualKey(base, quote string) string {
	return normaliseSymbol(base) + "_" + normaliseSymbol(quote)
}

// SetDecimal records the supplied decimal rate for the pair.
func (m *ManualOracle) SetDecimal(base, quote, rate string, ts time.Time) error {
	if m == nil {
		return fmt.Errorf("manual oracle not configured")
	}
	rat, err := ParseRate(rate)
	if err != nil {
		return fmt.Errorf("manual oracle: %w", err)
	}
	m.Set(base, quote, rat, ts)
	return nil
}

// Set records the rate for the pair.
func (m *ManualOracle) Set(base, quote string, rate *big.Rat, ts time.Time) {
	if m == nil || rate == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[manualKey(base, quote)] = PriceQuote{Rate: new(big.Rat).Set(rate), Timestamp: ts, Source: "manual"}
}

// GetRate implements PriceOracle.
func (m *ManualOracle) GetRate(base, quote string) (PriceQuote, error) {
	if m == nil {
		return PriceQuote{}, fmt.Errorf("manual oracle not configured")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quotes[manualKey(base, quote)]
	if !ok {
		return PriceQuote{}, fmt.Errorf("manual oracle: no rate for %s/%s", normaliseSymbol(base), normaliseSymbol(quote))
	}
	return q.Clone(), nil
}

// StaticOracle returns the same rate for every pair. It reproduces the fixed
// conversion rate the contract shipped with before a live feed was attached.
type StaticOracle struct {
	Rate  *big.Rat
	NowFn func() time.Time
}

// NewStaticOracle returns a StaticOracle quoting rate.
func NewStaticOracle(rate *big.Rat) *StaticOracle {
	return &StaticOracle{Rate: rate, NowFn: time.Now}
}

// GetRate implements PriceOracle.
func (s *StaticOracle) GetRate(base, quote string) (PriceQuote, error) {
	if s == nil || s.Rate == nil {
		return PriceQuote{}, fmt.Errorf("static oracle not configured")
	}
	if normaliseSymbol(base) == "" || normaliseSymbol(quote) == "" {
		return PriceQuote{}, fmt.Errorf("static oracle: base and quote required")
	}
	now := time.Now
	if s.NowFn != nil {
		now = s.NowFn
	}
	return PriceQuote{Rate: new(big.Rat).Set(s.Rate), Timestamp: now(), Source: "static"}, nil
}

// Aggregator consults registered oracles in priority order until a fresh
// quote is obtained.
type Aggregator struct {
	mu       sync.RWMutex
	priority []string
	oracles  map[string]PriceOracle
	maxAge   time.Duration
	nowFn    func() time.Time
}

// NewAggregator constructs an aggregator with the provided freshness window.
// A zero maxAge disables the freshness check.
func NewAggregator(maxAge time.Duration) *Aggregator {
	return &Aggregator{
		oracles: make(map[string]PriceOracle),
		maxAge:  maxAge,
		nowFn:   time.Now,
	}
}

// SetNowFunc overrides the clock used for the freshness check.
func (a *Aggregator) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	a.mu.Lock()
	a.nowFn = now
	a.mu.Unlock()
}

// Register adds or replaces an oracle under name. Oracles registered first are
// consulted first.
func (a *Aggregator) Register(name string, oracle PriceOracle) {
	if a == nil {
		return
	}
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" || oracle == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.oracles[trimmed]; !exists {
		a.priority = append(a.priority, trimmed)
	}
	a.oracles[trimmed] = oracle
}

// GetRate implements PriceOracle.
func (a *Aggregator) GetRate(base, quote string) (PriceQuote, error) {
	if a == nil {
		return PriceQuote{}, fmt.Errorf("oracle aggregator not configured")
	}
	baseSym := normaliseSymbol(base)
	quoteSym := normaliseSymbol(quote)
	if baseSym == "" || quoteSym == "" {
		return PriceQuote{}, fmt.Errorf("oracle: base and quote required")
	}
	a.mu.RLock()
	priority := append([]string{}, a.priority...)
	maxAge := a.maxAge
	now := a.nowFn
	a.mu.RUnlock()

	var cutoff time.Time
	if maxAge > 0 {
		cutoff = now().Add(-maxAge)
	}
	var lastErr error
	for _, name := range priority {
		a.mu.RLock()
		oracle := a.oracles[name]
		a.mu.RUnlock()
		q, err := oracle.GetRate(baseSym, quoteSym)
		if err != nil {
			lastErr = err
			continue
		}
		if q.Rate == nil || q.Rate.Sign() <= 0 {
			lastErr = fmt.Errorf("oracle %s returned invalid rate", name)
			continue
		}
		if maxAge > 0 && q.Timestamp.Before(cutoff) {
			lastErr = ErrNoFreshQuote
			continue
		}
		result := q.Clone()
		if strings.TrimSpace(result.Source) == "" {
			result.Source = name
		}
		return result, nil
	}
	if lastErr == nil {
		lastErr = ErrNoFreshQuote
	}
	return PriceQuote{}, lastErr
}

// ParseRate parses a strictly positive decimal or fraction.
func ParseRate(value string) (*big.Rat, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("rate required")
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return nil, fmt.Errorf("invalid rate %q", value)
	}
	if rat.Sign() <= 0 {
		return nil, fmt.Errorf("rate must be positive")
	}
	return rat, nil
}

// DepositFor returns floor(rate * amount).
func DepositFor(rate *big.Rat, amount *big.Int) (*big.Int, error) {
	if rate == nil || rate.Sign() <= 0 {
		return nil, fmt.Errorf("pricing: rate must be positive")
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("pricing: amount must be positive")
	}
	product := new(big.Rat).Mul(rate, new(big.Rat).SetInt(amount))
	return new(big.Int).Quo(product.Num(), product.Denom()), nil
}
