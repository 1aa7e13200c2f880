package pricing

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"
)

type oracleFunc func(base, quote string) (PriceQuote, error)

func (f oracleFunc) GetRate(base, quote string) (PriceQuote, error) {
	return f(base, quote)
}

func TestManualOracleProvidesQuotes(t *testing.T) {
	manual := NewManualOracle()
	now := time.Now().UTC()
	if err := manual.SetDecimal("EUR", LedgerUnit, "0.75", now); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	quote, err := manual.GetRate("eur", "qrk")
	if err != nil {
		t.Fatalf("get rate: %v", err)
	}
	if quote.Rate.FloatString(2) != "0.75" {
		t.Fatalf("unexpected rate: %v", quote.Rate)
	}
	if !quote.Timestamp.Equal(now) {
		t.Fatalf("unexpected timestamp: %v", quote.Timestamp)
	}
	if _, err := manual.GetRate("USD", LedgerUnit); err == nil {
		t.Fatalf("expected missing pair error")
	}
	if err := manual.SetDecimal("USD", LedgerUnit, "-1", now); err == nil {
		t.Fatalf("expected negative rate rejection")
	}
}

func TestStaticOracle(t *testing.T) {
	fixed := time.Unix(1_700_000_000, 0)
	oracle := NewStaticOracle(big.NewRat(100, 1))
	oracle.NowFn = func() time.Time { return fixed }
	quote, err := oracle.GetRate("NEO", LedgerUnit)
	if err != nil {
		t.Fatalf("get rate: %v", err)
	}
	if quote.Rate.Cmp(big.NewRat(100, 1)) != 0 || !quote.Timestamp.Equal(fixed) {
		t.Fatalf("unexpected quote: %+v", quote)
	}
}

func TestAggregatorStaleQuote(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	manual := NewManualOracle()
	agg := NewAggregator(time.Second)
	agg.SetNowFunc(func() time.Time { return now })
	agg.Register("manual", manual)
	if err := manual.SetDecimal("USD", LedgerUnit, "0.50", now.Add(-2*time.Second)); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	if _, err := agg.GetRate("USD", LedgerUnit); !errors.Is(err, ErrNoFreshQuote) {
		t.Fatalf("expected ErrNoFreshQuote, got %v", err)
	}
}

func TestAggregatorPriorityFallback(t *testing.T) {
	now := time.Now()
	manual := NewManualOracle()
	agg := NewAggregator(5 * time.Minute)
	agg.Register("primary", oracleFunc(func(string, string) (PriceQuote, error) {
		return PriceQuote{}, fmt.Errorf("primary down")
	}))
	agg.Register("manual", manual)
	if err := manual.SetDecimal("USD", LedgerUnit, "1.25", now); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	quote, err := agg.GetRate("USD", LedgerUnit)
	if err != nil {
		t.Fatalf("get rate: %v", err)
	}
	if quote.Rate.FloatString(2) != "1.25" || quote.Source != "manual" {
		t.Fatalf("unexpected quote: %+v", quote)
	}
}

func TestDepositFor(t *testing.T) {
	cases := []struct {
		rate   *big.Rat
		amount int64
		want   int64
	}{
		{big.NewRat(100, 1), 5, 500},
		{big.NewRat(3, 2), 3, 4},
		{big.NewRat(1, 3), 10, 3},
	}
	for _, tc := range cases {
		got, err := DepositFor(tc.rate, big.NewInt(tc.amount))
		if err != nil {
			t.Fatalf("deposit: %v", err)
		}
		if got.Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("rate %s amount %d: want %d got %s", tc.rate, tc.amount, tc.want, got)
		}
	}
	if _, err := DepositFor(big.NewRat(1, 1), big.NewInt(0)); err == nil {
		t.Fatalf("expected zero amount rejection")
	}
}

func TestParseRate(t *testing.T) {
	if _, err := ParseRate("1.5"); err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, bad := range []string{"", "abc", "0", "-2"} {
		if _, err := ParseRate(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
