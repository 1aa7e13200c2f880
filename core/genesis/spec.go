// Package genesis turns the configured initial allocation into ledger
// balances.
package genesis

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"quarkdapp/crypto"
)

// Entry is one parsed allocation.
type Entry struct {
	Address [20]byte
	Amount  *big.Int
}

// ParseAlloc validates an address -> decimal amount map. Addresses may be
// bech32 or hex; two spellings of the same principal are rejected.
func ParseAlloc(raw map[string]string) (map[[20]byte]*big.Int, error) {
	out := make(map[[20]byte]*big.Int, len(raw))
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		addr, err := crypto.ParsePrincipal(key)
		if err != nil {
			return nil, fmt.Errorf("genesis: alloc %q: %w", key, err)
		}
		if _, dup := out[addr]; dup {
			return nil, fmt.Errorf("genesis: duplicate alloc for %s", crypto.FormatPrincipal(addr))
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(raw[key]), 10)
		if !ok || amount.Sign() <= 0 {
			return nil, fmt.Errorf("genesis: alloc %q: amount must be a positive integer", key)
		}
		out[addr] = amount
	}
	return out, nil
}

// Sorted returns the allocation ordered by address.
func Sorted(alloc map[[20]byte]*big.Int) []Entry {
	out := make([]Entry, 0, len(alloc))
	for addr, amount := range alloc {
		out = append(out, Entry{Address: addr, Amount: new(big.Int).Set(amount)})
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i].Address[:]) < string(out[j].Address[:])
	})
	return out
}

// Total sums the allocation.
func Total(alloc map[[20]byte]*big.Int) *big.Int {
	sum := new(big.Int)
	for _, amount := range alloc {
		sum.Add(sum, amount)
	}
	return sum
}
