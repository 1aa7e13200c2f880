package common

import (
	"errors"
	"math"
	"math/big"
	"sync"
)

var (
	ErrQuotaRequestsExceeded = errors.New("quota requests exceeded")
	ErrQuotaValueCapExceeded = errors.New("quota value cap exceeded")
	ErrQuotaCounterOverflow  = errors.New("quota counter overflow")
)

// QuotaNow captures the current quota usage counters for a principal.
type QuotaNow struct {
	ReqCount  uint32
	ValueUsed *big.Int
	WindowID  uint64
}

// Quota defines the limits enforced per principal and window. Zero disables a
// limit.
type Quota struct {
	MaxRequests   uint32
	MaxValue      *big.Int
	WindowSeconds uint32
}

// Enabled reports whether any limit is configured.
func (q Quota) Enabled() bool {
	return q.MaxRequests > 0 || (q.MaxValue != nil && q.MaxValue.Sign() > 0)
}

// WindowAt maps a unix timestamp onto a window identifier.
func (q Quota) WindowAt(unix int64) uint64 {
	if unix < 0 {
		unix = 0
	}
	if q.WindowSeconds == 0 {
		return uint64(unix) / 60
	}
	return uint64(unix) / uint64(q.WindowSeconds)
}

// CheckQuota verifies whether the additional request and value fit within the
// configured quota. The returned QuotaNow reflects the updated counters when
// the quota is not exceeded; prev is returned unchanged otherwise.
func CheckQuota(q Quota, window uint64, prev QuotaNow, addReq uint32, addValue *big.Int) (QuotaNow, error) {
	next := QuotaNow{ReqCount: prev.ReqCount, ValueUsed: prev.ValueUsed, WindowID: prev.WindowID}
	if prev.WindowID != window {
		next = QuotaNow{WindowID: window}
	}

	if addReq > 0 {
		if next.ReqCount > math.MaxUint32-addReq {
			return prev, ErrQuotaCounterOverflow
		}
		next.ReqCount += addReq
	}
	if q.MaxRequests > 0 && next.ReqCount > q.MaxRequests {
		return prev, ErrQuotaRequestsExceeded
	}

	if addValue != nil && addValue.Sign() > 0 {
		used := new(big.Int)
		if next.ValueUsed != nil {
			used.Set(next.ValueUsed)
		}
		next.ValueUsed = used.Add(used, addValue)
	}
	if q.MaxValue != nil && q.MaxValue.Sign() > 0 && next.ValueUsed != nil && next.ValueUsed.Cmp(q.MaxValue) > 0 {
		return prev, ErrQuotaValueCapExceeded
	}

	return next, nil
}

// QuotaTracker keeps per-principal usage in memory.
type QuotaTracker struct {
	mu    sync.Mutex
	quota Quota
	usage map[[20]byte]QuotaNow
}

func NewQuotaTracker(q Quota) *QuotaTracker {
	return &QuotaTracker{quota: q, usage: make(map[[20]byte]QuotaNow)}
}

// Charge records one request worth value for addr at unix time now.
func (t *QuotaTracker) Charge(addr [20]byte, now int64, value *big.Int) error {
	if t == nil || !t.quota.Enabled() {
		return nil
	}
	window := t.quota.WindowAt(now)
	t.mu.Lock()
	defer t.mu.Unlock()
	next, err := CheckQuota(t.quota, window, t.usage[addr], 1, value)
	if err != nil {
		return err
	}
	t.usage[addr] = next
	for key, used := range t.usage {
		if used.WindowID != window {
			delete(t.usage, key)
		}
	}
	return nil
}
