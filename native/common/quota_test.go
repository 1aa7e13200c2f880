package common

import (
	"errors"
	"math"
	"math/big"
	"testing"
)

func TestCheckQuotaRequestLimit(t *testing.T) {
	q := Quota{MaxRequests: 10}
	prev := QuotaNow{WindowID: 1}

	next, err := CheckQuota(q, 1, prev, 10, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.ReqCount != 10 {
		t.Fatalf("unexpected request count: %d", next.ReqCount)
	}

	denied, err := CheckQuota(q, 1, next, 1, nil)
	if !errors.Is(err, ErrQuotaRequestsExceeded) {
		t.Fatalf("expected ErrQuotaRequestsExceeded, got %v", err)
	}
	if denied.ReqCount != next.ReqCount || denied.WindowID != next.WindowID {
		t.Fatalf("expected counters to remain unchanged on denial")
	}

	rollover, err := CheckQuota(q, 2, next, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error after window rollover: %v", err)
	}
	if rollover.WindowID != 2 || rollover.ReqCount != 1 {
		t.Fatalf("unexpected state after rollover: %+v", rollover)
	}
}

func TestCheckQuotaValueCap(t *testing.T) {
	q := Quota{MaxValue: big.NewInt(1000)}
	prev := QuotaNow{WindowID: 5}

	next, err := CheckQuota(q, 5, prev, 0, big.NewInt(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.ValueUsed.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("unexpected value used: %s", next.ValueUsed)
	}

	if _, err := CheckQuota(q, 5, next, 0, big.NewInt(1)); !errors.Is(err, ErrQuotaValueCapExceeded) {
		t.Fatalf("expected ErrQuotaValueCapExceeded, got %v", err)
	}
	if next.ValueUsed.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("denied charge mutated previous counters")
	}
}

func TestCheckQuotaOverflow(t *testing.T) {
	prev := QuotaNow{ReqCount: math.MaxUint32, WindowID: 1}
	if _, err := CheckQuota(Quota{}, 1, prev, 1, nil); !errors.Is(err, ErrQuotaCounterOverflow) {
		t.Fatalf("expected overflow error, got %v", err)
	}
}

func TestQuotaTrackerCharge(t *testing.T) {
	tracker := NewQuotaTracker(Quota{MaxRequests: 2, WindowSeconds: 60})
	alice := [20]byte{1}
	bob := [20]byte{2}

	for i := 0; i < 2; i++ {
		if err := tracker.Charge(alice, 120, nil); err != nil {
			t.Fatalf("charge %d: %v", i, err)
		}
	}
	if err := tracker.Charge(alice, 150, nil); !errors.Is(err, ErrQuotaRequestsExceeded) {
		t.Fatalf("expected request limit, got %v", err)
	}
	if err := tracker.Charge(bob, 150, nil); err != nil {
		t.Fatalf("other principal throttled: %v", err)
	}
	if err := tracker.Charge(alice, 180, nil); err != nil {
		t.Fatalf("next window still throttled: %v", err)
	}
}

func TestQuotaTrackerDisabled(t *testing.T) {
	tracker := NewQuotaTracker(Quota{})
	for i := 0; i < 100; i++ {
		if err := tracker.Charge([20]byte{9}, int64(i), big.NewInt(1)); err != nil {
			t.Fatalf("disabled quota rejected request: %v", err)
		}
	}
}
