package bank

import (
	"errors"
	"math/big"
	"testing"

	"quarkdapp/core/events"
	"quarkdapp/core/witness"
)

type mockBalances struct {
	balances map[[20]byte]*big.Int
}

func newMockBalances() *mockBalances {
	return &mockBalances{balances: make(map[[20]byte]*big.Int)}
}

func (m *mockBalances) BalanceGet(addr [20]byte) (*big.Int, error) {
	bal, ok := m.balances[addr]
	if !ok {
		return nil, nil
	}
	return new(big.Int).Set(bal), nil
}

func (m *mockBalances) BalancePut(addr [20]byte, amount *big.Int) error {
	m.balances[addr] = new(big.Int).Set(amount)
	return nil
}

func (m *mockBalances) BalanceDelete(addr [20]byte) error {
	delete(m.balances, addr)
	return nil
}

func (m *mockBalances) total() *big.Int {
	sum := big.NewInt(0)
	for _, bal := range m.balances {
		sum.Add(sum, bal)
	}
	return sum
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func newTestEngine() (*Engine, *mockBalances, *events.Recorder) {
	state := newMockBalances()
	rec := events.NewRecorder(0)
	eng := NewEngine()
	eng.SetState(state)
	eng.SetEmitter(rec)
	return eng, state, rec
}

func TestTransferMovesFundsAndConserves(t *testing.T) {
	eng, state, rec := newTestEngine()
	alice, bob := addr(1), addr(2)
	state.balances[alice] = big.NewInt(100)
	state.balances[bob] = big.NewInt(5)

	if err := eng.Transfer(witness.NewSigners(alice), alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if state.balances[alice].Int64() != 60 || state.balances[bob].Int64() != 45 {
		t.Fatalf("unexpected balances: alice=%s bob=%s", state.balances[alice], state.balances[bob])
	}
	if state.total().Int64() != 105 {
		t.Fatalf("total not conserved: %s", state.total())
	}
	if types := rec.Types(); len(types) != 1 || types[0] != EventTypeTransfer {
		t.Fatalf("unexpected events: %v", types)
	}
}

func TestTransferDeletesEmptiedSender(t *testing.T) {
	eng, state, _ := newTestEngine()
	alice, bob := addr(1), addr(2)
	state.balances[alice] = big.NewInt(10)

	if err := eng.Transfer(witness.NewSigners(alice), alice, bob, big.NewInt(10)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, ok := state.balances[alice]; ok {
		t.Fatalf("expected emptied sender record to be removed")
	}
	if state.balances[bob].Int64() != 10 {
		t.Fatalf("receiver not credited: %s", state.balances[bob])
	}
}

func TestTransferRejections(t *testing.T) {
	alice, bob := addr(1), addr(2)
	cases := []struct {
		name   string
		auth   Authorizer
		amount *big.Int
		want   error
	}{
		{"zero amount", witness.NewSigners(alice), big.NewInt(0), ErrInvalidAmount},
		{"negative amount", witness.NewSigners(alice), big.NewInt(-1), ErrInvalidAmount},
		{"nil amount", witness.NewSigners(alice), nil, ErrInvalidAmount},
		{"unauthorized", witness.NewSigners(bob), big.NewInt(1), ErrUnauthorized},
		{"insufficient", witness.NewSigners(alice), big.NewInt(11), ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng, state, rec := newTestEngine()
			state.balances[alice] = big.NewInt(10)
			err := eng.Transfer(tc.auth, alice, bob, tc.amount)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if state.balances[alice].Int64() != 10 {
				t.Fatalf("sender balance changed: %s", state.balances[alice])
			}
			if _, ok := state.balances[bob]; ok {
				t.Fatalf("receiver credited on failure")
			}
			if len(rec.Events()) != 0 {
				t.Fatalf("event emitted on failure")
			}
		})
	}
}

func TestTransferToSelfIsNoop(t *testing.T) {
	eng, state, rec := newTestEngine()
	alice := addr(1)
	state.balances[alice] = big.NewInt(3)
	if err := eng.Transfer(witness.NewSigners(alice), alice, alice, big.NewInt(100)); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	if state.balances[alice].Int64() != 3 {
		t.Fatalf("balance changed: %s", state.balances[alice])
	}
	if len(rec.Events()) != 0 {
		t.Fatalf("unexpected event on self transfer")
	}
}
