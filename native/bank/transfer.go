// Package bank implements the ledger transfer primitive used by the dApp:
// authorization-checked, all-or-nothing debit and credit of account balances.
package bank

import (
	"errors"
	"fmt"
	"math/big"

	"quarkdapp/core/events"
	"quarkdapp/core/types"
	"quarkdapp/crypto"
)

// EventTypeTransfer is emitted for every balance movement.
const EventTypeTransfer = "transfer"

var (
	// ErrInvalidAmount is returned for zero or negative transfer amounts.
	ErrInvalidAmount = errors.New("bank: amount must be positive")
	// ErrUnauthorized is returned when the sender did not authorize the
	// transfer.
	ErrUnauthorized = errors.New("bank: sender not authorized")
	// ErrInsufficientFunds is returned when the sender balance is below the
	// transfer amount.
	ErrInsufficientFunds = errors.New("bank: insufficient funds")

	errNilState = errors.New("bank: state not configured")
)

// Authorizer answers whether the current operation was authorized by addr.
type Authorizer interface {
	CheckWitness(addr [20]byte) bool
}

type balanceState interface {
	BalanceGet(addr [20]byte) (*big.Int, error)
	BalancePut(addr [20]byte, amount *big.Int) error
	BalanceDelete(addr [20]byte) error
}

// Engine moves balances between principals.
type Engine struct {
	state   balanceState
	emitter events.Emitter
}

// NewEngine returns a transfer engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the balance backend.
func (e *Engine) SetState(state balanceState) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Balance returns the balance of addr. Absent accounts hold zero.
func (e *Engine) Balance(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	bal, err := e.state.BalanceGet(addr)
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(bal), nil
}

// Transfer debits amount from sender and credits receiver. The sender must
// have authorized the operation. A transfer to self succeeds without touching
// state. A sender balance reaching zero removes the record.
func (e *Engine) Transfer(auth Authorizer, sender, receiver [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if auth == nil || !auth.CheckWitness(sender) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, crypto.FormatPrincipal(sender))
	}
	if sender == receiver {
		return nil
	}
	fromBal, err := e.Balance(sender)
	if err != nil {
		return fmt.Errorf("bank: load sender: %w", err)
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, fromBal, amount)
	}
	toBal, err := e.Balance(receiver)
	if err != nil {
		return fmt.Errorf("bank: load receiver: %w", err)
	}

	remaining := new(big.Int).Sub(fromBal, amount)
	if remaining.Sign() == 0 {
		err = e.state.BalanceDelete(sender)
	} else {
		err = e.state.BalancePut(sender, remaining)
	}
	if err != nil {
		return fmt.Errorf("bank: debit sender: %w", err)
	}
	if err := e.state.BalancePut(receiver, new(big.Int).Add(toBal, amount)); err != nil {
		return fmt.Errorf("bank: credit receiver: %w", err)
	}
	e.emitter.Emit(events.Record{Evt: NewTransferEvent(sender, receiver, amount)})
	return nil
}

// NewTransferEvent returns the canonical transfer payload.
func NewTransferEvent(from, to [20]byte, amount *big.Int) *types.Event {
	return types.NewEvent(EventTypeTransfer).
		With("from", crypto.FormatPrincipal(from)).
		With("to", crypto.FormatPrincipal(to)).
		With("amount", amount.String())
}
