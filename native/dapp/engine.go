// Package dapp implements the insurance and exchange escrow contract: owner
// configuration, the order lifecycle, oracle result admission, settlement and
// order matching.
package dapp

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"quarkdapp/core/events"
	"quarkdapp/core/types"
	"quarkdapp/core/witness"
	"quarkdapp/native/bank"
	"quarkdapp/native/common"
	"quarkdapp/native/pricing"
)

// ModuleName is the pause key of the contract.
const ModuleName = "dapp"

// DefaultPayoutThreshold is the reported outcome at or above which a claim
// pays the insurer only.
const DefaultPayoutThreshold int64 = 1

type engineState interface {
	BalanceGet(addr [20]byte) (*big.Int, error)
	BalancePut(addr [20]byte, amount *big.Int) error
	BalanceDelete(addr [20]byte) error
	DeploymentGet() (*Deployment, bool, error)
	DeploymentPut(*Deployment) error
	OrderGet(key string) (*Order, bool, error)
	OrderPut(*Order) error
	OrderDelete(key string) error
}

// Accounts names the principals the contract is wired to. Treasury and
// DepositWallet are custody accounts controlled by the contract itself.
type Accounts struct {
	Owner         [20]byte
	Treasury      [20]byte
	DepositWallet [20]byte
}

// Engine wires the contract logic with state, authorization, pricing and
// event emission supplied by the host.
type Engine struct {
	state     engineState
	bank      *bank.Engine
	emitter   events.Emitter
	witness   witness.Witness
	prices    pricing.PriceOracle
	pauses    common.PauseView
	nowFn     func() int64
	accounts  Accounts
	threshold int64
}

// NewEngine creates an engine with a no-op emitter, no authorized signers and
// the default payout threshold.
func NewEngine(accounts Accounts) *Engine {
	return &Engine{
		bank:      bank.NewEngine(),
		emitter:   events.NoopEmitter{},
		witness:   witness.None,
		nowFn:     func() int64 { return time.Now().Unix() },
		accounts:  accounts,
		threshold: DefaultPayoutThreshold,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) {
	e.state = state
	e.bank.SetState(state)
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
	e.bank.SetEmitter(emitter)
}

// SetWitness configures the signer set of the operation being executed.
func (e *Engine) SetWitness(w witness.Witness) {
	if w == nil {
		w = witness.None
	}
	e.witness = w
}

// SetPriceOracle configures the currency rate source used to size deposits.
func (e *Engine) SetPriceOracle(oracle pricing.PriceOracle) { e.prices = oracle }

// SetPauses wires the operator pause view.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetPayoutThreshold overrides the payout threshold stamped on new orders.
// Existing orders settle with the threshold they were created with.
func (e *Engine) SetPayoutThreshold(threshold int64) { e.threshold = threshold }

// SetNowFunc overrides the time source used by the engine. The executor pins
// it to the block time of the current operation.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Accounts returns the principals the engine is wired to.
func (e *Engine) Accounts() Accounts { return e.accounts }

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(events.Record{Evt: event})
}

func (e *Engine) guard() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return common.Guard(e.pauses, ModuleName)
}

func (e *Engine) authorized(addr [20]byte) bool {
	return e.witness != nil && e.witness.CheckWitness(addr)
}

func (e *Engine) requireOwner() error {
	if !e.authorized(e.accounts.Owner) {
		return fmt.Errorf("%w: owner signature required", ErrUnauthorized)
	}
	return nil
}

// move transfers funds between accounts once the calling operation has passed
// its own authorization gate. The contract's custody accounts are authorized
// implicitly.
func (e *Engine) move(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	auth := witness.WithCustody(e.witness, e.accounts.Treasury, e.accounts.DepositWallet)
	return e.bank.Transfer(auth, from, to, amount)
}

func (e *Engine) requireBalance(addr [20]byte, need *big.Int) error {
	have, err := e.bank.Balance(addr)
	if err != nil {
		return err
	}
	if have.Cmp(need) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, have, need)
	}
	return nil
}

func (e *Engine) loadDeployment() (*Deployment, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	dep, ok, err := e.state.DeploymentGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotDeployed
	}
	return dep, nil
}

// normalizeOrderKey is applied to every order key on creation and lookup.
func normalizeOrderKey(key string) string { return strings.TrimSpace(key) }

func (e *Engine) loadOrder(key string) (*Order, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	key = normalizeOrderKey(key)
	if key == "" {
		return nil, fmt.Errorf("%w: order key required", ErrInvalidArgument)
	}
	order, ok, err := e.state.OrderGet(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, key)
	}
	return order, nil
}

func (e *Engine) storeOrder(order *Order) error {
	if !order.Status.Valid() {
		return fmt.Errorf("dapp engine: invalid order status %d", order.Status)
	}
	return e.state.OrderPut(order)
}

func (e *Engine) advance(order *Order, next OrderStatus) error {
	if !order.Status.CanAdvanceTo(next) {
		return fmt.Errorf("%w: order %s is %s, cannot become %s", ErrPrecondition, order.Key, order.Status, next)
	}
	order.Status = next
	return nil
}

// Order returns a copy of the stored order.
func (e *Engine) Order(key string) (*Order, error) {
	order, err := e.loadOrder(key)
	if err != nil {
		return nil, err
	}
	return order.Clone(), nil
}

// Balance returns the ledger balance of addr.
func (e *Engine) Balance(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.bank.Balance(addr)
}
