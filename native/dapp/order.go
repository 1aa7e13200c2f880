package dapp

import (
	"fmt"
	"math/big"
	"strings"

	"quarkdapp/native/pricing"
)

// OrderParams are the caller supplied terms of a new order.
type OrderParams struct {
	Key           string
	Timestamp     int64
	UTCOffset     int64
	SrcCurrency   string
	DstCurrency   string
	Course        string
	Amount        *big.Int
	SrcWallet     [20]byte
	DstWallet     [20]byte
	DepositWallet [20]byte
	DappName      string
	Fee           *big.Int
}

// CreateOrder validates the order terms and its event window, escrows the
// deposit from the treasury into the deposit wallet and records the order as
// initialized.
func (e *Engine) CreateOrder(p OrderParams) (*Order, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if err := e.requireOwner(); err != nil {
		return nil, err
	}
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	dep, err := e.loadDeployment()
	if err != nil {
		return nil, err
	}
	order, err := e.sanitizeOrder(p, dep)
	if err != nil {
		return nil, err
	}
	_, exists, err := e.state.OrderGet(order.Key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrOrderExists, order.Key)
	}
	now := e.now()
	if err := checkCreationWindow(order.Timestamp, now, dep); err != nil {
		return nil, err
	}
	deposit, err := e.depositFor(order.SrcCurrency, order.Amount)
	if err != nil {
		return nil, err
	}
	if order.Fee.Cmp(deposit) > 0 {
		return nil, fmt.Errorf("%w: fee %s exceeds deposit %s", ErrInvalidArgument, order.Fee, deposit)
	}
	order.DepositAmount = deposit
	order.CreatedAt = now
	order.Status = OrderInitialized

	if err := e.move(e.accounts.Treasury, order.DepositWallet, deposit); err != nil {
		return nil, err
	}
	if err := e.storeOrder(order); err != nil {
		return nil, err
	}
	e.emit(NewOrderAddEvent(order.Key))
	return order.Clone(), nil
}

func (e *Engine) sanitizeOrder(p OrderParams, dep *Deployment) (*Order, error) {
	key := normalizeOrderKey(p.Key)
	if key == "" {
		return nil, fmt.Errorf("%w: order key required", ErrInvalidArgument)
	}
	if strings.TrimSpace(p.DappName) != dep.Name {
		return nil, fmt.Errorf("%w: dapp name %q does not match deployment", ErrInvalidArgument, p.DappName)
	}
	if p.Timestamp < 0 {
		return nil, fmt.Errorf("%w: timestamp must be non-negative", ErrInvalidArgument)
	}
	if err := validateUTCOffset(p.UTCOffset); err != nil {
		return nil, err
	}
	src := strings.ToUpper(strings.TrimSpace(p.SrcCurrency))
	dst := strings.ToUpper(strings.TrimSpace(p.DstCurrency))
	if src == "" || dst == "" {
		return nil, fmt.Errorf("%w: source and destination currency required", ErrInvalidArgument)
	}
	course := strings.TrimSpace(p.Course)
	if _, err := pricing.ParseRate(course); err != nil {
		return nil, fmt.Errorf("%w: course: %v", ErrInvalidArgument, err)
	}
	if p.SrcWallet == ([20]byte{}) || p.DstWallet == ([20]byte{}) {
		return nil, fmt.Errorf("%w: source and destination wallet required", ErrInvalidArgument)
	}
	if p.DepositWallet != e.accounts.DepositWallet {
		return nil, fmt.Errorf("%w: deposit wallet is not the contract deposit account", ErrInvalidArgument)
	}
	fee := cloneBigInt(p.Fee)
	if fee.Sign() < 0 {
		return nil, fmt.Errorf("%w: fee must be non-negative", ErrInvalidArgument)
	}
	return &Order{
		Key:             key,
		Timestamp:       p.Timestamp,
		UTCOffset:       p.UTCOffset,
		SrcCurrency:     src,
		DstCurrency:     dst,
		Course:          course,
		Amount:          new(big.Int).Set(p.Amount),
		SrcWallet:       p.SrcWallet,
		DstWallet:       p.DstWallet,
		DepositWallet:   p.DepositWallet,
		Fee:             fee,
		Oracle:          dep.Oracle,
		TimeMargin:      dep.TimeMargin,
		MinTime:         dep.MinTime,
		MaxTime:         dep.MaxTime,
		PayoutThreshold: e.threshold,
		DappName:        dep.Name,
		OracleCost:      big.NewInt(0),
	}, nil
}

func (e *Engine) depositFor(currency string, amount *big.Int) (*big.Int, error) {
	if e.prices == nil {
		return nil, errNilPriceOracle
	}
	quote, err := e.prices.GetRate(currency, pricing.LedgerUnit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, currency, err)
	}
	deposit, err := pricing.DepositFor(quote.Rate, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	if deposit.Sign() <= 0 {
		return nil, fmt.Errorf("%w: deposit rounds to zero", ErrInvalidArgument)
	}
	return deposit, nil
}
