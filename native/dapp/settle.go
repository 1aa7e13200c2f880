package dapp

import (
	"fmt"
	"math/big"
)

// Claim settles a reported order. The escrowed premium is released back to
// the treasury, which then pays the net premium to the insurer, the insured
// amount to the customer when the outcome is below the order's payout
// threshold, and the oracle cost to the oracle. The fee stays with the
// treasury.
func (e *Engine) Claim(key string) (*ClaimResult, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	order, err := e.loadOrder(key)
	if err != nil {
		return nil, err
	}
	if !e.authorized(e.accounts.Owner) && !e.authorized(order.Customer()) && !e.authorized(order.Insurer()) {
		return nil, fmt.Errorf("%w: owner, customer or insurer signature required", ErrUnauthorized)
	}
	if order.Status != OrderFundsTransferred {
		return nil, fmt.Errorf("%w: order %s is %s", ErrPrecondition, order.Key, order.Status)
	}
	premium := order.Premium()
	netPremium := new(big.Int).Sub(premium, cloneBigInt(order.Fee))
	if netPremium.Sign() < 0 {
		return nil, fmt.Errorf("%w: fee exceeds premium", ErrPrecondition)
	}
	res := &ClaimResult{
		Outcome:        ClaimNoPayout,
		InsurerPayout:  netPremium,
		CustomerPayout: big.NewInt(0),
		OracleCost:     cloneBigInt(order.OracleCost),
	}
	if order.FundsTransferred < order.PayoutThreshold {
		res.Outcome = ClaimPaidOut
		res.CustomerPayout = cloneBigInt(order.Amount)
	}

	if err := e.requireBalance(order.DepositWallet, premium); err != nil {
		return nil, err
	}
	treasuryBal, err := e.bank.Balance(e.accounts.Treasury)
	if err != nil {
		return nil, err
	}
	outflow := new(big.Int).Add(res.InsurerPayout, res.CustomerPayout)
	outflow.Add(outflow, res.OracleCost)
	if new(big.Int).Add(treasuryBal, premium).Cmp(outflow) < 0 {
		return nil, fmt.Errorf("%w: treasury cannot cover payouts of %s", ErrInsufficientFunds, outflow)
	}
	if err := e.advance(order, OrderClaimed); err != nil {
		return nil, err
	}

	treasury := e.accounts.Treasury
	if err := e.move(order.DepositWallet, treasury, premium); err != nil {
		return nil, err
	}
	if err := e.move(treasury, order.Insurer(), res.InsurerPayout); err != nil {
		return nil, err
	}
	if err := e.move(treasury, order.Customer(), res.CustomerPayout); err != nil {
		return nil, err
	}
	if err := e.move(treasury, order.Oracle, res.OracleCost); err != nil {
		return nil, err
	}
	order.SettledAt = e.now()
	if err := e.storeOrder(order); err != nil {
		return nil, err
	}
	e.emit(NewPayOutEvent(order.Key, res))
	return res, nil
}

// RefundAll returns the escrowed deposit of an order the oracle never
// reported on. It is available to the owner once the event time plus
// max_time and time_margin has passed.
func (e *Engine) RefundAll(key string) error {
	if err := e.guard(); err != nil {
		return err
	}
	if err := e.requireOwner(); err != nil {
		return err
	}
	order, err := e.loadOrder(key)
	if err != nil {
		return err
	}
	if order.Status != OrderInitialized {
		return fmt.Errorf("%w: order %s is %s", ErrPrecondition, order.Key, order.Status)
	}
	now := e.now()
	deadline := refundDeadline(order)
	if localTime(now, order.UTCOffset) <= deadline {
		return fmt.Errorf("%w: refund of order %s opens after %d", ErrWindowViolation, order.Key, deadline)
	}
	if err := e.requireBalance(order.DepositWallet, order.Premium()); err != nil {
		return err
	}
	if err := e.advance(order, OrderRefunded); err != nil {
		return err
	}
	if err := e.move(order.DepositWallet, e.accounts.Treasury, order.Premium()); err != nil {
		return err
	}
	order.SettledAt = now
	if err := e.storeOrder(order); err != nil {
		return err
	}
	e.emit(NewRefundAllEvent(order.Key))
	return nil
}
