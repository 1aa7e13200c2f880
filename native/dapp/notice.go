package dapp

import (
	"fmt"
	"math/big"
)

// ResultNotice records the outcome reported by the order's oracle. It is
// accepted exactly once, only after the event time, and leaves the order
// untouched on any failure.
func (e *Engine) ResultNotice(key string, fundsTransferred int64, oracleCost *big.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	order, err := e.loadOrder(key)
	if err != nil {
		return err
	}
	if !e.authorized(order.Oracle) {
		return fmt.Errorf("%w: oracle signature required", ErrUnauthorized)
	}
	if order.Status != OrderInitialized {
		return fmt.Errorf("%w: order %s is %s", ErrPrecondition, order.Key, order.Status)
	}
	cost := cloneBigInt(oracleCost)
	if cost.Sign() < 0 {
		return fmt.Errorf("%w: oracle cost must be non-negative", ErrInvalidArgument)
	}
	now := e.now()
	if !eventReached(order, now) {
		return fmt.Errorf("%w: event of order %s has not occurred yet", ErrWindowViolation, order.Key)
	}
	if err := e.advance(order, OrderFundsTransferred); err != nil {
		return err
	}
	order.FundsTransferred = fundsTransferred
	order.OracleCost = cost
	order.NoticedAt = now
	if err := e.storeOrder(order); err != nil {
		return err
	}
	e.emit(NewResultNoticeEvent(order))
	return nil
}
