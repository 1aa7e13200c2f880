package dapp

import (
	"fmt"
	"math/big"
	"strings"

	"quarkdapp/native/pricing"
)

// Match pairs two initialized orders and releases both escrowed deposits from
// the deposit wallet back to the treasury. The caller must be the oracle bound
// to the source order. The supplied course is recorded on both orders but is
// not reconciled against their own course terms.
func (e *Engine) Match(srcKey, dstKey, course string) error {
	if err := e.guard(); err != nil {
		return err
	}
	src, err := e.loadOrder(srcKey)
	if err != nil {
		return err
	}
	if !e.authorized(src.Oracle) {
		return fmt.Errorf("%w: source order oracle signature required", ErrUnauthorized)
	}
	if normalizeOrderKey(srcKey) == normalizeOrderKey(dstKey) {
		return fmt.Errorf("%w: cannot match an order with itself", ErrInvalidArgument)
	}
	dst, err := e.loadOrder(dstKey)
	if err != nil {
		return err
	}
	recorded := strings.TrimSpace(course)
	if _, err := pricing.ParseRate(recorded); err != nil {
		return fmt.Errorf("%w: course: %v", ErrInvalidArgument, err)
	}
	for _, order := range []*Order{src, dst} {
		if err := e.advance(order, OrderMatched); err != nil {
			return err
		}
	}
	if src.DepositWallet == dst.DepositWallet {
		if err := e.requireBalance(src.DepositWallet, new(big.Int).Add(src.Premium(), dst.Premium())); err != nil {
			return err
		}
	} else {
		if err := e.requireBalance(src.DepositWallet, src.Premium()); err != nil {
			return err
		}
		if err := e.requireBalance(dst.DepositWallet, dst.Premium()); err != nil {
			return err
		}
	}
	if err := e.move(src.DepositWallet, e.accounts.Treasury, src.Premium()); err != nil {
		return err
	}
	if err := e.move(dst.DepositWallet, e.accounts.Treasury, dst.Premium()); err != nil {
		return err
	}
	now := e.now()
	src.MatchedWith, src.MatchCourse, src.SettledAt = dst.Key, recorded, now
	dst.MatchedWith, dst.MatchCourse, dst.SettledAt = src.Key, recorded, now
	if err := e.storeOrder(src); err != nil {
		return err
	}
	if err := e.storeOrder(dst); err != nil {
		return err
	}
	e.emit(NewExchangeEvent(src.Key, recorded))
	e.emit(NewExchangeEvent(dst.Key, recorded))
	return nil
}
