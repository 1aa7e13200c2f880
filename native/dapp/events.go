package dapp

import (
	"math/big"
	"strconv"

	"quarkdapp/core/types"
)

const (
	EventTypeOrderAdd     = "order-add"
	EventTypeExchange     = "exchange"
	EventTypeResultNotice = "result-notice"
	EventTypePayOut       = "pay-out"
	EventTypeRefundAll    = "refund-all"
	EventTypeOrderDelete  = "order-delete"
)

// NewOrderAddEvent is emitted once an order and its escrow are written.
func NewOrderAddEvent(key string) *types.Event {
	return types.NewEvent(EventTypeOrderAdd).With("order_key", key)
}

// NewExchangeEvent is emitted for each side of a match.
func NewExchangeEvent(key, course string) *types.Event {
	return types.NewEvent(EventTypeExchange).With("order_key", key).With("course", course)
}

// NewResultNoticeEvent carries the outcome reported by the oracle.
func NewResultNoticeEvent(o *Order) *types.Event {
	return types.NewEvent(EventTypeResultNotice).
		With("order_key", o.Key).
		With("funds_transferred", strconv.FormatInt(o.FundsTransferred, 10)).
		With("oracle_cost", cloneBigInt(o.OracleCost).String())
}

// NewPayOutEvent is emitted when an order is claimed.
func NewPayOutEvent(key string, res *ClaimResult) *types.Event {
	payout := big.NewInt(0)
	if res.CustomerPayout != nil {
		payout = res.CustomerPayout
	}
	return types.NewEvent(EventTypePayOut).
		With("order_key", key).
		With("outcome", res.Outcome.String()).
		With("payout", payout.String())
}

func NewRefundAllEvent(key string) *types.Event {
	return types.NewEvent(EventTypeRefundAll).With("order_key", key)
}

func NewOrderDeleteEvent(key string) *types.Event {
	return types.NewEvent(EventTypeOrderDelete).With("order_key", key)
}
