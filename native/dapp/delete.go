package dapp

import "fmt"

// DeleteOrder removes a claimed or refunded order.
func (e *Engine) DeleteOrder(key string) error {
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
	if !order.Status.Deletable() {
		return fmt.Errorf("%w: order %s is %s, only claimed or refunded orders can be deleted", ErrPrecondition, order.Key, order.Status)
	}
	if err := e.state.OrderDelete(order.Key); err != nil {
		return err
	}
	e.emit(NewOrderDeleteEvent(order.Key))
	return nil
}
