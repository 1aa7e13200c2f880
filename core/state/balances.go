package state

import (
	"fmt"
	"math/big"
)

// BalanceGet returns the balance of addr, or nil when the account holds
// nothing.
func (tx *Tx) BalanceGet(addr [20]byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := tx.KVGet(BalanceKey(addr), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return amount, nil
}

// BalancePut stores a non-negative balance for addr.
func (tx *Tx) BalancePut(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: balance must be non-negative")
	}
	return tx.KVPut(BalanceKey(addr), amount)
}

// BalanceDelete removes the balance record of addr.
func (tx *Tx) BalanceDelete(addr [20]byte) error {
	return tx.KVDelete(BalanceKey(addr))
}

// GenesisApplied reports whether the genesis allocation has been written.
func (tx *Tx) GenesisApplied() (bool, error) {
	return tx.KVGet(metaKey(genesisField), nil)
}

// ApplyGenesis credits the initial allocation exactly once.
func (tx *Tx) ApplyGenesis(alloc map[[20]byte]*big.Int) error {
	applied, err := tx.GenesisApplied()
	if err != nil {
		return err
	}
	if applied {
		return nil
	}
	for addr, amount := range alloc {
		if amount == nil || amount.Sign() <= 0 {
			return fmt.Errorf("state: genesis allocation must be positive")
		}
		current, err := tx.BalanceGet(addr)
		if err != nil {
			return err
		}
		if current == nil {
			current = new(big.Int)
		}
		if err := tx.BalancePut(addr, new(big.Int).Add(current, amount)); err != nil {
			return err
		}
	}
	return tx.KVPut(metaKey(genesisField), true)
}
