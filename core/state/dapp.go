package state

import (
	"fmt"
	"math/big"

	"quarkdapp/native/dapp"
)

// Signed fields are stored as two's complement uint64 because RLP has no
// negative integers.

type storedDeployment struct {
	Name       string
	Oracle     [20]byte
	TimeMargin uint64
	MinTime    uint64
	MaxTime    uint64
	DeployedAt uint64
}

type storedOrder struct {
	Key              string
	Timestamp        uint64
	UTCOffset        uint64
	SrcCurrency      string
	DstCurrency      string
	Course           string
	Amount           *big.Int
	SrcWallet        [20]byte
	DstWallet        [20]byte
	DepositWallet    [20]byte
	DepositAmount    *big.Int
	Fee              *big.Int
	Oracle           [20]byte
	TimeMargin       uint64
	MinTime          uint64
	MaxTime          uint64
	PayoutThreshold  uint64
	DappName         string
	CreatedAt        uint64
	Status           uint8
	FundsTransferred uint64
	OracleCost       *big.Int
	NoticedAt        uint64
	MatchedWith      string
	MatchCourse      string
	SettledAt        uint64
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func newStoredOrder(o *dapp.Order) *storedOrder {
	return &storedOrder{
		Key:              o.Key,
		Timestamp:        uint64(o.Timestamp),
		UTCOffset:        uint64(o.UTCOffset),
		SrcCurrency:      o.SrcCurrency,
		DstCurrency:      o.DstCurrency,
		Course:           o.Course,
		Amount:           nonNil(o.Amount),
		SrcWallet:        o.SrcWallet,
		DstWallet:        o.DstWallet,
		DepositWallet:    o.DepositWallet,
		DepositAmount:    nonNil(o.DepositAmount),
		Fee:              nonNil(o.Fee),
		Oracle:           o.Oracle,
		TimeMargin:       uint64(o.TimeMargin),
		MinTime:          uint64(o.MinTime),
		MaxTime:          uint64(o.MaxTime),
		PayoutThreshold:  uint64(o.PayoutThreshold),
		DappName:         o.DappName,
		CreatedAt:        uint64(o.CreatedAt),
		Status:           uint8(o.Status),
		FundsTransferred: uint64(o.FundsTransferred),
		OracleCost:       nonNil(o.OracleCost),
		NoticedAt:        uint64(o.NoticedAt),
		MatchedWith:      o.MatchedWith,
		MatchCourse:      o.MatchCourse,
		SettledAt:        uint64(o.SettledAt),
	}
}

func (s *storedOrder) toOrder() *dapp.Order {
	return &dapp.Order{
		Key:              s.Key,
		Timestamp:        int64(s.Timestamp),
		UTCOffset:        int64(s.UTCOffset),
		SrcCurrency:      s.SrcCurrency,
		DstCurrency:      s.DstCurrency,
		Course:           s.Course,
		Amount:           nonNil(s.Amount),
		SrcWallet:        s.SrcWallet,
		DstWallet:        s.DstWallet,
		DepositWallet:    s.DepositWallet,
		DepositAmount:    nonNil(s.DepositAmount),
		Fee:              nonNil(s.Fee),
		Oracle:           s.Oracle,
		TimeMargin:       int64(s.TimeMargin),
		MinTime:          int64(s.MinTime),
		MaxTime:          int64(s.MaxTime),
		PayoutThreshold:  int64(s.PayoutThreshold),
		DappName:         s.DappName,
		CreatedAt:        int64(s.CreatedAt),
		Status:           dapp.OrderStatus(s.Status),
		FundsTransferred: int64(s.FundsTransferred),
		OracleCost:       nonNil(s.OracleCost),
		NoticedAt:        int64(s.NoticedAt),
		MatchedWith:      s.MatchedWith,
		MatchCourse:      s.MatchCourse,
		SettledAt:        int64(s.SettledAt),
	}
}

// DeploymentGet loads the contract configuration.
func (tx *Tx) DeploymentGet() (*dapp.Deployment, bool, error) {
	var stored storedDeployment
	ok, err := tx.KVGet(ConfigKey(string(deploymentField)), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &dapp.Deployment{
		Name:       stored.Name,
		Oracle:     stored.Oracle,
		TimeMargin: int64(stored.TimeMargin),
		MinTime:    int64(stored.MinTime),
		MaxTime:    int64(stored.MaxTime),
		DeployedAt: int64(stored.DeployedAt),
	}, true, nil
}

// DeploymentPut stores the contract configuration.
func (tx *Tx) DeploymentPut(d *dapp.Deployment) error {
	if d == nil {
		return fmt.Errorf("state: nil deployment")
	}
	return tx.KVPut(ConfigKey(string(deploymentField)), &storedDeployment{
		Name:       d.Name,
		Oracle:     d.Oracle,
		TimeMargin: uint64(d.TimeMargin),
		MinTime:    uint64(d.MinTime),
		MaxTime:    uint64(d.MaxTime),
		DeployedAt: uint64(d.DeployedAt),
	})
}

// OrderGet loads the order stored under key.
func (tx *Tx) OrderGet(key string) (*dapp.Order, bool, error) {
	var stored storedOrder
	ok, err := tx.KVGet(OrderKey(key), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	order := stored.toOrder()
	if !order.Status.Valid() {
		return nil, false, fmt.Errorf("state: order %s has invalid status %d", key, stored.Status)
	}
	return order, true, nil
}

// OrderPut stores the order under its key.
func (tx *Tx) OrderPut(o *dapp.Order) error {
	if o == nil || o.Key == "" {
		return fmt.Errorf("state: order key required")
	}
	return tx.KVPut(OrderKey(o.Key), newStoredOrder(o))
}

// OrderDelete removes the order stored under key.
func (tx *Tx) OrderDelete(key string) error {
	return tx.KVDelete(OrderKey(key))
}
