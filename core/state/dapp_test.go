package state

import (
	"errors"
	"math/big"
	"testing"

	"quarkdapp/core/witness"
	"quarkdapp/native/dapp"
	"quarkdapp/native/pricing"
	"quarkdapp/storage"
)

// TestEngineRollbackOnDiscard drives the contract over a staged transaction
// and checks that a failed operation leaves committed state untouched.
func TestEngineRollbackOnDiscard(t *testing.T) {
	owner, treasury, deposit, oracle := testAddr(0x01), testAddr(0xAA), testAddr(0xDD), testAddr(0x0C)
	now := int64(1_700_000_000)
	mgr := NewManager(storage.NewMemDB())

	engine := dapp.NewEngine(dapp.Accounts{Owner: owner, Treasury: treasury, DepositWallet: deposit})
	engine.SetNowFunc(func() int64 { return now })
	engine.SetPriceOracle(pricing.NewStaticOracle(big.NewRat(100, 1)))
	engine.SetWitness(witness.NewSigners(owner))

	run := func(op func() error) error {
		tx := mgr.Begin()
		engine.SetState(tx)
		if err := op(); err != nil {
			tx.Discard()
			return err
		}
		return tx.Commit()
	}

	genesis := mgr.Begin()
	if err := genesis.ApplyGenesis(map[[20]byte]*big.Int{treasury: big.NewInt(10_000)}); err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if err := genesis.Commit(); err != nil {
		t.Fatalf("commit genesis: %v", err)
	}
	if err := run(func() error {
		return engine.Deploy("Acme", oracle, 3600, 7200, 2_592_000)
	}); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	params := dapp.OrderParams{
		Key:           "o",
		Timestamp:     now + 10*24*3600,
		SrcCurrency:   "EUR",
		DstCurrency:   "NEO",
		Course:        "1",
		Amount:        big.NewInt(5),
		SrcWallet:     testAddr(0x11),
		DstWallet:     testAddr(0x22),
		DepositWallet: deposit,
		DappName:      "Acme",
		Fee:           big.NewInt(0),
	}
	if err := run(func() error {
		_, err := engine.CreateOrder(params)
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// The escrow transfer succeeds inside the transaction before the
	// duplicate check of the second order fails; discard must undo it.
	err := run(func() error {
		p := params
		p.Key = "p"
		if _, err := engine.CreateOrder(p); err != nil {
			return err
		}
		_, err := engine.CreateOrder(params)
		return err
	})
	if !errors.Is(err, dapp.ErrOrderExists) {
		t.Fatalf("expected ErrOrderExists, got %v", err)
	}

	reader := mgr.Begin()
	engine.SetState(reader)
	bal, err := engine.Balance(treasury)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Int64() != 10_000-500 {
		t.Fatalf("rolled back transfer leaked: treasury=%s", bal)
	}
	if _, err := engine.Order("p"); !errors.Is(err, dapp.ErrOrderNotFound) {
		t.Fatalf("rolled back order leaked: %v", err)
	}
}
