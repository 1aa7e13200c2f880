package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"quarkdapp/core/dispatch"
	"quarkdapp/core/events"
	"quarkdapp/core/state"
	"quarkdapp/core/witness"
	"quarkdapp/crypto"
	"quarkdapp/native/dapp"
	"quarkdapp/native/pricing"
	"quarkdapp/storage"
)

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

var (
	owner    = testAddr(0x01)
	treasury = testAddr(0xAA)
	deposit  = testAddr(0xDD)
	oracle   = testAddr(0x0C)
)

type fixture struct {
	exec *Executor
	rec  *events.Recorder
	now  time.Time
	db   *storage.MemDB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{rec: events.NewRecorder(0), now: time.Unix(1_700_000_000, 0), db: storage.NewMemDB()}
	engine := dapp.NewEngine(dapp.Accounts{Owner: owner, Treasury: treasury, DepositWallet: deposit})
	engine.SetPriceOracle(pricing.NewStaticOracle(big.NewRat(100, 1)))
	f.exec = NewExecutor(state.NewManager(f.db), engine,
		WithClock(NewBlockClock(func() time.Time { return f.now })),
		WithSink(f.rec))
	if err := f.exec.ApplyGenesis(context.Background(), map[[20]byte]*big.Int{treasury: big.NewInt(10_000)}); err != nil {
		t.Fatalf("genesis: %v", err)
	}
	return f
}

func (f *fixture) run(t *testing.T, op string, args interface{}, signers ...[20]byte) dispatch.Result {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	call, err := dispatch.Decode(op, raw)
	if err != nil {
		t.Fatalf("decode %s: %v", op, err)
	}
	return f.exec.Execute(context.Background(), call, witness.NewSigners(signers...))
}

func (f *fixture) deploy(t *testing.T) {
	t.Helper()
	res := f.run(t, "deploy", dispatch.DeployArgs{
		Name: "Acme", Oracle: crypto.FormatPrincipal(oracle), TimeMargin: 3600, MinTime: 7200, MaxTime: 2_592_000,
	}, owner)
	if !res.OK() {
		t.Fatalf("deploy: %v", res.Err)
	}
}

func (f *fixture) orderArgs(key string, eventIn time.Duration) dispatch.OrderArgs {
	return dispatch.OrderArgs{
		OrderKey:      key,
		Timestamp:     f.now.Add(eventIn).Unix(),
		SrcCurrency:   "EUR",
		DstCurrency:   "NEO",
		Course:        "1.1",
		Amount:        "5",
		SrcWallet:     crypto.FormatPrincipal(testAddr(0x11)),
		DstWallet:     crypto.FormatPrincipal(testAddr(0x22)),
		DepositWallet: crypto.FormatPrincipal(deposit),
		DappName:      "Acme",
		Fee:           "0",
	}
}

func (f *fixture) balance(t *testing.T, addr [20]byte) string {
	t.Helper()
	res := f.run(t, "balanceOf", dispatch.BalanceOfArgs{Address: crypto.FormatPrincipal(addr)})
	if !res.OK() {
		t.Fatalf("balanceOf: %v", res.Err)
	}
	return res.Value.(string)
}

func TestExecutorScenario(t *testing.T) {
	f := newFixture(t)
	f.deploy(t)

	if res := f.run(t, "order", f.orderArgs("o", 10*24*time.Hour), owner); !res.OK() || res.Value != true {
		t.Fatalf("order: %+v", res)
	}
	if got := f.balance(t, treasury); got != "9500" {
		t.Fatalf("unexpected treasury %s", got)
	}

	res := f.run(t, "order", f.orderArgs("late", 3599*time.Second), owner)
	if res.OK() || res.Value != false || !errors.Is(res.Err, dapp.ErrWindowViolation) {
		t.Fatalf("expected window violation, got %+v", res)
	}
	if got := f.balance(t, treasury); got != "9500" {
		t.Fatalf("rejected order moved funds: %s", got)
	}

	f.now = f.now.Add(10 * 24 * time.Hour)
	notice := dispatch.ResultNoticeArgs{OrderKey: "o", FundsTransferred: 3, OracleCost: "2"}
	if res := f.run(t, "resultNotice", notice, oracle); !res.OK() {
		t.Fatalf("result notice: %v", res.Err)
	}
	if res := f.run(t, "resultNotice", notice, oracle); res.OK() {
		t.Fatalf("second notice accepted")
	}

	res = f.run(t, "getOrder", dispatch.OrderKeyArgs{OrderKey: "o"})
	view, ok := res.Value.(dispatch.OrderView)
	if !ok || view.Status != "funds-transferred" || view.FundsTransferred != 3 || view.OracleCost != "2" {
		t.Fatalf("unexpected order view: %+v", res)
	}
	if res := f.run(t, "claim", dispatch.OrderKeyArgs{OrderKey: "o"}, owner); !res.OK() {
		t.Fatalf("claim: %v", res.Err)
	}
	if res := f.run(t, "deleteOrder", dispatch.OrderKeyArgs{OrderKey: "o"}, owner); !res.OK() {
		t.Fatalf("delete: %v", res.Err)
	}
}

func TestExecutorPublishesOnlyCommittedEvents(t *testing.T) {
	f := newFixture(t)
	f.deploy(t)

	if res := f.run(t, "order", f.orderArgs("o", 10*24*time.Hour), owner); !res.OK() {
		t.Fatalf("order: %v", res.Err)
	}
	if got := f.rec.Types(); len(got) != 2 || got[0] != "transfer" || got[1] != dapp.EventTypeOrderAdd {
		t.Fatalf("unexpected committed events: %v", got)
	}
	if res := f.run(t, "order", f.orderArgs("o", 10*24*time.Hour), owner); res.OK() {
		t.Fatalf("duplicate accepted")
	}
	if res := f.run(t, "name", nil); res.Value != "Acme" {
		t.Fatalf("unexpected name: %+v", res)
	}
	if len(f.rec.Events()) != 2 {
		t.Fatalf("rejected or read operations published events: %v", f.rec.Types())
	}
}

func TestExecutorReadsDoNotWrite(t *testing.T) {
	f := newFixture(t)
	f.deploy(t)
	before := f.db.Len()
	for _, op := range []string{"name", "oracle", "time_margin", "min_time", "max_time"} {
		if res := f.run(t, op, nil); !res.OK() {
			t.Fatalf("%s: %v", op, res.Err)
		}
	}
	if f.db.Len() != before {
		t.Fatalf("read operations wrote state")
	}
	res := f.run(t, "max_time", nil)
	if res.Value != int64(2_592_000) {
		t.Fatalf("unexpected max_time %v", res.Value)
	}
}

func TestExecutorGenesisOnce(t *testing.T) {
	f := newFixture(t)
	if err := f.exec.ApplyGenesis(context.Background(), map[[20]byte]*big.Int{treasury: big.NewInt(99)}); err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if got := f.balance(t, treasury); got != "10000" {
		t.Fatalf("genesis applied twice: %s", got)
	}
}

func TestExecutorHonoursCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	call, err := dispatch.Decode("name", nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	res := f.exec.Execute(ctx, call, witness.None)
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", res.Err)
	}
}

func TestBlockClockMonotonic(t *testing.T) {
	wall := time.Unix(100, 0)
	clock := NewBlockClock(func() time.Time { return wall })
	if clock.Now() != 100 {
		t.Fatalf("unexpected first reading")
	}
	wall = time.Unix(50, 0)
	if clock.Now() != 100 {
		t.Fatalf("clock went backwards")
	}
	wall = time.Unix(150, 0)
	if clock.Now() != 150 {
		t.Fatalf("clock did not advance")
	}
}
