package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"testing"

	"quarkdapp/crypto"
	"quarkdapp/native/dapp"
)

type fakeContract struct {
	calls      []string
	deployArgs []interface{}
	order      dapp.OrderParams
	err        error
	claim      *dapp.ClaimResult
}

func (f *fakeContract) record(name string) error {
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeContract) Deploy(name string, oracle [20]byte, margin, minT, maxT int64) error {
	f.deployArgs = []interface{}{name, oracle, margin, minT, maxT}
	return f.record("deploy")
}

func (f *fakeContract) Deployment() (*dapp.Deployment, error) {
	if err := f.record("deployment"); err != nil {
		return nil, err
	}
	return &dapp.Deployment{Name: "Acme", Oracle: testAddr(0x0C), TimeMargin: 1, MinTime: 2, MaxTime: 3}, nil
}

func (f *fakeContract) UpdateName(string) error     { return f.record("updateName") }
func (f *fakeContract) UpdateOracle([20]byte) error { return f.record("updateOracle") }
func (f *fakeContract) UpdateTimeLimit(dapp.TimeLimit, int64) error {
	return f.record("updateTimeLimit")
}

func (f *fakeContract) CreateOrder(p dapp.OrderParams) (*dapp.Order, error) {
	f.order = p
	return nil, f.record("order")
}

func (f *fakeContract) ResultNotice(string, int64, *big.Int) error { return f.record("resultNotice") }
func (f *fakeContract) DeleteOrder(string) error                   { return f.record("deleteOrder") }
func (f *fakeContract) Match(string, string, string) error         { return f.record("match") }
func (f *fakeContract) RefundAll(string) error                     { return f.record("refundAll") }

func (f *fakeContract) Claim(string) (*dapp.ClaimResult, error) {
	if err := f.record("claim"); err != nil {
		return nil, err
	}
	return f.claim, nil
}

func (f *fakeContract) Order(key string) (*dapp.Order, error) {
	return nil, f.record("getOrder")
}

func (f *fakeContract) Balance([20]byte) (*big.Int, error) {
	if err := f.record("balanceOf"); err != nil {
		return nil, err
	}
	return big.NewInt(77), nil
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func TestOperationNamesRoundTrip(t *testing.T) {
	ops := Operations()
	if len(ops) != len(operationNames) {
		t.Fatalf("Operations() missing entries: %d vs %d", len(ops), len(operationNames))
	}
	for _, op := range ops {
		parsed, err := ParseOperation(op.String())
		if err != nil || parsed != op {
			t.Fatalf("round trip %s: got %v err %v", op, parsed, err)
		}
		if _, err := newArgs(op); err != nil {
			t.Fatalf("no argument type for %s", op)
		}
	}
	for _, bad := range []string{"", "Deploy", "transfer", "dapp_order"} {
		if _, err := ParseOperation(bad); !errors.Is(err, ErrUnknownOperation) {
			t.Fatalf("expected %q to be unknown, got %v", bad, err)
		}
	}
}

func TestMutatingClassification(t *testing.T) {
	reads := map[Operation]bool{OpName: true, OpOracle: true, OpTimeMargin: true, OpMinTime: true, OpMaxTime: true, OpGetOrder: true, OpBalanceOf: true}
	for _, op := range Operations() {
		if op.Mutating() == reads[op] {
			t.Fatalf("%s: mutating=%v", op, op.Mutating())
		}
	}
	if Operation(200).Mutating() {
		t.Fatalf("unknown operation must not be mutating")
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode("deleteOrder", json.RawMessage(`{"order_key":"a","extra":1}`))
	if !errors.Is(err, dapp.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	call, err := Decode("name", nil)
	if err != nil || call.Op != OpName {
		t.Fatalf("decode getter: %v", err)
	}
	if _, err := Decode("bogus", nil); !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestExecuteUnknownAndFailures(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	contract := &fakeContract{err: dapp.ErrOrderNotFound}
	shell := NewShell(contract, logger)

	res := shell.Execute(context.Background(), Call{Op: Operation(99)})
	if res.Value != UnknownOperation || !errors.Is(res.Err, ErrUnknownOperation) {
		t.Fatalf("unexpected unknown result: %+v", res)
	}
	if got := Unknown("nope"); got.Value != UnknownOperation || got.OK() {
		t.Fatalf("unexpected Unknown(): %+v", got)
	}

	call, err := Decode("deleteOrder", json.RawMessage(`{"order_key":"k1"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	res = shell.Execute(context.Background(), call)
	if res.OK() || res.Value != false || !errors.Is(res.Err, dapp.ErrPrecondition) {
		t.Fatalf("unexpected failure result: %+v", res)
	}
	out := logs.String()
	if !strings.Contains(out, `"operation":"deleteOrder"`) || !strings.Contains(out, `"order_key":"k1"`) || !strings.Contains(out, `"reason"`) {
		t.Fatalf("rejection not logged: %s", out)
	}
}

func TestRouteParsesArguments(t *testing.T) {
	contract := &fakeContract{claim: &dapp.ClaimResult{
		Outcome:        dapp.ClaimPaidOut,
		InsurerPayout:  big.NewInt(490),
		CustomerPayout: big.NewInt(5),
		OracleCost:     big.NewInt(1),
	}}
	shell := NewShell(contract, nil)
	oracle := crypto.FormatPrincipal(testAddr(0x0C))

	call, err := Decode("deploy", json.RawMessage(`{"name":"Acme","oracle":"`+oracle+`","time_margin":3600,"min_time":7200,"max_time":90000}`))
	if err != nil {
		t.Fatalf("decode deploy: %v", err)
	}
	if res := shell.Execute(context.Background(), call); !res.OK() || res.Value != true {
		t.Fatalf("deploy: %+v", res)
	}
	if contract.deployArgs[1] != testAddr(0x0C) || contract.deployArgs[4] != int64(90000) {
		t.Fatalf("unexpected deploy args: %v", contract.deployArgs)
	}

	orderJSON := `{"order_key":"o","timestamp":1700864000,"utc_offset":2,"src_currency":"EUR","dst_currency":"NEO",` +
		`"course":"1.5","amount":"123456789012345678901","src_wallet":"0x1111111111111111111111111111111111111111",` +
		`"dst_wallet":"` + crypto.FormatPrincipal(testAddr(0x22)) + `","deposit_wallet":"0xdddddddddddddddddddddddddddddddddddddddd","dapp_name":"Acme"}`
	call, err = Decode("order", json.RawMessage(orderJSON))
	if err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if res := shell.Execute(context.Background(), call); !res.OK() {
		t.Fatalf("order: %v", res.Err)
	}
	if contract.order.Amount.String() != "123456789012345678901" || contract.order.Fee.Sign() != 0 || contract.order.UTCOffset != 2 {
		t.Fatalf("unexpected order params: %+v", contract.order)
	}
	if contract.order.SrcWallet != testAddr(0x11) || contract.order.DstWallet != testAddr(0x22) || contract.order.DepositWallet != testAddr(0xDD) {
		t.Fatalf("wallets not parsed: %+v", contract.order)
	}

	call, _ = Decode("order", json.RawMessage(`{"order_key":"o","amount":"abc"}`))
	if res := shell.Execute(context.Background(), call); !errors.Is(res.Err, dapp.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", res.Err)
	}

	call, _ = Decode("updateTimeLimits", json.RawMessage(`{"field":"expire","value":10}`))
	if res := shell.Execute(context.Background(), call); !errors.Is(res.Err, dapp.ErrInvalidArgument) {
		t.Fatalf("expected unknown time field rejection, got %v", res.Err)
	}

	call, _ = Decode("claim", json.RawMessage(`{"order_key":"o"}`))
	res := shell.Execute(context.Background(), call)
	view, ok := res.Value.(ClaimView)
	if !ok || !view.PaidOut || view.CustomerPayout != "5" || view.Outcome != "paid-out" {
		t.Fatalf("unexpected claim result: %+v", res)
	}

	call, _ = Decode("oracle", nil)
	if res := shell.Execute(context.Background(), call); res.Value != oracle {
		t.Fatalf("unexpected oracle getter: %+v", res)
	}
	call, _ = Decode("balanceOf", json.RawMessage(`{"address":"`+oracle+`"}`))
	if res := shell.Execute(context.Background(), call); res.Value != "77" {
		t.Fatalf("unexpected balance: %+v", res)
	}
}

func TestDigestIsCanonical(t *testing.T) {
	a, err := Decode("match", json.RawMessage(`{"src_order_key":"a","dst_order_key":"b","course":"1.2"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b, err := Decode("match", json.RawMessage(`{ "course":"1.2", "dst_order_key":"b", "src_order_key":"a" }`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	da, err := Digest(a)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	db, err := Digest(b)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if !bytes.Equal(da, db) || len(da) != 32 {
		t.Fatalf("digest not canonical: %x vs %x", da, db)
	}

	built, err := NewCall(OpMatch, &MatchArgs{SrcOrderKey: "a", DstOrderKey: "b", Course: "1.2"})
	if err != nil {
		t.Fatalf("new call: %v", err)
	}
	dc, _ := Digest(built)
	if !bytes.Equal(da, dc) {
		t.Fatalf("client built digest differs")
	}

	other, _ := Decode("match", json.RawMessage(`{"src_order_key":"a","dst_order_key":"b","course":"1.3"}`))
	dd, _ := Digest(other)
	if bytes.Equal(da, dd) {
		t.Fatalf("different arguments share a digest")
	}
	if _, err := NewCall(OpMatch, &OrderKeyArgs{}); !errors.Is(err, dapp.ErrInvalidArgument) {
		t.Fatalf("expected mismatched args rejection, got %v", err)
	}
}
