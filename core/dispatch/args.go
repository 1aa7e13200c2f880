package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"quarkdapp/crypto"
	"quarkdapp/native/dapp"
)

// NoArgs is the argument type of the read-only getters.
type NoArgs struct{}

type DeployArgs struct {
	Name       string `json:"name"`
	Oracle     string `json:"oracle"`
	TimeMargin int64  `json:"time_margin"`
	MinTime    int64  `json:"min_time"`
	MaxTime    int64  `json:"max_time"`
}

type UpdateNameArgs struct {
	NewName string `json:"new_name"`
}

type UpdateOracleArgs struct {
	NewOracle string `json:"new_oracle"`
}

type UpdateTimeLimitsArgs struct {
	Field string `json:"field"`
	Value int64  `json:"value"`
}

// OrderArgs carries the order terms. Amounts are decimal strings so values
// beyond 2^53 survive JSON clients.
type OrderArgs struct {
	OrderKey      string `json:"order_key"`
	Timestamp     int64  `json:"timestamp"`
	UTCOffset     int64  `json:"utc_offset"`
	SrcCurrency   string `json:"src_currency"`
	DstCurrency   string `json:"dst_currency"`
	Course        string `json:"course"`
	Amount        string `json:"amount"`
	SrcWallet     string `json:"src_wallet"`
	DstWallet     string `json:"dst_wallet"`
	DepositWallet string `json:"deposit_wallet"`
	DappName      string `json:"dapp_name"`
	Fee           string `json:"fee"`
}

type ResultNoticeArgs struct {
	OrderKey         string `json:"order_key"`
	FundsTransferred int64  `json:"funds_transferred"`
	OracleCost       string `json:"oracle_cost"`
}

// OrderKeyArgs is shared by the operations addressing a single order.
type OrderKeyArgs struct {
	OrderKey string `json:"order_key"`
}

type MatchArgs struct {
	SrcOrderKey string `json:"src_order_key"`
	DstOrderKey string `json:"dst_order_key"`
	Course      string `json:"course"`
}

type BalanceOfArgs struct {
	Address string `json:"address"`
}

// Call is a decoded operation with its typed arguments.
type Call struct {
	Op   Operation
	Args interface{}
}

func newArgs(op Operation) (interface{}, error) {
	switch op {
	case OpDeploy:
		return &DeployArgs{}, nil
	case OpName, OpOracle, OpTimeMargin, OpMinTime, OpMaxTime:
		return &NoArgs{}, nil
	case OpUpdateName:
		return &UpdateNameArgs{}, nil
	case OpUpdateOracle:
		return &UpdateOracleArgs{}, nil
	case OpUpdateTimeLimits:
		return &UpdateTimeLimitsArgs{}, nil
	case OpOrder:
		return &OrderArgs{}, nil
	case OpResultNotice:
		return &ResultNoticeArgs{}, nil
	case OpDeleteOrder, OpClaim, OpRefundAll, OpGetOrder:
		return &OrderKeyArgs{}, nil
	case OpMatch:
		return &MatchArgs{}, nil
	case OpBalanceOf:
		return &BalanceOfArgs{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
}

// Decode parses raw JSON arguments for the named operation. Unknown fields
// are rejected. Empty input is accepted for operations without arguments.
func Decode(name string, raw json.RawMessage) (Call, error) {
	op, err := ParseOperation(name)
	if err != nil {
		return Call{}, err
	}
	args, err := newArgs(op)
	if err != nil {
		return Call{}, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(args); err != nil {
		return Call{}, fmt.Errorf("%w: %s: %v", dapp.ErrInvalidArgument, op, err)
	}
	return Call{Op: op, Args: args}, nil
}

// NewCall pairs an operation with already typed arguments, as used by
// clients building a request.
func NewCall(op Operation, args interface{}) (Call, error) {
	want, err := newArgs(op)
	if err != nil {
		return Call{}, err
	}
	if args == nil {
		args = want
	}
	if reflect.TypeOf(want) != reflect.TypeOf(args) {
		return Call{}, fmt.Errorf("%w: %s expects %T, got %T", dapp.ErrInvalidArgument, op, want, args)
	}
	return Call{Op: op, Args: args}, nil
}

func parseAddress(field, value string) ([20]byte, error) {
	addr, err := crypto.ParsePrincipal(value)
	if err != nil {
		return addr, fmt.Errorf("%w: %s: %v", dapp.ErrInvalidArgument, field, err)
	}
	return addr, nil
}

// parseAmount parses a base-10 integer. Empty strings read as zero when
// optional is set.
func parseAmount(field, value string, optional bool) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if optional {
			return big.NewInt(0), nil
		}
		return nil, fmt.Errorf("%w: %s required", dapp.ErrInvalidArgument, field)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s: invalid integer %q", dapp.ErrInvalidArgument, field, value)
	}
	return amount, nil
}

func (a *OrderArgs) params() (dapp.OrderParams, error) {
	var p dapp.OrderParams
	amount, err := parseAmount("amount", a.Amount, false)
	if err != nil {
		return p, err
	}
	fee, err := parseAmount("fee", a.Fee, true)
	if err != nil {
		return p, err
	}
	src, err := parseAddress("src_wallet", a.SrcWallet)
	if err != nil {
		return p, err
	}
	dst, err := parseAddress("dst_wallet", a.DstWallet)
	if err != nil {
		return p, err
	}
	deposit, err := parseAddress("deposit_wallet", a.DepositWallet)
	if err != nil {
		return p, err
	}
	return dapp.OrderParams{
		Key:           a.OrderKey,
		Timestamp:     a.Timestamp,
		UTCOffset:     a.UTCOffset,
		SrcCurrency:   a.SrcCurrency,
		DstCurrency:   a.DstCurrency,
		Course:        a.Course,
		Amount:        amount,
		SrcWallet:     src,
		DstWallet:     dst,
		DepositWallet: deposit,
		DappName:      a.DappName,
		Fee:           fee,
	}, nil
}
