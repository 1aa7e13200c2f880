package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"quarkdapp/crypto"
	"quarkdapp/native/dapp"
)

// Contract is the engine surface the shell routes to.
type Contract interface {
	Deploy(name string, oracle [20]byte, timeMargin, minTime, maxTime int64) error
	Deployment() (*dapp.Deployment, error)
	UpdateName(name string) error
	UpdateOracle(oracle [20]byte) error
	UpdateTimeLimit(field dapp.TimeLimit, value int64) error
	CreateOrder(p dapp.OrderParams) (*dapp.Order, error)
	ResultNotice(key string, fundsTransferred int64, oracleCost *big.Int) error
	DeleteOrder(key string) error
	Match(srcKey, dstKey, course string) error
	Claim(key string) (*dapp.ClaimResult, error)
	RefundAll(key string) error
	Order(key string) (*dapp.Order, error)
	Balance(addr [20]byte) (*big.Int, error)
}

// Result is the outcome of a routed call. Failed calls carry Value false and
// the cause in Err.
type Result struct {
	Value interface{}
	Err   error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Failure wraps err in a false result.
func Failure(err error) Result { return Result{Value: false, Err: err} }

// Unknown is the result of a call naming an unsupported operation.
func Unknown(name string) Result {
	return Result{Value: UnknownOperation, Err: fmt.Errorf("%w: %q", ErrUnknownOperation, name)}
}

// Shell routes calls to a contract and converts failures into results.
type Shell struct {
	contract Contract
	logger   *slog.Logger
}

// NewShell returns a shell routing to contract. A nil logger uses the default
// slog logger.
func NewShell(contract Contract, logger *slog.Logger) *Shell {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shell{contract: contract, logger: logger}
}

// Execute routes call and never panics on contract errors. Rejections are
// logged at WARN with the operation, order key and reason.
func (s *Shell) Execute(ctx context.Context, call Call) Result {
	value, err := Route(s.contract, call)
	if err != nil {
		attrs := []any{slog.String("operation", call.Op.String()), slog.String("reason", err.Error())}
		if key := orderKeyOf(call); key != "" {
			attrs = append(attrs, slog.String("order_key", key))
		}
		s.logger.WarnContext(ctx, "operation rejected", attrs...)
		if errors.Is(err, ErrUnknownOperation) {
			return Result{Value: UnknownOperation, Err: err}
		}
		return Failure(err)
	}
	return Result{Value: value}
}

func orderKeyOf(call Call) string {
	switch args := call.Args.(type) {
	case *OrderArgs:
		return args.OrderKey
	case *ResultNoticeArgs:
		return args.OrderKey
	case *OrderKeyArgs:
		return args.OrderKey
	case *MatchArgs:
		return args.SrcOrderKey
	default:
		return ""
	}
}

func argsAs[T any](call Call) (*T, error) {
	args, ok := call.Args.(*T)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unexpected argument type %T", dapp.ErrInvalidArgument, call.Op, call.Args)
	}
	return args, nil
}

// Route invokes the contract handler for call and returns its result value.
func Route(c Contract, call Call) (interface{}, error) {
	if c == nil {
		return nil, errors.New("dispatch: contract not configured")
	}
	switch call.Op {
	case OpDeploy:
		args, err := argsAs[DeployArgs](call)
		if err != nil {
			return nil, err
		}
		oracle, err := parseAddress("oracle", args.Oracle)
		if err != nil {
			return nil, err
		}
		return true, c.Deploy(args.Name, oracle, args.TimeMargin, args.MinTime, args.MaxTime)
	case OpName, OpOracle, OpTimeMargin, OpMinTime, OpMaxTime:
		dep, err := c.Deployment()
		if err != nil {
			return nil, err
		}
		return deploymentField(call.Op, dep), nil
	case OpUpdateName:
		args, err := argsAs[UpdateNameArgs](call)
		if err != nil {
			return nil, err
		}
		return true, c.UpdateName(args.NewName)
	case OpUpdateOracle:
		args, err := argsAs[UpdateOracleArgs](call)
		if err != nil {
			return nil, err
		}
		oracle, err := parseAddress("new_oracle", args.NewOracle)
		if err != nil {
			return nil, err
		}
		return true, c.UpdateOracle(oracle)
	case OpUpdateTimeLimits:
		args, err := argsAs[UpdateTimeLimitsArgs](call)
		if err != nil {
			return nil, err
		}
		field, err := dapp.ParseTimeLimit(args.Field)
		if err != nil {
			return nil, err
		}
		return true, c.UpdateTimeLimit(field, args.Value)
	case OpOrder:
		args, err := argsAs[OrderArgs](call)
		if err != nil {
			return nil, err
		}
		params, err := args.params()
		if err != nil {
			return nil, err
		}
		_, err = c.CreateOrder(params)
		return true, err
	case OpResultNotice:
		args, err := argsAs[ResultNoticeArgs](call)
		if err != nil {
			return nil, err
		}
		cost, err := parseAmount("oracle_cost", args.OracleCost, true)
		if err != nil {
			return nil, err
		}
		return true, c.ResultNotice(args.OrderKey, args.FundsTransferred, cost)
	case OpDeleteOrder:
		args, err := argsAs[OrderKeyArgs](call)
		if err != nil {
			return nil, err
		}
		return true, c.DeleteOrder(args.OrderKey)
	case OpMatch:
		args, err := argsAs[MatchArgs](call)
		if err != nil {
			return nil, err
		}
		return true, c.Match(args.SrcOrderKey, args.DstOrderKey, args.Course)
	case OpClaim:
		args, err := argsAs[OrderKeyArgs](call)
		if err != nil {
			return nil, err
		}
		res, err := c.Claim(args.OrderKey)
		if err != nil {
			return nil, err
		}
		return NewClaimView(res), nil
	case OpRefundAll:
		args, err := argsAs[OrderKeyArgs](call)
		if err != nil {
			return nil, err
		}
		return true, c.RefundAll(args.OrderKey)
	case OpGetOrder:
		args, err := argsAs[OrderKeyArgs](call)
		if err != nil {
			return nil, err
		}
		order, err := c.Order(args.OrderKey)
		if err != nil {
			return nil, err
		}
		return NewOrderView(order), nil
	case OpBalanceOf:
		args, err := argsAs[BalanceOfArgs](call)
		if err != nil {
			return nil, err
		}
		addr, err := parseAddress("address", args.Address)
		if err != nil {
			return nil, err
		}
		bal, err := c.Balance(addr)
		if err != nil {
			return nil, err
		}
		return bal.String(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, call.Op)
	}
}

func deploymentField(op Operation, dep *dapp.Deployment) interface{} {
	switch op {
	case OpName:
		return dep.Name
	case OpOracle:
		return crypto.FormatPrincipal(dep.Oracle)
	case OpTimeMargin:
		return dep.TimeMargin
	case OpMinTime:
		return dep.MinTime
	default:
		return dep.MaxTime
	}
}
