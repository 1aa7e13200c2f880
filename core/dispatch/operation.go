// Package dispatch maps named contract operations and their arguments onto
// the contract engine.
package dispatch

import (
	"errors"
	"fmt"
)

// UnknownOperation is the result value returned for names outside the
// operation set.
const UnknownOperation = "unknown operation"

// ErrUnknownOperation is returned by ParseOperation for unsupported names.
var ErrUnknownOperation = errors.New(UnknownOperation)

// Operation enumerates the contract entry points.
type Operation uint8

const (
	OpDeploy Operation = iota + 1
	OpName
	OpOracle
	OpTimeMargin
	OpMinTime
	OpMaxTime
	OpUpdateName
	OpUpdateOracle
	OpUpdateTimeLimits
	OpOrder
	OpResultNotice
	OpDeleteOrder
	OpMatch
	OpClaim
	OpRefundAll
	OpGetOrder
	OpBalanceOf
)

var operationNames = map[Operation]string{
	OpDeploy:           "deploy",
	OpName:             "name",
	OpOracle:           "oracle",
	OpTimeMargin:       "time_margin",
	OpMinTime:          "min_time",
	OpMaxTime:          "max_time",
	OpUpdateName:       "updateName",
	OpUpdateOracle:     "updateOracle",
	OpUpdateTimeLimits: "updateTimeLimits",
	OpOrder:            "order",
	OpResultNotice:     "resultNotice",
	OpDeleteOrder:      "deleteOrder",
	OpMatch:            "match",
	OpClaim:            "claim",
	OpRefundAll:        "refundAll",
	OpGetOrder:         "getOrder",
	OpBalanceOf:        "balanceOf",
}

var operationsByName = func() map[string]Operation {
	out := make(map[string]Operation, len(operationNames))
	for op, name := range operationNames {
		out[name] = op
	}
	return out
}()

// Operations returns every supported operation in declaration order.
func Operations() []Operation {
	out := make([]Operation, 0, len(operationNames))
	for op := OpDeploy; op <= OpBalanceOf; op++ {
		out = append(out, op)
	}
	return out
}

// ParseOperation resolves a wire name. Names are case sensitive.
func ParseOperation(name string) (Operation, error) {
	op, ok := operationsByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	return op, nil
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("operation(%d)", uint8(o))
}

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	_, ok := operationNames[o]
	return ok
}

// Mutating reports whether the operation may change state. Only mutating
// operations are committed by the executor.
func (o Operation) Mutating() bool {
	switch o {
	case OpName, OpOracle, OpTimeMargin, OpMinTime, OpMaxTime, OpGetOrder, OpBalanceOf:
		return false
	default:
		return o.Valid()
	}
}
