package dapp

import (
	"errors"
	"fmt"

	"quarkdapp/native/bank"
	"quarkdapp/native/common"
)

var (
	// ErrUnauthorized is returned when the caller lacks the required
	// capability.
	ErrUnauthorized = errors.New("dapp: unauthorized")
	// ErrInvalidArgument is returned for malformed or out-of-range input.
	ErrInvalidArgument = errors.New("dapp: invalid argument")
	// ErrPrecondition is returned when the contract or order is in the wrong
	// state for the operation.
	ErrPrecondition = errors.New("dapp: precondition failed")
	// ErrWindowViolation is returned when a timestamp is outside the allowed
	// window.
	ErrWindowViolation = errors.New("dapp: time window violation")
	// ErrInsufficientFunds is returned when an escrow movement cannot be
	// covered.
	ErrInsufficientFunds = bank.ErrInsufficientFunds
	// ErrModulePaused is returned by mutating operations while the operator
	// has paused the module.
	ErrModulePaused = common.ErrModulePaused

	ErrNotDeployed      = fmt.Errorf("%w: contract not deployed", ErrPrecondition)
	ErrAlreadyDeployed  = fmt.Errorf("%w: contract already deployed", ErrPrecondition)
	ErrOrderNotFound    = fmt.Errorf("%w: order not found", ErrPrecondition)
	ErrOrderExists      = fmt.Errorf("%w: order key already in use", ErrPrecondition)
	ErrPriceUnavailable = fmt.Errorf("%w: currency rate unavailable", ErrPrecondition)
	errNilState         = errors.New("dapp engine: state not configured")
	errNilPriceOracle   = errors.New("dapp engine: price oracle not configured")
)
