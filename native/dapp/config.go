package dapp

import (
	"fmt"
	"strings"
)

// Deploy records the contract parameters. Every bound is validated before
// anything is written, and a deployed contract cannot be deployed again.
func (e *Engine) Deploy(name string, oracle [20]byte, timeMargin, minTime, maxTime int64) error {
	if err := e.guard(); err != nil {
		return err
	}
	if err := e.requireOwner(); err != nil {
		return err
	}
	dep := &Deployment{
		Name:       strings.TrimSpace(name),
		Oracle:     oracle,
		TimeMargin: timeMargin,
		MinTime:    minTime,
		MaxTime:    maxTime,
		DeployedAt: e.now(),
	}
	if err := dep.Validate(); err != nil {
		return err
	}
	_, exists, err := e.state.DeploymentGet()
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyDeployed
	}
	return e.state.DeploymentPut(dep)
}

// Deployment returns a copy of the current contract parameters.
func (e *Engine) Deployment() (*Deployment, error) {
	dep, err := e.loadDeployment()
	if err != nil {
		return nil, err
	}
	return dep.Clone(), nil
}

// UpdateName replaces the dApp name.
func (e *Engine) UpdateName(name string) error {
	return e.updateDeployment(func(dep *Deployment) error {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return fmt.Errorf("%w: dapp name required", ErrInvalidArgument)
		}
		dep.Name = trimmed
		return nil
	})
}

// UpdateOracle replaces the oracle bound to future orders. Existing orders
// keep the oracle they were created with.
func (e *Engine) UpdateOracle(oracle [20]byte) error {
	return e.updateDeployment(func(dep *Deployment) error {
		if oracle == ([20]byte{}) {
			return fmt.Errorf("%w: oracle required", ErrInvalidArgument)
		}
		dep.Oracle = oracle
		return nil
	})
}

// UpdateTimeLimit sets one time parameter. The resulting configuration must
// still satisfy the combined bounds. Existing orders are not re-validated.
func (e *Engine) UpdateTimeLimit(field TimeLimit, value int64) error {
	return e.updateDeployment(func(dep *Deployment) error {
		if value < 0 {
			return fmt.Errorf("%w: %s must be non-negative", ErrInvalidArgument, field)
		}
		switch field {
		case TimeLimitMargin:
			dep.TimeMargin = value
		case TimeLimitMin:
			dep.MinTime = value
		case TimeLimitMax:
			dep.MaxTime = value
		default:
			return fmt.Errorf("%w: unknown time limit %d", ErrInvalidArgument, field)
		}
		return validateTimeLimits(dep.TimeMargin, dep.MinTime, dep.MaxTime)
	})
}

func (e *Engine) updateDeployment(mutate func(*Deployment) error) error {
	if err := e.guard(); err != nil {
		return err
	}
	if err := e.requireOwner(); err != nil {
		return err
	}
	dep, err := e.loadDeployment()
	if err != nil {
		return err
	}
	next := dep.Clone()
	if err := mutate(next); err != nil {
		return err
	}
	return e.state.DeploymentPut(next)
}
