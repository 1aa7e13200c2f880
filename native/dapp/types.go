package dapp

import (
	"fmt"
	"math/big"
	"strings"
)

// OrderStatus represents the lifecycle states of an order.
type OrderStatus uint8

const (
	OrderInitialized OrderStatus = iota + 1
	OrderFundsTransferred
	OrderMatched
	OrderClaimed
	OrderRefunded
)

// Valid reports whether the status value is within the supported range.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderInitialized, OrderFundsTransferred, OrderMatched, OrderClaimed, OrderRefunded:
		return true
	default:
		return false
	}
}

func (s OrderStatus) String() string {
	switch s {
	case OrderInitialized:
		return "initialized"
	case OrderFundsTransferred:
		return "funds-transferred"
	case OrderMatched:
		return "matched"
	case OrderClaimed:
		return "claimed"
	case OrderRefunded:
		return "refunded"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// CanAdvanceTo reports whether next is a legal successor of s. Statuses only
// move forward and terminal statuses have no successor.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	switch s {
	case OrderInitialized:
		return next == OrderFundsTransferred || next == OrderMatched || next == OrderRefunded
	case OrderFundsTransferred:
		return next == OrderClaimed
	default:
		return false
	}
}

// Deletable reports whether an order in this status may be removed.
func (s OrderStatus) Deletable() bool {
	return s == OrderClaimed || s == OrderRefunded
}

// Deployment holds the owner-controlled contract parameters. All durations
// are in seconds.
type Deployment struct {
	Name       string
	Oracle     [20]byte
	TimeMargin int64
	MinTime    int64
	MaxTime    int64
	DeployedAt int64
}

// Clone returns a copy of the deployment.
func (d *Deployment) Clone() *Deployment {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}

// Validate checks the combined time bounds and mandatory fields.
func (d *Deployment) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil deployment", ErrInvalidArgument)
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: dapp name required", ErrInvalidArgument)
	}
	if d.Oracle == ([20]byte{}) {
		return fmt.Errorf("%w: oracle required", ErrInvalidArgument)
	}
	return validateTimeLimits(d.TimeMargin, d.MinTime, d.MaxTime)
}

// MinimumLeadTime is the shortest allowed distance between order creation and
// the event, before the time margin is added.
const MinimumLeadTime int64 = 3600

// MaxTimeLimit caps every time parameter at one hundred years so that window
// arithmetic stays within int64.
const MaxTimeLimit int64 = 100 * 365 * 24 * 3600

func validateTimeLimits(margin, minTime, maxTime int64) error {
	if margin < 0 {
		return fmt.Errorf("%w: time_margin must be non-negative", ErrInvalidArgument)
	}
	for _, limit := range []struct {
		field TimeLimit
		value int64
	}{{TimeLimitMargin, margin}, {TimeLimitMin, minTime}, {TimeLimitMax, maxTime}} {
		if limit.value > MaxTimeLimit {
			return fmt.Errorf("%w: %s exceeds %d", ErrInvalidArgument, limit.field, MaxTimeLimit)
		}
	}
	if minTime < MinimumLeadTime+margin {
		return fmt.Errorf("%w: min_time must be at least %d", ErrInvalidArgument, MinimumLeadTime+margin)
	}
	if maxTime <= minTime+margin {
		return fmt.Errorf("%w: max_time must exceed %d", ErrInvalidArgument, minTime+margin)
	}
	return nil
}

// TimeLimit selects one of the adjustable time parameters.
type TimeLimit uint8

const (
	TimeLimitMargin TimeLimit = iota + 1
	TimeLimitMin
	TimeLimitMax
)

// ParseTimeLimit maps the wire names onto TimeLimit.
func ParseTimeLimit(name string) (TimeLimit, error) {
	switch strings.TrimSpace(name) {
	case "time_margin":
		return TimeLimitMargin, nil
	case "min_time":
		return TimeLimitMin, nil
	case "max_time":
		return TimeLimitMax, nil
	default:
		return 0, fmt.Errorf("%w: unknown time limit %q", ErrInvalidArgument, name)
	}
}

func (t TimeLimit) String() string {
	switch t {
	case TimeLimitMargin:
		return "time_margin"
	case TimeLimitMin:
		return "min_time"
	case TimeLimitMax:
		return "max_time"
	default:
		return fmt.Sprintf("time_limit(%d)", uint8(t))
	}
}

// Order captures the terms and runtime state of a single exchange order.
// Timestamp is timezone naive; UTCOffset is expressed in hours.
type Order struct {
	Key           string
	Timestamp     int64
	UTCOffset     int64
	SrcCurrency   string
	DstCurrency   string
	Course        string
	Amount        *big.Int
	SrcWallet     [20]byte
	DstWallet     [20]byte
	DepositWallet [20]byte
	DepositAmount *big.Int
	Fee           *big.Int
	Oracle        [20]byte
	TimeMargin    int64
	MinTime       int64
	MaxTime       int64
	// PayoutThreshold is fixed when the order is created.
	PayoutThreshold int64
	DappName        string
	CreatedAt       int64

	Status           OrderStatus
	FundsTransferred int64
	OracleCost       *big.Int
	NoticedAt        int64
	MatchedWith      string
	MatchCourse      string
	SettledAt        int64
}

// Customer is the insured party receiving a payout.
func (o *Order) Customer() [20]byte { return o.DstWallet }

// Insurer is the party receiving the premium.
func (o *Order) Insurer() [20]byte { return o.SrcWallet }

// Premium is the escrowed deposit.
func (o *Order) Premium() *big.Int { return cloneBigInt(o.DepositAmount) }

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Amount = cloneBigInt(o.Amount)
	clone.DepositAmount = cloneBigInt(o.DepositAmount)
	clone.Fee = cloneBigInt(o.Fee)
	clone.OracleCost = cloneBigInt(o.OracleCost)
	return &clone
}

// ClaimOutcome distinguishes the successful settlement variants.
type ClaimOutcome uint8

const (
	// ClaimNoPayout means the reported outcome reached the payout threshold,
	// so only the insurer is paid.
	ClaimNoPayout ClaimOutcome = iota + 1
	// ClaimPaidOut means the customer received the insured amount.
	ClaimPaidOut
)

func (c ClaimOutcome) String() string {
	switch c {
	case ClaimNoPayout:
		return "no-payout"
	case ClaimPaidOut:
		return "paid-out"
	default:
		return fmt.Sprintf("claim(%d)", uint8(c))
	}
}

// ClaimResult reports the transfers performed by a successful claim.
type ClaimResult struct {
	Outcome        ClaimOutcome
	InsurerPayout  *big.Int
	CustomerPayout *big.Int
	OracleCost     *big.Int
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
