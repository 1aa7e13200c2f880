package dapp

import "fmt"

const (
	secondsPerHour = 3600
	minUTCOffset   = -12
	maxUTCOffset   = 14
)

func validateUTCOffset(offset int64) error {
	if offset < minUTCOffset || offset > maxUTCOffset {
		return fmt.Errorf("%w: utc offset %d outside [%d, %d]", ErrInvalidArgument, offset, minUTCOffset, maxUTCOffset)
	}
	return nil
}

// localTime shifts a timezone naive timestamp by the offset in hours.
func localTime(ts, utcOffset int64) int64 {
	return ts + utcOffset*secondsPerHour
}

// checkCreationWindow enforces
//
//	now + min_time - time_margin <= timestamp <= now + max_time + time_margin
//
// on offset-adjusted times. Both sides shift by the same offset, so the check
// runs on the lead time alone. Callers reject negative timestamps and limits
// are capped by MaxTimeLimit, which keeps every term within int64.
func checkCreationWindow(timestamp, now int64, dep *Deployment) error {
	lead := timestamp - now
	earliest := dep.MinTime - dep.TimeMargin
	latest := dep.MaxTime + dep.TimeMargin
	if lead < earliest {
		return fmt.Errorf("%w: event %ds ahead, earliest allowed %ds", ErrWindowViolation, lead, earliest)
	}
	if lead > latest {
		return fmt.Errorf("%w: event %ds ahead, latest allowed %ds", ErrWindowViolation, lead, latest)
	}
	return nil
}

// eventReached reports whether the order's event time has passed.
func eventReached(order *Order, now int64) bool {
	return localTime(now, order.UTCOffset) >= localTime(order.Timestamp, order.UTCOffset)
}

// refundDeadline is the adjusted time after which an unreported order can be
// refunded, computed from the order's own stored limits.
func refundDeadline(order *Order) int64 {
	return localTime(order.Timestamp, order.UTCOffset) + order.MaxTime + order.TimeMargin
}
