package core

import (
	"sync"
	"time"
)

// BlockClock supplies the block time of each operation. It never goes
// backwards even if the wall clock does.
type BlockClock struct {
	mu   sync.Mutex
	last int64
	wall func() time.Time
}

// NewBlockClock returns a clock reading wall. A nil wall uses time.Now.
func NewBlockClock(wall func() time.Time) *BlockClock {
	if wall == nil {
		wall = time.Now
	}
	return &BlockClock{wall: wall}
}

// Now returns max(previous, wall) in unix seconds.
func (c *BlockClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.wall().Unix()
	if ts < c.last {
		ts = c.last
	}
	c.last = ts
	return ts
}
