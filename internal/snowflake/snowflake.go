package snowflake

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// Epoch is 2025-01-01T00:00:00Z in unix milliseconds.
	Epoch int64 = 1735689600000

	sequenceBits = 12
	sequenceMask = 1<<sequenceBits - 1
)

// Generator hands out 64-bit ids made of milliseconds since Epoch in the high
// bits and a 12-bit per-millisecond sequence in the low bits.
type Generator struct {
	mu       sync.Mutex
	last     int64 // last millisecond an id was issued for
	sequence int64
	now      func() int64
}

type Option func(*Generator)

// WithClock replaces the millisecond clock, mostly for tests.
func WithClock(now func() int64) Option {
	return func(g *Generator) {
		g.now = now
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{
		last: -1,
		now:  func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate never fails and never repeats a value within the process.
//
// When the wall clock moves backwards the generator keeps issuing ids from the
// last millisecond it saw until the clock catches up again, so ids stay unique
// and increasing but their timestamp part drifts ahead of real time. A sequence
// wrap while pinned moves the logical millisecond forward instead of waiting
// out the rollback.
func (g *Generator) Generate() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now()
	pinned := ts < g.last
	if pinned {
		log.Warnf("snowflake: clock moved backwards by %dms, pinning to last timestamp", g.last-ts)
		ts = g.last
	}

	if ts == g.last {
		g.sequence = (g.sequence + 1) & sequenceMask
		if g.sequence == 0 {
			if pinned {
				ts = g.last + 1
			}
			// sequence exhausted for this millisecond, wait for the next one
			for ts <= g.last {
				ts = g.now()
			}
		}
	} else {
		g.sequence = 0
	}

	g.last = ts
	return uint64((ts-Epoch)<<sequenceBits | g.sequence)
}

// Timestamp extracts the issue time encoded in id.
func Timestamp(id uint64) time.Time {
	return time.UnixMilli(int64(id>>sequenceBits) + Epoch)
}

var defaultGenerator = New()

// Generate issues an id from the process-wide generator.
func Generate() uint64 {
	return defaultGenerator.Generate()
}
