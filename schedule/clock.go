package schedule

import (
	"sync"
	"time"
)

// TicksPerSecond is the fixed rate of the game clock.
const TicksPerSecond = 20

// TickDuration is the real time duration of one tick.
const TickDuration = time.Second / TicksPerSecond

// Seconds converts the given seconds to ticks.
func Seconds(seconds int) int {
	return seconds * TicksPerSecond
}

// Ticker emits game ticks.
type Ticker interface {
	// C receives once per tick.
	C() <-chan time.Time
	// Done marks the tick last received from C as handled. Consumers call it
	// after each tick.
	Done()
	// Stop the Ticker. No more ticks are delivered afterwards.
	Stop()
}

// Clock is the single time source that creates a Ticker for every arena.
type Clock interface {
	NewTicker() Ticker
}

// RealClock ticks in real time with TickDuration.
type RealClock struct{}

// NewTicker creates a Ticker backed by time.Ticker.
func (RealClock) NewTicker() Ticker {
	return &realTicker{t: time.NewTicker(TickDuration)}
}

type realTicker struct {
	t *time.Ticker
}

func (t *realTicker) C() <-chan time.Time {
	return t.t.C
}

func (t *realTicker) Done() {}

func (t *realTicker) Stop() {
	t.t.Stop()
}

// ManualClock is a Clock that only ticks when Advance is called. Use it for
// deterministic tests.
type ManualClock struct {
	now     time.Time
	tickers []*manualTicker
	m       sync.Mutex
}

// NewManualClock creates a new ManualClock.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Unix(0, 0)}
}

type manualTicker struct {
	c       chan time.Time
	handled chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func (t *manualTicker) C() <-chan time.Time {
	return t.c
}

func (t *manualTicker) Done() {
	select {
	case <-t.stopped:
	case t.handled <- struct{}{}:
	}
}

func (t *manualTicker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

// NewTicker creates a Ticker that receives on Advance.
func (c *ManualClock) NewTicker() Ticker {
	c.m.Lock()
	defer c.m.Unlock()
	t := &manualTicker{
		c:       make(chan time.Time),
		handled: make(chan struct{}),
		stopped: make(chan struct{}),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance delivers the given number of ticks to every running Ticker. Each
// tick is delivered only after the consumer called Done for the previous one
// and Advance returns after all ticks are handled. Consumers of a ManualClock
// ticker must therefore call Done after every tick.
func (c *ManualClock) Advance(ticks int) {
	for i := 0; i < ticks; i++ {
		c.m.Lock()
		c.now = c.now.Add(TickDuration)
		now := c.now
		tickers := make([]*manualTicker, 0, len(c.tickers))
		for _, t := range c.tickers {
			select {
			case <-t.stopped:
			default:
				tickers = append(tickers, t)
			}
		}
		c.tickers = tickers
		c.m.Unlock()
		for _, t := range tickers {
			select {
			case <-t.stopped:
				continue
			case t.c <- now:
			}
			select {
			case <-t.stopped:
			case <-t.handled:
			}
		}
	}
}
