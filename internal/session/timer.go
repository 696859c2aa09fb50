package session

import "time"

type TimerKind string

const (
	TimerNone        TimerKind = ""
	TimerPreparation TimerKind = "preparation"
	TimerAnswering   TimerKind = "answering"
)

// Timer counts down whole ticks and fires once when it reaches zero.
type Timer struct {
	Kind      TimerKind
	Remaining int
}

// Tick decrements the timer and reports whether it has expired.
func (t *Timer) Tick() bool {
	if t.Remaining > 0 {
		t.Remaining--
	}
	return t.Remaining == 0
}

// Clock creates the tickers that drive timers.
type Clock interface {
	NewTicker(time.Duration) Ticker
}

type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) NewTicker(d time.Duration) Ticker {
	return realTicker{ticker: time.NewTicker(d)}
}

type realTicker struct {
	ticker *time.Ticker
}

func (t realTicker) Chan() <-chan time.Time { return t.ticker.C }
func (t realTicker) Stop()                  { t.ticker.Stop() }
