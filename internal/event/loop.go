package event

import (
	"context"
	"time"
)

// Source produces Events for the Loop to dispatch. Poll must not block; it
// reports whatever is ready at now and, separately, the earliest time it
// expects to have more work (a timeout deadline, a rate-limiter permit).
// Implementations (Network I/O's in-flight table, an algorithm runtime's
// internal queue) own their own state; the Loop never reaches into it.
type Source interface {
	Poll(now time.Time) []Event
	NextDeadline() (deadline time.Time, ok bool)
}

// Loop is the single-threaded cooperative reactor of spec.md §4.3. All
// Source.Poll calls and all Handler invocations happen on the goroutine
// that calls Run; nothing in this package needs a mutex.
type Loop struct {
	handler   Handler
	sources   []Source
	wake      chan struct{}
	terminate chan struct{}
}

// NewLoop builds a Loop dispatching to handler. Sources register via
// AddSource before Run is called.
func NewLoop(handler Handler) *Loop {
	return &Loop{
		handler:   handler,
		wake:      make(chan struct{}, 1),
		terminate: make(chan struct{}),
	}
}

// AddSource registers a Source. Not safe to call once Run has started.
func (l *Loop) AddSource(s Source) {
	l.sources = append(l.sources, s)
}

// Wake lets a Source's background goroutine (e.g. a raw-socket reader)
// signal that new work is ready, without touching Loop state directly.
// Safe to call from any goroutine; coalesces multiple signals into one
// wake-up, same as a standard condition-variable broadcast would.
func (l *Loop) Wake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Terminate marks the loop stopping. Run drains one final batch of
// deadline-driven events (timeouts) from every source before returning,
// per spec.md §4.3's cancellation semantics.
func (l *Loop) Terminate() {
	select {
	case <-l.terminate:
	default:
		close(l.terminate)
	}
}

// Run executes the reactor until ctx is cancelled or Terminate is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.drainFinal()
			return ctx.Err()
		case <-l.terminate:
			l.drainFinal()
			return nil
		default:
		}

		deadline, ok := l.nextDeadline()

		var timerC <-chan time.Time
		if ok {
			d := time.Until(deadline)
			if d < 0 {
				d = 0
			}
			timer := time.NewTimer(d)
			defer timer.Stop()
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			l.drainFinal()
			return ctx.Err()
		case <-l.terminate:
			l.drainFinal()
			return nil
		case <-l.wake:
		case <-timerC:
		}

		l.dispatch(time.Now())
	}
}

func (l *Loop) nextDeadline() (time.Time, bool) {
	var best time.Time
	found := false
	for _, s := range l.sources {
		d, ok := s.NextDeadline()
		if !ok {
			continue
		}
		if !found || d.Before(best) {
			best = d
			found = true
		}
	}
	return best, found
}

func (l *Loop) dispatch(now time.Time) {
	for _, s := range l.sources {
		for _, ev := range s.Poll(now) {
			l.handler(ev)
		}
	}
}

// drainFinal delivers one last round of deadline-driven events (timeouts)
// after termination, matching spec.md §4.3: "the loop drains remaining
// timeouts as PROBE_TIMEOUT events, frees in-flight probes, and returns."
func (l *Loop) drainFinal() {
	l.dispatch(time.Now().Add(24 * time.Hour))
}
