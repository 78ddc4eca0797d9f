package tracker

import (
	"sync"
	"time"
)

// --------------------------------------------------------------------------------------------- //

/*
stdTimerService builds Timer handles backed by time.AfterFunc. It depends on Clock only so
Arm's absolute deadline can be converted into a relative duration; production code always passes
systemClock, tests can substitute a fake one.
*/
type stdTimerService struct {
	clock Clock
}

func newStdTimerService(clock Clock) TimerService {
	return stdTimerService{clock: clock}
}

func (s stdTimerService) NewTimer(onFire func()) Timer {
	return &stdTimer{clock: s.clock, onFire: onFire}
}

// --------------------------------------------------------------------------------------------- //

/*
stdTimer implements Timer over a lazily-created time.Timer. Disarming a timer that was never
armed, or has already fired, is a safe no-op, as SPEC_FULL.md §5 requires.
*/
type stdTimer struct {
	clock  Clock
	onFire func()

	mu sync.Mutex
	t  *time.Timer
}

func (t *stdTimer) Arm(deadline time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.t != nil {
		t.t.Stop()
	}
	d := deadline.Sub(t.clock.Now())
	if d < 0 {
		d = 0
	}
	t.t = time.AfterFunc(d, t.onFire)
}

func (t *stdTimer) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
}
