package scrollsync

import "time"

// Timer is a cancellation handle for a deferred callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs deferred callbacks and reports the current time.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

// SystemScheduler returns a Scheduler backed by the wall clock and time.AfterFunc.
func SystemScheduler() Scheduler { return systemScheduler{} }

func (systemScheduler) Now() time.Time { return time.Now() }

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// timerSlot holds at most one live timer of a given kind. Every cancel bumps the
// generation so a callback that already escaped Stop becomes a no-op.
type timerSlot struct {
	gen   uint64
	timer Timer
}

func (s *timerSlot) cancel() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *timerSlot) armed() bool { return s.timer != nil }
