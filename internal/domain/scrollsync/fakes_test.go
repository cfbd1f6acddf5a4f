package scrollsync

import (
	"math"
	"time"
)

// manualScheduler is a deterministic Scheduler driven by Advance.
type manualScheduler struct {
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (s *manualScheduler) Now() time.Time { return s.now }

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{at: s.now.Add(d), seq: s.seq, f: f}
	s.seq++
	s.timers = append(s.timers, t)
	return t
}

// Advance moves the clock forward, firing due timers in deadline order.
func (s *manualScheduler) Advance(d time.Duration) {
	end := s.now.Add(d)
	for {
		var next *manualTimer
		for _, t := range s.timers {
			if t.stopped || t.fired || t.at.After(end) {
				continue
			}
			if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
				next = t
			}
		}
		if next == nil {
			break
		}
		s.now = next.at
		next.fired = true
		next.f()
	}
	s.now = end
}

// Pending counts timers that are neither stopped nor fired.
func (s *manualScheduler) Pending() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type scrollCall struct {
	Offset float64
	Smooth bool
}

type spyScroller struct {
	calls []scrollCall
}

func (s *spyScroller) ScrollTo(offset float64, smooth bool) {
	s.calls = append(s.calls, scrollCall{Offset: offset, Smooth: smooth})
}

type spyObserver struct {
	observed   []string
	unobserved []string
}

func (o *spyObserver) Observe(id string, _ Element) { o.observed = append(o.observed, id) }
func (o *spyObserver) Unobserve(id string)          { o.unobserved = append(o.unobserved, id) }

// fixture is the tree [A, B(B1, B2), C] with every element mounted.
type fixture struct {
	r        *Resolver
	sched    *manualScheduler
	scroller *spyScroller
	observer *spyObserver
	states   []State
}

var fixtureElements = map[string]Element{
	"A":  {Top: 500, Bottom: 800},
	"B":  {Top: 1000, Bottom: 1300},
	"B1": {Top: 1400, Bottom: 1700},
	"B2": {Top: 1800, Bottom: 2100},
	"C":  {Top: 2400, Bottom: 2700},
}

func fixtureTree() *Tree {
	return MustTree(
		Node{ID: "A"},
		Node{ID: "B", SubItems: []string{"B1", "B2"}},
		Node{ID: "C"},
	)
}

func newFixture(mount ...string) *fixture {
	f := &fixture{
		sched:    newManualScheduler(),
		scroller: &spyScroller{},
		observer: &spyObserver{},
	}
	f.r = New(fixtureTree(), DefaultConfig(), f.scroller,
		WithScheduler(f.sched),
		WithObserver(f.observer),
	)
	if len(mount) == 0 {
		mount = []string{"A", "B", "B1", "B2", "C"}
	}
	for _, id := range mount {
		if err := f.r.Mount(id, fixtureElements[id]); err != nil {
			panic(err)
		}
	}
	f.r.Subscribe(func(s State) { f.states = append(f.states, s) })
	return f
}

func (f *fixture) observe(id string, ratio, top float64) {
	f.r.RegisterObservation(ObservationEvent{
		ItemID:            id,
		IntersectionRatio: ratio,
		BoundingTop:       top,
		IsIntersecting:    true,
	})
}

// pinManual leaves id as the last manual selection outside any lock.
func (f *fixture) pinManual(id string) {
	f.r.mu.Lock()
	f.r.lastManual = id
	f.r.mu.Unlock()
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
