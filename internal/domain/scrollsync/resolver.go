package scrollsync

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Resolver is the active-item state machine. Every entry point, including timer
// callbacks, runs under one mutex, so events are applied strictly one at a time.
//
// Precedence is explicit selection > user scroll gesture > ambient observation.
type Resolver struct {
	mu sync.Mutex

	cfg      Config
	tree     *Tree
	sched    Scheduler
	scroller ScrollController
	observer ViewportObserver
	logger   *slog.Logger

	elements       map[string]Element
	observations   map[string]ObservationEvent
	viewportHeight float64
	scrollOffset   float64

	active       string
	mode         Mode
	lastManual   string
	lockDeadline time.Time
	settleUntil  time.Time

	pending        string // candidate waiting on the debounce timer
	debounce       timerSlot
	quiet          timerSlot
	lock           timerSlot
	selectionReset timerSlot

	listeners    map[int]Listener
	nextListener int
	dirty        bool
	closed       bool
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(r *Resolver) { r.sched = s }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithObserver sets the viewport observer notified on mount and unmount.
func WithObserver(o ViewportObserver) Option {
	return func(r *Resolver) { r.observer = o }
}

// New creates a Resolver over tree. The first top-level item starts active.
func New(tree *Tree, cfg Config, scroller ScrollController, opts ...Option) *Resolver {
	cfg.defaults()
	r := &Resolver{
		cfg:            cfg,
		tree:           tree,
		sched:          SystemScheduler(),
		scroller:       scroller,
		observer:       nopObserver{},
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		elements:       make(map[string]Element),
		observations:   make(map[string]ObservationEvent),
		viewportHeight: cfg.ViewportHeight,
		active:         tree.First(),
		mode:           Observing,
		listeners:      make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.scroller == nil {
		r.scroller = ScrollFunc(func(float64, bool) {})
	}
	return r
}

// Tree returns the static item tree.
func (r *Resolver) Tree() *Tree { return r.tree }

// Config returns the effective configuration.
func (r *Resolver) Config() Config { return r.cfg }

// ActiveItemID returns the id currently in focus.
func (r *Resolver) ActiveItemID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Mode returns the current mode.
func (r *Resolver) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// IsActive reports whether id is the active item or the parent of the active
// sub-item. An active parent does not make any of its sub-items active.
func (r *Resolver) IsActive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isActive(id)
}

func (r *Resolver) isActive(id string) bool {
	return id == r.active || (id != "" && r.tree.Parent(r.active) == id)
}

// Snapshot returns a copy of the current state.
func (r *Resolver) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *Resolver) snapshot() State {
	highlighted := []string{r.active}
	if p := r.tree.Parent(r.active); p != "" {
		highlighted = append(highlighted, p)
	}
	return State{
		ActiveItemID:        r.active,
		Mode:                r.mode,
		LastManualSelection: r.lastManual,
		LockDeadline:        r.lockDeadline,
		Highlighted:         highlighted,
		NavOffsets:          NavOffsets(r.tree, r.active),
	}
}

// Subscribe registers a listener and returns a function that removes it.
func (r *Resolver) Subscribe(l Listener) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return func() {}
	}
	id := r.nextListener
	r.nextListener++
	r.listeners[id] = l
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

// Mount registers the element for id, replacing any previous registration.
func (r *Resolver) Mount(id string, el Element) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	if !r.tree.Contains(id) {
		return fmt.Errorf("mount: %w: %q", ErrUnknownItem, id)
	}
	_, existed := r.elements[id]
	r.elements[id] = el
	if !existed {
		r.observer.Observe(id, el)
	}
	return nil
}

// Unmount removes the element for id and forgets its last observation.
func (r *Resolver) Unmount(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if _, ok := r.elements[id]; !ok {
		return
	}
	delete(r.elements, id)
	delete(r.observations, id)
	r.observer.Unobserve(id)
}

// Resize updates the viewport height used for centering and framing.
func (r *Resolver) Resize(height float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || height <= 0 {
		return
	}
	r.viewportHeight = height
}

// RegisterObservation records ev and, while observing, schedules the best
// intersecting candidate to become active after the debounce window.
func (r *Resolver) RegisterObservation(ev ObservationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if _, mounted := r.elements[ev.ItemID]; !mounted {
		r.logger.Debug("Observation for unmounted item ignored", "itemId", ev.ItemID)
		return
	}

	if ev.IsIntersecting {
		r.observations[ev.ItemID] = ev
	} else {
		delete(r.observations, ev.ItemID)
	}

	if r.mode != Observing || !ev.IsIntersecting {
		return
	}
	r.evaluate()
}

// NotifyScroll reports a viewport scroll to offset. Scrolls during a manual lock or
// while a programmatic scroll is settling are attributed to the resolver itself.
func (r *Resolver) NotifyScroll(offset float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.scrollOffset = offset
	if r.mode == ManualLock || r.sched.Now().Before(r.settleUntil) {
		return
	}

	if r.mode == Observing {
		r.setMode(UserScrolling)
		r.cancelPending()
	}
	r.selectionReset.cancel()
	r.arm(&r.quiet, r.cfg.QuietPeriod, r.onQuiet)
	r.emit()
}

// SelectItem pins id as the active item, scrolls it into frame and locks out
// ambient updates for the lock duration. ActiveItemID() reports id on return.
// Unknown ids are an error; ids without a mounted element are ignored.
func (r *Resolver) SelectItem(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	if !r.tree.Contains(id) {
		return fmt.Errorf("select: %w: %q", ErrUnknownItem, id)
	}
	target, ok := ScrollTarget(r.tree, r.elements, id, r.viewportHeight, r.cfg)
	if !ok {
		r.logger.Debug("Selection of unmounted item ignored", "itemId", id)
		return nil
	}

	r.cancelPending()
	r.quiet.cancel()
	r.selectionReset.cancel()

	now := r.sched.Now()
	r.setMode(ManualLock)
	r.setActive(id)
	r.lastManual = id
	r.lockDeadline = now.Add(r.cfg.LockDuration)
	r.settleUntil = now.Add(r.cfg.SettleTime)

	r.scroller.ScrollTo(target, true)
	r.arm(&r.lock, r.cfg.LockDuration, func() { r.onLockExpired(id) })

	r.logger.Debug("Item selected", "itemId", id, "target", target)
	r.dirty = true
	r.emit()
	return nil
}

// Close cancels every pending timer and detaches all observation registrations.
// Nothing is called on collaborators or listeners after Close returns.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.cancelPending()
	r.quiet.cancel()
	r.lock.cancel()
	r.selectionReset.cancel()
	for id := range r.elements {
		r.observer.Unobserve(id)
	}
	r.elements = map[string]Element{}
	r.observations = map[string]ObservationEvent{}
	r.listeners = map[int]Listener{}
}

// arm replaces the timer in slot with one that runs fire under the lock, unless
// the slot was cancelled or the resolver closed in the meantime.
func (r *Resolver) arm(slot *timerSlot, d time.Duration, fire func()) {
	slot.cancel()
	gen := slot.gen
	slot.timer = r.sched.AfterFunc(d, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || slot.gen != gen {
			return
		}
		slot.timer = nil
		fire()
		r.emit()
	})
}

func (r *Resolver) cancelPending() {
	r.debounce.cancel()
	r.pending = ""
}

// evaluate picks the best recorded candidate and debounces it into place.
func (r *Resolver) evaluate() {
	candidate, ok := r.bestCandidate()
	if !ok {
		return
	}
	if r.lastManual != "" && r.tree.related(candidate, r.lastManual) {
		r.cancelPending()
		return
	}
	r.pending = candidate
	r.arm(&r.debounce, r.cfg.ObservationDebounce, r.onDebounce)
}

// bestCandidate scans recorded intersecting observations in document order so
// the outcome does not depend on event arrival order.
func (r *Resolver) bestCandidate() (string, bool) {
	center := r.viewportHeight / 2
	var best ObservationEvent
	found := false
	for _, id := range r.tree.order {
		ev, ok := r.observations[id]
		if !ok || !ev.IsIntersecting {
			continue
		}
		if _, mounted := r.elements[id]; !mounted {
			continue
		}
		if !found || r.outranks(ev, best, center) {
			best = ev
			found = true
		}
	}
	return best.ItemID, found
}

func (r *Resolver) outranks(a, b ObservationEvent, center float64) bool {
	diff := a.IntersectionRatio - b.IntersectionRatio
	if diff != 0 && math.Abs(diff) >= r.cfg.RatioTieEpsilon {
		return diff > 0
	}
	return math.Abs(a.BoundingTop-center) < math.Abs(b.BoundingTop-center)
}

func (r *Resolver) onDebounce() {
	candidate := r.pending
	r.pending = ""
	if candidate == "" || r.mode == ManualLock {
		return
	}
	if _, mounted := r.elements[candidate]; !mounted {
		return
	}
	r.setActive(candidate)
	r.lastManual = ""
}

func (r *Resolver) onQuiet() {
	if r.mode != UserScrolling {
		return
	}
	r.setMode(Observing)
	if r.lastManual != "" {
		r.arm(&r.selectionReset, r.cfg.SelectionReset, func() {
			if r.mode != ManualLock {
				r.lastManual = ""
			}
		})
	}
	r.evaluate()
}

// onLockExpired clears the manual selection only if it still refers to the
// expiring lock.
func (r *Resolver) onLockExpired(id string) {
	r.setMode(Observing)
	r.lockDeadline = time.Time{}
	if r.lastManual == id {
		r.lastManual = ""
		r.dirty = true
	}
	r.evaluate()
}

func (r *Resolver) setActive(id string) {
	if r.active != id {
		r.active = id
		r.dirty = true
	}
}

func (r *Resolver) setMode(m Mode) {
	if r.mode != m {
		r.mode = m
		r.dirty = true
	}
}

// emit delivers the current state to listeners if anything changed.
func (r *Resolver) emit() {
	if !r.dirty || r.closed {
		return
	}
	r.dirty = false
	if len(r.listeners) == 0 {
		return
	}
	state := r.snapshot()
	for _, l := range r.listeners {
		l(state)
	}
}
