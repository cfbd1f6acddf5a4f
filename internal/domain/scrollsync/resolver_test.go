package scrollsync

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestNew_DefaultsToFirstTopLevelItem(t *testing.T) {
	f := newFixture()
	if got := f.r.ActiveItemID(); got != "A" {
		t.Fatalf("ActiveItemID: got %q, want %q", got, "A")
	}
	if got := f.r.Mode(); got != Observing {
		t.Fatalf("Mode: got %v, want %v", got, Observing)
	}
}

func TestSelectItem_SubItemFramesGroup(t *testing.T) {
	f := newFixture()

	if err := f.r.SelectItem("B2"); err != nil {
		t.Fatalf("SelectItem: %v", err)
	}
	if got := f.r.ActiveItemID(); got != "B2" {
		t.Fatalf("ActiveItemID: got %q, want B2", got)
	}
	if got := f.r.Mode(); got != ManualLock {
		t.Fatalf("Mode: got %v, want %v", got, ManualLock)
	}
	if len(f.scroller.calls) != 1 {
		t.Fatalf("scroll calls: got %d, want 1", len(f.scroller.calls))
	}
	// Midpoint of B.top (1000) and B2.bottom (2100) at half of an 800px viewport,
	// below a 96px header: 1550 - 400 - 96.
	call := f.scroller.calls[0]
	if !approx(call.Offset, 1054) || !call.Smooth {
		t.Errorf("scroll call: got %+v, want {Offset:1054 Smooth:true}", call)
	}
}

func TestSelectItem_RepeatedKeepsSingleLockTimer(t *testing.T) {
	f := newFixture()

	for i := 0; i < 2; i++ {
		if err := f.r.SelectItem("B"); err != nil {
			t.Fatalf("SelectItem #%d: %v", i, err)
		}
	}

	if got := f.r.ActiveItemID(); got != "B" {
		t.Fatalf("ActiveItemID: got %q, want B", got)
	}
	if got := f.sched.Pending(); got != 1 {
		t.Fatalf("pending timers: got %d, want 1", got)
	}
	if got := len(f.scroller.calls); got != 2 {
		t.Errorf("scroll calls: got %d, want 2", got)
	}

	f.sched.Advance(999 * time.Millisecond)
	if got := f.r.Mode(); got != ManualLock {
		t.Fatalf("Mode before expiry: got %v, want %v", got, ManualLock)
	}
	f.sched.Advance(time.Millisecond)
	if got := f.r.Mode(); got != Observing {
		t.Fatalf("Mode after expiry: got %v, want %v", got, Observing)
	}
}

func TestSelectItem_NewSelectionReplacesLockTimer(t *testing.T) {
	f := newFixture()

	_ = f.r.SelectItem("A")
	f.sched.Advance(600 * time.Millisecond)
	_ = f.r.SelectItem("C")
	f.sched.Advance(600 * time.Millisecond)

	// The first lock would have expired at 1000ms; the second runs until 1600ms.
	if got := f.r.Mode(); got != ManualLock {
		t.Fatalf("Mode: got %v, want %v", got, ManualLock)
	}
	if got := f.r.Snapshot().LastManualSelection; got != "C" {
		t.Fatalf("LastManualSelection: got %q, want C", got)
	}
	f.sched.Advance(400 * time.Millisecond)
	if got := f.r.Mode(); got != Observing {
		t.Fatalf("Mode after second expiry: got %v, want %v", got, Observing)
	}
	if got := f.r.Snapshot().LastManualSelection; got != "C" {
		t.Fatalf("LastManualSelection right after expiry: got %q, want C", got)
	}
	f.sched.Advance(500 * time.Millisecond)
	if got := f.r.Snapshot().LastManualSelection; got != "" {
		t.Fatalf("LastManualSelection after reset: got %q, want empty", got)
	}
}

func TestSelectItem_UnknownIDIsReported(t *testing.T) {
	f := newFixture()

	err := f.r.SelectItem("nope")
	if !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("SelectItem: got %v, want ErrUnknownItem", err)
	}
	if got := f.r.ActiveItemID(); got != "A" {
		t.Errorf("ActiveItemID: got %q, want A", got)
	}
	if len(f.scroller.calls) != 0 {
		t.Errorf("scroll calls: got %d, want 0", len(f.scroller.calls))
	}
}

func TestSelectItem_UnmountedIsSilentNoop(t *testing.T) {
	f := newFixture("A", "B")

	if err := f.r.SelectItem("C"); err != nil {
		t.Fatalf("SelectItem: got %v, want nil", err)
	}
	if got := f.r.ActiveItemID(); got != "A" {
		t.Errorf("ActiveItemID: got %q, want A", got)
	}
	if got := f.r.Mode(); got != Observing {
		t.Errorf("Mode: got %v, want %v", got, Observing)
	}
	if len(f.scroller.calls) != 0 {
		t.Errorf("scroll calls: got %d, want 0", len(f.scroller.calls))
	}
	if got := f.sched.Pending(); got != 0 {
		t.Errorf("pending timers: got %d, want 0", got)
	}
}

func TestManualLock_ObservationsCannotChangeActive(t *testing.T) {
	f := newFixture()
	_ = f.r.SelectItem("B2")

	for i := 0; i < 9; i++ {
		f.observe("C", 1, 400)
		f.observe("A", 0.9, 380)
		f.sched.Advance(100 * time.Millisecond)
		if got := f.r.ActiveItemID(); got != "B2" {
			t.Fatalf("after %dms: ActiveItemID got %q, want B2", (i+1)*100, got)
		}
	}
}

func TestScenario_LockWindowThenExpiry(t *testing.T) {
	f := newFixture()
	_ = f.r.SelectItem("B2")

	f.sched.Advance(200 * time.Millisecond)
	f.observe("C", 0.5, 300)
	f.sched.Advance(100 * time.Millisecond)
	if got := f.r.ActiveItemID(); got != "B2" {
		t.Fatalf("within lock: ActiveItemID got %q, want B2", got)
	}

	f.sched.Advance(900 * time.Millisecond) // t = 1200ms
	f.observe("C", 0.5, 300)
	f.sched.Advance(50 * time.Millisecond)
	if got := f.r.ActiveItemID(); got != "C" {
		t.Fatalf("after lock: ActiveItemID got %q, want C", got)
	}
	if got := f.r.Mode(); got != Observing {
		t.Errorf("Mode: got %v, want %v", got, Observing)
	}
}

func TestObservation_DebounceAppliesOnlyLatest(t *testing.T) {
	f := newFixture()

	f.observe("A", 0.3, 200)
	f.sched.Advance(20 * time.Millisecond)
	f.observe("B", 0.9, 350)
	f.sched.Advance(49 * time.Millisecond)
	if got := f.r.ActiveItemID(); got != "A" {
		t.Fatalf("before debounce: ActiveItemID got %q, want A", got)
	}
	f.sched.Advance(time.Millisecond)
	if got := f.r.ActiveItemID(); got != "B" {
		t.Fatalf("after debounce: ActiveItemID got %q, want B", got)
	}
	if len(f.states) != 1 || f.states[0].ActiveItemID != "B" {
		t.Errorf("listener states: got %+v, want one state with B", f.states)
	}
}

func TestObservation_TieBreakIgnoresArrivalOrder(t *testing.T) {
	// 800px viewport: center at 400. B sits 20px off center, C 300px off.
	events := []ObservationEvent{
		{ItemID: "B", IntersectionRatio: 0.50, BoundingTop: 380, IsIntersecting: true},
		{ItemID: "C", IntersectionRatio: 0.52, BoundingTop: 100, IsIntersecting: true},
	}
	orders := [][]int{{0, 1}, {1, 0}}

	for _, order := range orders {
		f := newFixture()
		for _, i := range order {
			f.r.RegisterObservation(events[i])
		}
		f.sched.Advance(50 * time.Millisecond)
		if got := f.r.ActiveItemID(); got != "B" {
			t.Errorf("order %v: ActiveItemID got %q, want B", order, got)
		}
	}
}

func TestObservation_ClearRatioWinnerBeatsCenter(t *testing.T) {
	f := newFixture()
	f.observe("B", 0.2, 400)
	f.observe("C", 0.5, 0)
	f.sched.Advance(50 * time.Millisecond)
	if got := f.r.ActiveItemID(); got != "C" {
		t.Fatalf("ActiveItemID: got %q, want C", got)
	}
}

func TestObservation_NotIntersectingIsIgnored(t *testing.T) {
	f := newFixture()
	f.r.RegisterObservation(ObservationEvent{ItemID: "C", IntersectionRatio: 0, IsIntersecting: false})
	f.sched.Advance(time.Second)
	if got := f.r.ActiveItemID(); got != "A" {
		t.Fatalf("ActiveItemID: got %q, want A", got)
	}
	if got := f.sched.Pending(); got != 0 {
		t.Errorf("pending timers: got %d, want 0", got)
	}
}

func TestObservation_UnmountedItemIsIgnored(t *testing.T) {
	f := newFixture("A", "B")
	f.observe("C", 1, 400)
	f.sched.Advance(time.Second)
	if got := f.r.ActiveItemID(); got != "A" {
		t.Fatalf("ActiveItemID: got %q, want A", got)
	}
}

func TestObservation_UnmountBeforeDebounceDropsCandidate(t *testing.T) {
	f := newFixture()
	f.observe("C", 1, 400)
	f.r.Unmount("C")
	f.sched.Advance(time.Second)
	if got := f.r.ActiveItemID(); got != "A" {
		t.Fatalf("ActiveItemID: got %q, want A", got)
	}
}

func TestParentChildCoupling(t *testing.T) {
	f := newFixture()

	_ = f.r.SelectItem("B2")
	if !f.r.IsActive("B2") || !f.r.IsActive("B") {
		t.Fatalf("after selecting B2: IsActive(B2)=%v IsActive(B)=%v, want both true",
			f.r.IsActive("B2"), f.r.IsActive("B"))
	}
	if f.r.IsActive("B1") {
		t.Errorf("after selecting B2: IsActive(B1) = true, want false")
	}

	_ = f.r.SelectItem("B")
	if !f.r.IsActive("B") {
		t.Fatalf("after selecting B: IsActive(B) = false")
	}
	if f.r.IsActive("B1") || f.r.IsActive("B2") {
		t.Errorf("after selecting B: sub-items report active (B1=%v, B2=%v)",
			f.r.IsActive("B1"), f.r.IsActive("B2"))
	}

	hl := f.r.Snapshot().Highlighted
	if len(hl) != 1 || hl[0] != "B" {
		t.Errorf("Highlighted: got %v, want [B]", hl)
	}
}

func TestLockExpiry_ClearsManualSelection(t *testing.T) {
	tests := []struct {
		name      string
		selected  string
		candidate string
	}{
		{name: "parent of selected sub-item", selected: "B2", candidate: "B"},
		{name: "sub-item of selected parent", selected: "B", candidate: "B1"},
		{name: "unrelated item", selected: "B1", candidate: "C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_ = f.r.SelectItem(tt.selected)
			f.observe(tt.candidate, 0.9, 400)

			f.sched.Advance(1000 * time.Millisecond)
			if got := f.r.Mode(); got != Observing {
				t.Fatalf("Mode: got %v, want %v", got, Observing)
			}
			if got := f.r.Snapshot().LastManualSelection; got != "" {
				t.Fatalf("LastManualSelection at lock expiry: got %q, want empty", got)
			}

			f.sched.Advance(100 * time.Millisecond)
			if got := f.r.ActiveItemID(); got != tt.candidate {
				t.Fatalf("ActiveItemID: got %q, want %q", got, tt.candidate)
			}
		})
	}
}

func TestLockExpiry_LaterSelectionSurvives(t *testing.T) {
	f := newFixture()
	_ = f.r.SelectItem("A")
	f.sched.Advance(600 * time.Millisecond)
	_ = f.r.SelectItem("C")

	f.sched.Advance(500 * time.Millisecond) // first lock would have expired
	if got := f.r.Snapshot().LastManualSelection; got != "C" {
		t.Fatalf("LastManualSelection: got %q, want C", got)
	}
	f.sched.Advance(600 * time.Millisecond)
	if got := f.r.Snapshot().LastManualSelection; got != "" {
		t.Fatalf("LastManualSelection after second lock: got %q, want empty", got)
	}
}

func TestManualSelection_SuppressedCandidateDropsOlderPending(t *testing.T) {
	f := newFixture()
	f.pinManual("B2")

	f.observe("C", 0.3, 300)
	f.sched.Advance(10 * time.Millisecond)
	f.observe("B", 0.9, 400) // best candidate, but related to B2
	f.sched.Advance(60 * time.Millisecond)

	if got := f.r.ActiveItemID(); got != "A" {
		t.Fatalf("ActiveItemID: got %q, want A", got)
	}
}

func TestUserScrolling_DefersObservationsUntilQuiet(t *testing.T) {
	f := newFixture()

	f.r.NotifyScroll(10)
	if got := f.r.Mode(); got != UserScrolling {
		t.Fatalf("Mode: got %v, want %v", got, UserScrolling)
	}
	f.observe("C", 0.6, 300)

	f.sched.Advance(100 * time.Millisecond)
	f.r.NotifyScroll(20)
	f.sched.Advance(100 * time.Millisecond)
	if got := f.r.Mode(); got != UserScrolling {
		t.Fatalf("Mode after second scroll: got %v, want %v", got, UserScrolling)
	}
	if got := f.r.ActiveItemID(); got != "A" {
		t.Fatalf("ActiveItemID while scrolling: got %q, want A", got)
	}

	f.sched.Advance(50 * time.Millisecond)
	if got := f.r.Mode(); got != Observing {
		t.Fatalf("Mode after quiet period: got %v, want %v", got, Observing)
	}
	f.sched.Advance(50 * time.Millisecond)
	if got := f.r.ActiveItemID(); got != "C" {
		t.Fatalf("ActiveItemID after quiet period: got %q, want C", got)
	}
}

func TestUserScrolling_CancelsPendingObservation(t *testing.T) {
	f := newFixture()
	f.observe("C", 0.6, 300)
	f.r.NotifyScroll(5)
	f.sched.Advance(60 * time.Millisecond)
	if got := f.r.ActiveItemID(); got != "A" {
		t.Fatalf("ActiveItemID: got %q, want A", got)
	}
}

func TestScroll_DuringLockIsAttributedToResolver(t *testing.T) {
	f := newFixture()
	_ = f.r.SelectItem("C")
	f.r.NotifyScroll(500)
	f.r.NotifyScroll(900)
	if got := f.r.Mode(); got != ManualLock {
		t.Fatalf("Mode: got %v, want %v", got, ManualLock)
	}
}

func TestScrollEnd_ResetsManualSelection(t *testing.T) {
	f := newFixture()
	f.pinManual("B2")

	f.r.NotifyScroll(900)
	f.sched.Advance(150 * time.Millisecond)
	if got := f.r.Mode(); got != Observing {
		t.Fatalf("Mode after quiet period: got %v, want %v", got, Observing)
	}
	if got := f.r.Snapshot().LastManualSelection; got != "B2" {
		t.Fatalf("LastManualSelection after quiet period: got %q, want B2", got)
	}

	f.observe("B", 0.9, 400)
	f.sched.Advance(100 * time.Millisecond)
	if got := f.r.ActiveItemID(); got != "A" {
		t.Fatalf("related candidate applied during reset window: active %q", got)
	}

	f.sched.Advance(400 * time.Millisecond)
	if got := f.r.Snapshot().LastManualSelection; got != "" {
		t.Fatalf("LastManualSelection after reset: got %q, want empty", got)
	}
	f.observe("B", 0.9, 400)
	f.sched.Advance(50 * time.Millisecond)
	if got := f.r.ActiveItemID(); got != "B" {
		t.Fatalf("ActiveItemID after reset: got %q, want B", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.defaults()
	if cfg.HeaderHeight != 96 {
		t.Errorf("HeaderHeight: got %v, want 96", cfg.HeaderHeight)
	}
	if cfg.RatioTieEpsilon != 0.1 {
		t.Errorf("RatioTieEpsilon: got %v, want 0.1", cfg.RatioTieEpsilon)
	}

	cfg = Config{HeaderHeight: -1, RatioTieEpsilon: -1}
	cfg.defaults()
	if cfg.HeaderHeight != 0 || cfg.RatioTieEpsilon != 0 {
		t.Errorf("negative fields: got HeaderHeight=%v RatioTieEpsilon=%v, want 0 and 0",
			cfg.HeaderHeight, cfg.RatioTieEpsilon)
	}
}

func TestObservation_ExactTiePolicy(t *testing.T) {
	f := newFixture()
	f.r = New(fixtureTree(), Config{RatioTieEpsilon: -1}, f.scroller, WithScheduler(f.sched))
	for _, id := range []string{"A", "B", "C"} {
		_ = f.r.Mount(id, fixtureElements[id])
	}

	// 0.52 beats 0.50 outright even though B sits nearer the center.
	f.observe("C", 0.52, 0)
	f.observe("B", 0.50, 400)
	f.sched.Advance(60 * time.Millisecond)
	if got := f.r.ActiveItemID(); got != "C" {
		t.Fatalf("ActiveItemID: got %q, want C", got)
	}

	// Equal ratios still fall back to center distance.
	f.observe("C", 0.5, 0)
	f.sched.Advance(60 * time.Millisecond)
	if got := f.r.ActiveItemID(); got != "B" {
		t.Fatalf("ActiveItemID on exact tie: got %q, want B", got)
	}
}

func TestClose_MidLockStopsEverything(t *testing.T) {
	f := newFixture()
	_ = f.r.SelectItem("B2")
	f.observe("C", 1, 400)
	statesBefore := len(f.states)
	scrollsBefore := len(f.scroller.calls)

	f.r.Close()

	if got := f.sched.Pending(); got != 0 {
		t.Fatalf("pending timers after Close: got %d, want 0", got)
	}
	if got := len(f.observer.unobserved); got != 5 {
		t.Errorf("unobserved: got %d, want 5", got)
	}

	f.sched.Advance(5 * time.Second)
	f.observe("C", 1, 400)
	f.r.NotifyScroll(100)
	if err := f.r.SelectItem("A"); err != nil {
		t.Errorf("SelectItem after Close: %v", err)
	}
	f.sched.Advance(5 * time.Second)

	if got := len(f.states); got != statesBefore {
		t.Errorf("listener calls after Close: got %d, want 0", got-statesBefore)
	}
	if got := len(f.scroller.calls); got != scrollsBefore {
		t.Errorf("scroll calls after Close: got %d, want 0", got-scrollsBefore)
	}
	if got := f.r.ActiveItemID(); got != "B2" {
		t.Errorf("ActiveItemID after Close: got %q, want B2", got)
	}
}

func TestMount_ReplacesRegistration(t *testing.T) {
	f := newFixture("A", "C")

	if err := f.r.Mount("C", Element{Top: 3000, Bottom: 3300}); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if got := len(f.observer.observed); got != 2 {
		t.Errorf("observe calls: got %d, want 2", got)
	}

	_ = f.r.SelectItem("C")
	// 3000 - (floor(800*0.35) + 96)
	if got := f.scroller.calls[0].Offset; !approx(got, 2624) {
		t.Errorf("scroll offset: got %v, want 2624", got)
	}
}

func TestMount_UnknownIDIsReported(t *testing.T) {
	f := newFixture()
	if err := f.r.Mount("ghost", Element{}); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("Mount: got %v, want ErrUnknownItem", err)
	}
}

func TestDispatch_RoutesMessages(t *testing.T) {
	f := newFixture("A")

	msgs := []Message{
		ResizeMsg{ViewportHeight: 1000},
		MountMsg{ItemID: "C", Element: Element{Top: 2400, Bottom: 2700}},
		SelectMsg{ItemID: "C"},
	}
	for _, m := range msgs {
		if err := f.r.Dispatch(m); err != nil {
			t.Fatalf("Dispatch(%T): %v", m, err)
		}
	}
	if got := f.r.ActiveItemID(); got != "C" {
		t.Fatalf("ActiveItemID: got %q, want C", got)
	}
	// 2400 - (floor(1000*0.35) + 96)
	if got := f.scroller.calls[0].Offset; !approx(got, 1954) {
		t.Errorf("scroll offset: got %v, want 1954", got)
	}

	if err := f.r.Dispatch(SelectMsg{ItemID: "missing"}); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("Dispatch(SelectMsg missing): got %v, want ErrUnknownItem", err)
	}
}

// TestInvariants_RandomEventSequences drives random interleavings and checks that
// the active item always belongs to the tree and never moves during a lock
// except through an explicit selection.
func TestInvariants_RandomEventSequences(t *testing.T) {
	ids := fixtureTree().IDs()
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 50; run++ {
		f := newFixture()
		for step := 0; step < 200; step++ {
			before := f.r.Snapshot()
			selected := false

			switch rng.Intn(5) {
			case 0:
				id := ids[rng.Intn(len(ids))]
				f.observe(id, rng.Float64()*0.5, rng.Float64()*800)
			case 1:
				f.r.NotifyScroll(rng.Float64() * 3000)
			case 2:
				_ = f.r.SelectItem(ids[rng.Intn(len(ids))])
				selected = true
			case 3:
				f.sched.Advance(time.Duration(rng.Intn(300)) * time.Millisecond)
			case 4:
				id := ids[rng.Intn(len(ids))]
				f.r.RegisterObservation(ObservationEvent{ItemID: id})
			}

			after := f.r.Snapshot()
			if !f.r.Tree().Contains(after.ActiveItemID) {
				t.Fatalf("run %d step %d: active %q not in tree", run, step, after.ActiveItemID)
			}
			if before.Mode == ManualLock && after.Mode == ManualLock && !selected &&
				before.ActiveItemID != after.ActiveItemID {
				t.Fatalf("run %d step %d: active moved %q -> %q during lock",
					run, step, before.ActiveItemID, after.ActiveItemID)
			}
		}
	}
}
