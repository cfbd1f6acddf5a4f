package scrollsync

import (
	"fmt"
	"time"
)

// Mode governs whether observation events may change the active item.
type Mode int

const (
	// Observing lets ambient scroll position drive the active item.
	Observing Mode = iota
	// UserScrolling records observations but does not apply them.
	UserScrolling
	// ManualLock pins the active item to an explicit selection.
	ManualLock
)

func (m Mode) String() string {
	switch m {
	case Observing:
		return "observing"
	case UserScrolling:
		return "user-scrolling"
	case ManualLock:
		return "manual-lock"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText renders the mode as its string name.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// ObservationEvent is a visibility report for one mounted item.
type ObservationEvent struct {
	ItemID            string  `json:"itemId"`
	IntersectionRatio float64 `json:"intersectionRatio"`
	BoundingTop       float64 `json:"boundingTop"`
	IsIntersecting    bool    `json:"isIntersecting"`
}

// Element is the document-relative geometry of a mounted item, in pixels.
type Element struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// ScrollController moves the viewport. Calls are fire-and-forget.
type ScrollController interface {
	ScrollTo(offset float64, smooth bool)
}

// ViewportObserver reports visibility changes for registered items.
type ViewportObserver interface {
	Observe(itemID string, el Element)
	Unobserve(itemID string)
}

// ScrollFunc adapts a function to ScrollController.
type ScrollFunc func(offset float64, smooth bool)

// ScrollTo calls f.
func (f ScrollFunc) ScrollTo(offset float64, smooth bool) { f(offset, smooth) }

type nopObserver struct{}

func (nopObserver) Observe(string, Element) {}
func (nopObserver) Unobserve(string)        {}

// State is a point-in-time copy of the resolver state for the view layer.
type State struct {
	ActiveItemID        string             `json:"activeItemId"`
	Mode                Mode               `json:"mode"`
	LastManualSelection string             `json:"lastManualSelection,omitempty"`
	LockDeadline        time.Time          `json:"lockDeadline,omitempty"`
	Highlighted         []string           `json:"highlighted"`
	NavOffsets          map[string]float64 `json:"navOffsets"`
}

// Listener receives a State after every change to the active item or mode.
// Listeners run while the resolver is locked and must not call back into it.
type Listener func(State)

// Config holds the tunable timings and framing constants. Zero fields take
// the DefaultConfig value. A negative HeaderHeight means no header, and a
// negative RatioTieEpsilon means only exactly equal ratios tie.
type Config struct {
	ObservationDebounce time.Duration
	QuietPeriod         time.Duration
	LockDuration        time.Duration
	SettleTime          time.Duration
	SelectionReset      time.Duration

	HeaderHeight    float64
	ViewportHeight  float64
	RatioTieEpsilon float64

	FirstLeadIn      float64
	LeadIn           float64
	FirstGroupAnchor float64
	GroupAnchor      float64

	RootMargin string
	Thresholds []float64
}

// DefaultConfig returns the tuned defaults for the experience page.
func DefaultConfig() Config {
	return Config{
		ObservationDebounce: 50 * time.Millisecond,
		QuietPeriod:         150 * time.Millisecond,
		LockDuration:        1000 * time.Millisecond,
		SettleTime:          1000 * time.Millisecond,
		SelectionReset:      500 * time.Millisecond,

		HeaderHeight:    96,
		ViewportHeight:  800,
		RatioTieEpsilon: 0.1,

		FirstLeadIn:      0.30,
		LeadIn:           0.35,
		FirstGroupAnchor: 0.45,
		GroupAnchor:      0.50,

		RootMargin: "-25% 0px -45% 0px",
		Thresholds: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5},
	}
}

func (c *Config) defaults() {
	d := DefaultConfig()
	if c.ObservationDebounce <= 0 {
		c.ObservationDebounce = d.ObservationDebounce
	}
	if c.QuietPeriod <= 0 {
		c.QuietPeriod = d.QuietPeriod
	}
	if c.LockDuration <= 0 {
		c.LockDuration = d.LockDuration
	}
	if c.SettleTime <= 0 {
		c.SettleTime = d.SettleTime
	}
	if c.SelectionReset <= 0 {
		c.SelectionReset = d.SelectionReset
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = d.ViewportHeight
	}
	switch {
	case c.HeaderHeight == 0:
		c.HeaderHeight = d.HeaderHeight
	case c.HeaderHeight < 0:
		c.HeaderHeight = 0
	}
	switch {
	case c.RatioTieEpsilon == 0:
		c.RatioTieEpsilon = d.RatioTieEpsilon
	case c.RatioTieEpsilon < 0:
		c.RatioTieEpsilon = 0
	}
	if c.FirstLeadIn <= 0 {
		c.FirstLeadIn = d.FirstLeadIn
	}
	if c.LeadIn <= 0 {
		c.LeadIn = d.LeadIn
	}
	if c.FirstGroupAnchor <= 0 {
		c.FirstGroupAnchor = d.FirstGroupAnchor
	}
	if c.GroupAnchor <= 0 {
		c.GroupAnchor = d.GroupAnchor
	}
	if c.RootMargin == "" {
		c.RootMargin = d.RootMargin
	}
	if len(c.Thresholds) == 0 {
		c.Thresholds = d.Thresholds
	}
}
