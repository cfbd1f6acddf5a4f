package messaging

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mkim/mystory/internal/domain/player"
	"github.com/mkim/mystory/internal/domain/scrollsync"
)

// Inbound frame types.
const (
	FrameMount       = "mount"
	FrameUnmount     = "unmount"
	FrameObservation = "observation"
	FrameScroll      = "scroll"
	FrameSelect      = "select"
	FrameResize      = "resize"
	FrameMusicToggle = "music.toggle"
	FrameMusicStatus = "music.status"
)

// Outbound frame types.
const (
	FrameState     = "state"
	FrameScrollTo  = "scrollTo"
	FrameObserve   = "observe"
	FrameUnobserve = "unobserve"
	FrameAudio     = "audio"
	FrameError     = "error"
	FrameHello     = "hello"
)

// InboundFrame is the wire shape of every client frame. Fields irrelevant to a
// type are ignored.
type InboundFrame struct {
	Type              string  `json:"type"`
	ItemID            string  `json:"itemId,omitempty"`
	Top               float64 `json:"top,omitempty"`
	Bottom            float64 `json:"bottom,omitempty"`
	IntersectionRatio float64 `json:"intersectionRatio,omitempty"`
	BoundingTop       float64 `json:"boundingTop,omitempty"`
	IsIntersecting    bool    `json:"isIntersecting,omitempty"`
	Offset            float64 `json:"offset,omitempty"`
	ViewportHeight    float64 `json:"viewportHeight,omitempty"`
}

// Command is a decoded inbound frame: either a resolver message or a music
// command (Type FrameMusicToggle or FrameMusicStatus).
type Command struct {
	Type    string
	Message scrollsync.Message
}

// DecodeFrame parses a client frame.
func DecodeFrame(data []byte) (Command, error) {
	var f InboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return Command{}, fmt.Errorf("invalid frame: %w", err)
	}
	typ := strings.TrimSpace(f.Type)
	cmd := Command{Type: typ}

	switch typ {
	case FrameMount:
		if f.Bottom < f.Top {
			return Command{}, fmt.Errorf("invalid frame: mount %q has bottom above top", f.ItemID)
		}
		cmd.Message = scrollsync.MountMsg{ItemID: f.ItemID, Element: scrollsync.Element{Top: f.Top, Bottom: f.Bottom}}
	case FrameUnmount:
		cmd.Message = scrollsync.UnmountMsg{ItemID: f.ItemID}
	case FrameObservation:
		if f.IntersectionRatio < 0 || f.IntersectionRatio > 1 {
			return Command{}, fmt.Errorf("invalid frame: intersection ratio %v out of range", f.IntersectionRatio)
		}
		cmd.Message = scrollsync.ObservationMsg{Event: scrollsync.ObservationEvent{
			ItemID:            f.ItemID,
			IntersectionRatio: f.IntersectionRatio,
			BoundingTop:       f.BoundingTop,
			IsIntersecting:    f.IsIntersecting,
		}}
	case FrameScroll:
		cmd.Message = scrollsync.ScrollMsg{Offset: f.Offset}
	case FrameSelect:
		cmd.Message = scrollsync.SelectMsg{ItemID: f.ItemID}
	case FrameResize:
		cmd.Message = scrollsync.ResizeMsg{ViewportHeight: f.ViewportHeight}
	case FrameMusicToggle, FrameMusicStatus:
	default:
		return Command{}, fmt.Errorf("invalid frame: unknown type %q", f.Type)
	}
	return cmd, nil
}

// OutboundFrame is the wire shape of every server frame.
type OutboundFrame struct {
	Type       string            `json:"type"`
	SessionID  string            `json:"sessionId,omitempty"`
	State      *scrollsync.State `json:"state,omitempty"`
	ItemID     string            `json:"itemId,omitempty"`
	Offset     *float64          `json:"offset,omitempty"`
	Smooth     bool              `json:"smooth,omitempty"`
	RootMargin string            `json:"rootMargin,omitempty"`
	Thresholds []float64         `json:"thresholds,omitempty"`
	Audio      *AudioPayload     `json:"audio,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// AudioPayload tells the client what its audio element should do.
type AudioPayload struct {
	player.Status
	Src string `json:"src,omitempty"`
}
