package scrollsync

import "fmt"

// Message is a typed external signal delivered to the Resolver.
type Message interface {
	message()
}

// MountMsg registers or replaces the element of an item.
type MountMsg struct {
	ItemID  string  `json:"itemId"`
	Element Element `json:"element"`
}

// UnmountMsg removes the element of an item.
type UnmountMsg struct {
	ItemID string `json:"itemId"`
}

// ObservationMsg carries a viewport intersection report.
type ObservationMsg struct {
	Event ObservationEvent `json:"event"`
}

// ScrollMsg reports the viewport's new scroll offset.
type ScrollMsg struct {
	Offset float64 `json:"offset"`
}

// SelectMsg is an explicit user selection (a click).
type SelectMsg struct {
	ItemID string `json:"itemId"`
}

// ResizeMsg reports a new viewport height.
type ResizeMsg struct {
	ViewportHeight float64 `json:"viewportHeight"`
}

func (MountMsg) message()       {}
func (UnmountMsg) message()     {}
func (ObservationMsg) message() {}
func (ScrollMsg) message()      {}
func (SelectMsg) message()      {}
func (ResizeMsg) message()      {}

// Dispatch applies msg to the resolver. Only integration errors (unknown ids in
// mount or select) are returned; timing and visibility races are absorbed.
func (r *Resolver) Dispatch(msg Message) error {
	switch m := msg.(type) {
	case MountMsg:
		return r.Mount(m.ItemID, m.Element)
	case UnmountMsg:
		r.Unmount(m.ItemID)
	case ObservationMsg:
		r.RegisterObservation(m.Event)
	case ScrollMsg:
		r.NotifyScroll(m.Offset)
	case SelectMsg:
		return r.SelectItem(m.ItemID)
	case ResizeMsg:
		r.Resize(m.ViewportHeight)
	default:
		return fmt.Errorf("scrollsync: unsupported message %T", msg)
	}
	return nil
}
