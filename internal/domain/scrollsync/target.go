package scrollsync

import "math"

// ScrollTarget computes the document offset that frames id in the viewport.
//
// Items belonging to a group (a top-level item with sub-items, or one of those
// sub-items) frame the whole group: the midpoint between the parent's top edge and
// the last sub-item's bottom edge is placed at a fixed fraction of the viewport.
// Other items put their top edge below the header plus a proportional lead-in.
// The result is never negative. ok is false when id has no mounted element.
func ScrollTarget(tree *Tree, elements map[string]Element, id string, viewportHeight float64, cfg Config) (target float64, ok bool) {
	el, mounted := elements[id]
	if !mounted {
		return 0, false
	}

	group := tree.GroupOf(id)
	if subs := tree.Children(group); len(subs) > 0 {
		parentEl, okParent := elements[group]
		lastEl, okLast := elements[subs[len(subs)-1]]
		if okParent && okLast {
			center := parentEl.Top + (lastEl.Bottom-parentEl.Top)/2
			anchor := cfg.GroupAnchor
			if tree.IsFirst(group) {
				anchor = cfg.FirstGroupAnchor
			}
			return math.Max(0, center-viewportHeight*anchor-cfg.HeaderHeight), true
		}
	}

	lead := cfg.LeadIn
	if tree.IsFirst(id) {
		lead = cfg.FirstLeadIn
	}
	offset := math.Floor(viewportHeight*lead) + cfg.HeaderHeight
	return math.Max(0, el.Top-offset), true
}

// NavOffsets returns the vertical nudge for each top-level nav entry: 4px per step
// away from the active group, negative above it and positive below.
func NavOffsets(tree *Tree, activeID string) map[string]float64 {
	const step = 4.0

	roots := tree.roots
	activeIndex := 0
	group := tree.GroupOf(activeID)
	for i, id := range roots {
		if id == group {
			activeIndex = i
			break
		}
	}

	offsets := make(map[string]float64, len(roots))
	for i, id := range roots {
		d := float64(i - activeIndex)
		offsets[id] = d * step
	}
	return offsets
}
