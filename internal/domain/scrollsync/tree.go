// Package scrollsync reconciles viewport intersection events, user scrolling and
// explicit item selection into a single active item for a scroll-tracked list.
package scrollsync

import (
	"errors"
	"fmt"
)

// ErrUnknownItem is returned when an id is not part of the static item tree.
var ErrUnknownItem = errors.New("scrollsync: unknown item")

// Item is a trackable entry. ParentID is empty for top-level items.
type Item struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId,omitempty"`
	Index    int    `json:"index"`
}

// Node describes a top-level item and the ids of its ordered sub-items.
type Node struct {
	ID       string
	SubItems []string
}

// Tree is the immutable two-level item tree a Resolver tracks.
type Tree struct {
	items    map[string]Item
	children map[string][]string
	roots    []string
	order    []string // document order: each root followed by its sub-items
}

// NewTree validates nodes and builds the tree. Ids must be unique and non-empty.
func NewTree(nodes []Node) (*Tree, error) {
	if len(nodes) == 0 {
		return nil, errors.New("scrollsync: tree needs at least one item")
	}

	t := &Tree{
		items:    make(map[string]Item),
		children: make(map[string][]string),
	}

	add := func(item Item) error {
		if item.ID == "" {
			return errors.New("scrollsync: empty item id")
		}
		if _, dup := t.items[item.ID]; dup {
			return fmt.Errorf("scrollsync: duplicate item id %q", item.ID)
		}
		t.items[item.ID] = item
		t.order = append(t.order, item.ID)
		return nil
	}

	for i, n := range nodes {
		if err := add(Item{ID: n.ID, Index: i}); err != nil {
			return nil, err
		}
		t.roots = append(t.roots, n.ID)
		for j, sub := range n.SubItems {
			if err := add(Item{ID: sub, ParentID: n.ID, Index: j}); err != nil {
				return nil, err
			}
			t.children[n.ID] = append(t.children[n.ID], sub)
		}
	}

	return t, nil
}

// MustTree is NewTree that panics on error. Intended for fixtures.
func MustTree(nodes ...Node) *Tree {
	t, err := NewTree(nodes)
	if err != nil {
		panic(err)
	}
	return t
}

// Contains reports whether id is part of the tree.
func (t *Tree) Contains(id string) bool {
	_, ok := t.items[id]
	return ok
}

// Item returns the item for id.
func (t *Tree) Item(id string) (Item, bool) {
	item, ok := t.items[id]
	return item, ok
}

// First returns the first top-level item id, the default active item.
func (t *Tree) First() string { return t.roots[0] }

// IsFirst reports whether id is the first top-level item.
func (t *Tree) IsFirst(id string) bool { return id == t.roots[0] }

// Parent returns the parent id of a sub-item, or "" for top-level items.
func (t *Tree) Parent(id string) string { return t.items[id].ParentID }

// Children returns the ordered sub-item ids of a top-level item.
func (t *Tree) Children(id string) []string { return t.children[id] }

// Roots returns the top-level ids in order.
func (t *Tree) Roots() []string { return append([]string(nil), t.roots...) }

// IDs returns every id in document order.
func (t *Tree) IDs() []string { return append([]string(nil), t.order...) }

// GroupOf returns the top-level id owning id (id itself for top-level items).
func (t *Tree) GroupOf(id string) string {
	if p := t.Parent(id); p != "" {
		return p
	}
	return id
}

// related reports whether a and b are the same item or parent and child.
func (t *Tree) related(a, b string) bool {
	if a == b {
		return true
	}
	return t.Parent(a) == b || t.Parent(b) == a
}
