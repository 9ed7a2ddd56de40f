package tree

import (
	"reflect"

	"github.com/aretw0/firestream/pkg/domain"
)

// Events calculates the snapshots a listener for event at path must receive
// when the tree changes from before to after. With a nil before it returns
// the initial events of a new listener: the value if data exists, or every
// existing child for child_added.
func Events(event domain.EventType, path string, before, after any) []*domain.Snapshot {
	path = Clean(path)
	oldNode, newNode := Get(before, path), Get(after, path)
	if reflect.DeepEqual(oldNode, newNode) {
		return nil
	}

	switch event {
	case domain.EventValue:
		return []*domain.Snapshot{Snapshot(after, path)}
	case domain.EventChildAdded, domain.EventChildChanged, domain.EventChildRemoved, domain.EventChildMoved:
		return diffChildren(event, path, before, after)
	}
	return nil
}

func diffChildren(event domain.EventType, path string, before, after any) []*domain.Snapshot {
	oldNode, newNode := Get(before, path), Get(after, path)
	oldChildren, newChildren := children(oldNode), children(newNode)

	var out []*domain.Snapshot

	if event == domain.EventChildRemoved {
		prev := ""
		for _, k := range ChildKeys(oldNode) {
			if _, exists := newChildren[k]; !exists {
				out = append(out, childSnapshot(before, path, k, prev))
			}
			prev = k
		}
		return out
	}

	prev := ""
	for _, k := range ChildKeys(newNode) {
		newVal := newChildren[k]
		oldVal, existed := oldChildren[k]

		switch {
		case event == domain.EventChildAdded && !existed:
			out = append(out, childSnapshot(after, path, k, prev))
		case event == domain.EventChildChanged && existed && !reflect.DeepEqual(oldVal, newVal):
			out = append(out, childSnapshot(after, path, k, prev))
		case event == domain.EventChildMoved && existed && !reflect.DeepEqual(PriorityOf(oldVal), PriorityOf(newVal)):
			out = append(out, childSnapshot(after, path, k, prev))
		}
		prev = k
	}
	return out
}

func children(node any) map[string]any {
	m, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if !isMeta(k) {
			out[k] = v
		}
	}
	return out
}

func childSnapshot(root any, path, key, prevKey string) *domain.Snapshot {
	s := Snapshot(root, Join(path, key))
	s.PrevKey = prevKey
	return s
}
