package slot

import "reflect"

// Lookup finds the nearest ancestor slot for T, walking the parent chain
// outward from n (the node's own frame counts). First match wins; a
// descendant slot of the same tag shadows anything above it.
//
// When no exact slot exists the lookup silently retries the nullable tag
// (a slot declared to carry *T) and yields the pointed-to value. A
// nullable slot holding nil reports absence. The fallback is always
// silent; there is no separate explicit-fallback API.
func Lookup[T any](n *Node) (T, bool) {
	var zero T

	tag := TagFor[T]()
	for cur := n; cur != nil; cur = cur.parent {
		if cur.slot != nil && cur.slot.tag == tag {
			return cur.slot.Value().(T), true
		}
	}

	ntag := NullableTagFor[T]()
	for cur := n; cur != nil; cur = cur.parent {
		if cur.slot != nil && cur.slot.tag == ntag {
			if p, ok := cur.slot.Value().(*T); ok && p != nil {
				return *p, true
			}
			return zero, false
		}
	}

	return zero, false
}

// Resolve is Lookup for a required value: a missing slot is a
// *NotFoundError carrying the tag.
func Resolve[T any](n *Node) (T, error) {
	if v, ok := Lookup[T](n); ok {
		return v, nil
	}
	var zero T
	return zero, &NotFoundError{Tag: TagFor[T]()}
}

// LookupRuntime scans the flattened visible-slot list and returns the
// first value whose concrete runtime type equals rt. Used when the static
// tag is insufficiently specific, e.g. addressing by a subtype held in a
// heterogeneous set of slots. O(visible-slot-count) rather than O(depth).
func LookupRuntime(n *Node, rt reflect.Type) (any, bool) {
	for _, s := range VisibleSlots(n, false) {
		v := s.Value()
		if reflect.TypeOf(v) == rt {
			return v, true
		}
	}
	return nil, false
}

// VisibleSlots collects the nearest slot of every distinct tag reachable
// from n, nearest-first. With ignoreLocal set, slots marked local are
// excluded; that restricted set is what bridging carries across a
// navigation push.
func VisibleSlots(n *Node, ignoreLocal bool) []Slot {
	var out []Slot
	seen := make(map[TypeTag]bool)

	for cur := n; cur != nil; cur = cur.parent {
		if cur.slot == nil {
			continue
		}
		if seen[cur.slot.tag] {
			continue
		}
		seen[cur.slot.tag] = true
		if ignoreLocal && cur.slot.local {
			continue
		}
		out = append(out, *cur.slot)
	}

	return out
}
