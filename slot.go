package slot

// Slot is an attached (TypeTag, value) pair visible to descendant nodes.
// Shadowing and lookup identity go by TypeTag only, never by value.
type Slot struct {
	tag         TypeTag
	value       any
	state       anyMutable
	local       bool
	broadcastID string
	rebuild     bool
}

// Tag returns the slot's type tag.
func (s Slot) Tag() TypeTag {
	return s.tag
}

// Value returns the slot's current value. For a mutably-backed slot this
// is the state's live value.
func (s Slot) Value() any {
	if s.state != nil {
		return s.state.anyGet()
	}
	return s.value
}

// IsLocal reports whether the slot is excluded from bridging.
func (s Slot) IsLocal() bool {
	return s.local
}

// BroadcastID returns the slot's external serialization key, if any.
func (s Slot) BroadcastID() (string, bool) {
	return s.broadcastID, s.broadcastID != ""
}

// IsMutable reports whether the slot is backed by mutable state.
func (s Slot) IsMutable() bool {
	return s.state != nil
}

// ValueAs returns the slot's value as T.
func ValueAs[T any](s Slot) (T, error) {
	return SafeTypeAssertion[T](s.Value())
}

// SlotOption is a modifier for slots.
type SlotOption func(*Slot)

// Local marks the slot as excluded from bridging: it stays behind when a
// snapshot of visible slots is carried into a pushed subtree.
func Local() SlotOption {
	return func(s *Slot) {
		s.local = true
	}
}

// Broadcast marks the slot's value as eligible for external (location)
// serialization under the given key.
func Broadcast(id string) SlotOption {
	return func(s *Slot) {
		s.broadcastID = id
	}
}

// RebuildOnChange makes a mutable slot force its subtree to re-render on
// every Set. Honored by AttachMutable only; a plain slot never rebuilds.
func RebuildOnChange() SlotOption {
	return func(s *Slot) {
		s.rebuild = true
	}
}

// Value creates a data-only slot for type T. A data-only slot carries no
// subtree and is valid only as input to AttachAll; attaching it standalone
// fails fast (see AttachSlot).
func Value[T any](v T, opts ...SlotOption) Slot {
	s := Slot{tag: TagFor[T](), value: v}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// NullableValue creates a data-only slot under the nullable tag for T.
// The carried pointer may be nil.
func NullableValue[T any](v *T, opts ...SlotOption) Slot {
	s := Slot{tag: NullableTagFor[T](), value: v}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Attach makes v visible to the subtree constructed by build. The value
// is visible during the subtree's own construction. Passing a nil build
// is a programmer error and panics; use AttachNode for the fixed-child
// form or AttachAll for data-only slots.
func Attach[T any](parent *Node, v T, build BuildFunc, opts ...SlotOption) *Node {
	if build == nil {
		panic(misconfigured("Attach requires a builder; a data-only slot belongs in AttachAll"))
	}
	return attachSlot(parent, Value(v, opts...), build)
}

// AttachNullable is Attach for a slot declared to carry *T. Lookups for T
// that find no exact slot fall back to it.
func AttachNullable[T any](parent *Node, v *T, build BuildFunc, opts ...SlotOption) *Node {
	if build == nil {
		panic(misconfigured("AttachNullable requires a builder"))
	}
	return attachSlot(parent, NullableValue(v, opts...), build)
}

// AttachNode is the fixed-child attachment form: child was already built
// (via Detached), so the value was NOT visible during the child's own
// construction — only to descendants constructed afterwards, e.g. on a
// rebuild.
func AttachNode[T any](parent *Node, v T, child *Node, opts ...SlotOption) *Node {
	if child == nil {
		panic(misconfigured("AttachNode requires a prebuilt child; use Attach with a builder instead"))
	}
	if !child.detached {
		panic(misconfigured("AttachNode child must come from Detached"))
	}

	s := Value(v, opts...)
	n := attachSlot(parent, s, nil)
	// Rebuilds of the slot node re-run the child's recipe beneath it,
	// at which point the value becomes visible during construction.
	n.build = child.build
	n.adopt(child)
	return n
}

// AttachSlot attaches a prepared slot with a builder. It is the shared
// primitive beneath Attach, AttachAll and bridging. A nil build means the
// slot is data-only and standalone, which fails fast.
func AttachSlot(parent *Node, s Slot, build BuildFunc) *Node {
	if build == nil {
		panic(misconfigured("data-only slot " + s.tag.String() + " attached standalone; wrap it in AttachAll or supply a builder"))
	}
	return attachSlot(parent, s, build)
}

func attachSlot(parent *Node, s Slot, build BuildFunc) *Node {
	tree := parent.tree

	var n *Node
	op := &Operation{Kind: OpAttach, Tag: s.tag, Node: parent, Tree: tree}

	tree.sched.Turn(func() {
		_, _ = tree.wrapOp(op, func() (any, error) {
			n = parent.newChild(&s, build)
			if s.broadcastID != "" {
				tree.mirror.markDirty(n)
			}
			return nil, nil
		})
	})

	return n
}
