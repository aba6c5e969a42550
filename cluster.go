package slot

// AttachAll attaches an ordered list of data-only slots as one nested
// chain: the first slot becomes the outermost frame, the last wraps the
// builder directly. Lookup results are identical to manually nesting
// Attach calls in the same order, without an intermediate builder layer
// per slot.
//
// An empty list degenerates to running build against parent directly; a
// singleton degenerates to a plain attach-with-builder.
func AttachAll(parent *Node, slots []Slot, build BuildFunc) *Node {
	if build == nil {
		panic(misconfigured("AttachAll requires a builder"))
	}

	if len(slots) == 0 {
		parent.tree.sched.Turn(func() { build(parent) })
		return parent
	}

	head := slots[0]
	rest := make([]Slot, len(slots)-1)
	copy(rest, slots[1:])

	if len(rest) == 0 {
		return attachSlot(parent, head, build)
	}

	return attachSlot(parent, head, func(n *Node) {
		AttachAll(n, rest, build)
	})
}
