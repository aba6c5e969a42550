package slot

import "github.com/google/uuid"

// Bridge snapshots the slots visible from `from` (locals excluded) and
// returns a builder that re-attaches the snapshot, outermost-first, as
// ancestors of the subtree built by `build`. It simulates continuity
// across a navigation push: the new subtree looks up the same values its
// origin could.
//
// Mutably-backed slots are bridged as fresh states seeded with the
// current value and linked bidirectionally: edits in the pushed subtree
// backpropagate to the original, and vice versa, for as long as both
// sides are mounted. Every forwarded update carries the link's origin id
// and each direction ignores updates it originated, so one Set yields
// exactly one update per side and no feedback loop.
func Bridge(from *Node, build BuildFunc) BuildFunc {
	tree := from.tree
	carried := VisibleSlots(from, true)

	op := &Operation{Kind: OpBridge, Tag: TypeTag{}, Node: from, Tree: tree}
	_, _ = tree.wrapOp(op, func() (any, error) {
		for _, ext := range tree.extensions() {
			ext.OnBridge(from, carried)
		}
		return nil, nil
	})

	return func(target *Node) {
		attachBridged(target, carried, build)
	}
}

// attachBridged folds the carried snapshot onto target: carried is
// nearest-first, so iteration starts at the far end (outermost) and each
// step nests the remainder as its subtree. Rebuild recipes stay intact:
// re-rendering a bridged frame re-attaches everything beneath it.
func attachBridged(target *Node, carried []Slot, build BuildFunc) {
	if len(carried) == 0 {
		if build != nil {
			build(target)
		}
		return
	}

	outer := carried[len(carried)-1]
	rest := carried[:len(carried)-1]

	inner := func(n *Node) {
		attachBridged(n, rest, build)
	}

	if outer.state == nil {
		attachSlot(target, outer, inner)
		return
	}

	original := outer.state
	derived := original.clone()

	bridged := outer
	bridged.state = derived
	bridged.value = nil

	n := attachSlot(target, bridged, inner)
	linkStates(original, derived, n)
}

// linkStates wires the two one-directional forwarding subscriptions of a
// bridge link. Both subscriptions share one origin id; a subscriber that
// sees its own link's id is looking at the echo of an update it just
// forwarded and drops it. Subscriptions are torn down when the derived
// side's node unmounts.
func linkStates(original, derived anyMutable, ownerNode *Node) {
	linkID := uuid.NewString()

	cancelFwd := original.anyWatch(func(v any, origin string) {
		if origin == linkID {
			return
		}
		derived.anySet(v, linkID)
	}, false)

	cancelBack := derived.anyWatch(func(v any, origin string) {
		if origin == linkID {
			return
		}
		original.anySet(v, linkID)
	}, false)

	ownerNode.OnUnmount(func() error {
		cancelFwd()
		cancelBack()
		return nil
	})
}
