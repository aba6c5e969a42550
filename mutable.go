package slot

import "sync"

// MutableState owns a current value of type T and a replay-latest change
// feed. It is exclusively owned by the node that attached it; the only
// sanctioned external mutation path is the handle obtained via
// LookupMutable, never direct field access.
type MutableState[T any] struct {
	tree    *Tree
	tag     TypeTag
	rebuild bool

	mu       sync.Mutex
	owner    *Node
	value    T
	seq      uint64
	watchers map[int]func(T, string)
	nextID   int
	closed   bool
}

// anyMutable is the type-erased view of a MutableState used by bridging
// and by Slot.Value.
type anyMutable interface {
	anyGet() any
	anySet(v any, origin string)
	anyWatch(fn func(v any, origin string), replay bool) (cancel func())
	clone() anyMutable
	setOwner(n *Node)
}

func newMutableState[T any](tree *Tree, initial T, rebuild bool) *MutableState[T] {
	return &MutableState[T]{
		tree:     tree,
		tag:      TagFor[T](),
		rebuild:  rebuild,
		value:    initial,
		watchers: make(map[int]func(T, string)),
	}
}

// AttachMutable attaches a mutable slot with the given initial value.
// Descendants read and write it through the handle from LookupMutable.
// With RebuildOnChange, every Set re-renders the subtree so freshly
// constructed descendants observe the new value; without it, Set only
// feeds watchers.
func AttachMutable[T any](parent *Node, initial T, build BuildFunc, opts ...SlotOption) *Node {
	if build == nil {
		panic(misconfigured("AttachMutable requires a builder"))
	}

	s := Slot{tag: TagFor[T]()}
	for _, opt := range opts {
		opt(&s)
	}

	state := newMutableState(parent.tree, initial, s.rebuild)
	s.state = state

	// attachSlot binds the state to the new node before running build.
	return attachSlot(parent, s, build)
}

// LookupMutable finds the nearest mutable slot for T and returns its
// handle. A plain (immutable) slot of the same tag shadows mutable
// ancestors like any other slot, and reports absence here.
func LookupMutable[T any](n *Node) (*MutableState[T], bool) {
	tag := TagFor[T]()
	for cur := n; cur != nil; cur = cur.parent {
		if cur.slot != nil && cur.slot.tag == tag {
			state, ok := cur.slot.state.(*MutableState[T])
			return state, ok && state != nil
		}
	}
	return nil, false
}

// ResolveMutable is LookupMutable for a required handle.
func ResolveMutable[T any](n *Node) (*MutableState[T], error) {
	if m, ok := LookupMutable[T](n); ok {
		return m, nil
	}
	return nil, &NotFoundError{Tag: TagFor[T]()}
}

// bindOwner ties the state to the node carrying it. Unmounting the node
// closes the state so watchers stop receiving.
func (m *MutableState[T]) bindOwner(n *Node) {
	m.mu.Lock()
	m.owner = n
	m.mu.Unlock()

	n.OnUnmount(func() error {
		m.Close()
		return nil
	})
}

// Get returns the current value.
func (m *MutableState[T]) Get() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value
}

// Set stores v, always feeds the change watchers, and — when the slot was
// attached with RebuildOnChange — schedules the owning subtree's rebuild
// for the end of the turn. A rebuild that cannot run because the owner
// unmounted is swallowed and logged; the value update itself succeeded.
func (m *MutableState[T]) Set(v T) {
	m.setOrigin(v, "")
}

// Modify applies fn to the current value and stores the result. Not
// atomic across concurrent callers; the single-threaded turn model makes
// that safe in practice.
func (m *MutableState[T]) Modify(fn func(T) T) {
	m.Set(fn(m.Get()))
}

// Watch subscribes to the change feed: fn immediately receives the
// current value, then every subsequent one. The returned cancel detaches
// the watcher; any watcher still attached stops receiving when the
// owning node unmounts.
func (m *MutableState[T]) Watch(fn func(T)) (cancel func()) {
	return m.watch(func(v T, _ string) { fn(v) }, true)
}

// Close shuts the change feed. Further Sets are no-ops.
func (m *MutableState[T]) Close() {
	m.mu.Lock()
	m.closed = true
	m.watchers = make(map[int]func(T, string))
	m.mu.Unlock()
}

func (m *MutableState[T]) setOrigin(v T, origin string) {
	m.tree.sched.Turn(func() {
		op := &Operation{Kind: OpMutate, Tag: m.tag, Node: m.owner, Tree: m.tree}
		_, _ = m.tree.wrapOp(op, func() (any, error) {
			m.apply(v, origin)
			return nil, nil
		})
	})
}

func (m *MutableState[T]) apply(v T, origin string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.value = v
	m.seq++
	owner := m.owner
	watchers := make([]func(T, string), 0, len(m.watchers))
	for _, w := range m.watchers {
		watchers = append(watchers, w)
	}
	m.mu.Unlock()

	for _, w := range watchers {
		w(v, origin)
	}

	if owner != nil {
		if m.rebuild {
			if owner.Mounted() {
				m.tree.sched.Schedule(owner)
			} else {
				m.tree.logger.Warn("mutation rebuild skipped: owner unmounted", "slot", m.tag.String())
			}
		}
		if owner.slot != nil && owner.slot.broadcastID != "" {
			m.tree.mirror.markDirty(owner)
		}
	}
}

// watch subscribes fn to the change feed. With replay, fn first receives
// the latest value and is registered only once that value is still
// current: a Set racing in from another goroutine re-runs the replay with
// the newer value instead of arriving before the stale one, so each
// subscription sees a monotonic replay-then-forward sequence.
func (m *MutableState[T]) watch(fn func(T, string), replay bool) (cancel func()) {
	if !replay {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			return func() {}
		}
		return m.registerLocked(fn)
	}

	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return func() {}
		}
		current := m.value
		seq := m.seq
		m.mu.Unlock()

		fn(current, "")

		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return func() {}
		}
		if m.seq == seq {
			cancel = m.registerLocked(fn)
			m.mu.Unlock()
			return cancel
		}
		m.mu.Unlock()
	}
}

func (m *MutableState[T]) registerLocked(fn func(T, string)) func() {
	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

func (m *MutableState[T]) anyGet() any {
	return m.Get()
}

func (m *MutableState[T]) anySet(v any, origin string) {
	m.setOrigin(v.(T), origin)
}

func (m *MutableState[T]) anyWatch(fn func(any, string), replay bool) func() {
	return m.watch(func(v T, origin string) { fn(v, origin) }, replay)
}

// clone produces a fresh unowned state seeded with the current value,
// used by bridging to materialize the pushed subtree's copy.
func (m *MutableState[T]) clone() anyMutable {
	return newMutableState(m.tree, m.Get(), m.rebuild)
}

func (m *MutableState[T]) setOwner(n *Node) {
	m.bindOwner(n)
}
