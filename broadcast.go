package slot

import (
	"log/slog"
	"net/url"
	"sync"
	"time"
)

// Location is the narrow interface to the external persistence adapter
// (typically a URL bar). The slot layer merges broadcast values into the
// current query string; it never owns navigation or history semantics.
type Location interface {
	ReadCurrentLocation() (*url.URL, error)
	WriteLocation(*url.URL) error
}

// VisibleBroadcastMap restricts the visible-slot snapshot to slots with a
// broadcast id, encoding each value through the tree's codec registry.
// The result is what gets mirrored into the location's query parameters.
func VisibleBroadcastMap(n *Node) (map[string]string, error) {
	out := make(map[string]string)

	for _, s := range VisibleSlots(n, false) {
		id, ok := s.BroadcastID()
		if !ok {
			continue
		}
		wire, err := n.tree.codecs.Encode(s.tag, s.Value())
		if err != nil {
			return nil, err
		}
		out[id] = wire
	}

	return out, nil
}

// mirror debounces best-effort writes of the broadcast map into the
// location adapter. Writes are fire-and-forget: failures are logged,
// never retried, never surfaced to the caller — a rapid burst of
// mutations collapses into one write after the debounce window. Every
// node dirtied within the window contributes its broadcast map to that
// write; sibling branches do not overwrite each other.
type mirror struct {
	tree     *Tree
	loc      Location
	logger   *slog.Logger
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
	dirty map[*Node]struct{}
}

func (m *mirror) markDirty(n *Node) {
	if m.loc == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dirty == nil {
		m.dirty = make(map[*Node]struct{})
	}
	m.dirty[n] = struct{}{}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, m.flush)
}

func (m *mirror) flush() {
	m.mu.Lock()
	nodes := m.dirty
	m.dirty = nil
	m.mu.Unlock()

	if len(nodes) == 0 || m.loc == nil {
		return
	}

	merged := make(map[string]string)
	var live *Node
	for n := range nodes {
		if !n.Mounted() {
			m.logger.Debug("broadcast mirror skipped: node unmounted")
			continue
		}
		bm, err := VisibleBroadcastMap(n)
		if err != nil {
			m.logger.Warn("broadcast mirror: encoding failed", "err", err)
			continue
		}
		for id, wire := range bm {
			merged[id] = wire
		}
		live = n
	}
	if len(merged) == 0 {
		return
	}

	op := &Operation{Kind: OpBroadcast, Node: live, Tree: m.tree}
	_, _ = m.tree.wrapOp(op, func() (any, error) {
		m.write(merged)
		return nil, nil
	})
}

func (m *mirror) write(merged map[string]string) {
	loc, err := m.loc.ReadCurrentLocation()
	if err != nil {
		m.logger.Warn("broadcast mirror: reading location failed", "err", err)
		return
	}

	q := loc.Query()
	for id, wire := range merged {
		q.Set(id, wire)
	}
	loc.RawQuery = q.Encode()

	if err := m.loc.WriteLocation(loc); err != nil {
		m.logger.Warn("broadcast mirror: writing location failed", "err", err)
	}
}

// AttachFromLocation attaches a broadcast slot for T under the given id.
// A value already visible from an ancestor wins: the builder runs
// directly against parent. Otherwise the current location is read once,
// the id's query parameter decoded through the codec registry, and the
// result attached as a broadcast slot. A missing parameter is a
// *NotFoundError; a malformed one surfaces as the decode path's error.
func AttachFromLocation[T any](parent *Node, id string, build BuildFunc, opts ...SlotOption) (*Node, error) {
	if build == nil {
		panic(misconfigured("AttachFromLocation requires a builder"))
	}

	if _, ok := Lookup[T](parent); ok {
		parent.tree.sched.Turn(func() { build(parent) })
		return parent, nil
	}

	m := parent.tree.mirror
	if m.loc == nil {
		return nil, &NotFoundError{Tag: TagFor[T]()}
	}

	loc, err := m.loc.ReadCurrentLocation()
	if err != nil {
		return nil, &AsyncError{Cause: err}
	}

	wire := loc.Query().Get(id)
	if wire == "" {
		return nil, &NotFoundError{Tag: TagFor[T]()}
	}

	decoded, err := parent.tree.codecs.Decode(TagFor[T](), wire)
	if err != nil {
		return nil, &AsyncError{Cause: err}
	}

	v, err := SafeTypeAssertion[T](decoded)
	if err != nil {
		return nil, &AsyncError{Cause: err}
	}

	opts = append(opts, Broadcast(id))
	return Attach(parent, v, build, opts...), nil
}
