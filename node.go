package slot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// BuildFunc constructs a subtree under the given node. Attachments made
// through the node become ancestors of everything built afterwards.
type BuildFunc func(*Node)

// Tree owns a mounted node hierarchy together with everything the slot
// layer needs at runtime: the turn scheduler, the codec registry, the
// location adapter and the registered extensions. There is no ambient
// package-level state; one Tree is one explicitly-scoped world.
type Tree struct {
	mu     sync.RWMutex
	sched  *scheduler
	codecs *CodecRegistry
	exts   []Extension
	logger *slog.Logger
	mirror *mirror
	roots  []*Node
}

// Option is a modifier for trees.
type Option func(*Tree)

// WithCodecs replaces the tree's codec registry.
func WithCodecs(reg *CodecRegistry) Option {
	return func(t *Tree) {
		t.codecs = reg
	}
}

// WithLogger replaces the tree's logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tree) {
		t.logger = l
	}
}

// WithLocation installs the external persistence adapter that receives
// broadcast-slot mirroring writes.
func WithLocation(loc Location) Option {
	return func(t *Tree) {
		t.mirror.loc = loc
	}
}

// WithMirrorDebounce changes the delay between a broadcast-relevant event
// and the location write it triggers. Default is one second.
func WithMirrorDebounce(d time.Duration) Option {
	return func(t *Tree) {
		t.mirror.debounce = d
	}
}

// WithExtension registers an extension on the tree.
func WithExtension(ext Extension) Option {
	return func(t *Tree) {
		if err := t.UseExtension(ext); err != nil {
			panic(err)
		}
	}
}

// New creates a tree with optional configuration.
func New(opts ...Option) *Tree {
	t := &Tree{
		codecs: NewCodecRegistry(),
		logger: slog.Default(),
	}
	t.mirror = &mirror{tree: t, debounce: time.Second}
	// The scheduler exists before option closures run: a WithExtension
	// Init may mount and attach during construction.
	t.sched = newScheduler(t.logger)

	for _, opt := range opts {
		opt(t)
	}

	t.sched.logger = t.logger
	t.mirror.logger = t.logger
	return t
}

// UseExtension registers an extension on the tree.
func (t *Tree) UseExtension(ext Extension) error {
	t.mu.Lock()
	t.exts = append(t.exts, ext)
	sort.Slice(t.exts, func(i, j int) bool {
		return t.exts[i].Order() < t.exts[j].Order()
	})
	t.mu.Unlock()

	return ext.Init(t)
}

func (t *Tree) extensions() []Extension {
	t.mu.RLock()
	defer t.mu.RUnlock()
	exts := make([]Extension, len(t.exts))
	copy(exts, t.exts)
	return exts
}

// wrapOp chains extension middleware around an operation, last registered
// wrapping first.
func (t *Tree) wrapOp(op *Operation, next func() (any, error)) (any, error) {
	exts := t.extensions()

	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		currentNext := next
		next = func() (any, error) {
			return ext.Wrap(context.Background(), currentNext, op)
		}
	}

	return next()
}

// Codecs returns the tree's codec registry.
func (t *Tree) Codecs() *CodecRegistry {
	return t.codecs
}

// Mount builds a new root subtree. Navigation pushes mount additional
// roots; each root has its own ancestor chain.
func (t *Tree) Mount(build BuildFunc) *Node {
	n := &Node{tree: t, mounted: true, build: build}

	t.mu.Lock()
	t.roots = append(t.roots, n)
	t.mu.Unlock()

	if build != nil {
		t.sched.Turn(func() { build(n) })
	}
	return n
}

// Roots returns the currently mounted root nodes.
func (t *Tree) Roots() []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	roots := make([]*Node, len(t.roots))
	copy(roots, t.roots)
	return roots
}

// Dispose unmounts every root and disposes all extensions.
func (t *Tree) Dispose() error {
	for _, root := range t.Roots() {
		root.Unmount()
	}

	t.mu.Lock()
	t.roots = nil
	t.mu.Unlock()

	for _, ext := range t.extensions() {
		if err := ext.Dispose(t); err != nil {
			return fmt.Errorf("disposing extension %s: %w", ext.Name(), err)
		}
	}
	return nil
}

// Node is one position in the tree. A node either carries a slot frame
// (making a value visible to everything beneath it) or is a plain build
// position. Ancestor traversal is an O(1)-per-step parent-pointer walk.
type Node struct {
	tree     *Tree
	parent   *Node
	slot     *Slot
	build    BuildFunc
	mu       sync.Mutex
	children []*Node
	cleanups []cleanupEntry
	mounted  bool
	detached bool
}

type cleanupEntry struct {
	fn    func() error
	order int
}

// Tree returns the tree the node belongs to.
func (n *Node) Tree() *Tree {
	return n.tree
}

// Parent returns the node's parent, nil at a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the node's current children.
func (n *Node) Children() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	cs := make([]*Node, len(n.children))
	copy(cs, n.children)
	return cs
}

// Slot returns the slot carried by this node, if any.
func (n *Node) Slot() (Slot, bool) {
	if n.slot == nil {
		return Slot{}, false
	}
	return *n.slot, true
}

// Mounted reports whether the node is still part of the tree.
func (n *Node) Mounted() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mounted
}

func (n *Node) slotTag() string {
	if n.slot == nil {
		return "<node>"
	}
	return n.slot.tag.String()
}

// VisitAncestors walks the parent chain outward from the node itself,
// stopping when the visitor returns false.
func (n *Node) VisitAncestors(visitor func(*Node) bool) {
	for cur := n; cur != nil; cur = cur.parent {
		if !visitor(cur) {
			return
		}
	}
}

// OnUnmount registers a cleanup to run when the node leaves the tree.
// Cleanups run in reverse registration order.
func (n *Node) OnUnmount(fn func() error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cleanups = append(n.cleanups, cleanupEntry{fn: fn, order: len(n.cleanups)})
}

// ScheduleRebuild queues the node's subtree for re-render at the end of
// the current turn.
func (n *Node) ScheduleRebuild() {
	n.tree.sched.Turn(func() {
		n.tree.sched.Schedule(n)
	})
}

// Unmount removes the node's subtree, running cleanups leaf-first.
func (n *Node) Unmount() {
	n.tree.sched.Turn(func() { n.unmount() })
}

func (n *Node) unmount() {
	n.mu.Lock()
	if !n.mounted {
		n.mu.Unlock()
		return
	}
	n.mounted = false
	children := n.children
	n.children = nil
	entries := n.cleanups
	n.cleanups = nil
	n.mu.Unlock()

	for _, c := range children {
		c.unmount()
	}

	n.runCleanups(entries)
}

func (n *Node) runCleanups(entries []cleanupEntry) {
	exts := n.tree.extensions()

	for i := len(entries) - 1; i >= 0; i-- {
		if err := entries[i].fn(); err != nil {
			cleanupErr := &CleanupError{Node: n, Err: err}

			handled := false
			for _, ext := range exts {
				if ext.OnCleanupError(cleanupErr) {
					handled = true
					break
				}
			}
			if !handled {
				n.tree.logger.Warn("cleanup failed", "slot", n.slotTag(), "err", err)
			}
		}
	}
}

// rebuild tears down the node's children and re-runs its build recipe.
// Runs only from the scheduler's flush phase.
func (n *Node) rebuild() {
	n.mu.Lock()
	children := n.children
	n.children = nil
	build := n.build
	n.mu.Unlock()

	for _, c := range children {
		c.unmount()
	}

	if build != nil {
		build(n)
	}
}

// newChild creates a mounted child carrying an optional slot frame and
// runs its build recipe, if any. Mutable state bound to the slot is owned
// by the child before the builder runs, so a Set issued during the
// subtree's own construction already schedules rebuilds and broadcast
// writes.
func (n *Node) newChild(s *Slot, build BuildFunc) *Node {
	child := &Node{tree: n.tree, parent: n, slot: s, build: build, mounted: true}

	n.mu.Lock()
	n.children = append(n.children, child)
	n.mu.Unlock()

	if s != nil && s.state != nil {
		s.state.setOwner(child)
	}
	if build != nil {
		build(child)
	}
	return child
}

// adopt reparents an already-built detached subtree under the node.
func (n *Node) adopt(child *Node) {
	child.parent = n
	child.detached = false

	n.mu.Lock()
	n.children = append(n.children, child)
	n.mu.Unlock()
}

// Detached builds a subtree that is not yet part of any ancestor chain.
// Lookups from inside it see nothing until it is adopted via AttachNode.
func Detached(t *Tree, build BuildFunc) *Node {
	n := &Node{tree: t, mounted: true, detached: true, build: build}
	if build != nil {
		t.sched.Turn(func() { build(n) })
	}
	return n
}
