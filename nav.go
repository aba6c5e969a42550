package slot

import "sync"

// Navigator is the narrow interface to the navigation host. PushScreen
// mounts a new visible subtree and returns a channel that delivers the
// screen's result when it is popped. Transition semantics belong to the
// host, not to the slot layer.
type Navigator interface {
	PushScreen(build BuildFunc) <-chan any
}

// Push wraps build with Bridge before delegating to the navigator, so
// the pushed screen looks up every non-local value visible at from and
// bridged mutable state stays synchronized with the origin subtree.
// Navigation semantics are otherwise untouched.
func Push(nav Navigator, from *Node, build BuildFunc) <-chan any {
	result := nav.PushScreen(Bridge(from, build))
	from.tree.mirror.markDirty(from)
	return result
}

// ScreenStack is a minimal Navigator over a Tree: each push mounts a new
// root subtree, each pop unmounts the top one and delivers its result.
// It exists to exercise bridging end-to-end; a real UI host supplies its
// own Navigator.
type ScreenStack struct {
	tree *Tree

	mu      sync.Mutex
	screens []*screen
}

type screen struct {
	node   *Node
	result chan any
}

// NewScreenStack creates an empty stack over the tree.
func NewScreenStack(t *Tree) *ScreenStack {
	return &ScreenStack{tree: t}
}

// PushScreen mounts build as a new root subtree.
func (s *ScreenStack) PushScreen(build BuildFunc) <-chan any {
	scr := &screen{result: make(chan any, 1)}
	scr.node = s.tree.Mount(build)

	s.mu.Lock()
	s.screens = append(s.screens, scr)
	s.mu.Unlock()

	return scr.result
}

// Pop unmounts the top screen and delivers result on its channel. A pop
// on an empty stack is a no-op.
func (s *ScreenStack) Pop(result any) {
	s.mu.Lock()
	if len(s.screens) == 0 {
		s.mu.Unlock()
		return
	}
	scr := s.screens[len(s.screens)-1]
	s.screens = s.screens[:len(s.screens)-1]
	s.mu.Unlock()

	scr.node.Unmount()
	scr.result <- result
	close(scr.result)
}

// Depth returns the number of mounted screens.
func (s *ScreenStack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.screens)
}

// Top returns the node of the top screen, nil when empty.
func (s *ScreenStack) Top() *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.screens) == 0 {
		return nil
	}
	return s.screens[len(s.screens)-1].node
}
