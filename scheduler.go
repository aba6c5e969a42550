package slot

import (
	"log/slog"
	"sync"
)

// scheduler implements the two-phase mutation model: inside a turn,
// mutations apply in call order and rebuilds are only queued; the queue
// flushes when the outermost turn ends, so a rebuild never runs
// mid-mutation and every dependent re-render observes the final value
// of the turn.
type scheduler struct {
	mu      sync.Mutex
	depth   int
	pending []*Node
	logger  *slog.Logger
}

func newScheduler(logger *slog.Logger) *scheduler {
	return &scheduler{logger: logger}
}

// Turn runs fn as one scheduler turn. Nested turns (a Set inside a
// watcher or builder) collapse into the enclosing turn.
func (s *scheduler) Turn(fn func()) {
	s.mu.Lock()
	s.depth++
	s.mu.Unlock()

	fn()

	s.mu.Lock()
	if s.depth > 1 {
		s.depth--
		s.mu.Unlock()
		return
	}

	// Outermost turn: flush until the queue drains. Rebuilds may
	// schedule further rebuilds; those belong to this same flush.
	for len(s.pending) > 0 {
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, n := range batch {
			s.rebuild(n)
		}

		s.mu.Lock()
	}
	s.depth--
	s.mu.Unlock()
}

// Schedule queues a node for rebuild at the end of the current turn.
// Scheduling the same node twice within a turn coalesces to one rebuild.
func (s *scheduler) Schedule(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pending {
		if p == n {
			return
		}
	}
	s.pending = append(s.pending, n)
}

// rebuild re-renders a node's subtree. A node that unmounted after being
// scheduled is skipped and logged, never an error: the mutation that
// scheduled it already succeeded.
func (s *scheduler) rebuild(n *Node) {
	if !n.Mounted() {
		s.logger.Debug("rebuild skipped: node unmounted", "slot", n.slotTag())
		return
	}
	n.rebuild()
}
