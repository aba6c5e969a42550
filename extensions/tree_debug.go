package extensions

import (
	"fmt"
	"log/slog"

	"github.com/m1gwings/treedrawer/tree"

	slot "github.com/slot-fn/slot-go"
)

// TreeDebug renders the mounted node hierarchy as ASCII art, one label
// per node showing the slot frame it carries. Useful when a lookup finds
// the wrong value and the shadowing chain needs eyeballing.
//
// Usage:
//
//	ext := extensions.NewTreeDebug(slog.Default())
//	t := slot.New(slot.WithExtension(ext))
//	...
//	fmt.Println(ext.Render(root))
type TreeDebug struct {
	slot.BaseExtension
	logger *slog.Logger
}

// NewTreeDebug creates a tree-visualization extension.
func NewTreeDebug(logger *slog.Logger) *TreeDebug {
	return &TreeDebug{
		BaseExtension: slot.NewBaseExtension("tree-debug"),
		logger:        logger,
	}
}

// Render draws the subtree rooted at n.
func (e *TreeDebug) Render(n *slot.Node) string {
	t := tree.NewTree(tree.NodeString(nodeLabel(n)))
	addChildren(t, n)
	return fmt.Sprint(t)
}

func (e *TreeDebug) OnBridge(from *slot.Node, carried []slot.Slot) {
	e.logger.Debug("bridge snapshot", "slots", len(carried))
}

func (e *TreeDebug) OnCleanupError(err *slot.CleanupError) bool {
	e.logger.Error("cleanup failed", "err", err.Err)
	return true
}

func addChildren(t *tree.Tree, n *slot.Node) {
	for i, c := range n.Children() {
		t.AddChild(tree.NodeString(nodeLabel(c)))
		child, err := t.Child(i)
		if err != nil {
			continue
		}
		addChildren(child, c)
	}
}

func nodeLabel(n *slot.Node) string {
	s, ok := n.Slot()
	if !ok {
		return "·"
	}

	label := s.Tag().String()
	if s.IsMutable() {
		label += " (mutable)"
	}
	if s.IsLocal() {
		label += " (local)"
	}
	if id, ok := s.BroadcastID(); ok {
		label += " #" + id
	}
	return label
}
