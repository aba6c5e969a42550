package slot

import "context"

// Extension provides hooks into slot-layer operations: attaching slots,
// mutating mutable state, bridging snapshots and broadcasting to the
// location adapter.
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines extension execution order (lower = earlier)
	Order() int

	// Init is called when the extension is registered to a tree
	Init(t *Tree) error

	// Wrap intercepts operations (attach, mutate, bridge, broadcast)
	Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error)

	// OnBridge observes the snapshot carried into a pushed subtree
	OnBridge(from *Node, carried []Slot)

	// OnCleanupError handles unmount-cleanup failures
	// Returns true if the error was handled, false to use default behavior
	OnCleanupError(err *CleanupError) bool

	// Dispose is called when the tree is disposed
	Dispose(t *Tree) error
}

// CleanupError contains information about an unmount-cleanup failure
type CleanupError struct {
	Node *Node
	Err  error
}

// BaseExtension provides default implementations for Extension methods
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(t *Tree) error {
	return nil
}

func (e *BaseExtension) Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error) {
	return next()
}

func (e *BaseExtension) OnBridge(from *Node, carried []Slot) {
}

func (e *BaseExtension) OnCleanupError(err *CleanupError) bool {
	return false
}

func (e *BaseExtension) Dispose(t *Tree) error {
	return nil
}

// Operation describes what operation is happening
type Operation struct {
	Kind OperationKind
	Tag  TypeTag
	Node *Node
	Tree *Tree
}

// OperationKind represents the type of operation
type OperationKind string

const (
	// OpAttach indicates a slot attachment
	OpAttach OperationKind = "attach"
	// OpMutate indicates a mutable-state update
	OpMutate OperationKind = "mutate"
	// OpBridge indicates a visible-slot snapshot being bridged
	OpBridge OperationKind = "bridge"
	// OpBroadcast indicates a broadcast-map mirror write
	OpBroadcast OperationKind = "broadcast"
)
