package slot

import (
	"context"
	"sync"
)

type asyncPhase int

const (
	phaseLoading asyncPhase = iota
	phaseValue
	phaseError
)

// Async configures FromOneShot. Initial, when set, skips the loading
// placeholder. OnLoading and OnError build the placeholder subtrees; a
// nil placeholder builds nothing. ErrorsAsNil recovers a failure into a
// nil-valued nullable slot instead of an error placeholder — the slot
// then lives under the nullable tag for both outcomes. Configuring both
// ErrorsAsNil and OnError is a programmer error and fails at
// construction.
type Async[T any] struct {
	Initial     *T
	ErrorsAsNil bool
	OnLoading   BuildFunc
	OnError     func(*Node, error)
}

type oneShot[T any] struct {
	cfg   Async[T]
	build BuildFunc

	mu    sync.Mutex
	phase asyncPhase
	val   T
	err   error
}

// FromOneShot attaches a slot from the result of an asynchronous one-shot
// computation. Until run returns (and absent an Initial) the subtree
// renders the loading placeholder; on success a plain slot carries the
// resolved value; on failure the error placeholder renders, or a nil
// nullable slot when ErrorsAsNil. The computation's context is cancelled
// when the holder unmounts, and a result landing after unmount is
// swallowed and logged.
func FromOneShot[T any](parent *Node, run func(context.Context) (T, error), cfg Async[T], build BuildFunc) *Node {
	if build == nil {
		panic(misconfigured("FromOneShot requires a builder"))
	}
	if cfg.ErrorsAsNil && cfg.OnError != nil {
		panic(misconfigured("FromOneShot: ErrorsAsNil and OnError are mutually exclusive"))
	}

	st := &oneShot[T]{cfg: cfg, build: build}
	if cfg.Initial != nil {
		st.phase = phaseValue
		st.val = *cfg.Initial
	}

	tree := parent.tree
	var h *Node
	tree.sched.Turn(func() {
		h = parent.newChild(nil, st.render)
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.OnUnmount(func() error {
		cancel()
		return nil
	})

	go func() {
		v, err := run(ctx)
		tree.sched.Turn(func() {
			st.mu.Lock()
			if err != nil {
				st.phase = phaseError
				st.err = &AsyncError{Cause: err}
			} else {
				st.phase = phaseValue
				st.val = v
			}
			st.mu.Unlock()

			if h.Mounted() {
				tree.sched.Schedule(h)
			} else {
				tree.logger.Debug("one-shot result dropped: holder unmounted")
			}
		})
	}()

	return h
}

func (st *oneShot[T]) render(n *Node) {
	st.mu.Lock()
	phase, val, err := st.phase, st.val, st.err
	st.mu.Unlock()

	switch phase {
	case phaseLoading:
		if st.cfg.OnLoading != nil {
			st.cfg.OnLoading(n)
		}
	case phaseValue:
		if st.cfg.ErrorsAsNil {
			v := val
			attachSlot(n, NullableValue(&v), st.build)
		} else {
			attachSlot(n, Value(val), st.build)
		}
	case phaseError:
		if st.cfg.ErrorsAsNil {
			attachSlot(n, NullableValue[T](nil), st.build)
		} else if st.cfg.OnError != nil {
			st.cfg.OnError(n, err)
		}
	}
}

// Incremental configures FromIncremental.
type Incremental[T any] struct {
	Initial   *T
	OnLoading BuildFunc
}

type incremental[T any] struct {
	cfg   Incremental[T]
	build BuildFunc
	opts  []SlotOption

	mu    sync.Mutex
	phase asyncPhase
	val   T
}

// FromIncremental re-attaches a slot with every element an incremental
// sequence produces, re-rendering the builder's subtree each time. Before
// the first element (and absent an Initial) the loading placeholder
// renders. The subscription ends when the holder unmounts or the
// sequence closes; the last value keeps rendering either way.
func FromIncremental[T any](parent *Node, seq <-chan T, cfg Incremental[T], build BuildFunc, opts ...SlotOption) *Node {
	if build == nil {
		panic(misconfigured("FromIncremental requires a builder"))
	}

	st := &incremental[T]{cfg: cfg, build: build, opts: opts}
	if cfg.Initial != nil {
		st.phase = phaseValue
		st.val = *cfg.Initial
	}

	tree := parent.tree
	var h *Node
	tree.sched.Turn(func() {
		h = parent.newChild(nil, st.render)
	})

	done := make(chan struct{})
	h.OnUnmount(func() error {
		close(done)
		return nil
	})

	go func() {
		for {
			select {
			case v, ok := <-seq:
				if !ok {
					return
				}
				tree.sched.Turn(func() {
					st.mu.Lock()
					st.phase = phaseValue
					st.val = v
					st.mu.Unlock()

					if h.Mounted() {
						tree.sched.Schedule(h)
					}
				})
			case <-done:
				return
			}
		}
	}()

	return h
}

func (st *incremental[T]) render(n *Node) {
	st.mu.Lock()
	phase, val := st.phase, st.val
	st.mu.Unlock()

	switch phase {
	case phaseLoading:
		if st.cfg.OnLoading != nil {
			st.cfg.OnLoading(n)
		}
	case phaseValue:
		attachSlot(n, Value(val, st.opts...), st.build)
	}
}

// AttachStream is the value-stream form of plain attachment: the slot
// starts at initial and an external sequence drives its updates without
// the producer pumping values by hand.
func AttachStream[T any](parent *Node, initial T, seq <-chan T, build BuildFunc, opts ...SlotOption) *Node {
	return FromIncremental(parent, seq, Incremental[T]{Initial: &initial}, build, opts...)
}
