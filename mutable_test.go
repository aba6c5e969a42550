package slot

import (
	"sync"
	"testing"
	"time"
)

func TestMutableGetSet(t *testing.T) {
	tree := New()

	var handle *MutableState[int]
	tree.Mount(func(root *Node) {
		AttachMutable(root, 7, func(n *Node) {
			handle, _ = LookupMutable[int](n)
		})
	})

	if handle == nil {
		t.Fatal("expected mutable handle via ancestor lookup")
	}
	if got := handle.Get(); got != 7 {
		t.Errorf("expected initial 7, got %d", got)
	}

	handle.Set(9)
	if got := handle.Get(); got != 9 {
		t.Errorf("expected 9 after Set, got %d", got)
	}
}

func TestMutableLookupReturnsLiveValue(t *testing.T) {
	tree := New()

	var inner *Node
	tree.Mount(func(root *Node) {
		AttachMutable(root, 1, func(n *Node) {
			inner = n
		})
	})

	handle, _ := LookupMutable[int](inner)
	handle.Set(2)

	if v, _ := Lookup[int](inner); v != 2 {
		t.Errorf("plain lookup should observe the live value, got %d", v)
	}
}

func TestMutableWatchReplaysThenForwards(t *testing.T) {
	tree := New()

	var handle *MutableState[int]
	tree.Mount(func(root *Node) {
		AttachMutable(root, 3, func(n *Node) {
			handle, _ = LookupMutable[int](n)
		})
	})

	var got []int
	cancel := handle.Watch(func(v int) {
		got = append(got, v)
	})
	defer cancel()

	handle.Set(4)
	handle.Set(5)

	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestMutableRebuildOnChange(t *testing.T) {
	tree := New()

	var observed []int
	tree.Mount(func(root *Node) {
		AttachMutable(root, 0, func(n *Node) {
			v, _ := Lookup[int](n)
			observed = append(observed, v)
		}, RebuildOnChange())
	})

	handle, _ := LookupMutable[int](tree.Roots()[0].Children()[0])
	handle.Set(5)

	if len(observed) != 2 {
		t.Fatalf("expected a forced re-render, builder ran %d times", len(observed))
	}
	if observed[1] != 5 {
		t.Errorf("freshly constructed descendant should observe 5, got %d", observed[1])
	}
}

func TestMutableNoRebuildWithoutFlag(t *testing.T) {
	tree := New()

	builds := 0
	var handle *MutableState[int]
	tree.Mount(func(root *Node) {
		AttachMutable(root, 0, func(n *Node) {
			builds++
			handle, _ = LookupMutable[int](n)
		})
	})

	received := -1
	cancel := handle.Watch(func(v int) { received = v })
	defer cancel()

	handle.Set(5)

	if builds != 1 {
		t.Errorf("expected no forced re-render, builder ran %d times", builds)
	}
	if got := handle.Get(); got != 5 {
		t.Errorf("value update must still succeed, got %d", got)
	}
	if received != 5 {
		t.Errorf("watcher must still receive the update, got %d", received)
	}
}

func TestMutableModify(t *testing.T) {
	tree := New()

	var handle *MutableState[int]
	tree.Mount(func(root *Node) {
		AttachMutable(root, 10, func(n *Node) {
			handle, _ = LookupMutable[int](n)
		})
	})

	handle.Modify(func(v int) int { return v * 3 })

	if got := handle.Get(); got != 30 {
		t.Errorf("expected 30, got %d", got)
	}
}

func TestMutableClosedOnUnmount(t *testing.T) {
	tree := New()

	var handle *MutableState[int]
	root := tree.Mount(func(root *Node) {
		AttachMutable(root, 1, func(n *Node) {
			handle, _ = LookupMutable[int](n)
		})
	})

	calls := 0
	handle.Watch(func(int) { calls++ })
	if calls != 1 {
		t.Fatalf("expected replay, got %d calls", calls)
	}

	root.Unmount()

	handle.Set(99)
	if calls != 1 {
		t.Errorf("watcher must stop receiving after unmount, got %d calls", calls)
	}
	if got := handle.Get(); got != 1 {
		t.Errorf("set after close must be a no-op, got %d", got)
	}
}

func TestMutableSetAfterUnmountSwallowed(t *testing.T) {
	tree := New()

	var handle *MutableState[int]
	var slotNode *Node
	tree.Mount(func(root *Node) {
		slotNode = AttachMutable(root, 0, func(n *Node) {
			handle, _ = LookupMutable[int](n)
		}, RebuildOnChange())
	})

	// Keep the state open but detach the owner so the scheduled
	// rebuild has nowhere to go; the mutation itself must not fail.
	slotNode.mu.Lock()
	slotNode.mounted = false
	slotNode.mu.Unlock()

	handle.Set(42)

	if got := handle.Get(); got != 42 {
		t.Errorf("mutation must succeed even when rebuild is skipped, got %d", got)
	}
}

func TestWatchReplayReRunsAfterConcurrentSet(t *testing.T) {
	tree := New()

	var handle *MutableState[int]
	tree.Mount(func(root *Node) {
		AttachMutable(root, 1, func(n *Node) {
			handle, _ = LookupMutable[int](n)
		})
	})

	inReplay := make(chan struct{})
	setDone := make(chan struct{})
	go func() {
		<-inReplay
		handle.Set(2)
		close(setDone)
	}()

	var mu sync.Mutex
	var got []int
	first := true
	cancel := handle.Watch(func(v int) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
		if first {
			first = false
			close(inReplay)
			// A Set lands on another goroutine while the replay is
			// still delivering the older value.
			<-setDone
		}
	})
	defer cancel()

	mu.Lock()
	defer mu.Unlock()
	want := []int{1, 2}
	if len(got) != len(want) {
		t.Fatalf("expected the replay to re-run with the newer value, got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("per-subscription delivery must stay monotonic, got %v", got)
		}
	}
}

func TestMutableSetDuringConstruction(t *testing.T) {
	tree := New()

	var observed []int
	tree.Mount(func(root *Node) {
		AttachMutable(root, 0, func(n *Node) {
			v, _ := Lookup[int](n)
			observed = append(observed, v)
			if v == 0 {
				// The state is owned before the builder runs, so a
				// mutation issued mid-construction behaves like any
				// other: it schedules the rebuild for turn end.
				handle, _ := LookupMutable[int](n)
				handle.Set(5)
			}
		}, RebuildOnChange())
	})

	if len(observed) != 2 {
		t.Fatalf("construction-time Set must force a re-render, builder ran %d times", len(observed))
	}
	if observed[1] != 5 {
		t.Errorf("re-render must observe the constructed value, got %d", observed[1])
	}
}

func TestMutableConstructionSetMarksBroadcastDirty(t *testing.T) {
	loc := newFakeLocation("app:///home")
	tree := New(
		WithLocation(loc),
		WithMirrorDebounce(10*time.Millisecond),
	)

	tree.Mount(func(root *Node) {
		AttachMutable(root, 0, func(n *Node) {
			if v, _ := Lookup[int](n); v == 0 {
				handle, _ := LookupMutable[int](n)
				handle.Set(3)
			}
		}, Broadcast("count"))
	})

	time.Sleep(50 * time.Millisecond)

	u, _ := loc.snapshot()
	if got := u.Query().Get("count"); got != "*i3" {
		t.Errorf("construction-time Set must reach the mirror, got %q", got)
	}
}

func TestTurnCoalescesNestedSets(t *testing.T) {
	tree := New()

	builds := 0
	var observed []int
	var handle *MutableState[int]

	tree.Mount(func(root *Node) {
		AttachMutable(root, 0, func(n *Node) {
			builds++
			v, _ := Lookup[int](n)
			observed = append(observed, v)
			handle, _ = LookupMutable[int](n)
		}, RebuildOnChange())
	})

	h := handle
	cancel := h.Watch(func(v int) {
		// Nested mutation inside a watcher joins the enclosing turn.
		if v == 1 {
			h.Set(2)
		}
	})
	defer cancel()

	h.Set(1)

	// Two sets, one coalesced rebuild observing the turn's final value.
	if builds != 2 {
		t.Fatalf("expected exactly one coalesced rebuild, builder ran %d times", builds)
	}
	if observed[len(observed)-1] != 2 {
		t.Errorf("rebuild must observe the final value of the turn, got %d", observed[len(observed)-1])
	}
}
