package slot

import "testing"

func TestBridgeCarriesPlainSlots(t *testing.T) {
	tree := New()
	stack := NewScreenStack(tree)

	var from *Node
	tree.Mount(func(root *Node) {
		Attach(root, theme{Name: "dark"}, func(n *Node) {
			Attach(n, session{User: "u1"}, func(m *Node) {
				from = m
			})
		})
	})

	var gotTheme theme
	var gotSession session
	Push(stack, from, func(screen *Node) {
		gotTheme, _ = Lookup[theme](screen)
		gotSession, _ = Lookup[session](screen)
	})

	if gotTheme.Name != "dark" {
		t.Errorf("expected bridged theme, got %q", gotTheme.Name)
	}
	if gotSession.User != "u1" {
		t.Errorf("expected bridged session, got %q", gotSession.User)
	}
}

func TestBridgeExcludesLocalSlots(t *testing.T) {
	tree := New()
	stack := NewScreenStack(tree)

	var from *Node
	tree.Mount(func(root *Node) {
		Attach(root, theme{Name: "dark"}, func(n *Node) {
			Attach(n, session{User: "secret"}, func(m *Node) {
				from = m
			}, Local())
		})
	})

	var sessionFound bool
	var themeFound bool
	Push(stack, from, func(screen *Node) {
		_, sessionFound = Lookup[session](screen)
		_, themeFound = Lookup[theme](screen)
	})

	if sessionFound {
		t.Error("local slot must never appear in a bridged subtree")
	}
	if !themeFound {
		t.Error("non-local slot must be carried")
	}
}

func TestBridgePreservesOrder(t *testing.T) {
	tree := New()
	stack := NewScreenStack(tree)

	var from *Node
	tree.Mount(func(root *Node) {
		Attach(root, theme{Name: "outer"}, func(n *Node) {
			Attach(n, theme{Name: "inner"}, func(m *Node) {
				from = m
			})
		})
	})

	// Shadowing collapsed the snapshot to the nearest slot per tag.
	var got theme
	Push(stack, from, func(screen *Node) {
		got, _ = Lookup[theme](screen)
	})

	if got.Name != "inner" {
		t.Errorf("bridging must carry the nearest slot per tag, got %q", got.Name)
	}
}

func TestBridgeRoundTrip(t *testing.T) {
	tree := New()
	stack := NewScreenStack(tree)

	var original *MutableState[int]
	var from *Node
	tree.Mount(func(root *Node) {
		AttachMutable(root, 0, func(n *Node) {
			original, _ = LookupMutable[int](n)
			from = n
		}, RebuildOnChange())
	})

	var bridged *MutableState[int]
	Push(stack, from, func(screen *Node) {
		bridged, _ = LookupMutable[int](screen)
	})

	if bridged == nil {
		t.Fatal("expected a bridged mutable handle")
	}
	if bridged == original {
		t.Fatal("bridged handle must be a fresh state, not the original")
	}
	if got := bridged.Get(); got != 0 {
		t.Fatalf("bridged state must seed from the original's value, got %d", got)
	}

	bridged.Set(5)
	if got := original.Get(); got != 5 {
		t.Errorf("derived->original backpropagation failed, got %d", got)
	}
	if got := bridged.Get(); got != 5 {
		t.Errorf("bridged side lost its own update, got %d", got)
	}

	original.Set(9)
	if got := bridged.Get(); got != 9 {
		t.Errorf("original->derived propagation failed, got %d", got)
	}
}

func TestBridgeNoEchoLoop(t *testing.T) {
	tree := New()
	stack := NewScreenStack(tree)

	var original *MutableState[int]
	var from *Node
	tree.Mount(func(root *Node) {
		AttachMutable(root, 0, func(n *Node) {
			original, _ = LookupMutable[int](n)
			from = n
		})
	})

	var bridged *MutableState[int]
	Push(stack, from, func(screen *Node) {
		bridged, _ = LookupMutable[int](screen)
	})

	var originalUpdates, bridgedUpdates int
	cancelA := original.Watch(func(int) { originalUpdates++ })
	cancelB := bridged.Watch(func(int) { bridgedUpdates++ })
	defer cancelA()
	defer cancelB()
	originalUpdates, bridgedUpdates = 0, 0 // discard replays

	bridged.Set(5)
	if originalUpdates != 1 || bridgedUpdates != 1 {
		t.Errorf("one Set must yield exactly one update per side, got original=%d bridged=%d",
			originalUpdates, bridgedUpdates)
	}

	original.Set(6)
	if originalUpdates != 2 || bridgedUpdates != 2 {
		t.Errorf("reverse Set must yield exactly one update per side, got original=%d bridged=%d",
			originalUpdates, bridgedUpdates)
	}
}

func TestBridgeLinkTornDownOnPop(t *testing.T) {
	tree := New()
	stack := NewScreenStack(tree)

	var original *MutableState[int]
	var from *Node
	tree.Mount(func(root *Node) {
		AttachMutable(root, 0, func(n *Node) {
			original, _ = LookupMutable[int](n)
			from = n
		})
	})

	var bridged *MutableState[int]
	Push(stack, from, func(screen *Node) {
		bridged, _ = LookupMutable[int](screen)
	})

	stack.Pop(nil)

	original.Set(7)
	if got := bridged.Get(); got == 7 {
		t.Error("popped screen's state must stop receiving updates")
	}
	if got := original.Get(); got != 7 {
		t.Errorf("original must keep working after pop, got %d", got)
	}
}

func TestPushPopResult(t *testing.T) {
	tree := New()
	stack := NewScreenStack(tree)

	var from *Node
	tree.Mount(func(root *Node) { from = root })

	result := Push(stack, from, func(screen *Node) {})
	if stack.Depth() != 1 {
		t.Fatalf("expected one pushed screen, got %d", stack.Depth())
	}

	stack.Pop("done")

	got, ok := <-result
	if !ok || got != "done" {
		t.Errorf("expected pop result %q, got %v (ok=%v)", "done", got, ok)
	}
	if stack.Depth() != 0 {
		t.Errorf("expected empty stack after pop, got %d", stack.Depth())
	}
}
