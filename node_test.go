package slot

import "testing"

type bootstrappingExtension struct {
	BaseExtension
	root *Node
}

func (e *bootstrappingExtension) Init(t *Tree) error {
	e.root = t.Mount(func(n *Node) {
		Attach(n, "boot", func(*Node) {})
	})
	return nil
}

func TestExtensionInitCanMount(t *testing.T) {
	ext := &bootstrappingExtension{BaseExtension: NewBaseExtension("bootstrap")}
	tree := New(WithExtension(ext))

	if ext.root == nil || !ext.root.Mounted() {
		t.Fatal("extension Init must be able to mount during tree construction")
	}

	children := ext.root.Children()
	if len(children) != 1 {
		t.Fatalf("expected the Init-time attachment, got %d children", len(children))
	}
	if v, ok := Lookup[string](children[0]); !ok || v != "boot" {
		t.Errorf("expected Init-time value visible, got %q (ok=%v)", v, ok)
	}

	if err := tree.Dispose(); err != nil {
		t.Fatalf("unexpected dispose error: %v", err)
	}
}
