// Package slot provides an ancestor-scoped value registry for a
// declarative node tree: a producer attaches a typed value at one
// position, descendants look it up by type without parameter threading,
// and navigation pushes carry a snapshot of everything visible into the
// new subtree — with mutable values kept synchronized across the bridge.
//
// # Overview
//
// The package organizes code around four core concepts:
//
//  1. Slots: typed (tag, value) frames attached at tree positions
//  2. Trees: explicitly-scoped worlds owning scheduling, codecs and extensions
//  3. Mutable state: slots whose value changes after attachment
//  4. Bridging: re-materializing visible slots above a freshly pushed subtree
//
// # Basic Usage
//
// Attach values and look them up from descendants:
//
//	tree := slot.New()
//
//	tree.Mount(func(root *slot.Node) {
//	    slot.Attach(root, &Config{Theme: "dark"}, func(n *slot.Node) {
//	        cfg, ok := slot.Lookup[*Config](n)
//	        // ok == true, cfg.Theme == "dark"
//	        _ = cfg
//	        _ = ok
//	    })
//	})
//
// Lookup walks the parent chain outward, first match wins: a descendant
// slot of the same type shadows ancestors. Resolve is the required-value
// variant and returns *NotFoundError when nothing is attached.
//
// # Mutable State
//
// AttachMutable creates a slot whose value changes after attachment.
// Descendants obtain the handle via LookupMutable:
//
//	slot.AttachMutable(root, 0, func(n *slot.Node) {
//	    counter, _ := slot.LookupMutable[int](n)
//	    counter.Set(5)
//	    cancel := counter.Watch(func(v int) {
//	        // receives 5 immediately (replay-latest), then every update
//	    })
//	    defer cancel()
//	}, slot.RebuildOnChange())
//
// Set always feeds the watchers; RebuildOnChange additionally re-renders
// the subtree at the end of the turn so freshly constructed descendants
// observe the new value. A rebuild that cannot run because the node
// unmounted is logged and swallowed — the value update itself succeeded.
//
// # Turns
//
// All attach, lookup and mutation operations run synchronously in
// scheduler turns: mutations apply in call order, re-renders flush when
// the outermost turn ends, and every re-render observes the turn's final
// value. Asynchronous sources (FromOneShot, FromIncremental) hop onto
// turns when they deliver; nothing blocks.
//
// # Bridging
//
// Bridge snapshots the non-local slots visible at a node and wraps a
// builder so the snapshot is re-attached, outermost-first, above the new
// subtree:
//
//	result := slot.Push(stack, from, func(screen *slot.Node) {
//	    // same lookups as at `from`, including mutable handles
//	})
//
// Mutable slots bridge as fresh copies seeded with the current value and
// linked in both directions: a Set on either side propagates to the other
// exactly once per update, with origin-tagged forwarding preventing echo
// loops. Slots attached with Local() stay behind.
//
// # Clusters
//
// AttachAll nests data-only slots in one operation:
//
//	slot.AttachAll(root, []slot.Slot{
//	    slot.Value(cfg),
//	    slot.Value(theme),
//	    slot.Value(session, slot.Local()),
//	}, func(n *slot.Node) { ... })
//
// Lookup results are identical to manually nesting Attach calls in the
// same order. A data-only slot attached standalone panics with a
// descriptive misconfiguration error.
//
// # Broadcast
//
// Slots marked Broadcast(id) mirror their encoded value into the query
// parameters of a Location adapter, debounced and best-effort. Codecs for
// string, int, float64, bool and time.Time are built in; other types use
// RegisterCodec. The wire format prefixes every value with a `*` sentinel
// and a one-character type tag.
//
// # Extensions
//
// Extensions hook attach, mutate, bridge and broadcast operations through
// middleware, in registration order:
//
//	tree := slot.New(
//	    slot.WithExtension(myExtension),
//	)
//
// Embed BaseExtension for default no-op implementations.
//
// # Concurrency Model
//
// The tree assumes single-threaded cooperative use: mount, attach and
// mutate from one goroutine. Async adapters are the sanctioned way for
// other goroutines to feed values in; they serialize onto scheduler
// turns. Internal registries are individually locked, but interleaving
// structural mutations from several goroutines is not supported.
package slot
