package slot

import "reflect"

// TypeTag is the type-level key addressing a slot in the ancestor chain.
// At most one slot per TypeTag is "nearest" from any node; a descendant
// slot of the same tag shadows ancestor slots beyond that point.
//
// A nullable tag is a distinct key: a slot declared to carry *T rather
// than T. Lookups for T fall back to the nullable tag when no exact
// match exists (see Lookup).
type TypeTag struct {
	rt       reflect.Type
	nullable bool
}

// TagFor returns the tag addressing slots of type T.
func TagFor[T any]() TypeTag {
	return TypeTag{rt: reflect.TypeOf((*T)(nil)).Elem()}
}

// NullableTagFor returns the tag addressing slots declared to carry *T.
func NullableTagFor[T any]() TypeTag {
	return TypeTag{rt: reflect.TypeOf((*T)(nil)).Elem(), nullable: true}
}

// Type returns the Go type the tag addresses.
func (t TypeTag) Type() reflect.Type {
	return t.rt
}

// Nullable reports whether the tag addresses the nullable variant.
func (t TypeTag) Nullable() bool {
	return t.nullable
}

func (t TypeTag) String() string {
	if t.rt == nil {
		return "<untagged>"
	}
	if t.nullable {
		return "?" + t.rt.String()
	}
	return t.rt.String()
}
