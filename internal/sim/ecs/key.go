package ecs

// Key binds a component kind to its Go type so accessors are checked at
// compile time.
type Key[T any] struct {
	kind Kind
}

func NewKey[T any](k Kind) Key[T] { return Key[T]{kind: k} }

func (k Key[T]) Kind() Kind { return k.kind }

// VisualKey is where a renderer parks its handle.
var VisualKey = NewKey[Visual](KindVisual)

// Add attaches v under key. An existing component is kept and the call
// reports false.
func Add[T any](e *Entity, key Key[T], v T) bool {
	return e.add(key.kind, v)
}

func Get[T any](e *Entity, key Key[T]) (T, bool) {
	raw, ok := e.comps[key.kind]
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}

// Set replaces the component unconditionally.
func Set[T any](e *Entity, key Key[T], v T) {
	e.comps[key.kind] = v
}

// Take removes and returns the component.
func Take[T any](e *Entity, key Key[T]) (T, bool) {
	v, ok := Get(e, key)
	if ok {
		delete(e.comps, key.kind)
	}
	return v, ok
}
