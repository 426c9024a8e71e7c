package swat

import (
	"github.com/benbjohnson/immutable"
)

// BuilderHandle is an index into a BuilderArena.
type BuilderHandle int

// BuilderArena owns the mutable buffers of every string builder created in
// an execution. Values refer to a buffer only through its handle.
type BuilderArena struct {
	list *immutable.List
}

type builderEntry struct {
	value   string
	expr    Expr // nil once the buffer can no longer be modeled
	unknown bool // concrete contents lost
}

// NewBuilderArena returns a new, empty arena.
func NewBuilderArena() *BuilderArena {
	return &BuilderArena{list: immutable.NewList()}
}

// Len returns the number of buffers allocated.
func (a *BuilderArena) Len() int { return a.list.Len() }

// New allocates a buffer and returns a value referring to it.
func (a *BuilderArena) New(value string, expr Expr, addr int) *StringBuilderValue {
	h := BuilderHandle(a.list.Len())
	a.list = a.list.Append(&builderEntry{value: value, expr: expr})
	return &StringBuilderValue{Handle: h, Addr: addr, arena: a}
}

// Get returns the contents and formula of a buffer.
func (a *BuilderArena) Get(h BuilderHandle) (string, Expr) {
	assert(int(h) >= 0 && int(h) < a.list.Len(), "builder handle out of range: %d", h)
	e := a.list.Get(int(h)).(*builderEntry)
	return e.value, e.expr
}

// Set replaces the contents and formula of a buffer in place.
func (a *BuilderArena) Set(h BuilderHandle, value string, expr Expr) {
	assert(int(h) >= 0 && int(h) < a.list.Len(), "builder handle out of range: %d", h)
	a.list = a.list.Set(int(h), &builderEntry{value: value, expr: expr})
}

// Invalidate marks the contents of a buffer as unknown. Every later
// operation on the builder degrades.
func (a *BuilderArena) Invalidate(h BuilderHandle) {
	assert(int(h) >= 0 && int(h) < a.list.Len(), "builder handle out of range: %d", h)
	a.list = a.list.Set(int(h), &builderEntry{unknown: true})
}

// Valid returns true if the concrete contents of a buffer are known.
func (a *BuilderArena) Valid(h BuilderHandle) bool {
	assert(int(h) >= 0 && int(h) < a.list.Len(), "builder handle out of range: %d", h)
	return !a.list.Get(int(h)).(*builderEntry).unknown
}
