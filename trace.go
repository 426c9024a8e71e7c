package swat

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/benbjohnson/immutable"
	"github.com/cespare/xxhash/v2"
)

// InputElement represents a symbolic program input along with the hard
// constraints that always hold for it.
type InputElement struct {
	Name       string
	Type       string
	Value      interface{}
	LowerBound string
	UpperBound string

	HardConstraints []Expr
}

// AddHardConstraint appends expr unless it is constant true or already present.
func (e *InputElement) AddHardConstraint(expr Expr) {
	if expr == nil || IsConstantTrue(expr) || containsExpr(e.HardConstraints, expr) {
		return
	}
	e.HardConstraints = append(e.HardConstraints, expr)
}

// Branch represents a single recorded branch decision.
type Branch struct {
	EdgeID  int64
	Taken   bool
	Formula Expr
}

// Constraint returns the formula that held when the branch was decided.
func (b Branch) Constraint() Expr {
	if b.Taken {
		return b.Formula
	}
	return NewNotExpr(b.Formula)
}

// VirtualTrueEdge returns the edge id of the taken side of a virtual branch.
// Virtual edge ids are negative and never collide with real edge ids.
func VirtualTrueEdge(id int64) int64 { return -(2*id + 1) }

// VirtualFalseEdge returns the edge id of the untaken side of a virtual branch.
func VirtualFalseEdge(id int64) int64 { return -(2*id + 2) }

// TraceHandler is the ordered branch log of one call site in one execution.
type TraceHandler struct {
	key      uint64
	iid      int64
	input    *InputElement
	branches []Branch
}

// Key returns the argument-identity hash the handler is stored under.
func (h *TraceHandler) Key() uint64 { return h.key }

// IID returns the handler's instance id, used to derive virtual edge ids.
func (h *TraceHandler) IID() int64 { return h.iid }

// SetIID assigns the instruction id of the call site owning the handler.
func (h *TraceHandler) SetIID(iid int64) { h.iid = iid }

// Input returns the input element the handler is keyed to.
func (h *TraceHandler) Input() *InputElement { return h.input }

// Branches returns the recorded branches in order.
func (h *TraceHandler) Branches() []Branch { return h.branches }

// CheckAndSetBranch records a branch decision. Constant formulas carry no
// information about the inputs and are not recorded. Returns true if recorded.
func (h *TraceHandler) CheckAndSetBranch(taken bool, formula Expr, edgeID int64) bool {
	if formula == nil || IsConstantExpr(formula) {
		return false
	}
	assert(ExprSort(formula) == SortBool, "branch formula must be boolean: %s", formula)
	h.branches = append(h.branches, Branch{EdgeID: edgeID, Taken: taken, Formula: formula})
	return true
}

// PathConstraints returns the input's hard constraints followed by the
// constraint of every recorded branch.
func (h *TraceHandler) PathConstraints() []Expr {
	a := make([]Expr, 0, len(h.input.HardConstraints)+len(h.branches))
	a = append(a, h.input.HardConstraints...)
	for _, b := range h.branches {
		a = append(a, b.Constraint())
	}
	return a
}

// TraceStore holds the trace handlers and inputs of a single execution.
type TraceStore struct {
	handlers *immutable.SortedMap // key -> *TraceHandler
	order    []*TraceHandler      // creation order
	inputs   []*InputElement
	byName   map[string]*InputElement
}

// NewTraceStore returns a new, empty store.
func NewTraceStore() *TraceStore {
	return &TraceStore{
		handlers: immutable.NewSortedMap(&uint64Comparer{}),
		byName:   make(map[string]*InputElement),
	}
}

// AddInput registers a symbolic input.
func (s *TraceStore) AddInput(e *InputElement) {
	s.inputs = append(s.inputs, e)
	s.byName[e.Name] = e
}

// Inputs returns the registered inputs in creation order.
func (s *TraceStore) Inputs() []*InputElement { return s.inputs }

// Input returns the input with the given variable name or nil.
func (s *TraceStore) Input(name string) *InputElement { return s.byName[name] }

// FirstInput returns the first input introduced in the execution or nil.
func (s *TraceStore) FirstInput() *InputElement {
	if len(s.inputs) == 0 {
		return nil
	}
	return s.inputs[0]
}

// Traces returns all handlers in creation order.
func (s *TraceStore) Traces() []*TraceHandler { return s.order }

// Len returns the number of handlers in the store.
func (s *TraceStore) Len() int { return s.handlers.Len() }

// Lookup returns the handler stored under key or nil.
func (s *TraceStore) Lookup(key uint64) *TraceHandler {
	if v, ok := s.handlers.Get(key); ok {
		return v.(*TraceHandler)
	}
	return nil
}

// GetOrCreateTrace returns the handler for the given arguments. A new
// handler starts with iid 0 and is keyed to the input referenced by the
// first symbolic argument.
func (s *TraceStore) GetOrCreateTrace(args []Value, desc []Descriptor) *TraceHandler {
	key := TraceKey(args, desc)
	if h := s.Lookup(key); h != nil {
		return h
	}

	h := &TraceHandler{key: key, input: s.seedInput(args)}
	s.handlers = s.handlers.Set(key, h)
	s.order = append(s.order, h)
	return h
}

// seedInput returns the input element for a new handler.
func (s *TraceStore) seedInput(args []Value) *InputElement {
	for _, arg := range args {
		if arg == nil || arg.Formula() == nil {
			continue
		}
		for _, v := range FindVars(arg.Formula()) {
			if e := s.byName[v.Name]; e != nil {
				return e
			}
		}
	}
	if e := s.FirstInput(); e != nil {
		return e
	}
	return &InputElement{}
}

// TraceKey returns the hash of the identities and descriptors of args.
func TraceKey(args []Value, desc []Descriptor) uint64 {
	h := xxhash.New()
	for _, arg := range args {
		writeIdentity(h, arg)
	}
	for _, d := range desc {
		io.WriteString(h, string(d))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// writeIdentity writes the identity of v. Values with an address are
// identified by it; all others by their contents.
func writeIdentity(w io.Writer, v Value) {
	if v == nil {
		io.WriteString(w, "null\x00")
		return
	}

	fmt.Fprintf(w, "%T\x00", v)
	if addr := v.Address(); addr != AddressUnknown {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(addr))
		w.Write(buf[:])
		return
	}
	if sb, ok := v.(*StringBuilderValue); ok {
		fmt.Fprintf(w, "#%d\x00", sb.Handle)
		return
	}
	fmt.Fprintf(w, "%v\x00", v.Concrete())
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], HashExpr(v.Formula()))
	w.Write(buf[:])
}

// uint64Comparer compares two 64-bit unsigned integers. Implements immutable.Comparer.
type uint64Comparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not an int.
func (c *uint64Comparer) Compare(a, b interface{}) int {
	if i, j := a.(uint64), b.(uint64); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
