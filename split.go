package swat

import (
	"fmt"
	"regexp"
	"regexp/syntax"
	"strings"

	"go.uber.org/zap"
)

// SplitBuilder models a string split as a decomposition of the receiver's
// formula into segments separated by a literal delimiter. Every step is
// checked against a prover seeded with the call site's path constraints.
type SplitBuilder struct {
	x *Execution
}

// NewSplitBuilder returns a builder for the given execution.
func NewSplitBuilder(x *Execution) *SplitBuilder {
	return &SplitBuilder{x: x}
}

// splitSegment is a segment formula with the constraints justifying it.
type splitSegment struct {
	expr Expr // substr(s, start, len_i)
	cond Expr // simplified conjunction for the input element
}

// Build splits s by regex with the given limit. The concrete result always
// follows Java semantics. A formula is produced only for literal delimiters;
// otherwise, or if any step is unsatisfiable, PlaceHolder is returned and
// the trace is left untouched. Only solver failures are returned as errors.
func (b *SplitBuilder) Build(trace *TraceHandler, s, regex Value, limit int) (_ Value, err error) {
	const owner, name = "java/lang/String", "split"

	str, ok := concreteString(s)
	if !ok {
		return b.x.malformed(owner, name, "receiver is not a string: %s", s), nil
	}
	pattern, ok := concreteString(regex)
	if !ok {
		return b.x.malformed(owner, name, "regex is not a string: %s", regex), nil
	}

	segments, err := JavaSplit(str, pattern, limit)
	if err != nil {
		return b.x.degrade(owner, name, err.Error()), nil
	}

	sExpr, rExpr := stringFormula(s), stringFormula(regex)
	if sExpr == nil || rExpr == nil {
		return b.x.degrade(owner, name, "operand not modeled"), nil
	} else if !IsConstantExpr(rExpr) {
		return b.x.degrade(owner, name, "symbolic delimiter"), nil
	}
	delim, ok := LiteralDelimiter(pattern)
	if !ok {
		return b.x.degrade(owner, name, "non-literal delimiter"), nil
	} else if max := b.x.config.Split.MaxSegments; max > 0 && len(segments) > max {
		return b.x.degrade(owner, name, fmt.Sprintf("too many segments: %d", len(segments))), nil
	}

	// Zero segments and constant receivers carry no information about the inputs.
	if len(segments) == 0 || !IsSymbolic(sExpr) {
		return b.newArray(segments, nil), nil
	}

	// Truncation is detected by comparing against the unlimited split.
	// Trailing empty segments stripped by a zero limit are known to be
	// delimiters only.
	unlimited, _ := JavaSplit(str, pattern, -1)
	truncated := limit > 0 && len(segments) < len(unlimited)
	stripped := 0
	if limit == 0 {
		stripped = len(unlimited) - len(segments)
	}

	prover, err := b.x.solver.NewProver()
	if err != nil {
		return nil, fmt.Errorf("split: new prover: %w", err)
	}
	defer func() {
		if e := prover.Close(); e != nil && err == nil {
			err = fmt.Errorf("split: close prover: %w", e)
		}
	}()

	for _, expr := range trace.PathConstraints() {
		if err := prover.AddConstraint(expr); err != nil {
			return nil, fmt.Errorf("split: seed prover: %w", err)
		}
	}

	d := NewStringConstantExpr(delim)
	dlen := NewConstantExpr(int64(len([]rune(delim))))
	sLen := NewUnaryExpr(LENGTH, sExpr)

	var start Expr = NewConstantExpr(0)
	var tail Expr
	parts := make([]splitSegment, len(segments))
	for i := range segments {
		last := i == len(segments)-1

		n := b.x.registry.FreshHelperInt()
		seg := NewSubstrExpr(sExpr, start, n)
		cond := NewAndExpr(
			NewBinaryExpr(GE, n, NewConstantExpr(0)),
			NewBinaryExpr(EQ, NewUnaryExpr(LENGTH, seg), n),
		)
		start = NewBinaryExpr(ADD, start, n)

		// The final segment also fixes what follows it, unless the split was
		// truncated and the remainder may still contain delimiters.
		if last {
			if truncated {
				cond = NewAndExpr(cond, NewBinaryExpr(EQ, start, sLen))
			} else {
				tail = NewBinaryExpr(CONTAINS, seg, d)
				cond = NewAndExpr(cond, NewNotExpr(tail), trailingDelimiters(sExpr, start, sLen, delim, stripped))
			}
		}

		if ok, err := b.check(prover, cond); err != nil {
			return nil, err
		} else if !ok {
			return b.x.degrade(owner, name, fmt.Sprintf("segment %d unsatisfiable", i)), nil
		}

		if !last {
			at := NewBinaryExpr(EQ, NewSubstrExpr(sExpr, start, dlen), d)
			if ok, err := b.check(prover, at); err != nil {
				return nil, err
			} else if !ok {
				return b.x.degrade(owner, name, fmt.Sprintf("delimiter %d unsatisfiable", i)), nil
			}
			cond = NewAndExpr(cond, at)
			start = NewBinaryExpr(ADD, start, dlen)
		}

		parts[i] = splitSegment{expr: Simplify(seg), cond: Simplify(cond)}
	}

	// Commit only once every step was satisfiable.
	b.commit(trace, parts, tail)
	return b.newArray(segments, parts), nil
}

// check adds cond to the prover and returns true if it is still satisfiable.
func (b *SplitBuilder) check(prover Prover, cond Expr) (bool, error) {
	if err := prover.AddConstraint(cond); err != nil {
		return false, fmt.Errorf("split: add constraint: %w", err)
	}
	unsat, err := prover.IsUnsat()
	if err != nil {
		return false, fmt.Errorf("split: check: %w", err)
	}
	return !unsat, nil
}

// commit records the segment conjunctions in the trace's input element and
// as virtual branches.
func (b *SplitBuilder) commit(trace *TraceHandler, parts []splitSegment, tail Expr) {
	input := trace.Input()
	for _, p := range parts {
		input.AddHardConstraint(p.cond)
	}

	if !b.x.config.Split.RecordBranches {
		return
	}
	id := b.x.config.VirtualEdgeBase + trace.IID()
	for _, p := range parts {
		trace.CheckAndSetBranch(true, p.cond, VirtualTrueEdge(id))
	}
	if tail != nil {
		trace.CheckAndSetBranch(false, Simplify(tail), VirtualFalseEdge(id))
	}

	b.x.logger.Debug("split modeled",
		zap.Int("segments", len(parts)),
		zap.Int64("iid", trace.IID()),
	)
}

// newArray returns the result array. Element formulas are stored into a
// fresh array variable; a nil parts slice yields a concrete-only array.
func (b *SplitBuilder) newArray(segments []string, parts []splitSegment) *ArrayValue {
	arr := &ArrayValue{Elem: DescString, Elems: make([]Value, len(segments)), Addr: b.x.NextAddr()}

	var expr Expr = b.x.registry.FreshHelperArray(SortString)
	for i, seg := range segments {
		elem := b.x.NewString(seg, nil)
		if parts != nil {
			elem.Expr = parts[i].expr
		}
		arr.Elems[i] = elem
		expr = NewStoreExpr(expr, NewConstantExpr(int64(i)), elem.Expr)
	}
	arr.Expr = expr
	return arr
}

// trailingDelimiters returns the constraint that s continues from start
// with exactly n delimiters.
func trailingDelimiters(s, start, sLen Expr, delim string, n int) Expr {
	if n == 0 {
		return NewBinaryExpr(EQ, start, sLen)
	}
	rest := NewSubstrExpr(s, start, NewBinaryExpr(SUB, sLen, start))
	return NewBinaryExpr(EQ, rest, NewStringConstantExpr(strings.Repeat(delim, n)))
}

// LiteralDelimiter returns the literal text matched by regex if it matches
// exactly one fixed, non-empty string.
func LiteralDelimiter(regex string) (string, bool) {
	if regex == "" {
		return "", false
	} else if regexp.QuoteMeta(regex) == regex {
		return regex, true
	}

	// A single escaped character that is not a letter or digit.
	if len(regex) == 2 && regex[0] == '\\' {
		if c := regex[1]; c < 0x80 && !isASCIILetterOrDigit(rune(c)) {
			return regex[1:], true
		}
	}
	return "", false
}

// JavaSplit splits s around matches of regex.
//
// A positive limit caps the number of segments, the last one holding the
// remainder. A zero limit removes trailing empty segments. A negative limit
// keeps every segment. A zero-width match at the start never produces a
// leading empty segment.
func JavaSplit(s, regex string, limit int) ([]string, error) {
	re, err := compileJavaRegex(regex)
	if err != nil {
		return nil, err
	}

	// Go skips an empty match directly after a non-empty one while Java
	// keeps it, so such patterns would split differently.
	if p, err := syntax.Parse(regex, syntax.Perl); err != nil {
		return nil, fmt.Errorf("parse regex: %w", err)
	} else if matchesEmpty(p) && matchesNonEmpty(p) {
		return nil, fmt.Errorf("regex %q matches both empty and non-empty text", regex)
	}

	var a []string
	index := 0
	for _, m := range re.FindAllStringIndex(s, -1) {
		if limit > 0 && len(a) >= limit-1 {
			break
		} else if index == 0 && m[0] == 0 && m[0] == m[1] {
			continue
		}
		a = append(a, s[index:m[0]])
		index = m[1]
	}

	// No match found.
	if index == 0 {
		return []string{s}, nil
	}
	a = append(a, s[index:])

	if limit == 0 {
		for len(a) > 0 && a[len(a)-1] == "" {
			a = a[:len(a)-1]
		}
	}
	return a, nil
}

// compileJavaRegex compiles regex, rejecting constructs that Go's RE2
// syntax would interpret differently.
func compileJavaRegex(regex string) (*regexp.Regexp, error) {
	for _, unsupported := range []string{`\p{Java`, `(?<`, `(?=`, `(?!`, `\G`, `\Z`, `*+`, `++`, `?+`} {
		if strings.Contains(regex, unsupported) {
			return nil, fmt.Errorf("unsupported regex construct %q", unsupported)
		}
	}
	re, err := regexp.Compile(regex)
	if err != nil {
		return nil, fmt.Errorf("compile regex: %w", err)
	}
	return re, nil
}

// matchesEmpty returns true if re may match the empty string somewhere.
func matchesEmpty(re *syntax.Regexp) bool {
	switch re.Op {
	case syntax.OpEmptyMatch, syntax.OpBeginLine, syntax.OpEndLine, syntax.OpBeginText, syntax.OpEndText,
		syntax.OpWordBoundary, syntax.OpNoWordBoundary, syntax.OpStar, syntax.OpQuest:
		return true
	case syntax.OpLiteral:
		return len(re.Rune) == 0
	case syntax.OpPlus, syntax.OpCapture:
		return matchesEmpty(re.Sub[0])
	case syntax.OpRepeat:
		return re.Min == 0 || matchesEmpty(re.Sub[0])
	case syntax.OpConcat:
		for _, sub := range re.Sub {
			if !matchesEmpty(sub) {
				return false
			}
		}
		return true
	case syntax.OpAlternate:
		for _, sub := range re.Sub {
			if matchesEmpty(sub) {
				return true
			}
		}
	}
	return false
}

// matchesNonEmpty returns true if re may consume at least one character.
func matchesNonEmpty(re *syntax.Regexp) bool {
	switch re.Op {
	case syntax.OpLiteral, syntax.OpCharClass:
		return len(re.Rune) > 0
	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		return true
	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest, syntax.OpCapture:
		return matchesNonEmpty(re.Sub[0])
	case syntax.OpRepeat:
		return re.Max != 0 && matchesNonEmpty(re.Sub[0])
	case syntax.OpConcat, syntax.OpAlternate:
		for _, sub := range re.Sub {
			if matchesNonEmpty(sub) {
				return true
			}
		}
	}
	return false
}
