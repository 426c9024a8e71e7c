package swat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExecutionRecord is the exported summary of an execution: its inputs and
// the branches recorded by every trace.
type ExecutionRecord struct {
	ID       string         `json:"id" yaml:"id"`
	Inputs   []InputRecord  `json:"inputs" yaml:"inputs"`
	Branches []BranchRecord `json:"branches" yaml:"branches"`
}

// InputRecord is the exported form of an InputElement.
type InputRecord struct {
	Name            string      `json:"name" yaml:"name"`
	Type            string      `json:"type" yaml:"type"`
	Value           interface{} `json:"value" yaml:"value"`
	LowerBound      string      `json:"lowerBound,omitempty" yaml:"lower_bound,omitempty"`
	UpperBound      string      `json:"upperBound,omitempty" yaml:"upper_bound,omitempty"`
	HardConstraints []string    `json:"hardConstraints" yaml:"hard_constraints"`
}

// BranchRecord is the exported form of a Branch. The formula is an SMT-LIB
// script asserting the constraint that held.
type BranchRecord struct {
	Input   string `json:"input" yaml:"input"`
	IID     int64  `json:"iid" yaml:"iid"`
	EdgeID  int64  `json:"edgeId" yaml:"edge_id"`
	Taken   bool   `json:"taken" yaml:"taken"`
	Formula string `json:"formula" yaml:"formula"`
}

// Export returns the record of the current execution.
func (e *Engine) Export() *ExecutionRecord {
	return e.Execution().Export()
}

// Export returns the record of the execution.
func (x *Execution) Export() *ExecutionRecord {
	rec := &ExecutionRecord{
		ID:       x.id.String(),
		Inputs:   make([]InputRecord, 0, len(x.store.Inputs())),
		Branches: []BranchRecord{},
	}

	for _, e := range x.store.Inputs() {
		r := InputRecord{
			Name:            e.Name,
			Type:            e.Type,
			Value:           e.Value,
			LowerBound:      e.LowerBound,
			UpperBound:      e.UpperBound,
			HardConstraints: make([]string, len(e.HardConstraints)),
		}
		for i, expr := range e.HardConstraints {
			r.HardConstraints[i] = DumpFormula(expr)
		}
		rec.Inputs = append(rec.Inputs, r)
	}

	for _, h := range x.store.Traces() {
		for _, b := range h.Branches() {
			rec.Branches = append(rec.Branches, BranchRecord{
				Input:   h.Input().Name,
				IID:     h.IID(),
				EdgeID:  b.EdgeID,
				Taken:   b.Taken,
				Formula: DumpFormula(b.Constraint()),
			})
		}
	}
	return rec
}

// WriteJSON writes the record as JSON. Indented output is used if pretty is set.
func (r *ExecutionRecord) WriteJSON(w io.Writer, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteYAML writes the record as a YAML document.
func (r *ExecutionRecord) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// Write writes the record in the given format.
func (r *ExecutionRecord) Write(w io.Writer, format string, pretty bool) error {
	switch format {
	case DumpFormatJSON:
		return r.WriteJSON(w, pretty)
	case DumpFormatYAML:
		return r.WriteYAML(w)
	default:
		return fmt.Errorf("invalid dump format: %q", format)
	}
}

// DumpFormula returns an SMT-LIB 2 script declaring every symbol of the
// given boolean expressions and asserting each of them.
func DumpFormula(exprs ...Expr) string {
	var buf bytes.Buffer
	for _, v := range FindVars(exprs...) {
		fmt.Fprintf(&buf, "(declare-fun %s () %s)\n", v.Name, v.Sort)
	}
	for _, a := range FindArrays(exprs...) {
		fmt.Fprintf(&buf, "(declare-fun %s () (Array Int %s))\n", a.Name, a.Elem)
	}
	for _, expr := range exprs {
		fmt.Fprintf(&buf, "(assert %s)\n", expr)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
