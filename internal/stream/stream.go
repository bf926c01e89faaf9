// Package stream replays the statement list of a decoded file.
//
// Two variants share one contract: Iter walks the statements once and
// lends the proof buffer out by value, Owned keeps everything addressable
// and can seek. Both satisfy kernel.StatementStream.
package stream

import (
	"mmbcheck/internal/kernel"
	"mmbcheck/internal/opcode"
)

// Statement is one declaration in file order. Proof is nil for Sort and
// End statements.
type Statement struct {
	Kind  opcode.Statement
	Proof *kernel.Range
}

// Indices maps each declaration family to statement positions, in
// encounter order.
type Indices struct {
	Sort    []int
	Term    []int
	Theorem []int
	Axiom   []int // subset of Theorem
}

// Add classifies the statement at pos.
func (ix *Indices) Add(kind opcode.Statement, pos int) {
	switch {
	case kind == opcode.StmtSort:
		ix.Sort = append(ix.Sort, pos)
	case kind.IsTermFamily():
		ix.Term = append(ix.Term, pos)
	case kind.IsTheoremFamily():
		ix.Theorem = append(ix.Theorem, pos)
		if kind == opcode.StmtAxiom {
			ix.Axiom = append(ix.Axiom, pos)
		}
	}
}

func nth(list []int, k int) (int, bool) {
	if k < 0 || k >= len(list) {
		return 0, false
	}
	return list[k], true
}

// window clamps r to a buffer of length n.
func window(r *kernel.Range, n int) (int, int) {
	if r == nil {
		return 0, 0
	}
	start, end := int(r.Start), int(r.End)
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return start, end
}

// pendingProof returns the proof window the stream should expose after
// yielding s.
func pendingProof(s Statement) *kernel.Range {
	switch s.Kind {
	case opcode.StmtEnd, opcode.StmtSort:
		return nil
	default:
		return s.Proof
	}
}

// Replay counts declarations in stmts up to, not including, position i.
// It stops at the first End statement.
func Replay(stmts []Statement, i int) kernel.State {
	var st kernel.State
	for _, s := range stmts[:min(i, len(stmts))] {
		switch {
		case s.Kind == opcode.StmtEnd:
			return st
		case s.Kind == opcode.StmtSort:
			st.IncrementCurrentSort()
		case s.Kind.IsTermFamily():
			st.IncrementCurrentTerm()
		case s.Kind.IsTheoremFamily():
			st.IncrementCurrentTheorem()
		}
	}
	return st
}
