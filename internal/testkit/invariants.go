package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"mmbcheck/internal/kernel"
	"mmbcheck/internal/opcode"
	"mmbcheck/internal/stream"
)

// CheckTableInvariants runs the range invariants of a built table:
// 1) every term and theorem binder range lies within the binder buffer
// 2) every unify range lies within the unify buffer
// 3) binder ranges are assigned in append order and never overlap
func CheckTableInvariants(t *kernel.Table) error {
	if t == nil {
		return fmt.Errorf("nil table")
	}
	lenBinders, err := safecast.Conv[uint32](len(t.Binders))
	if err != nil {
		return fmt.Errorf("binder buffer overflow: %w", err)
	}
	lenUnify, err := safecast.Conv[uint32](len(t.Unify))
	if err != nil {
		return fmt.Errorf("unify buffer overflow: %w", err)
	}

	check := func(what string, i int, r kernel.Range, n uint32) error {
		if r.Start > r.End {
			return fmt.Errorf("%s %d: inverted range %s", what, i, r)
		}
		if r.End > n {
			return fmt.Errorf("%s %d: range %s beyond buffer of %d", what, i, r, n)
		}
		return nil
	}

	// 1) and 2), collecting binder ranges for 3)
	var next uint32
	for i, term := range t.Terms {
		if err := check("term binders", i, term.Binders, lenBinders); err != nil {
			return err
		}
		if err := check("term unify", i, term.Unify, lenUnify); err != nil {
			return err
		}
		if term.Binders.Start < next {
			return fmt.Errorf("term %d: binder range %s overlaps previous declaration", i, term.Binders)
		}
		next = term.Binders.End
	}
	for i, thm := range t.Theorems {
		if err := check("theorem binders", i, thm.Binders, lenBinders); err != nil {
			return err
		}
		if err := check("theorem unify", i, thm.Unify, lenUnify); err != nil {
			return err
		}
		if thm.Binders.Start < next {
			return fmt.Errorf("theorem %d: binder range %s overlaps previous declaration", i, thm.Binders)
		}
		next = thm.Binders.End
	}
	return nil
}

// CheckPartition verifies that the classification lists partition the
// non-End statements:
// 1) sort, term and theorem positions are unique and cover every
// non-End statement exactly once
// 2) every axiom position is also a theorem position and names an axiom
// 3) each list is in increasing order
func CheckPartition(stmts []stream.Statement, ix *stream.Indices) error {
	seen := make(map[int]string, len(stmts))
	mark := func(list []int, name string) error {
		prev := -1
		for _, pos := range list {
			if pos <= prev {
				return fmt.Errorf("%s list not increasing at %d", name, pos)
			}
			prev = pos
			if pos < 0 || pos >= len(stmts) {
				return fmt.Errorf("%s position %d out of range", name, pos)
			}
			if other, dup := seen[pos]; dup {
				return fmt.Errorf("statement %d classified as both %s and %s", pos, other, name)
			}
			seen[pos] = name
		}
		return nil
	}
	if err := mark(ix.Sort, "sort"); err != nil {
		return err
	}
	if err := mark(ix.Term, "term"); err != nil {
		return err
	}
	if err := mark(ix.Theorem, "theorem"); err != nil {
		return err
	}
	for i, s := range stmts {
		_, ok := seen[i]
		isEnd := s.Kind == opcode.StmtEnd
		if ok == isEnd {
			return fmt.Errorf("statement %d (%s): classified=%v", i, s.Kind, ok)
		}
	}

	// 2)
	prev := -1
	for _, pos := range ix.Axiom {
		if pos <= prev {
			return fmt.Errorf("axiom list not increasing at %d", pos)
		}
		prev = pos
		if seen[pos] != "theorem" {
			return fmt.Errorf("axiom %d is not a theorem position", pos)
		}
		if stmts[pos].Kind != opcode.StmtAxiom {
			return fmt.Errorf("axiom position %d holds %s", pos, stmts[pos].Kind)
		}
	}
	return nil
}
