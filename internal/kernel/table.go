package kernel

import "mmbcheck/internal/opcode"

// Table holds every declaration of a decoded file in flat buffers.
// Terms and theorems refer into Binders and Unify by Range; the table is
// append-only while it is built and read-only afterwards.
type Table struct {
	Sorts    []Sort
	Terms    []Term
	Theorems []Theorem
	Binders  []Binder
	Unify    []opcode.UnifyCommand
}

// Sort returns the modifiers of sort id.
func (t *Table) Sort(id uint8) (Sort, bool) {
	if int(id) >= len(t.Sorts) {
		return 0, false
	}
	return t.Sorts[id], true
}

// Term returns term id, or false when out of range.
func (t *Table) Term(id uint32) (*Term, bool) {
	if uint64(id) >= uint64(len(t.Terms)) {
		return nil, false
	}
	return &t.Terms[id], true
}

// Theorem returns theorem id, or false when out of range.
func (t *Table) Theorem(id uint32) (*Theorem, bool) {
	if uint64(id) >= uint64(len(t.Theorems)) {
		return nil, false
	}
	return &t.Theorems[id], true
}

// BinderSlice resolves a binder range.
func (t *Table) BinderSlice(r Range) ([]Binder, bool) {
	if !r.Within(len(t.Binders)) {
		return nil, false
	}
	return t.Binders[r.Start:r.End], true
}

// UnifySlice resolves a unify command range.
func (t *Table) UnifySlice(r Range) ([]opcode.UnifyCommand, bool) {
	if !r.Within(len(t.Unify)) {
		return nil, false
	}
	return t.Unify[r.Start:r.End], true
}

// TermArity returns the number of binders of term id.
func (t *Table) TermArity(id uint32) (uint32, bool) {
	term, ok := t.Term(id)
	if !ok {
		return 0, false
	}
	return uint32(term.Binders.Len()), true
}
