package kernel

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ExprID indexes an expression in a Store.
type ExprID uint32

// Expr is a variable or a term application.
type Expr struct {
	Sort  uint8
	IsVar bool
	Bound bool   // variables only
	Var   uint32 // variables only: allocation order, for display
	Term  uint32 // applications only
	Deps  uint64
	args  Range
}

// Store is an arena of expressions. Applications are hash-consed, so two
// applications are equal exactly when their IDs are equal.
type Store struct {
	exprs  []Expr
	args   []ExprID
	intern map[string]ExprID
	key    []byte
	vars   uint32
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		exprs:  make([]Expr, 0, 256),
		args:   make([]ExprID, 0, 512),
		intern: make(map[string]ExprID, 256),
	}
}

// Len reports the number of stored expressions.
func (s *Store) Len() int { return len(s.exprs) }

// Reset drops every expression.
func (s *Store) Reset() {
	s.exprs = s.exprs[:0]
	s.args = s.args[:0]
	s.vars = 0
	clear(s.intern)
}

// Get returns the expression for id, or nil when out of range.
func (s *Store) Get(id ExprID) *Expr {
	if int(id) >= len(s.exprs) {
		return nil
	}
	return &s.exprs[id]
}

// Args returns the arguments of an application.
func (s *Store) Args(id ExprID) []ExprID {
	e := s.Get(id)
	if e == nil || e.IsVar {
		return nil
	}
	return s.args[e.args.Start:e.args.End]
}

// NewVar allocates a fresh variable.
func (s *Store) NewVar(sort uint8, bound bool, deps uint64) ExprID {
	id := ExprID(len(s.exprs))
	s.exprs = append(s.exprs, Expr{Sort: sort, IsVar: true, Bound: bound, Var: s.vars, Deps: deps})
	s.vars++
	return id
}

// App returns the application of term to args, reusing an existing node.
func (s *Store) App(term uint32, sort uint8, deps uint64, args []ExprID) ExprID {
	s.key = binary.LittleEndian.AppendUint32(s.key[:0], term)
	for _, a := range args {
		s.key = binary.LittleEndian.AppendUint32(s.key, uint32(a))
	}
	if id, ok := s.intern[string(s.key)]; ok {
		return id
	}
	start := uint32(len(s.args))
	s.args = append(s.args, args...)
	id := ExprID(len(s.exprs))
	s.exprs = append(s.exprs, Expr{
		Sort: sort,
		Term: term,
		Deps: deps,
		args: Range{Start: start, End: uint32(len(s.args))},
	})
	s.intern[string(s.key)] = id
	return id
}

// Format renders an expression as an s-expression, e.g. "(t3 v0 (t1 v2))".
func (s *Store) Format(id ExprID) string {
	var sb strings.Builder
	s.format(&sb, id)
	return sb.String()
}

func (s *Store) format(sb *strings.Builder, id ExprID) {
	e := s.Get(id)
	switch {
	case e == nil:
		sb.WriteString("<?>")
	case e.IsVar:
		fmt.Fprintf(sb, "v%d", e.Var)
	default:
		args := s.Args(id)
		if len(args) == 0 {
			fmt.Fprintf(sb, "t%d", e.Term)
			return
		}
		fmt.Fprintf(sb, "(t%d", e.Term)
		for _, a := range args {
			sb.WriteByte(' ')
			s.format(sb, a)
		}
		sb.WriteByte(')')
	}
}

// EntryKind distinguishes the cells of the proof stack and heap.
type EntryKind uint8

const (
	EntryExpr   EntryKind = iota + 1 // e
	EntryProof                       // |- e
	EntryConv                        // e1 = e2
	EntryCoConv                      // e1 =?= e2
)

func (k EntryKind) String() string {
	switch k {
	case EntryExpr:
		return "expr"
	case EntryProof:
		return "proof"
	case EntryConv:
		return "conv"
	case EntryCoConv:
		return "coconv"
	default:
		return "unknown"
	}
}

// Entry is a proof stack or heap cell. R is only used by conversions.
type Entry struct {
	Kind EntryKind
	L    ExprID
	R    ExprID
}

// FormatEntry renders a stack cell.
func (s *Store) FormatEntry(e Entry) string {
	switch e.Kind {
	case EntryExpr:
		return s.Format(e.L)
	case EntryProof:
		return "|- " + s.Format(e.L)
	case EntryConv:
		return s.Format(e.L) + " = " + s.Format(e.R)
	case EntryCoConv:
		return s.Format(e.L) + " =?= " + s.Format(e.R)
	default:
		return "<?>"
	}
}
