// Package visitor builds the declaration table and statement list of a
// file in a single decoding pass.
package visitor

import (
	"fmt"

	"fortio.org/safecast"

	"mmbcheck/internal/kernel"
	"mmbcheck/internal/mmb"
	"mmbcheck/internal/opcode"
	"mmbcheck/internal/stream"
)

// DefaultCapacity is the initial capacity of the flat buffers.
const DefaultCapacity = 1 << 20

// Builder implements mmb.Visitor. Everything it is handed is copied into
// buffers it owns, so the result outlives the input bytes.
type Builder struct {
	sorts    []kernel.Sort
	terms    []kernel.Term
	theorems []kernel.Theorem
	binders  []kernel.Binder
	unify    []opcode.UnifyCommand
	proofs   []opcode.ProofCommand

	stmts []stream.Statement
	index stream.Indices

	unifyStart int
	proofStart int

	done bool
}

var _ mmb.Visitor = (*Builder)(nil)

// New returns a builder with buffers sized for large files.
func New() *Builder {
	return NewWithCapacity(DefaultCapacity)
}

// NewWithCapacity returns a builder whose flat buffers start at n entries.
func NewWithCapacity(n int) *Builder {
	return &Builder{
		binders: make([]kernel.Binder, 0, n),
		unify:   make([]opcode.UnifyCommand, 0, n),
		proofs:  make([]opcode.ProofCommand, 0, n),
		stmts:   make([]stream.Statement, 0, n/8),
	}
}

// RecordSort appends a sort.
func (b *Builder) RecordSort(s kernel.Sort) { b.sorts = append(b.sorts, s) }

// BeginStatement appends a statement and classifies it.
func (b *Builder) BeginStatement(kind opcode.Statement, proof *kernel.Range) {
	var p *kernel.Range
	if proof != nil {
		r := *proof
		p = &r
	}
	b.index.Add(kind, len(b.stmts))
	b.stmts = append(b.stmts, stream.Statement{Kind: kind, Proof: p})
}

// ReserveBinderSlice grows the binder buffer by n zero binders and
// returns them along with their offset.
func (b *Builder) ReserveBinderSlice(n int) ([]kernel.Binder, uint32, error) {
	if n < 0 {
		return nil, 0, fmt.Errorf("negative binder count %d", n)
	}
	base := len(b.binders)
	if _, err := safecast.Conv[uint32](base + n); err != nil {
		return nil, 0, fmt.Errorf("binder buffer overflow: %w", err)
	}
	b.binders = append(b.binders, make([]kernel.Binder, n)...)
	return b.binders[base:], uint32(base), nil
}

// BeginUnifyStream marks the start of a unify window.
func (b *Builder) BeginUnifyStream() { b.unifyStart = len(b.unify) }

// PushUnify appends a unify command to the open window.
func (b *Builder) PushUnify(c opcode.UnifyCommand) { b.unify = append(b.unify, c) }

// EndUnifyStream closes the unify window.
func (b *Builder) EndUnifyStream() kernel.Range { return span(b.unifyStart, len(b.unify)) }

// BeginProofStream marks the start of a proof window.
func (b *Builder) BeginProofStream() { b.proofStart = len(b.proofs) }

// PushProof appends a proof command to the open window.
func (b *Builder) PushProof(c opcode.ProofCommand) { b.proofs = append(b.proofs, c) }

// EndProofStream closes the proof window.
func (b *Builder) EndProofStream() kernel.Range { return span(b.proofStart, len(b.proofs)) }

func span(start, end int) kernel.Range {
	s, err := safecast.Conv[uint32](start)
	if err != nil {
		panic(fmt.Errorf("command window overflow: %w", err))
	}
	e, err := safecast.Conv[uint32](end)
	if err != nil {
		panic(fmt.Errorf("command window overflow: %w", err))
	}
	return kernel.Range{Start: s, End: e}
}

// RecordTerm appends a term referring to previously reserved ranges.
func (b *Builder) RecordTerm(sort uint8, binders kernel.Range, ret kernel.Binder, unify kernel.Range) {
	b.terms = append(b.terms, kernel.Term{Sort: sort, Binders: binders, Ret: ret, Unify: unify})
}

// RecordTheorem appends a theorem referring to previously reserved ranges.
func (b *Builder) RecordTheorem(binders, unify kernel.Range) {
	b.theorems = append(b.theorems, kernel.Theorem{Binders: binders, Unify: unify})
}

func (b *Builder) finish() kernel.Table {
	if b.done {
		panic("visitor: builder already finalized")
	}
	b.done = true
	return kernel.Table{
		Sorts:    b.sorts,
		Terms:    b.terms,
		Theorems: b.theorems,
		Binders:  b.binders,
		Unify:    b.unify,
	}
}

// IntoTableAndStream hands the table and a consuming stream over. The
// builder cannot be used afterwards.
func (b *Builder) IntoTableAndStream() (kernel.Table, *stream.Iter) {
	t := b.finish()
	s := stream.NewIter(b.stmts, b.proofs)
	b.release()
	return t, s
}

// IntoTableOwned hands the table and a seekable stream over. The builder
// cannot be used afterwards.
func (b *Builder) IntoTableOwned() (kernel.Table, *stream.Owned) {
	t := b.finish()
	s := stream.NewOwned(b.stmts, b.proofs, b.index)
	b.release()
	return t, s
}

func (b *Builder) release() {
	*b = Builder{done: true}
}

// Build decodes data into a fresh builder. Buffers are sized from the
// input, since no command takes less than a byte.
func Build(data []byte) (*Builder, error) {
	f, err := mmb.Parse(data)
	if err != nil {
		return nil, err
	}
	b := NewWithCapacity(min(DefaultCapacity, len(data)))
	if err := f.Visit(b); err != nil {
		return nil, err
	}
	return b, nil
}
