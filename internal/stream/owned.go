package stream

import (
	"mmbcheck/internal/kernel"
	"mmbcheck/internal/opcode"
)

// Owned is the seekable statement stream. It keeps every statement and
// the classification lists, so it can jump to any declaration.
type Owned struct {
	stmts   []Statement
	proofs  []opcode.ProofCommand
	index   Indices
	pos     int
	pending *kernel.Range
	lent    bool
}

// NewOwned takes ownership of its arguments.
func NewOwned(stmts []Statement, proofs []opcode.ProofCommand, index Indices) *Owned {
	return &Owned{stmts: stmts, proofs: proofs, index: index}
}

// Next yields the opcode at the cursor and advances it.
func (o *Owned) Next() (opcode.StatementOpcode, bool) {
	o.pending = nil
	if o.pos >= len(o.stmts) {
		return opcode.OpEnd, false
	}
	s := o.stmts[o.pos]
	o.pos++
	o.pending = pendingProof(s)
	return s.Kind.Opcode(), true
}

// TakeProofStream returns a cursor over the pending statement's proof.
// It panics if a cursor is already out.
func (o *Owned) TakeProofStream() *ProofOwned {
	if o.lent {
		panic("stream: proof stream taken twice")
	}
	o.lent = true
	start, end := window(o.pending, len(o.proofs))
	return &ProofOwned{buf: o.proofs, pos: start, end: end}
}

// PutProofStream releases the cursor handed out by TakeProofStream.
func (o *Owned) PutProofStream(*ProofOwned) { o.lent = false }

// SeekTo moves the cursor to statement i and returns the counters a
// checker has after processing every statement before it.
func (o *Owned) SeekTo(i int) kernel.State {
	o.pos = max(i, 0)
	o.pending = nil
	return Replay(o.stmts, o.pos)
}

// Pos returns the cursor.
func (o *Owned) Pos() int { return o.pos }

// Len returns the number of statements, End included.
func (o *Owned) Len() int { return len(o.stmts) }

// Statements exposes the statement list; callers must not modify it.
func (o *Owned) Statements() []Statement { return o.stmts }

// Proof returns the commands of a statement's proof window.
func (o *Owned) Proof(s Statement) []opcode.ProofCommand {
	start, end := window(s.Proof, len(o.proofs))
	return o.proofs[start:end]
}

// Indices exposes the classification lists.
func (o *Owned) Indices() *Indices { return &o.index }

// NthSortIndex returns the position of the k-th sort statement.
func (o *Owned) NthSortIndex(k int) (int, bool) { return nth(o.index.Sort, k) }

// NthTermIndex returns the position of the k-th term-family statement.
func (o *Owned) NthTermIndex(k int) (int, bool) { return nth(o.index.Term, k) }

// NthTheoremIndex returns the position of the k-th axiom or theorem.
func (o *Owned) NthTheoremIndex(k int) (int, bool) { return nth(o.index.Theorem, k) }

// NthAxiomIndex returns the position of the k-th axiom.
func (o *Owned) NthAxiomIndex(k int) (int, bool) { return nth(o.index.Axiom, k) }

// ProofOwned is a bounded cursor over the retained proof buffer.
type ProofOwned struct {
	buf []opcode.ProofCommand
	pos int
	end int
}

// Next yields the next command of the window.
func (p *ProofOwned) Next() (opcode.ProofCommand, bool) {
	if p.pos >= p.end {
		return opcode.ProofCommand{}, false
	}
	c := p.buf[p.pos]
	p.pos++
	return c, true
}

// Remaining reports how many commands are left in the window.
func (p *ProofOwned) Remaining() int { return p.end - p.pos }
