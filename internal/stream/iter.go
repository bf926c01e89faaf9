package stream

import (
	"mmbcheck/internal/kernel"
	"mmbcheck/internal/opcode"
)

// Iter is the consuming statement stream. Statements are dropped as they
// are read and the proof buffer is handed to at most one ProofIter at a
// time.
type Iter struct {
	stmts   []Statement
	proofs  []opcode.ProofCommand
	cursor  int
	pending *kernel.Range
	lent    bool
}

// NewIter takes ownership of stmts and proofs.
func NewIter(stmts []Statement, proofs []opcode.ProofCommand) *Iter {
	return &Iter{stmts: stmts, proofs: proofs}
}

// Next yields the opcode of the next statement.
func (it *Iter) Next() (opcode.StatementOpcode, bool) {
	it.pending = nil
	if len(it.stmts) == 0 {
		return opcode.OpEnd, false
	}
	s := it.stmts[0]
	it.stmts = it.stmts[1:]
	it.pending = pendingProof(s)
	return s.Kind.Opcode(), true
}

// Len reports how many statements are left.
func (it *Iter) Len() int { return len(it.stmts) }

// TakeProofStream lends the proof buffer out, bounded to the pending
// statement's window. It panics if the buffer is already lent.
func (it *Iter) TakeProofStream() *ProofIter {
	if it.lent {
		panic("stream: proof stream taken twice")
	}
	start, end := window(it.pending, len(it.proofs))
	// Windows are laid out in file order; skip whatever an earlier
	// statement left unread.
	if it.cursor < start {
		it.cursor = start
	}
	left := max(end-it.cursor, 0)
	p := &ProofIter{buf: it.proofs, pos: it.cursor, left: left}
	it.proofs = nil
	it.lent = true
	return p
}

// PutProofStream takes the buffer back from p. p must not be used again.
func (it *Iter) PutProofStream(p *ProofIter) {
	it.proofs = p.buf
	it.cursor = p.pos
	it.lent = false
	p.buf = nil
	p.left = 0
}

// ProofIter reads one statement's proof out of a lent buffer.
type ProofIter struct {
	buf  []opcode.ProofCommand
	pos  int
	left int
}

// Next yields the next command of the window.
func (p *ProofIter) Next() (opcode.ProofCommand, bool) {
	if p.left == 0 || p.pos >= len(p.buf) {
		return opcode.ProofCommand{}, false
	}
	c := p.buf[p.pos]
	p.pos++
	p.left--
	return c, true
}

// Remaining reports how many commands are left in the window.
func (p *ProofIter) Remaining() int { return min(p.left, len(p.buf)-p.pos) }
