package mmb

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"

	"mmbcheck/internal/kernel"
	"mmbcheck/internal/opcode"
)

type termDecl struct {
	sort  uint8
	args  []kernel.Binder
	ret   kernel.Binder
	unify []opcode.UnifyCommand
}

type thmDecl struct {
	args  []kernel.Binder
	unify []opcode.UnifyCommand
}

type stmtDecl struct {
	kind  opcode.Statement
	proof []opcode.ProofCommand
}

// Writer assembles a file from declarations. It performs no checking
// beyond what is needed to produce a decodable file, so it can also be
// used to build deliberately wrong proofs.
type Writer struct {
	sorts []kernel.Sort
	terms []termDecl
	thms  []thmDecl
	stmts []stmtDecl
}

// NewWriter returns an empty writer.
func NewWriter() *Writer { return &Writer{} }

// AddSort appends a sort and returns its id.
func (w *Writer) AddSort(s kernel.Sort) uint8 {
	w.sorts = append(w.sorts, s)
	return uint8(len(w.sorts) - 1)
}

// AddTerm appends a term constructor and returns its id.
func (w *Writer) AddTerm(sort uint8, args []kernel.Binder, ret kernel.Binder) uint32 {
	w.terms = append(w.terms, termDecl{sort: sort & 0x7F, args: args, ret: ret})
	return uint32(len(w.terms) - 1)
}

// AddDef appends a definition whose body is described by unify.
func (w *Writer) AddDef(sort uint8, args []kernel.Binder, ret kernel.Binder, unify []opcode.UnifyCommand) uint32 {
	w.terms = append(w.terms, termDecl{sort: sort | 0x80, args: args, ret: ret, unify: unify})
	return uint32(len(w.terms) - 1)
}

// AddTheorem appends an axiom or theorem signature and returns its id.
func (w *Writer) AddTheorem(args []kernel.Binder, unify []opcode.UnifyCommand) uint32 {
	w.thms = append(w.thms, thmDecl{args: args, unify: unify})
	return uint32(len(w.thms) - 1)
}

// Statement appends a statement. The closing End statement is added by Bytes.
func (w *Writer) Statement(kind opcode.Statement, proof []opcode.ProofCommand) {
	w.stmts = append(w.stmts, stmtDecl{kind: kind, proof: proof})
}

func align8(buf []byte) []byte {
	for len(buf)%8 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

func offset(buf []byte) (uint32, error) {
	off, err := safecast.Conv[uint32](len(buf))
	if err != nil {
		return 0, fmt.Errorf("file exceeds 4GiB: %w", err)
	}
	return off, nil
}

func appendUnify(buf []byte, cmds []opcode.UnifyCommand) []byte {
	for _, c := range cmds {
		buf = opcode.Append(buf, uint8(c.Op), c.Data)
	}
	return append(buf, byte(opcode.UnifyEnd))
}

func appendStatement(buf []byte, s stmtDecl) ([]byte, error) {
	var body []byte
	if s.kind != opcode.StmtSort {
		for _, c := range s.proof {
			body = opcode.Append(body, uint8(c.Op), c.Data)
		}
		body = append(body, byte(opcode.ProofEnd))
	}
	for _, size := range []int{1, 2, 4} {
		length, err := safecast.Conv[uint32](1 + size + len(body))
		if err != nil {
			return nil, fmt.Errorf("statement too long: %w", err)
		}
		if opcode.DataSize(opcode.SizeTag(length)) == size {
			buf = opcode.Append(buf, uint8(s.kind), length)
			return append(buf, body...), nil
		}
	}
	return nil, fmt.Errorf("statement too long: %d bytes", len(body))
}

// Bytes lays the file out as header, sorts, term table, theorem table,
// declaration data and statement stream.
func (w *Writer) Bytes() ([]byte, error) {
	numSorts, err := safecast.Conv[uint8](len(w.sorts))
	if err != nil {
		return nil, fmt.Errorf("too many sorts: %w", err)
	}
	numTerms, err := safecast.Conv[uint32](len(w.terms))
	if err != nil {
		return nil, fmt.Errorf("too many terms: %w", err)
	}
	numThms, err := safecast.Conv[uint32](len(w.thms))
	if err != nil {
		return nil, fmt.Errorf("too many theorems: %w", err)
	}

	le := binary.LittleEndian
	buf := make([]byte, HeaderSize, 256)
	copy(buf, Magic)
	buf[4] = Version
	buf[5] = numSorts
	le.PutUint32(buf[8:], numTerms)
	le.PutUint32(buf[12:], numThms)
	for _, s := range w.sorts {
		buf = append(buf, byte(s))
	}

	buf = align8(buf)
	pTerms, err := offset(buf)
	if err != nil {
		return nil, err
	}
	buf = append(buf, make([]byte, termEntrySize*len(w.terms))...)
	pThms, err := offset(buf)
	if err != nil {
		return nil, err
	}
	buf = append(buf, make([]byte, thmEntrySize*len(w.thms))...)

	for i, t := range w.terms {
		n, err := safecast.Conv[uint16](len(t.args))
		if err != nil {
			return nil, fmt.Errorf("term %d: too many binders: %w", i, err)
		}
		buf = align8(buf)
		p, err := offset(buf)
		if err != nil {
			return nil, err
		}
		entry := int(pTerms) + termEntrySize*i
		le.PutUint16(buf[entry:], n)
		buf[entry+2] = t.sort
		le.PutUint32(buf[entry+4:], p)
		for _, b := range t.args {
			buf = le.AppendUint64(buf, uint64(b))
		}
		buf = le.AppendUint64(buf, uint64(t.ret))
		if t.sort&0x80 != 0 {
			buf = appendUnify(buf, t.unify)
		}
	}
	for i, t := range w.thms {
		n, err := safecast.Conv[uint16](len(t.args))
		if err != nil {
			return nil, fmt.Errorf("theorem %d: too many binders: %w", i, err)
		}
		buf = align8(buf)
		p, err := offset(buf)
		if err != nil {
			return nil, err
		}
		entry := int(pThms) + thmEntrySize*i
		le.PutUint16(buf[entry:], n)
		le.PutUint32(buf[entry+4:], p)
		for _, b := range t.args {
			buf = le.AppendUint64(buf, uint64(b))
		}
		buf = appendUnify(buf, t.unify)
	}

	pProof, err := offset(buf)
	if err != nil {
		return nil, err
	}
	le.PutUint32(buf[16:], pTerms)
	le.PutUint32(buf[20:], pThms)
	le.PutUint32(buf[24:], pProof)
	for _, s := range w.stmts {
		if buf, err = appendStatement(buf, s); err != nil {
			return nil, err
		}
	}
	return append(buf, byte(opcode.StmtEnd)), nil
}
