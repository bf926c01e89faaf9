package mmb

import (
	"encoding/binary"

	"fortio.org/safecast"

	"mmbcheck/internal/kernel"
	"mmbcheck/internal/opcode"
)

// Visitor receives the contents of a file in file order.
//
// Proof and unify commands are delivered between Begin*Stream and
// End*Stream; the End call returns the window the pushed commands occupy.
// A statement's proof stream is closed before BeginStatement is called
// for it.
type Visitor interface {
	RecordSort(sort kernel.Sort)
	BeginStatement(kind opcode.Statement, proof *kernel.Range)
	ReserveBinderSlice(n int) ([]kernel.Binder, uint32, error)
	BeginUnifyStream()
	PushUnify(cmd opcode.UnifyCommand)
	EndUnifyStream() kernel.Range
	BeginProofStream()
	PushProof(cmd opcode.ProofCommand)
	EndProofStream() kernel.Range
	RecordTerm(sort uint8, binders kernel.Range, ret kernel.Binder, unify kernel.Range)
	RecordTheorem(binders, unify kernel.Range)
}

// Visit drives v over sorts, terms, theorems and statements.
func (f *File) Visit(v Visitor) error {
	for _, s := range f.Sorts {
		v.RecordSort(s)
	}
	for i := uint32(0); i < f.NumTerms; i++ {
		if err := f.visitTerm(v, i); err != nil {
			return err
		}
	}
	for i := uint32(0); i < f.NumThms; i++ {
		if err := f.visitTheorem(v, i); err != nil {
			return err
		}
	}
	return f.visitStatements(v)
}

func (f *File) u16(off uint64) (uint16, error) {
	if off+2 > uint64(len(f.data)) {
		return 0, errorf(off, "unexpected end of file")
	}
	return binary.LittleEndian.Uint16(f.data[off:]), nil
}

func (f *File) u32(off uint64) (uint32, error) {
	if off+4 > uint64(len(f.data)) {
		return 0, errorf(off, "unexpected end of file")
	}
	return binary.LittleEndian.Uint32(f.data[off:]), nil
}

func (f *File) u64(off uint64) (uint64, error) {
	if off+8 > uint64(len(f.data)) {
		return 0, errorf(off, "unexpected end of file")
	}
	return binary.LittleEndian.Uint64(f.data[off:]), nil
}

func (f *File) command(off uint64) (uint8, uint32, uint64, error) {
	if off >= uint64(len(f.data)) {
		return 0, 0, 0, errorf(off, "unexpected end of file")
	}
	op, data, n, ok := opcode.Decode(f.data[off:])
	if !ok {
		return 0, 0, 0, errorf(off, "truncated command")
	}
	return op, data, uint64(n), nil
}

func (f *File) binder(off uint64) (kernel.Binder, error) {
	w, err := f.u64(off)
	if err != nil {
		return 0, err
	}
	b := kernel.Binder(w)
	if b.Sort() >= f.NumSorts {
		return 0, errorf(off, "binder of unknown sort %d", b.Sort())
	}
	return b, nil
}

// readBinders fills a freshly reserved binder slice from off.
func (f *File) readBinders(v Visitor, off uint64, n uint16) (kernel.Range, uint64, error) {
	binders, base, err := v.ReserveBinderSlice(int(n))
	if err != nil {
		return kernel.Range{}, 0, errorf(off, "%v", err)
	}
	for i := range binders {
		if binders[i], err = f.binder(off); err != nil {
			return kernel.Range{}, 0, err
		}
		off += 8
	}
	end, err := safecast.Conv[uint32](uint64(base) + uint64(n))
	if err != nil {
		return kernel.Range{}, 0, errorf(off, "binder buffer overflow: %v", err)
	}
	return kernel.Range{Start: base, End: end}, off, nil
}

// readUnify pushes unify commands from off up to and including End.
func (f *File) readUnify(v Visitor, off uint64) error {
	for {
		op, data, n, err := f.command(off)
		if err != nil {
			return err
		}
		u, perr := opcode.ParseUnify(op)
		if perr != nil {
			return errorf(off, "%v", perr)
		}
		if u == opcode.UnifyEnd {
			return nil
		}
		v.PushUnify(opcode.UnifyCommand{Op: u, Data: data})
		off += n
	}
}

func (f *File) visitTerm(v Visitor, id uint32) error {
	entry := uint64(f.PTerms) + termEntrySize*uint64(id)
	numArgs, err := f.u16(entry)
	if err != nil {
		return err
	}
	sort := f.data[entry+2]
	if sort&0x7F >= f.NumSorts {
		return errorf(entry+2, "term %d: unknown sort %d", id, sort&0x7F)
	}
	pArgs, err := f.u32(entry + 4)
	if err != nil {
		return err
	}

	binders, off, err := f.readBinders(v, uint64(pArgs), numArgs)
	if err != nil {
		return err
	}
	ret, err := f.binder(off)
	if err != nil {
		return err
	}
	off += 8

	v.BeginUnifyStream()
	if sort&0x80 != 0 {
		if err := f.readUnify(v, off); err != nil {
			return err
		}
	}
	unify := v.EndUnifyStream()
	v.RecordTerm(sort, binders, ret, unify)
	return nil
}

func (f *File) visitTheorem(v Visitor, id uint32) error {
	entry := uint64(f.PThms) + thmEntrySize*uint64(id)
	numArgs, err := f.u16(entry)
	if err != nil {
		return err
	}
	pArgs, err := f.u32(entry + 4)
	if err != nil {
		return err
	}
	binders, off, err := f.readBinders(v, uint64(pArgs), numArgs)
	if err != nil {
		return err
	}
	v.BeginUnifyStream()
	if err := f.readUnify(v, off); err != nil {
		return err
	}
	v.RecordTheorem(binders, v.EndUnifyStream())
	return nil
}

// visitStatements walks the statement stream. Each statement command
// carries its own byte length, so a statement can be skipped without
// reading its proof.
func (f *File) visitStatements(v Visitor) error {
	size := uint64(len(f.data))
	off := uint64(f.PProof)
	for {
		if off >= size {
			return errorf(off, "missing end statement")
		}
		op, length, n, err := f.command(off)
		if err != nil {
			return err
		}
		stmt, perr := opcode.ParseStatement(op)
		if perr != nil {
			return errorf(off, "%v", perr)
		}
		if stmt == opcode.StmtEnd {
			v.BeginStatement(stmt, nil)
			return nil
		}
		end := off + uint64(length)
		if uint64(length) < n || end > size {
			return errorf(off, "%s statement: bad length %d", stmt, length)
		}
		if stmt == opcode.StmtSort {
			v.BeginStatement(stmt, nil)
			off = end
			continue
		}

		v.BeginProofStream()
		if err := f.readProof(v, off+n, end); err != nil {
			return err
		}
		proof := v.EndProofStream()
		v.BeginStatement(stmt, &proof)
		off = end
	}
}

// readProof pushes the proof commands in [off, end); the last one must be End.
func (f *File) readProof(v Visitor, off, end uint64) error {
	for off < end {
		op, data, n, err := f.command(off)
		if err != nil {
			return err
		}
		p, perr := opcode.ParseProof(op)
		if perr != nil {
			return errorf(off, "%v", perr)
		}
		off += n
		if p == opcode.ProofEnd {
			if off != end {
				return errorf(off, "%d trailing bytes after proof", end-off)
			}
			return nil
		}
		if off > end {
			return errorf(off, "proof command crosses statement boundary")
		}
		v.PushProof(opcode.ProofCommand{Op: p, Data: data})
	}
	return errorf(end, "unterminated proof")
}
