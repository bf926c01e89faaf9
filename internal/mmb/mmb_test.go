package mmb_test

import (
	"errors"
	"strings"
	"testing"

	"mmbcheck/internal/kernel"
	"mmbcheck/internal/mmb"
	"mmbcheck/internal/opcode"
)

type recorded struct {
	kind  opcode.Statement
	proof []opcode.ProofCommand
	has   bool
}

// recorder keeps everything it is told in plain slices.
type recorder struct {
	sorts   []kernel.Sort
	binders []kernel.Binder
	unify   []opcode.UnifyCommand
	proofs  []opcode.ProofCommand
	terms   []kernel.Term
	thms    []kernel.Theorem
	stmts   []recorded
	uStart  int
	pStart  int
}

func (r *recorder) RecordSort(s kernel.Sort) { r.sorts = append(r.sorts, s) }

func (r *recorder) BeginStatement(kind opcode.Statement, proof *kernel.Range) {
	st := recorded{kind: kind, has: proof != nil}
	if proof != nil {
		st.proof = r.proofs[proof.Start:proof.End]
	}
	r.stmts = append(r.stmts, st)
}

func (r *recorder) ReserveBinderSlice(n int) ([]kernel.Binder, uint32, error) {
	base := len(r.binders)
	r.binders = append(r.binders, make([]kernel.Binder, n)...)
	return r.binders[base:], uint32(base), nil
}

func (r *recorder) BeginUnifyStream() { r.uStart = len(r.unify) }
func (r *recorder) PushUnify(c opcode.UnifyCommand) { r.unify = append(r.unify, c) }
func (r *recorder) BeginProofStream() { r.pStart = len(r.proofs) }
func (r *recorder) PushProof(c opcode.ProofCommand) { r.proofs = append(r.proofs, c) }
func (r *recorder) EndUnifyStream() kernel.Range {
	return kernel.Range{Start: uint32(r.uStart), End: uint32(len(r.unify))}
}
func (r *recorder) EndProofStream() kernel.Range {
	return kernel.Range{Start: uint32(r.pStart), End: uint32(len(r.proofs))}
}

func (r *recorder) RecordTerm(sort uint8, binders kernel.Range, ret kernel.Binder, unify kernel.Range) {
	r.terms = append(r.terms, kernel.Term{Sort: sort, Binders: binders, Ret: ret, Unify: unify})
}

func (r *recorder) RecordTheorem(binders, unify kernel.Range) {
	r.thms = append(r.thms, kernel.Theorem{Binders: binders, Unify: unify})
}

func sampleWriter() *mmb.Writer {
	w := mmb.NewWriter()
	wff := w.AddSort(kernel.SortProvable)
	a := kernel.NewBinder(wff, false, 0)
	imp := w.AddTerm(wff, []kernel.Binder{a, a}, a)
	w.AddDef(wff, []kernel.Binder{a}, a, []opcode.UnifyCommand{
		{Op: opcode.UnifyTerm, Data: imp}, {Op: opcode.UnifyRef}, {Op: opcode.UnifyRef},
	})
	w.AddTheorem([]kernel.Binder{a}, []opcode.UnifyCommand{{Op: opcode.UnifyRef}, {Op: opcode.UnifyHyp}, {Op: opcode.UnifyRef}})

	w.Statement(opcode.StmtSort, nil)
	w.Statement(opcode.StmtTermDef, nil)
	w.Statement(opcode.StmtLocalDef, []opcode.ProofCommand{
		{Op: opcode.ProofRef}, {Op: opcode.ProofRef}, {Op: opcode.ProofTerm, Data: imp},
	})
	w.Statement(opcode.StmtAxiom, []opcode.ProofCommand{
		{Op: opcode.ProofRef}, {Op: opcode.ProofHyp}, {Op: opcode.ProofRef, Data: 300},
	})
	return w
}

func TestWriteThenVisit(t *testing.T) {
	data, err := sampleWriter().Bytes()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := mmb.Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.NumSorts != 1 || f.NumTerms != 2 || f.NumThms != 1 {
		t.Fatalf("header counts: %+v", f.Header)
	}
	var r recorder
	if err := f.Visit(&r); err != nil {
		t.Fatalf("visit: %v", err)
	}

	if len(r.sorts) != 1 || r.sorts[0] != kernel.SortProvable {
		t.Fatalf("sorts: %v", r.sorts)
	}
	if len(r.terms) != 2 || len(r.thms) != 1 {
		t.Fatalf("want 2 terms and 1 theorem, got %d and %d", len(r.terms), len(r.thms))
	}
	if r.terms[0].IsDef() || !r.terms[1].IsDef() {
		t.Fatalf("definition flags: %v %v", r.terms[0].IsDef(), r.terms[1].IsDef())
	}
	if got := r.terms[1].Binders; got != (kernel.Range{Start: 2, End: 3}) {
		t.Fatalf("def binders: %s", got)
	}
	if got := r.terms[1].Unify; got.Len() != 3 {
		t.Fatalf("def unify: %s", got)
	}
	if got := r.thms[0].Unify; got != (kernel.Range{Start: 3, End: 6}) {
		t.Fatalf("theorem unify: %s", got)
	}

	kinds := []opcode.Statement{opcode.StmtSort, opcode.StmtTermDef, opcode.StmtLocalDef, opcode.StmtAxiom, opcode.StmtEnd}
	if len(r.stmts) != len(kinds) {
		t.Fatalf("want %d statements, got %d", len(kinds), len(r.stmts))
	}
	for i, k := range kinds {
		if r.stmts[i].kind != k {
			t.Fatalf("statement %d: want %s, got %s", i, k, r.stmts[i].kind)
		}
	}
	if r.stmts[0].has || r.stmts[4].has {
		t.Fatalf("sort and end statements carry no proof")
	}
	if !r.stmts[1].has || len(r.stmts[1].proof) != 0 {
		t.Fatalf("term constructor should carry an empty proof")
	}
	ax := r.stmts[3].proof
	if len(ax) != 3 || ax[2] != (opcode.ProofCommand{Op: opcode.ProofRef, Data: 300}) {
		t.Fatalf("axiom proof: %v", ax)
	}
}

func TestParseRejectsBadHeaders(t *testing.T) {
	good, err := sampleWriter().Bytes()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	clone := func(edit func([]byte)) []byte {
		b := append([]byte(nil), good...)
		edit(b)
		return b
	}
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"short", good[:10], "too short"},
		{"magic", clone(func(b []byte) { b[0] = 'X' }), "bad magic"},
		{"version", clone(func(b []byte) { b[4] = 2 }), "unsupported version"},
		{"sort modifiers", clone(func(b []byte) { b[mmb.HeaderSize] = 0x10 }), "invalid modifiers"},
		{"term table", clone(func(b []byte) { b[8] = 0xFF }), "term table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mmb.Parse(tt.data)
			var fe *mmb.FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("want FormatError, got %v", err)
			}
			if !strings.Contains(fe.Msg, tt.want) {
				t.Fatalf("want %q in %q", tt.want, fe.Msg)
			}
		})
	}
}

func TestVisitRequiresEndStatement(t *testing.T) {
	data, err := sampleWriter().Bytes()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := mmb.Parse(data[:len(data)-1])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	err = f.Visit(&recorder{})
	var fe *mmb.FormatError
	if !errors.As(err, &fe) || !strings.Contains(fe.Msg, "missing end") {
		t.Fatalf("want missing end statement, got %v", err)
	}
}

func TestVisitRejectsUnterminatedProof(t *testing.T) {
	data, err := sampleWriter().Bytes()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	// The axiom's proof End is the byte just before the final End statement.
	data[len(data)-2] = byte(opcode.ProofSave)
	f, err := mmb.Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	err = f.Visit(&recorder{})
	var fe *mmb.FormatError
	if !errors.As(err, &fe) || !strings.Contains(fe.Msg, "unterminated") {
		t.Fatalf("want unterminated proof, got %v", err)
	}
}
