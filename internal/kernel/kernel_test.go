package kernel

import (
	"errors"
	"testing"

	"mmbcheck/internal/opcode"
)

func pc(op opcode.Proof, data uint32) opcode.ProofCommand {
	return opcode.ProofCommand{Op: op, Data: data}
}

func uc(op opcode.Unify, data uint32) opcode.UnifyCommand {
	return opcode.UnifyCommand{Op: op, Data: data}
}

// testTable declares:
//
//	provable sort wff; strict sort obj;
//	term imp (a b: wff): wff;
//	def dup (a: wff): wff = imp a a;
//	axiom mp (a b: wff): a -> imp a b -> b;
//	theorem mp' (a b: wff): a -> imp a b -> b;
func testTable() *Table {
	wff := NewBinder(0, false, 0)
	mpUnify := []opcode.UnifyCommand{
		uc(opcode.UnifyRef, 1),
		uc(opcode.UnifyHyp, 0),
		uc(opcode.UnifyTerm, 0), uc(opcode.UnifyRef, 0), uc(opcode.UnifyRef, 1),
		uc(opcode.UnifyHyp, 0),
		uc(opcode.UnifyRef, 0),
	}
	t := &Table{
		Sorts:   []Sort{SortProvable, SortStrict},
		Binders: []Binder{wff, wff, wff, wff, wff},
		Unify: append([]opcode.UnifyCommand{
			uc(opcode.UnifyTerm, 0), uc(opcode.UnifyRef, 0), uc(opcode.UnifyRef, 0),
		}, mpUnify...),
	}
	t.Terms = []Term{
		{Sort: 0, Binders: Range{0, 2}, Ret: wff},
		{Sort: 0 | termDefFlag, Binders: Range{2, 3}, Ret: wff, Unify: Range{0, 3}},
	}
	t.Theorems = []Theorem{
		{Binders: Range{3, 5}, Unify: Range{3, 10}},
		{Binders: Range{3, 5}, Unify: Range{3, 10}},
	}
	return t
}

// introHyps registers a and imp a b as hypotheses 2 and 3.
var introHyps = []opcode.ProofCommand{
	pc(opcode.ProofRef, 0), pc(opcode.ProofHyp, 0),
	pc(opcode.ProofRef, 0), pc(opcode.ProofRef, 1), pc(opcode.ProofTerm, 0), pc(opcode.ProofHyp, 0),
}

func axiomProof() []opcode.ProofCommand {
	return append(append([]opcode.ProofCommand{}, introHyps...), pc(opcode.ProofRef, 1))
}

func theoremProof() []opcode.ProofCommand {
	return append(append([]opcode.ProofCommand{}, introHyps...),
		pc(opcode.ProofRef, 2), pc(opcode.ProofRef, 3),
		pc(opcode.ProofRef, 0), pc(opcode.ProofRef, 1),
		pc(opcode.ProofRef, 1),
		pc(opcode.ProofThm, 0),
	)
}

type fakeProof struct {
	cmds []opcode.ProofCommand
	pos  int
}

func (p *fakeProof) Next() (opcode.ProofCommand, bool) {
	if p.pos >= len(p.cmds) {
		return opcode.ProofCommand{}, false
	}
	p.pos++
	return p.cmds[p.pos-1], true
}

func (p *fakeProof) Remaining() int { return len(p.cmds) - p.pos }

type fakeStream struct {
	ops    []opcode.StatementOpcode
	proofs [][]opcode.ProofCommand
	pos    int
	out    bool
}

func (s *fakeStream) Next() (opcode.StatementOpcode, bool) {
	if s.pos >= len(s.ops) {
		return opcode.OpEnd, false
	}
	s.pos++
	return s.ops[s.pos-1], true
}

func (s *fakeStream) TakeProofStream() *fakeProof {
	if s.out {
		panic("proof stream taken twice")
	}
	s.out = true
	return &fakeProof{cmds: s.proofs[s.pos-1]}
}

func (s *fakeStream) PutProofStream(*fakeProof) { s.out = false }

func fullStream() *fakeStream {
	return &fakeStream{
		ops: []opcode.StatementOpcode{
			opcode.OpSort, opcode.OpSort, opcode.OpTermDef, opcode.OpTermDef,
			opcode.OpAxiom, opcode.OpThm, opcode.OpEnd,
		},
		proofs: [][]opcode.ProofCommand{
			nil, nil, nil,
			{pc(opcode.ProofRef, 0), pc(opcode.ProofRef, 0), pc(opcode.ProofTerm, 0)},
			axiomProof(),
			theoremProof(),
			nil,
		},
	}
}

func runAll(t *testing.T, s *Stepper[*fakeStream, *fakeProof], ctx *Context, state *State, table *Table) ([]Action, error) {
	t.Helper()
	var acts []Action
	for i := 0; i < 1000; i++ {
		act, ok, err := s.Step(ctx, state, table)
		if err != nil {
			return acts, err
		}
		if !ok {
			return acts, nil
		}
		acts = append(acts, act)
	}
	t.Fatalf("stepper did not terminate")
	return nil, nil
}

func TestStepperChecksDeclarations(t *testing.T) {
	table := testTable()
	stream := fullStream()
	s := NewStepper[*fakeStream, *fakeProof](stream)
	ctx := NewContext()
	var state State

	acts, err := runAll(t, s, ctx, &state, table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := State{CurrentSort: 2, CurrentTerm: 2, CurrentTheorem: 2}
	if state != want {
		t.Fatalf("state: want %s, got %s", want, state)
	}
	if !s.Done() {
		t.Fatalf("stepper should be done")
	}

	var kinds []ActionKind
	for _, a := range acts {
		if a.Kind != ActionProof && a.Kind != ActionUnify {
			kinds = append(kinds, a.Kind)
		}
	}
	wantKinds := []ActionKind{ActionSort, ActionSort, ActionTermDef, ActionTermDef, ActionAxiom, ActionTheorem}
	if len(kinds) != len(wantKinds) {
		t.Fatalf("statement actions: want %v, got %v", wantKinds, kinds)
	}
	for i := range kinds {
		if kinds[i] != wantKinds[i] {
			t.Fatalf("action %d: want %s, got %s", i, wantKinds[i], kinds[i])
		}
	}
	// 6 statements, 3+7+12 proof commands, 3+7+7 unify commands.
	if len(acts) != 6+22+17 {
		t.Fatalf("want %d steps, got %d", 6+22+17, len(acts))
	}
	if stream.out {
		t.Fatalf("proof stream was not returned")
	}
}

func TestStepperStatementBoundaries(t *testing.T) {
	table := testTable()
	s := NewStepper[*fakeStream, *fakeProof](fullStream())
	ctx := NewContext()
	var state State

	for i := 0; i < 3; i++ {
		if _, ok, err := s.Step(ctx, &state, table); err != nil || !ok {
			t.Fatalf("step %d: ok=%v err=%v", i, ok, err)
		}
		if !s.IsStateNormal() {
			t.Fatalf("step %d: expected to be between statements", i)
		}
	}
	act, _, err := s.Step(ctx, &state, table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if act.Kind != ActionTermDef || act.Index != 1 {
		t.Fatalf("want term 1, got %s", act)
	}
	if s.IsStateNormal() {
		t.Fatalf("definition header should open a proof")
	}
	// the third proof command settles the proof and leaves the unify
	// stream pending.
	for i := 0; i < 3; i++ {
		if _, _, err := s.Step(ctx, &state, table); err != nil {
			t.Fatalf("proof step %d: %v", i, err)
		}
	}
	if state.CurrentTerm != 1 {
		t.Fatalf("term counter advanced before unify: %s", state)
	}
	for i := 0; i < 3; i++ {
		if _, _, err := s.Step(ctx, &state, table); err != nil {
			t.Fatalf("unify step %d: %v", i, err)
		}
	}
	if !s.IsStateNormal() || state.CurrentTerm != 2 {
		t.Fatalf("want normal state with 2 terms, got %s", state)
	}
}

func TestStepperAbortReturnsProofStream(t *testing.T) {
	table := testTable()
	stream := fullStream()
	s := NewStepper[*fakeStream, *fakeProof](stream)
	ctx := NewContext()
	var state State
	for i := 0; i < 4; i++ {
		if _, _, err := s.Step(ctx, &state, table); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if !stream.out {
		t.Fatalf("expected an open proof stream")
	}
	s.Abort(ctx)
	if stream.out || !s.IsStateNormal() {
		t.Fatalf("abort should return the proof stream and reset the phase")
	}
	if len(ctx.ProofStack()) != 0 || len(ctx.ProofHeap()) != 0 {
		t.Fatalf("abort should clear the context")
	}
}

func TestStepperErrors(t *testing.T) {
	tests := []struct {
		name  string
		stmt  opcode.StatementOpcode
		proof []opcode.ProofCommand
		want  Kind
	}{
		{"body does not match unify", opcode.OpTermDef, []opcode.ProofCommand{pc(opcode.ProofRef, 0)}, KindUnifyTermMismatch},
		{"self reference", opcode.OpTermDef, []opcode.ProofCommand{pc(opcode.ProofRef, 0), pc(opcode.ProofTerm, 1)}, KindInvalidTerm},
		{"empty proof", opcode.OpTermDef, nil, KindStackShape},
		{"hyp in definition", opcode.OpTermDef, []opcode.ProofCommand{pc(opcode.ProofRef, 0), pc(opcode.ProofHyp, 0)}, KindCommandNotAllowed},
		{"sorry disabled", opcode.OpThm, []opcode.ProofCommand{pc(opcode.ProofRef, 1), pc(opcode.ProofSorry, 0)}, KindSorry},
		{"heap out of range", opcode.OpAxiom, []opcode.ProofCommand{pc(opcode.ProofRef, 9)}, KindInvalidHeapIndex},
		{"missing hypotheses", opcode.OpAxiom, []opcode.ProofCommand{pc(opcode.ProofRef, 1)}, KindHypMismatch},
		{"theorem ends with expr", opcode.OpThm, []opcode.ProofCommand{pc(opcode.ProofRef, 1)}, KindStackShape},
		{"arguments swapped", opcode.OpThm, append(append([]opcode.ProofCommand{}, introHyps...),
			pc(opcode.ProofRef, 2), pc(opcode.ProofRef, 3),
			pc(opcode.ProofRef, 1), pc(opcode.ProofRef, 0),
			pc(opcode.ProofRef, 1),
			pc(opcode.ProofThm, 0),
		), KindUnifyRefMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := testTable()
			// Skip straight to the statement under test.
			state := State{CurrentSort: 2, CurrentTerm: 1, CurrentTheorem: 0}
			if tt.stmt == opcode.OpThm {
				state.CurrentTerm = 2
				state.CurrentTheorem = 1
			} else if tt.stmt == opcode.OpAxiom {
				state.CurrentTerm = 2
			}
			stream := &fakeStream{
				ops:    []opcode.StatementOpcode{tt.stmt},
				proofs: [][]opcode.ProofCommand{tt.proof},
			}
			s := NewStepper[*fakeStream, *fakeProof](stream)
			_, err := runAll(t, s, NewContext(), &state, table)
			if err == nil {
				t.Fatalf("expected %s, got nil", tt.want)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %s, got %v", tt.want, err)
			}
		})
	}
}

func TestStepperAllowsSorry(t *testing.T) {
	table := testTable()
	state := State{CurrentSort: 2, CurrentTerm: 2, CurrentTheorem: 1}
	proof := append(append([]opcode.ProofCommand{}, introHyps...), pc(opcode.ProofRef, 1), pc(opcode.ProofSorry, 0))
	s := NewStepper[*fakeStream, *fakeProof](&fakeStream{
		ops:    []opcode.StatementOpcode{opcode.OpThm},
		proofs: [][]opcode.ProofCommand{proof},
	})
	s.SetAllowSorry(true)
	if _, err := runAll(t, s, NewContext(), &state, table); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.CurrentTheorem != 2 {
		t.Fatalf("want 2 theorems, got %s", state)
	}
}

func TestAllocateBinders(t *testing.T) {
	table := testTable()
	tests := []struct {
		name    string
		binders []Binder
		sorts   uint32
		want    Kind
	}{
		{"undeclared sort", []Binder{NewBinder(0, false, 0)}, 0, KindInvalidSort},
		{"bound strict", []Binder{NewBinder(1, true, 0)}, 2, KindStrictSort},
		{"forward dependency", []Binder{NewBinder(0, false, 1)}, 2, KindDepsViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewContext().AllocateBinders(table, tt.sorts, tt.binders)
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %s, got %v", tt.want, err)
			}
		})
	}

	ctx := NewContext()
	table.Sorts = append(table.Sorts, 0)
	binders := []Binder{NewBinder(2, true, 0), NewBinder(2, true, 0), NewBinder(0, false, 2)}
	if err := ctx.AllocateBinders(table, 3, binders); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.NumArgs() != 3 {
		t.Fatalf("want 3 args, got %d", ctx.NumArgs())
	}
	if d := ctx.Store().Get(ctx.ProofHeap()[1].L).Deps; d != 2 {
		t.Fatalf("second bound variable: want deps 0x2, got %#x", d)
	}
}

func TestStoreHashConsing(t *testing.T) {
	s := NewStore()
	a := s.NewVar(0, false, 0)
	b := s.NewVar(0, false, 0)
	if a == b {
		t.Fatalf("variables must be distinct")
	}
	x := s.App(3, 0, 0, []ExprID{a, b})
	y := s.App(3, 0, 0, []ExprID{a, b})
	z := s.App(3, 0, 0, []ExprID{b, a})
	if x != y {
		t.Fatalf("equal applications got ids %d and %d", x, y)
	}
	if x == z {
		t.Fatalf("different applications share id %d", x)
	}
	if got := s.Format(x); got != "(t3 v0 v1)" {
		t.Fatalf("format: got %q", got)
	}
	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("reset left %d expressions", s.Len())
	}
}

func TestRunProofConversions(t *testing.T) {
	table := testTable()
	state := StateFromTable(table)
	ctx := NewContext()
	wff := NewBinder(0, false, 0)
	if err := ctx.AllocateBinders(table, state.CurrentSort, []Binder{wff}); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	// |- imp a a converted to |- dup a by unfolding.
	cmds := []opcode.ProofCommand{
		pc(opcode.ProofRef, 0), pc(opcode.ProofTerm, 1), // dup a
		pc(opcode.ProofRef, 0), pc(opcode.ProofRef, 0), pc(opcode.ProofTerm, 0), // imp a a
		pc(opcode.ProofSorry, 0), // |- imp a a
		pc(opcode.ProofConv, 0),  // |- dup a, obligation dup a =?= imp a a
		pc(opcode.ProofRef, 0), pc(opcode.ProofRef, 0), pc(opcode.ProofTerm, 0),
		pc(opcode.ProofUnfold, 0), // imp a a =?= imp a a
		pc(opcode.ProofRefl, 0),
	}
	p := NewProofStepper(false, state, cmds)
	p.allowSorry = true
	if err := p.Run(ctx, table); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stack := ctx.ProofStack()
	if len(stack) != 1 || stack[0].Kind != EntryProof {
		t.Fatalf("want a single proof, got %d cells", len(stack))
	}
	if got := ctx.Store().Format(stack[0].L); got != "(t1 v0)" {
		t.Fatalf("conclusion: got %s", got)
	}

	if err := RunProof(NewContext(), table, state, []opcode.ProofCommand{pc(opcode.ProofRefl, 0)}); !errors.Is(err, KindProofStackUnderflow) {
		t.Fatalf("want underflow, got %v", err)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: KindUnifyRefMismatch, Detail: "v0 vs v1"}, "K1019 unify reference mismatch: v0 vs v1"},
		{&Error{Kind: KindSorry}, "K1025 sorry not allowed"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Fatalf("want %q, got %q", tt.want, got)
		}
	}
	if got := KindSorry.Error(); got != "K1025: sorry not allowed" {
		t.Fatalf("bare kind renders %q", got)
	}
}
