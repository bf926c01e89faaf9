package compiler_test

import (
	"errors"
	"testing"

	"mmbcheck/internal/compiler"
	"mmbcheck/internal/kernel"
	"mmbcheck/internal/opcode"
)

func u(op opcode.Unify, data uint32) opcode.UnifyCommand {
	return opcode.UnifyCommand{Op: op, Data: data}
}

func p(op opcode.Proof, data uint32) opcode.ProofCommand {
	return opcode.ProofCommand{Op: op, Data: data}
}

// binary term 0 only
func arity(id uint32) (uint32, bool) {
	if id == 0 {
		return 2, true
	}
	return 0, false
}

// a, imp a b |- b
var mp = []opcode.UnifyCommand{
	u(opcode.UnifyRef, 1),
	u(opcode.UnifyHyp, 0),
	u(opcode.UnifyTerm, 0), u(opcode.UnifyRef, 0), u(opcode.UnifyRef, 1),
	u(opcode.UnifyHyp, 0),
	u(opcode.UnifyRef, 0),
}

func equalProof(t *testing.T, got, want []opcode.ProofCommand) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("command %d: want %s, got %s (full: %v)", i, want[i], got[i], got)
		}
	}
}

func TestUnifyToProof(t *testing.T) {
	tests := []struct {
		name    string
		binders uint32
		cmds    []opcode.UnifyCommand
		want    []opcode.ProofCommand
	}{
		{
			name:    "hypotheses in declaration order",
			binders: 2,
			cmds:    mp,
			want: []opcode.ProofCommand{
				p(opcode.ProofRef, 0), p(opcode.ProofHyp, 0),
				p(opcode.ProofRef, 0), p(opcode.ProofRef, 1), p(opcode.ProofTerm, 0), p(opcode.ProofHyp, 0),
				p(opcode.ProofRef, 1),
			},
		},
		{
			name:    "saved subterm is built once",
			binders: 1,
			cmds: []opcode.UnifyCommand{
				u(opcode.UnifyTerm, 0),
				u(opcode.UnifyTermSave, 0), u(opcode.UnifyRef, 0), u(opcode.UnifyRef, 0),
				u(opcode.UnifyRef, 1),
			},
			want: []opcode.ProofCommand{
				p(opcode.ProofRef, 0), p(opcode.ProofRef, 0), p(opcode.ProofTermSave, 0),
				p(opcode.ProofRef, 1),
				p(opcode.ProofTerm, 0),
			},
		},
		{
			name:    "dummy",
			binders: 0,
			cmds: []opcode.UnifyCommand{
				u(opcode.UnifyTerm, 0), u(opcode.UnifyDummy, 3), u(opcode.UnifyRef, 0),
			},
			want: []opcode.ProofCommand{
				p(opcode.ProofDummy, 3), p(opcode.ProofRef, 0), p(opcode.ProofTerm, 0),
			},
		},
		{
			name:    "trailing end is ignored",
			binders: 1,
			cmds:    []opcode.UnifyCommand{u(opcode.UnifyRef, 0), u(opcode.UnifyEnd, 0)},
			want:    []opcode.ProofCommand{p(opcode.ProofRef, 0)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := compiler.UnifyToProof(tt.binders, tt.cmds, arity)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			equalProof(t, got, tt.want)
		})
	}
}

func TestUnifyToProofMalformed(t *testing.T) {
	tests := []struct {
		name string
		cmds []opcode.UnifyCommand
	}{
		{"empty", nil},
		{"unknown term", []opcode.UnifyCommand{u(opcode.UnifyTerm, 7)}},
		{"truncated application", []opcode.UnifyCommand{u(opcode.UnifyTerm, 0), u(opcode.UnifyRef, 0)}},
		{"second conclusion", []opcode.UnifyCommand{u(opcode.UnifyRef, 0), u(opcode.UnifyRef, 0)}},
		{"hyp as expression", []opcode.UnifyCommand{u(opcode.UnifyHyp, 0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compiler.UnifyToProof(1, tt.cmds, arity)
			if !errors.Is(err, compiler.ErrMalformed) {
				t.Fatalf("want ErrMalformed, got %v", err)
			}
		})
	}
}

func TestUnifyToProofKeepsDanglingRefs(t *testing.T) {
	got, err := compiler.UnifyToProof(1, []opcode.UnifyCommand{
		u(opcode.UnifyTerm, 0), u(opcode.UnifyRef, 0), u(opcode.UnifyRef, 1),
	}, arity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	equalProof(t, got, []opcode.ProofCommand{
		p(opcode.ProofRef, 0), p(opcode.ProofRef, 1), p(opcode.ProofTerm, 0),
	})
}

func TestCompiledProofReplaysStatement(t *testing.T) {
	wff := kernel.NewBinder(0, false, 0)
	table := &kernel.Table{
		Sorts:    []kernel.Sort{kernel.SortProvable},
		Binders:  []kernel.Binder{wff, wff},
		Terms:    []kernel.Term{{Sort: 0, Binders: kernel.Range{Start: 0, End: 2}, Ret: wff}},
		Theorems: []kernel.Theorem{{Binders: kernel.Range{Start: 0, End: 2}, Unify: kernel.Range{Start: 0, End: 7}}},
		Unify:    mp,
	}
	state := kernel.StateFromTable(table)
	proof, err := compiler.UnifyToProof(2, mp, table.TermArity)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	ctx := kernel.NewContext()
	if err := ctx.AllocateBinders(table, state.CurrentSort, table.Binders); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if err := kernel.RunProof(ctx, table, state, proof); err != nil {
		t.Fatalf("run: %v", err)
	}
	store := ctx.Store()
	hyps := ctx.HypStack()
	if len(hyps) != 2 {
		t.Fatalf("want 2 hypotheses, got %d", len(hyps))
	}
	if got := store.Format(hyps[0]); got != "v0" {
		t.Fatalf("first hypothesis: got %s", got)
	}
	if got := store.Format(hyps[1]); got != "(t0 v0 v1)" {
		t.Fatalf("second hypothesis: got %s", got)
	}
	stack := ctx.ProofStack()
	if len(stack) != 1 || store.Format(stack[0].L) != "v1" {
		t.Fatalf("conclusion: got %d cells", len(stack))
	}
}
