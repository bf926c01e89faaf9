package visitor_test

import (
	"testing"

	"mmbcheck/internal/kernel"
	"mmbcheck/internal/opcode"
	"mmbcheck/internal/testkit"
	"mmbcheck/internal/visitor"
)

func TestBuildPropositional(t *testing.T) {
	b, err := visitor.Build(testkit.Propositional())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	table, s := b.IntoTableOwned()
	if err := testkit.CheckTableInvariants(&table); err != nil {
		t.Fatalf("table invariants: %v", err)
	}
	if err := testkit.CheckPartition(s.Statements(), s.Indices()); err != nil {
		t.Fatalf("partition: %v", err)
	}
	if len(table.Sorts) != 2 || len(table.Terms) != 2 || len(table.Theorems) != 2 {
		t.Fatalf("want 2 sorts, terms, theorems; got %d %d %d", len(table.Sorts), len(table.Terms), len(table.Theorems))
	}
	if s.Len() != 7 {
		t.Fatalf("want 7 statements, got %d", s.Len())
	}
	if i, ok := s.NthTheoremIndex(1); !ok || i != 5 {
		t.Fatalf("theorem 1 at %d (ok=%v)", i, ok)
	}
	if i, ok := s.NthAxiomIndex(0); !ok || i != 4 {
		t.Fatalf("axiom 0 at %d (ok=%v)", i, ok)
	}
	if got := len(s.Proof(s.Statements()[5])); got != 12 {
		t.Fatalf("theorem proof: want 12 commands, got %d", got)
	}
}

func TestBuilderCopiesProofWindow(t *testing.T) {
	b := visitor.NewWithCapacity(4)
	r := kernel.Range{Start: 0, End: 0}
	b.BeginStatement(opcode.StmtThm, &r)
	r.End = 9
	_, s := b.IntoTableOwned()
	if got := s.Statements()[0].Proof; got == nil || got.End != 0 {
		t.Fatalf("statement window aliased the caller's range: %v", got)
	}
}

func TestReserveBinderSlice(t *testing.T) {
	b := visitor.NewWithCapacity(0)
	first, base, err := b.ReserveBinderSlice(2)
	if err != nil || base != 0 || len(first) != 2 {
		t.Fatalf("first reserve: base=%d len=%d err=%v", base, len(first), err)
	}
	first[1] = kernel.NewBinder(3, true, 0)
	second, base, err := b.ReserveBinderSlice(3)
	if err != nil || base != 2 || len(second) != 3 {
		t.Fatalf("second reserve: base=%d len=%d err=%v", base, len(second), err)
	}
	if _, _, err := b.ReserveBinderSlice(-1); err == nil {
		t.Fatalf("negative count accepted")
	}
	table, _ := b.IntoTableAndStream()
	if len(table.Binders) != 5 || table.Binders[1].Sort() != 3 {
		t.Fatalf("binders not retained: %v", table.Binders)
	}
}

func TestFinalizeIsOneShot(t *testing.T) {
	b := visitor.New()
	b.IntoTableAndStream()
	defer func() {
		if recover() == nil {
			t.Fatalf("second finalization should panic")
		}
	}()
	b.IntoTableOwned()
}

func TestBuildRejectsGarbage(t *testing.T) {
	if _, err := visitor.Build([]byte("not a proof file at all, clearly too short?")); err == nil {
		t.Fatalf("garbage accepted")
	}
}
