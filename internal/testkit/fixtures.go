package testkit

import (
	"fmt"

	"mmbcheck/internal/kernel"
	"mmbcheck/internal/mmb"
	"mmbcheck/internal/opcode"
)

func must(data []byte, err error) []byte {
	if err != nil {
		panic(fmt.Errorf("fixture: %w", err))
	}
	return data
}

func p(op opcode.Proof, data uint32) opcode.ProofCommand {
	return opcode.ProofCommand{Op: op, Data: data}
}

func u(op opcode.Unify, data uint32) opcode.UnifyCommand {
	return opcode.UnifyCommand{Op: op, Data: data}
}

// Minimal is one sort, one nullary term of that sort and End:
//
//	sort s;
//	term c: s;
func Minimal() []byte {
	w := mmb.NewWriter()
	s := w.AddSort(0)
	w.AddTerm(s, nil, kernel.NewBinder(s, false, 0))
	w.Statement(opcode.StmtSort, nil)
	w.Statement(opcode.StmtTermDef, nil)
	return must(w.Bytes())
}

// PropositionalWriter declares a small implicational fragment:
//
//	provable sort wff;
//	strict sort obj;
//	term imp (a b: wff): wff;
//	def dup (a: wff): wff = imp a a;
//	axiom mp (a b: wff): a -> imp a b -> b;
//	theorem mp2 (a b: wff): a -> imp a b -> b = mp;
//
// Callers may append further declarations before calling Bytes.
func PropositionalWriter() *mmb.Writer {
	w := mmb.NewWriter()
	wff := w.AddSort(kernel.SortProvable)
	w.AddSort(kernel.SortStrict)
	a := kernel.NewBinder(wff, false, 0)

	imp := w.AddTerm(wff, []kernel.Binder{a, a}, a)
	w.AddDef(wff, []kernel.Binder{a}, a, []opcode.UnifyCommand{
		u(opcode.UnifyTerm, imp), u(opcode.UnifyRef, 0), u(opcode.UnifyRef, 0),
	})
	mpUnify := []opcode.UnifyCommand{
		u(opcode.UnifyRef, 1),
		u(opcode.UnifyHyp, 0),
		u(opcode.UnifyTerm, imp), u(opcode.UnifyRef, 0), u(opcode.UnifyRef, 1),
		u(opcode.UnifyHyp, 0),
		u(opcode.UnifyRef, 0),
	}
	mp := w.AddTheorem([]kernel.Binder{a, a}, mpUnify)
	w.AddTheorem([]kernel.Binder{a, a}, mpUnify)

	hyps := []opcode.ProofCommand{
		p(opcode.ProofRef, 0), p(opcode.ProofHyp, 0),
		p(opcode.ProofRef, 0), p(opcode.ProofRef, 1), p(opcode.ProofTerm, imp), p(opcode.ProofHyp, 0),
	}
	w.Statement(opcode.StmtSort, nil)
	w.Statement(opcode.StmtSort, nil)
	w.Statement(opcode.StmtTermDef, nil)
	w.Statement(opcode.StmtTermDef, []opcode.ProofCommand{
		p(opcode.ProofRef, 0), p(opcode.ProofRef, 0), p(opcode.ProofTerm, imp),
	})
	w.Statement(opcode.StmtAxiom, append(append([]opcode.ProofCommand{}, hyps...), p(opcode.ProofRef, 1)))
	w.Statement(opcode.StmtThm, append(append([]opcode.ProofCommand{}, hyps...),
		p(opcode.ProofRef, 2), p(opcode.ProofRef, 3),
		p(opcode.ProofRef, 0), p(opcode.ProofRef, 1),
		p(opcode.ProofRef, 1),
		p(opcode.ProofThm, mp),
	))
	return w
}

// Propositional is the encoded PropositionalWriter fragment.
func Propositional() []byte { return must(PropositionalWriter().Bytes()) }

// BadTheoremProof extends Propositional with a third theorem whose proof
// applies mp with its arguments swapped, so replaying it fails.
func BadTheoremProof() []byte {
	w := PropositionalWriter()
	w.AddTheorem([]kernel.Binder{kernel.NewBinder(0, false, 0), kernel.NewBinder(0, false, 0)}, []opcode.UnifyCommand{
		u(opcode.UnifyRef, 1),
	})
	w.Statement(opcode.StmtThm, []opcode.ProofCommand{
		p(opcode.ProofRef, 0), p(opcode.ProofHyp, 0),
		p(opcode.ProofRef, 0), p(opcode.ProofRef, 1), p(opcode.ProofTerm, 0), p(opcode.ProofHyp, 0),
		p(opcode.ProofRef, 2), p(opcode.ProofRef, 3),
		p(opcode.ProofRef, 1), p(opcode.ProofRef, 0),
		p(opcode.ProofRef, 1),
		p(opcode.ProofThm, 0),
	})
	return must(w.Bytes())
}

// MismatchedSignature declares a theorem over a strict-sort binder whose
// unify stream applies imp to it. The stream compiles, but the derived
// proof is rejected by the checker.
func MismatchedSignature() []byte {
	w := PropositionalWriter()
	x := kernel.NewBinder(1, false, 0)
	w.AddTheorem([]kernel.Binder{x}, []opcode.UnifyCommand{
		u(opcode.UnifyTerm, 0), u(opcode.UnifyRef, 0), u(opcode.UnifyRef, 0),
	})
	return must(w.Bytes())
}

// MismatchedArity declares a one-binder theorem whose unify stream was
// written for two binders. The stream compiles; the checker rejects the
// reference to the missing binder.
func MismatchedArity() []byte {
	w := PropositionalWriter()
	w.AddTheorem([]kernel.Binder{kernel.NewBinder(0, false, 0)}, []opcode.UnifyCommand{
		u(opcode.UnifyRef, 1),
	})
	return must(w.Bytes())
}

// MismatchedTermArity declares a one-binder theorem whose conclusion
// applies the binary imp to binders 0 and 1, as if the theorem took two.
func MismatchedTermArity() []byte {
	w := PropositionalWriter()
	w.AddTheorem([]kernel.Binder{kernel.NewBinder(0, false, 0)}, []opcode.UnifyCommand{
		u(opcode.UnifyTerm, 0), u(opcode.UnifyRef, 0), u(opcode.UnifyRef, 1),
	})
	return must(w.Bytes())
}

// MalformedUnify declares a theorem whose unify stream has two
// conclusions and no hypothesis marker between them.
func MalformedUnify() []byte {
	w := PropositionalWriter()
	w.AddTheorem([]kernel.Binder{kernel.NewBinder(0, false, 0)}, []opcode.UnifyCommand{
		u(opcode.UnifyRef, 0), u(opcode.UnifyRef, 0),
	})
	return must(w.Bytes())
}
