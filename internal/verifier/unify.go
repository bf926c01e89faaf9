package verifier

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"mmbcheck/internal/compiler"
	"mmbcheck/internal/kernel"
	"mmbcheck/internal/opcode"
	"mmbcheck/internal/trace"
)

// VerifyUnify checks that every definition and theorem signature in the
// table can be rebuilt from its unify stream. It works in a scratch
// context and leaves the verifier's own state alone. The first failure
// aborts the pass.
func (v *Verifier) VerifyUnify() error {
	span := trace.Begin(v.tracer, trace.ScopePass, "unify", v.parent)
	ctx := kernel.NewContext()
	for k, n := 0, v.numDecls(); k < n; k++ {
		if err := v.checkDecl(ctx, k); err != nil {
			span.End(err.Error())
			return err
		}
	}
	span.End("")
	return nil
}

// VerifyUnifyParallel is VerifyUnify split over up to jobs workers, each
// with its own scratch context. The table is only read.
func (v *Verifier) VerifyUnifyParallel(ctx context.Context, jobs int) error {
	n := v.numDecls()
	if jobs <= 1 || n < 2 {
		return v.VerifyUnify()
	}
	span := trace.Begin(v.tracer, trace.ScopePass, "unify", v.parent).
		WithExtra("jobs", fmt.Sprint(jobs))

	chunk := (n + jobs - 1) / jobs
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for lo := 0; lo < n; lo += chunk {
		lo := lo
		hi := min(lo+chunk, n)
		g.Go(func() error {
			scratch := kernel.NewContext()
			for k := lo; k < hi; k++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := v.checkDecl(scratch, k); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.End(err.Error())
		return err
	}
	span.End("")
	return nil
}

// numDecls counts terms followed by theorems.
func (v *Verifier) numDecls() int { return len(v.Table.Terms) + len(v.Table.Theorems) }

func (v *Verifier) checkDecl(ctx *kernel.Context, k int) error {
	if k < len(v.Table.Terms) {
		if err := v.checkTerm(ctx, uint32(k)); err != nil {
			return fmt.Errorf("term %d: %w", k, err)
		}
		return nil
	}
	j := k - len(v.Table.Terms)
	if err := v.checkTheorem(ctx, uint32(j)); err != nil {
		return fmt.Errorf("theorem %d: %w", j, err)
	}
	return nil
}

// checkTerm replays the body of a definition. Plain term constructors
// carry no unify stream and pass trivially.
func (v *Verifier) checkTerm(ctx *kernel.Context, id uint32) error {
	term, ok := v.Table.Term(id)
	if !ok {
		return &kernel.Error{Kind: kernel.KindInvalidTerm, Detail: fmt.Sprintf("%d not in table", id)}
	}
	if !term.IsDef() {
		return nil
	}
	binders, proof, err := v.derive(term.Binders, term.Unify)
	if err != nil {
		return err
	}
	state := kernel.State{CurrentSort: uint32(len(v.Table.Sorts)), CurrentTerm: id}
	ctx.Clear()
	if err := ctx.AllocateBinders(&v.Table, state.CurrentSort, binders); err != nil {
		return err
	}
	if err := kernel.NewProofStepper(true, state, proof).Run(ctx, &v.Table); err != nil {
		return err
	}
	body, err := conclusion(ctx)
	if err != nil {
		return err
	}
	if got := ctx.Store().Get(body.L).Sort; got != term.SortID() {
		return &kernel.Error{Kind: kernel.KindSortMismatch, Detail: fmt.Sprintf("body of sort %d, want %d", got, term.SortID())}
	}
	return nil
}

func (v *Verifier) checkTheorem(ctx *kernel.Context, id uint32) error {
	thm, ok := v.Table.Theorem(id)
	if !ok {
		return &kernel.Error{Kind: kernel.KindInvalidTheorem, Detail: fmt.Sprintf("%d not in table", id)}
	}
	binders, proof, err := v.derive(thm.Binders, thm.Unify)
	if err != nil {
		return err
	}
	state := kernel.State{
		CurrentSort:    uint32(len(v.Table.Sorts)),
		CurrentTerm:    uint32(len(v.Table.Terms)),
		CurrentTheorem: id,
	}
	ctx.Clear()
	if err := ctx.AllocateBinders(&v.Table, state.CurrentSort, binders); err != nil {
		return err
	}
	if err := kernel.RunProof(ctx, &v.Table, state, proof); err != nil {
		return err
	}
	concl, err := conclusion(ctx)
	if err != nil {
		return err
	}
	if sort, ok := v.Table.Sort(ctx.Store().Get(concl.L).Sort); !ok || !sort.IsProvable() {
		return &kernel.Error{Kind: kernel.KindNotProvable, Detail: ctx.Store().Format(concl.L)}
	}
	return nil
}

// derive resolves a declaration's binders and compiles its unify stream.
func (v *Verifier) derive(binderRange, unifyRange kernel.Range) ([]kernel.Binder, []opcode.ProofCommand, error) {
	binders, ok := v.Table.BinderSlice(binderRange)
	if !ok {
		return nil, nil, &kernel.Error{Kind: kernel.KindInvalidBinderIndices, Detail: binderRange.String()}
	}
	unify, ok := v.Table.UnifySlice(unifyRange)
	if !ok {
		return nil, nil, &kernel.Error{Kind: kernel.KindInvalidUnifyCommandIndex, Detail: unifyRange.String()}
	}
	proof, err := compiler.UnifyToProof(uint32(len(binders)), unify, v.Table.TermArity)
	if err != nil {
		return nil, nil, &kernel.Error{Kind: kernel.KindMalformedUnify, Detail: err.Error()}
	}
	return binders, proof, nil
}

// conclusion returns the single expression a derived proof leaves behind.
func conclusion(ctx *kernel.Context) (kernel.Entry, error) {
	stack := ctx.ProofStack()
	if len(stack) != 1 || stack[0].Kind != kernel.EntryExpr {
		return kernel.Entry{}, &kernel.Error{Kind: kernel.KindStackShape, Detail: fmt.Sprintf("%d cells left on the stack", len(stack))}
	}
	return stack[0], nil
}

// CreateTheoremApplication instantiates theorem id with fresh variables in
// ctx, or in a new context when ctx is nil. The signature is rebuilt from
// the unify stream against the complete table.
func (v *Verifier) CreateTheoremApplication(id uint32, ctx *kernel.Context) (kernel.TheoremApplication, error) {
	if ctx == nil {
		ctx = kernel.NewContext()
	}
	thm, ok := v.Table.Theorem(id)
	if !ok {
		return kernel.TheoremApplication{}, &kernel.Error{Kind: kernel.KindInvalidTheorem, Detail: fmt.Sprintf("%d not in table", id)}
	}
	binders, proof, err := v.derive(thm.Binders, thm.Unify)
	if err != nil {
		return kernel.TheoremApplication{}, err
	}
	state := kernel.StateFromTable(&v.Table)
	ctx.ClearExceptStore()
	if err := ctx.AllocateBinders(&v.Table, state.CurrentSort, binders); err != nil {
		return kernel.TheoremApplication{}, err
	}
	if err := kernel.RunProof(ctx, &v.Table, state, proof); err != nil {
		return kernel.TheoremApplication{}, err
	}
	concl, err := conclusion(ctx)
	if err != nil {
		return kernel.TheoremApplication{}, err
	}
	return kernel.TheoremApplication{
		Args:       append([]kernel.Entry(nil), ctx.ProofHeap()[:ctx.NumArgs()]...),
		Hyps:       append([]kernel.ExprID(nil), ctx.HypStack()...),
		Conclusion: concl,
	}, nil
}
