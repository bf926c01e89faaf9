package kernel

import (
	"fmt"

	"mmbcheck/internal/opcode"
)

// ProofStream yields the proof commands of one statement.
type ProofStream interface {
	Next() (opcode.ProofCommand, bool)
	Remaining() int
}

// StatementStream yields statement opcodes and lends out the proof stream
// of the statement most recently returned by Next.
type StatementStream[P ProofStream] interface {
	Next() (opcode.StatementOpcode, bool)
	TakeProofStream() P
	PutProofStream(P)
}

// ActionKind classifies what a single step did.
type ActionKind uint8

const (
	ActionSort ActionKind = iota
	ActionTermDef
	ActionAxiom
	ActionTheorem
	ActionProof
	ActionUnify
)

func (k ActionKind) String() string {
	switch k {
	case ActionSort:
		return "sort"
	case ActionTermDef:
		return "term"
	case ActionAxiom:
		return "axiom"
	case ActionTheorem:
		return "theorem"
	case ActionProof:
		return "proof"
	case ActionUnify:
		return "unify"
	default:
		return fmt.Sprintf("action(%d)", uint8(k))
	}
}

// Action describes one retired step. Index is the declaration id for
// statement actions; Proof or Unify carries the executed command.
type Action struct {
	Kind  ActionKind
	Index uint32
	Proof opcode.ProofCommand
	Unify opcode.UnifyCommand
}

func (a Action) String() string {
	switch a.Kind {
	case ActionProof:
		return "proof " + a.Proof.String()
	case ActionUnify:
		return "unify " + a.Unify.String()
	default:
		return fmt.Sprintf("%s %d", a.Kind, a.Index)
	}
}

type phase uint8

const (
	phaseNormal phase = iota
	phaseProof
	phaseUnify
	phaseDone
)

// Stepper checks a statement stream one command at a time.
type Stepper[S StatementStream[P], P ProofStream] struct {
	stream S

	proof    P
	hasProof bool

	phase phase
	op    opcode.StatementOpcode
	mode  proofMode
	id    uint32
	term  *Term

	unify []opcode.UnifyCommand
	upos  int

	allowSorry bool
}

// NewStepper wraps stream.
func NewStepper[S StatementStream[P], P ProofStream](stream S) *Stepper[S, P] {
	return &Stepper[S, P]{stream: stream}
}

// SetAllowSorry enables the Sorry proof command.
func (s *Stepper[S, P]) SetAllowSorry(allow bool) { s.allowSorry = allow }

// Stream returns the underlying statement stream.
func (s *Stepper[S, P]) Stream() S { return s.stream }

// IsStateNormal reports whether the stepper sits between statements.
func (s *Stepper[S, P]) IsStateNormal() bool { return s.phase == phaseNormal }

// Done reports whether the end of the statement stream was reached.
func (s *Stepper[S, P]) Done() bool { return s.phase == phaseDone }

// Abort drops the statement in progress and returns the proof stream.
func (s *Stepper[S, P]) Abort(ctx *Context) {
	s.releaseProof()
	s.phase = phaseNormal
	s.term = nil
	s.unify = nil
	s.upos = 0
	ctx.ClearExceptStore()
}

// Step retires one statement header, proof command or unify command. It
// reports false, with a nil error, once the stream is exhausted.
func (s *Stepper[S, P]) Step(ctx *Context, state *State, table *Table) (Action, bool, error) {
	switch s.phase {
	case phaseDone:
		return Action{}, false, nil

	case phaseNormal:
		op, ok := s.stream.Next()
		if !ok || op == opcode.OpEnd {
			s.phase = phaseDone
			return Action{}, false, nil
		}
		act, err := s.begin(op, ctx, state, table)
		return s.done(act, err, ctx, state, table)

	case phaseProof:
		cmd, ok := s.proof.Next()
		if !ok {
			// the stream ran dry without reporting it through Remaining
			if err := s.finishProof(ctx, table); err != nil {
				return Action{}, false, err
			}
			if err := s.settle(ctx, state, table); err != nil {
				return Action{}, false, err
			}
			return s.Step(ctx, state, table)
		}
		act := Action{Kind: ActionProof, Index: s.id, Proof: cmd}
		return s.done(act, ctx.execProof(cmd, table, state, s.mode, s.allowSorry), ctx, state, table)

	case phaseUnify:
		cmd := s.unify[s.upos]
		s.upos++
		act := Action{Kind: ActionUnify, Index: s.id, Unify: cmd}
		return s.done(act, ctx.execUnify(cmd, table), ctx, state, table)
	}
	return Action{}, false, nil
}

func (s *Stepper[S, P]) done(act Action, err error, ctx *Context, state *State, table *Table) (Action, bool, error) {
	if err == nil {
		err = s.settle(ctx, state, table)
	}
	if err != nil {
		return act, false, err
	}
	return act, true, nil
}

func (s *Stepper[S, P]) begin(op opcode.StatementOpcode, ctx *Context, state *State, table *Table) (Action, error) {
	switch op {
	case opcode.OpSort:
		act := Action{Kind: ActionSort, Index: state.CurrentSort}
		if uint64(state.CurrentSort) >= uint64(len(table.Sorts)) {
			return act, failf(KindInvalidSort, "sort %d not in table", state.CurrentSort)
		}
		state.IncrementCurrentSort()
		return act, nil

	case opcode.OpTermDef:
		s.id = state.CurrentTerm
		act := Action{Kind: ActionTermDef, Index: s.id}
		term, ok := table.Term(s.id)
		if !ok {
			return act, failf(KindInvalidTerm, "term %d not in table", s.id)
		}
		binders, ok := table.BinderSlice(term.Binders)
		if !ok {
			return act, failf(KindInvalidBinderIndices, "term %d", s.id)
		}
		ctx.ClearExceptStore()
		if err := ctx.AllocateBinders(table, state.CurrentSort, binders); err != nil {
			return act, err
		}
		if err := checkReturn(term, table, state, ctx); err != nil {
			return act, err
		}
		if !term.IsDef() {
			sort, _ := table.Sort(term.SortID())
			if sort.IsPure() {
				return act, failf(KindPureSort, "term %d", s.id)
			}
			state.IncrementCurrentTerm()
			return act, nil
		}
		s.term = term
		s.mode = proofDef
		s.takeProof(op)
		return act, nil

	case opcode.OpAxiom, opcode.OpThm:
		s.id = state.CurrentTheorem
		act := Action{Kind: ActionTheorem, Index: s.id}
		s.mode = proofThm
		if op == opcode.OpAxiom {
			act.Kind = ActionAxiom
			s.mode = proofAxiom
		}
		thm, ok := table.Theorem(s.id)
		if !ok {
			return act, failf(KindInvalidTheorem, "theorem %d not in table", s.id)
		}
		binders, ok := table.BinderSlice(thm.Binders)
		if !ok {
			return act, failf(KindInvalidBinderIndices, "theorem %d", s.id)
		}
		unify, ok := table.UnifySlice(thm.Unify)
		if !ok {
			return act, failf(KindInvalidUnifyCommandIndex, "theorem %d", s.id)
		}
		ctx.ClearExceptStore()
		if err := ctx.AllocateBinders(table, state.CurrentSort, binders); err != nil {
			return act, err
		}
		s.term = nil
		s.unify = unify
		s.takeProof(op)
		return act, nil
	}
	return Action{}, failf(KindCommandNotAllowed, "statement %s", op)
}

// checkReturn validates the return binder of a term against its arguments.
func checkReturn(term *Term, table *Table, state *State, ctx *Context) error {
	ret := term.Ret
	if ret.Bound() || ret.Sort() != term.SortID() {
		return failf(KindSortMismatch, "return %s of sort %d", ret, term.SortID())
	}
	if _, ok := table.Sort(ret.Sort()); !ok || uint32(ret.Sort()) >= state.CurrentSort {
		return failf(KindInvalidSort, "return sort %d", ret.Sort())
	}
	if ret.Deps()&^(uint64(1)<<ctx.argBound-1) != 0 {
		return failf(KindDepsViolation, "return depends on undeclared variable")
	}
	return nil
}

func (s *Stepper[S, P]) takeProof(op opcode.StatementOpcode) {
	s.op = op
	s.proof = s.stream.TakeProofStream()
	s.hasProof = true
	s.phase = phaseProof
}

func (s *Stepper[S, P]) releaseProof() {
	if !s.hasProof {
		return
	}
	s.stream.PutProofStream(s.proof)
	var zero P
	s.proof = zero
	s.hasProof = false
}

// settle runs the end-of-proof and end-of-unify checks as soon as the
// corresponding stream is exhausted.
func (s *Stepper[S, P]) settle(ctx *Context, state *State, table *Table) error {
	if s.phase == phaseProof && s.proof.Remaining() == 0 {
		if err := s.finishProof(ctx, table); err != nil {
			return err
		}
	}
	if s.phase == phaseUnify && s.upos >= len(s.unify) {
		return s.finishUnify(ctx, state)
	}
	return nil
}

func (s *Stepper[S, P]) finishProof(ctx *Context, table *Table) error {
	s.releaseProof()
	if len(ctx.stack) != 1 {
		return failf(KindStackShape, "%d cells left on the stack", len(ctx.stack))
	}
	top := ctx.stack[0]
	var target ExprID
	mode := unifyThmDecl

	switch s.op {
	case opcode.OpTermDef:
		if top.Kind != EntryExpr {
			return failf(KindStackShape, "definition ends with a %s", top.Kind)
		}
		e := ctx.store.Get(top.L)
		if e.Sort != s.term.SortID() {
			return failf(KindSortMismatch, "definition body of sort %d, want %d", e.Sort, s.term.SortID())
		}
		// Dummies live above the argument bits and may appear freely.
		allowed := s.term.Ret.Deps() | ^(uint64(1)<<ctx.argBound - 1)
		if e.Deps&^allowed != 0 {
			return failf(KindDepsViolation, "definition body depends on %#x", e.Deps&^allowed)
		}
		unify, ok := table.UnifySlice(s.term.Unify)
		if !ok {
			return failf(KindInvalidUnifyCommandIndex, "term %d", s.id)
		}
		s.unify = unify
		target = top.L
		mode = unifyDef

	case opcode.OpAxiom:
		if top.Kind != EntryExpr {
			return failf(KindStackShape, "axiom ends with a %s", top.Kind)
		}
		if err := ctx.requireProvable(table, top.L); err != nil {
			return err
		}
		target = top.L

	default:
		if top.Kind != EntryProof {
			return failf(KindStackShape, "theorem ends with a %s", top.Kind)
		}
		target = top.L
	}

	ctx.stack = ctx.stack[:0]
	ctx.beginUnify(mode, ctx.args(), target)
	s.upos = 0
	s.phase = phaseUnify
	return nil
}

func (s *Stepper[S, P]) finishUnify(ctx *Context, state *State) error {
	s.phase = phaseNormal
	s.unify = nil
	s.upos = 0
	if err := ctx.endUnify(); err != nil {
		return err
	}
	if s.op == opcode.OpTermDef {
		state.IncrementCurrentTerm()
	} else {
		state.IncrementCurrentTheorem()
	}
	s.term = nil
	return nil
}
