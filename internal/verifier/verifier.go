// Package verifier drives the checking engine over a decoded proof file.
// A Verifier owns the declaration table and a seekable statement stream;
// callers advance it one command or one statement at a time, or jump to a
// declaration by index.
package verifier

import (
	"errors"
	"fmt"

	"mmbcheck/internal/kernel"
	"mmbcheck/internal/stream"
	"mmbcheck/internal/trace"
	"mmbcheck/internal/visitor"
)

// ErrBuild reports that the input could not be decoded into a table.
var ErrBuild = errors.New("could not build verifier")

// Observer is called after every retired step. It must not mutate v.
type Observer func(act kernel.Action, v *Verifier)

// Options configures a Verifier.
type Options struct {
	Tracer     trace.Tracer
	AllowSorry bool
	Parent     uint64 // span the verifier's passes nest under
}

// Verifier checks the statements of one file.
type Verifier struct {
	Table   kernel.Table
	Context *kernel.Context
	State   kernel.State

	stepper *kernel.Stepper[*stream.Owned, *stream.ProofOwned]
	tracer  trace.Tracer
	parent  uint64
	span    uint64 // parent for statement events
}

// New decodes data and returns a verifier positioned before the first
// statement.
func New(data []byte) (*Verifier, error) {
	return NewWithOptions(data, Options{})
}

// NewWithOptions is New with explicit options.
func NewWithOptions(data []byte, opts Options) (*Verifier, error) {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	span := trace.Begin(tracer, trace.ScopePass, "decode", opts.Parent)
	b, err := visitor.Build(data)
	if err != nil {
		span.End(err.Error())
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}
	table, owned := b.IntoTableOwned()
	span.WithExtra("sorts", fmt.Sprint(len(table.Sorts))).
		WithExtra("terms", fmt.Sprint(len(table.Terms))).
		WithExtra("theorems", fmt.Sprint(len(table.Theorems))).
		WithExtra("statements", fmt.Sprint(owned.Len())).
		End("")

	v := &Verifier{
		Table:   table,
		Context: kernel.NewContext(),
		stepper: kernel.NewStepper[*stream.Owned, *stream.ProofOwned](owned),
		tracer:  tracer,
		parent:  opts.Parent,
	}
	v.stepper.SetAllowSorry(opts.AllowSorry)
	return v, nil
}

// Stream returns the statement stream. Callers must not advance it.
func (v *Verifier) Stream() *stream.Owned { return v.stepper.Stream() }

// IsStateNormal reports whether the verifier sits between statements or
// has reached the end of the stream.
func (v *Verifier) IsStateNormal() bool { return v.stepper.IsStateNormal() || v.stepper.Done() }

// Done reports whether the end of the statement stream was reached.
func (v *Verifier) Done() bool { return v.stepper.Done() }

// Step retires one statement header, proof command or unify command. It
// reports false once the stream is exhausted. Errors come from the
// checking engine unchanged.
func (v *Verifier) Step(obs Observer) (bool, error) {
	act, ok, err := v.stepper.Step(v.Context, &v.State, &v.Table)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if act.Kind == kernel.ActionProof || act.Kind == kernel.ActionUnify {
		trace.Point(v.tracer, trace.ScopeInstr, act.Kind.String(), act.String(), v.span)
	}
	if obs != nil {
		obs(act, v)
	}
	return true, nil
}

// StepStatement steps until the current statement is finished. Every
// intermediate action still reaches obs.
func (v *Verifier) StepStatement(obs Observer) (bool, error) {
	pos := v.Stream().Pos()
	ok, err := v.Step(obs)
	if err != nil || !ok {
		return false, err
	}
	for !v.stepper.IsStateNormal() {
		ok, err = v.Step(obs)
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
	}
	trace.Point(v.tracer, trace.ScopeStatement, "statement", fmt.Sprintf("#%d %s", pos, v.State), v.span)
	return true, nil
}

// Run steps until the stream is exhausted or a check fails.
func (v *Verifier) Run(obs Observer) error {
	span := trace.Begin(v.tracer, trace.ScopePass, "check", v.parent)
	v.span = span.ID()
	defer func() { v.span = 0 }()
	for {
		ok, err := v.Step(obs)
		if err != nil {
			span.End(err.Error())
			return err
		}
		if !ok {
			span.End(v.State.String())
			return nil
		}
	}
}

// RunStatement is Run at statement granularity.
func (v *Verifier) RunStatement(obs Observer) error {
	span := trace.Begin(v.tracer, trace.ScopePass, "check", v.parent)
	v.span = span.ID()
	defer func() { v.span = 0 }()
	for {
		ok, err := v.StepStatement(obs)
		if err != nil {
			span.End(err.Error())
			return err
		}
		if !ok {
			span.End(v.State.String())
			return nil
		}
	}
}

// Seek drops any statement in progress and positions the verifier before
// statement i, with counters replayed from the statements before it.
func (v *Verifier) Seek(i int) {
	v.stepper.Abort(v.Context)
	v.State = v.Stream().SeekTo(i)
}

// SeekTerm seeks to the statement declaring term k.
func (v *Verifier) SeekTerm(k int) bool {
	pos, ok := v.Stream().NthTermIndex(k)
	if !ok {
		return false
	}
	v.Seek(pos)
	return true
}

// SeekTheorem seeks to the statement declaring theorem k. Axioms count
// as theorems.
func (v *Verifier) SeekTheorem(k int) bool {
	pos, ok := v.Stream().NthTheoremIndex(k)
	if !ok {
		return false
	}
	v.Seek(pos)
	return true
}
