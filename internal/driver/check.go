package driver

import (
	"context"
	"fmt"
	"os"
	"time"

	"mmbcheck/internal/kernel"
	"mmbcheck/internal/observ"
	"mmbcheck/internal/stream"
	"mmbcheck/internal/trace"
	"mmbcheck/internal/verifier"
	"mmbcheck/internal/visitor"
)

// Options controls how files are verified.
type Options struct {
	Jobs       int  // files in flight; 0 means GOMAXPROCS
	UnifyJobs  int  // workers for the signature pass
	Unify      bool // check signatures before replaying proofs
	AllowSorry bool
	Until      int // stop before this statement; negative checks everything
	Timings    bool

	Cache    *DiskCache
	Progress ProgressSink
	Tracer   trace.Tracer
}

// Summary describes what a successful check covered.
type Summary struct {
	State      kernel.State
	Statements int
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path   string
	Digest Digest
	Summary
	Cached bool
	Err    error
	Timing *observ.Report
}

// OK reports whether the file verified.
func (r *FileResult) OK() bool { return r.Err == nil }

func verifyFile(ctx context.Context, path string, opts Options) FileResult {
	res := FileResult{Path: path}
	started := time.Now()
	var timer *observ.Timer
	if opts.Timings {
		timer = observ.NewTimer()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	span := trace.Begin(tracer, trace.ScopeDriver, path, trace.CurrentSpan(ctx).SpanID)
	ctx = trace.WithSpanContext(ctx, span.Context())

	fail := func(stage Stage, err error) FileResult {
		res.Err = err
		res.Timing = report(timer)
		span.End(err.Error())
		emit(opts.Progress, Event{File: path, Stage: stage, Status: StatusError, Err: err, Elapsed: time.Since(started)})
		return res
	}

	emit(opts.Progress, Event{File: path, Stage: StageLoad, Status: StatusWorking})
	idx := timer.Begin("load")
	data, err := os.ReadFile(path)
	timer.End(idx, "")
	if err != nil {
		return fail(StageLoad, err)
	}
	res.Digest = digestOf(data, opts.Unify, opts.AllowSorry)

	useCache := opts.Cache != nil && opts.Until < 0
	if useCache {
		var v Verdict
		if ok, err := opts.Cache.Get(res.Digest, &v); err == nil && ok {
			res.Cached = true
			res.State = kernel.State{CurrentSort: v.Sorts, CurrentTerm: v.Terms, CurrentTheorem: v.Theorems}
			res.Statements = v.Statements
			res.Timing = report(timer)
			span.End("cached")
			emit(opts.Progress, Event{File: path, Status: StatusCached, Elapsed: time.Since(started)})
			return res
		}
	}

	var stage Stage
	if opts.Unify || opts.Until >= 0 {
		res.Summary, stage, err = verifySeekable(ctx, data, opts, timer, tracer, path)
	} else {
		res.Summary, stage, err = checkStream(ctx, data, opts, timer, path)
	}
	if err != nil {
		return fail(stage, err)
	}

	if useCache {
		v := &Verdict{
			Path:       path,
			Size:       int64(len(data)),
			Sorts:      res.State.CurrentSort,
			Terms:      res.State.CurrentTerm,
			Theorems:   res.State.CurrentTheorem,
			Statements: res.Statements,
			Unify:      opts.Unify,
			CheckedAt:  time.Now().Unix(),
		}
		// a cache write failure only costs a later re-check
		_ = opts.Cache.Put(res.Digest, v)
	}
	res.Timing = report(timer)
	span.End(res.State.String())
	emit(opts.Progress, Event{File: path, Status: StatusDone, Elapsed: time.Since(started)})
	return res
}

// verifySeekable runs the optional signature pass and the proof replay on
// a Verifier.
func verifySeekable(ctx context.Context, data []byte, opts Options, timer *observ.Timer, tracer trace.Tracer, path string) (Summary, Stage, error) {
	emit(opts.Progress, Event{File: path, Stage: StageDecode, Status: StatusWorking})
	idx := timer.Begin("decode")
	v, err := verifier.NewWithOptions(data, verifier.Options{
		Tracer:     tracer,
		AllowSorry: opts.AllowSorry,
		Parent:     trace.CurrentSpan(ctx).SpanID,
	})
	timer.End(idx, "")
	if err != nil {
		return Summary{}, StageDecode, err
	}

	if opts.Unify {
		emit(opts.Progress, Event{File: path, Stage: StageUnify, Status: StatusWorking})
		idx = timer.Begin("unify")
		err = v.VerifyUnifyParallel(ctx, opts.UnifyJobs)
		timer.End(idx, fmt.Sprintf("%d terms, %d theorems", len(v.Table.Terms), len(v.Table.Theorems)))
		if err != nil {
			return Summary{}, StageUnify, err
		}
	}

	emit(opts.Progress, Event{File: path, Stage: StageCheck, Status: StatusWorking})
	idx = timer.Begin("check")
	defer func() { timer.End(idx, v.State.String()) }()
	if opts.Until < 0 {
		err = v.RunStatement(nil)
	} else {
		err = runUntil(ctx, v, opts.Until)
	}
	if err != nil {
		return Summary{}, StageCheck, err
	}
	n := v.Stream().Len()
	if opts.Until >= 0 {
		n = min(n, v.Stream().Pos())
	}
	return Summary{State: v.State, Statements: n}, StageCheck, nil
}

func runUntil(ctx context.Context, v *verifier.Verifier, until int) error {
	for v.Stream().Pos() < until {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := v.StepStatement(nil)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	return nil
}

// Check verifies data in a single forward pass without keeping the
// statement list seekable.
func Check(ctx context.Context, data []byte, opts Options) (Summary, error) {
	sum, _, err := checkStream(ctx, data, opts, nil, "")
	return sum, err
}

func checkStream(ctx context.Context, data []byte, opts Options, timer *observ.Timer, path string) (Summary, Stage, error) {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	parent := trace.CurrentSpan(ctx).SpanID

	emit(opts.Progress, Event{File: path, Stage: StageDecode, Status: StatusWorking})
	idx := timer.Begin("decode")
	decode := trace.Begin(tracer, trace.ScopePass, "decode", parent)
	b, err := visitor.Build(data)
	timer.End(idx, "")
	if err != nil {
		decode.End(err.Error())
		return Summary{}, StageDecode, fmt.Errorf("%w: %w", verifier.ErrBuild, err)
	}
	table, it := b.IntoTableAndStream()
	n := it.Len()
	decode.End("")

	emit(opts.Progress, Event{File: path, Stage: StageCheck, Status: StatusWorking})
	idx = timer.Begin("check")
	span := trace.Begin(tracer, trace.ScopePass, "check", parent)
	st := kernel.NewStepper[*stream.Iter, *stream.ProofIter](it)
	st.SetAllowSorry(opts.AllowSorry)
	kctx := kernel.NewContext()
	var state kernel.State
	for steps := 0; ; steps++ {
		// cancellation is polled, not checked on every command
		if steps&0xFFF == 0 {
			if err := ctx.Err(); err != nil {
				timer.End(idx, "cancelled")
				span.End(err.Error())
				return Summary{State: state}, StageCheck, err
			}
		}
		_, ok, err := st.Step(kctx, &state, &table)
		if err != nil {
			timer.End(idx, state.String())
			span.End(err.Error())
			return Summary{State: state}, StageCheck, err
		}
		if !ok {
			break
		}
	}
	timer.End(idx, state.String())
	span.End(state.String())
	return Summary{State: state, Statements: n}, StageCheck, nil
}

func report(timer *observ.Timer) *observ.Report {
	if timer == nil {
		return nil
	}
	r := timer.Report()
	return &r
}
