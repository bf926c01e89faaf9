package trace

import "context"

type tracerKey struct{}

type spanKey struct{}

// FromContext returns the tracer installed by WithTracer, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer installs t; nil installs Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// SpanContext identifies the span that work started under ctx should
// nest beneath.
type SpanContext struct {
	SpanID uint64
	Scope  Scope
}

// CurrentSpan returns the span recorded by WithSpanContext. The zero
// value means a root.
func CurrentSpan(ctx context.Context) SpanContext {
	if ctx == nil {
		return SpanContext{}
	}
	sc, _ := ctx.Value(spanKey{}).(SpanContext)
	return sc
}

// WithSpanContext records sc as the parent for spans begun under the
// returned context. A span that was not emitted leaves ctx unchanged.
func WithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	if sc.SpanID == 0 {
		return ctx
	}
	return context.WithValue(ctx, spanKey{}, sc)
}
