// Package trace records what the verifier is doing while it runs.
//
// Spans bracket the coarse phases of a run (decoding a file, the unify
// self-check, replaying the statement stream); point events mark single
// statements and, at the most verbose level, single proof and unify
// commands. A stuck or slow proof shows up as an open span with
// heartbeats still arriving.
//
// # Usage
//
//	mmbcheck verify --trace=- --trace-level=detail set.mmb
//
// # Tracers
//
//   - Nop: disabled tracing, zero cost
//   - StreamTracer: writes every event as it happens
//   - RingTracer: keeps the last N events for a dump on failure
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// LevelPhase emits ScopeDriver and ScopePass events, LevelDetail adds
// ScopeStatement, LevelDebug adds ScopeInstr. LevelError emits nothing
// by itself; the ring is dumped when a check fails.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePass, "unify", parentID)
//	defer span.End("")
package trace
