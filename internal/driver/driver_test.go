package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"mmbcheck/internal/kernel"
	"mmbcheck/internal/testkit"
	"mmbcheck/internal/trace"
	"mmbcheck/internal/verifier"
)

func writeFixtures(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestCheck(t *testing.T) {
	sum, err := Check(context.Background(), testkit.Propositional(), Options{Until: -1})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if sum.State != (kernel.State{CurrentSort: 2, CurrentTerm: 2, CurrentTheorem: 2}) || sum.Statements != 7 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	_, err = Check(context.Background(), testkit.BadTheoremProof(), Options{Until: -1})
	if !errors.Is(err, kernel.KindUnifyRefMismatch) {
		t.Fatalf("want unify mismatch, got %v", err)
	}
	_, err = Check(context.Background(), []byte("nope"), Options{Until: -1})
	if !errors.Is(err, verifier.ErrBuild) {
		t.Fatalf("want ErrBuild, got %v", err)
	}
}

func TestExpandPaths(t *testing.T) {
	dir := writeFixtures(t, map[string][]byte{
		"b.mmb":       testkit.Minimal(),
		"sub/a.mmb":   testkit.Minimal(),
		"sub/readme":  []byte("x"),
		"notes.mmb.x": []byte("x"),
	})
	got, err := ExpandPaths([]string{dir})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{filepath.Join(dir, "b.mmb"), filepath.Join(dir, "sub", "a.mmb")}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("want %v, got %v", want, got)
	}
	if _, err := ExpandPaths([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Fatalf("missing path accepted")
	}
}

func TestVerifyFiles(t *testing.T) {
	dir := writeFixtures(t, map[string][]byte{
		"good.mmb": testkit.Propositional(),
		"bad.mmb":  testkit.BadTheoremProof(),
		"sig.mmb":  testkit.MismatchedSignature(),
	})
	paths := []string{
		filepath.Join(dir, "good.mmb"),
		filepath.Join(dir, "bad.mmb"),
		filepath.Join(dir, "sig.mmb"),
		filepath.Join(dir, "missing.mmb"),
	}
	cache, err := OpenDiskCacheAt(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("cache: %v", err)
	}

	var mu sync.Mutex
	statuses := map[string][]Status{}
	sink := SinkFunc(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		statuses[filepath.Base(ev.File)] = append(statuses[filepath.Base(ev.File)], ev.Status)
	})

	opts := Options{Jobs: 2, Unify: true, UnifyJobs: 2, Until: -1, Timings: true, Cache: cache, Progress: sink}
	results, err := VerifyFiles(context.Background(), paths, opts)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !results[0].OK() || results[0].Cached || results[0].Timing == nil {
		t.Fatalf("good: %+v", results[0])
	}
	if !errors.Is(results[1].Err, kernel.KindUnifyRefMismatch) {
		t.Fatalf("bad: %v", results[1].Err)
	}
	if !errors.Is(results[2].Err, kernel.KindSortMismatch) {
		t.Fatalf("signature: %v", results[2].Err)
	}
	if !errors.Is(results[3].Err, os.ErrNotExist) {
		t.Fatalf("missing: %v", results[3].Err)
	}
	if s := statuses["good.mmb"]; len(s) == 0 || s[0] != StatusQueued || s[len(s)-1] != StatusDone {
		t.Fatalf("good statuses %v", s)
	}
	if s := statuses["bad.mmb"]; s[len(s)-1] != StatusError {
		t.Fatalf("bad statuses %v", s)
	}
	if TimingJSON(&results[0]) == nil {
		t.Fatalf("missing timings")
	}

	again, err := VerifyFiles(context.Background(), paths[:2], opts)
	if err != nil {
		t.Fatalf("verify again: %v", err)
	}
	if !again[0].Cached || again[0].State != results[0].State {
		t.Fatalf("expected a cache hit with the same state, got %+v", again[0])
	}
	if again[1].Cached || again[1].OK() {
		t.Fatalf("failures must not be cached")
	}

	// the digest covers the options, so a plain run misses the cache
	plain, err := VerifyFiles(context.Background(), paths[:1], Options{Until: -1, Cache: cache})
	if err != nil || !plain[0].OK() || plain[0].Cached {
		t.Fatalf("plain run: %+v %v", plain[0], err)
	}
}

func TestVerifyUntil(t *testing.T) {
	dir := writeFixtures(t, map[string][]byte{"bad.mmb": testkit.BadTheoremProof()})
	results, err := VerifyFiles(context.Background(), []string{filepath.Join(dir, "bad.mmb")}, Options{Until: 6})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	r := results[0]
	if !r.OK() || r.Statements != 6 || r.State.CurrentTheorem != 2 {
		t.Fatalf("statements before the bad proof should pass: %+v", r)
	}
}

func TestVerifyFilesCancelled(t *testing.T) {
	dir := writeFixtures(t, map[string][]byte{"good.mmb": testkit.Propositional()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := VerifyFiles(ctx, []string{filepath.Join(dir, "good.mmb")}, Options{Until: -1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestDiskCacheRoundTrip(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := digestOf([]byte("data"), true)
	if key == digestOf([]byte("data"), false) {
		t.Fatalf("flags do not change the digest")
	}
	var v Verdict
	if ok, err := cache.Get(key, &v); ok || err != nil {
		t.Fatalf("empty cache: %v %v", ok, err)
	}
	if err := cache.Put(key, &Verdict{Path: "x.mmb", Theorems: 3}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ok, err := cache.Get(key, &v); !ok || err != nil || v.Theorems != 3 {
		t.Fatalf("get: %v %v %+v", ok, err, v)
	}
	if err := cache.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if ok, _ := cache.Get(key, &v); ok {
		t.Fatalf("entry survived DropAll")
	}
}

func TestPassesNestUnderFileSpan(t *testing.T) {
	dir := writeFixtures(t, map[string][]byte{"good.mmb": testkit.Propositional()})
	path := filepath.Join(dir, "good.mmb")

	tests := []struct {
		name   string
		opts   Options
		passes []string
	}{
		{"one pass", Options{Until: -1}, []string{"decode", "check"}},
		{"seekable", Options{Unify: true, Until: -1}, []string{"decode", "unify", "check"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ring := trace.NewRingTracer(64, trace.LevelPhase)
			tt.opts.Tracer = ring
			res, err := VerifyFiles(context.Background(), []string{path}, tt.opts)
			if err != nil || !res[0].OK() {
				t.Fatalf("verify: %v %v", err, res[0].Err)
			}

			var file uint64
			parents := map[string]uint64{}
			for _, ev := range ring.Snapshot() {
				if ev.Kind != trace.KindSpanBegin {
					continue
				}
				if ev.Scope == trace.ScopeDriver {
					file = ev.SpanID
					continue
				}
				parents[ev.Name] = ev.ParentID
			}
			if file == 0 {
				t.Fatalf("no file span")
			}
			if len(parents) != len(tt.passes) {
				t.Fatalf("want passes %v, got %v", tt.passes, parents)
			}
			for _, name := range tt.passes {
				if got, ok := parents[name]; !ok || got != file {
					t.Fatalf("%s: parent %d, want file span %d", name, got, file)
				}
			}
		})
	}
}
