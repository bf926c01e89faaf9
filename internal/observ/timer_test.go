package observ

import (
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	a := tm.Begin("decode")
	b := tm.Begin("check")
	tm.End(b, "sorts=1")
	tm.End(a, "")
	tm.End(7, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Name != "decode" || r.Phases[1].Note != "sorts=1" {
		t.Fatalf("unexpected report %+v", r)
	}
	if r.TotalMS < r.Phases[0].DurationMS {
		t.Fatalf("total %f below a phase %f", r.TotalMS, r.Phases[0].DurationMS)
	}
	if s := tm.Summary(); !strings.Contains(s, "check") || !strings.Contains(s, "// sorts=1") {
		t.Fatalf("summary:\n%s", s)
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	idx := tm.Begin("load")
	tm.End(idx, "")
	if idx != -1 || len(tm.Report().Phases) != 0 {
		t.Fatalf("nil timer recorded a phase")
	}
}
