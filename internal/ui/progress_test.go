package ui

import (
	"errors"
	"strings"
	"testing"

	"mmbcheck/internal/driver"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.mmb", 20, "short.mmb"},
		{"a/very/long/path.mmb", 10, "a/very/..."},
		{"abcdef", 3, "abc"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d): want %q, got %q", tt.in, tt.width, tt.want, got)
		}
	}
}

func TestProgressModelTracksFiles(t *testing.T) {
	events := make(chan driver.Event)
	m := NewProgressModel("verifying", []string{"a.mmb", "b.mmb"}, events).(*progressModel)

	m.applyEvent(driver.Event{File: "a.mmb", Stage: driver.StageCheck, Status: driver.StatusWorking})
	m.applyEvent(driver.Event{File: "b.mmb", Stage: driver.StageDecode, Status: driver.StatusError, Err: errors.New("bad header")})
	m.applyEvent(driver.Event{File: "unknown.mmb", Status: driver.StatusDone})

	if got := itemLabel(m.items[0]); got != "check" {
		t.Fatalf("a.mmb label: got %q", got)
	}
	if itemProgress(m.items[0]) != 0.6 || itemProgress(m.items[1]) != 1 {
		t.Fatalf("unexpected progress %v %v", itemProgress(m.items[0]), itemProgress(m.items[1]))
	}
	m.done = true
	view := m.View()
	if !strings.Contains(view, "1 failed") || !strings.Contains(view, "bad header") {
		t.Fatalf("view:\n%s", view)
	}
}
