package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"

	"mmbcheck/internal/driver"
	"mmbcheck/internal/kernel"
	"mmbcheck/internal/testkit"
	"mmbcheck/internal/verifier"
)

func TestDescribe(t *testing.T) {
	info, err := describe("prop.mmb", testkit.Propositional())
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if strings.Join(info.Sorts, ",") != "provable,strict" {
		t.Fatalf("sorts = %v", info.Sorts)
	}
	if info.Terms != 2 || info.Defs != 1 || info.Theorems != 2 || info.Axioms != 1 {
		t.Fatalf("unexpected counts %+v", info)
	}
	if info.Decls != 6 || info.Unify != 17 {
		t.Fatalf("declarations = %d, unify = %d", info.Decls, info.Unify)
	}

	var buf bytes.Buffer
	writeInfo(&buf, info)
	if !strings.Contains(buf.String(), "terms           2 (1 definitions)\n") ||
		!strings.Contains(buf.String(), "declarations    6\n") {
		t.Fatalf("labels not aligned:\n%s", buf.String())
	}

	if _, err := describe("junk.mmb", []byte("not a proof file")); !errors.Is(err, verifier.ErrBuild) {
		t.Fatalf("want ErrBuild, got %v", err)
	}
}

func TestPrintResults(t *testing.T) {
	color.NoColor = true
	results := []driver.FileResult{
		{Path: "a.mmb", Summary: driver.Summary{State: kernel.State{CurrentSort: 1, CurrentTerm: 1}, Statements: 3}},
		{Path: "b.mmb", Cached: true, Summary: driver.Summary{Statements: 1}},
		{Path: "c.mmb", Err: errors.New("boom")},
	}

	var buf bytes.Buffer
	if failed := printResults(&buf, results, false); failed != 1 {
		t.Fatalf("failed = %d", failed)
	}
	want := "ok   a.mmb: 3 statements, sorts=1 terms=1 theorems=0\n" +
		"ok   b.mmb: 1 statements, sorts=0 terms=0 theorems=0 (cached)\n" +
		"FAIL c.mmb: boom\n"
	if buf.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", buf.String(), want)
	}

	buf.Reset()
	printResults(&buf, results, true)
	if buf.String() != "FAIL c.mmb: boom\n" {
		t.Fatalf("quiet output %q", buf.String())
	}
}
