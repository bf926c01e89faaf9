// Package debugger is an interactive front end for a Verifier: single
// commands, whole statements, statement breakpoints and inspection of the
// proof stack, heap and hypotheses.
package debugger

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"mmbcheck/internal/kernel"
	"mmbcheck/internal/verifier"
)

// Debugger reads commands from in and reports to out.
type Debugger struct {
	v      *verifier.Verifier
	breaks map[int]bool

	in          *bufio.Scanner
	out         io.Writer
	interactive bool

	failed error
	quit   bool
}

// Result summarizes a finished session.
type Result struct {
	Done bool // the statement stream was exhausted
	Quit bool
}

// New creates a debugger over v.
func New(v *verifier.Verifier, in io.Reader, out io.Writer, interactive bool) *Debugger {
	if in == nil {
		in = strings.NewReader("")
	}
	if out == nil {
		out = io.Discard
	}
	return &Debugger{
		v:           v,
		breaks:      make(map[int]bool),
		in:          bufio.NewScanner(in),
		out:         out,
		interactive: interactive,
	}
}

// Run processes commands until quit or end of input. In script mode the
// remaining statements are checked once input ends. The returned error is
// the last check failure that was not cleared by a seek.
func (d *Debugger) Run() (Result, error) {
	for !d.quit {
		if d.interactive {
			fmt.Fprint(d.out, "(mmb) ") //nolint:errcheck
		}
		if !d.in.Scan() {
			break
		}
		line := strings.TrimSpace(d.in.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		d.execCommand(line)
	}
	if err := d.in.Err(); err != nil {
		fmt.Fprintf(d.out, "error: reading commands: %v\n", err) //nolint:errcheck
		return Result{}, fmt.Errorf("reading commands: %w", err)
	}
	if d.quit {
		return Result{Quit: true}, d.failed
	}
	if !d.interactive && d.failed == nil {
		if err := d.v.RunStatement(nil); err != nil {
			d.failed = err
		}
	}
	return Result{Done: d.failed == nil && d.exhausted()}, d.failed
}

func (d *Debugger) exhausted() bool {
	s := d.v.Stream()
	return d.v.Done() || (d.v.IsStateNormal() && s.Pos() >= s.Len())
}

func (d *Debugger) execCommand(line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help", "h":
		d.help()
	case "step", "s":
		n := 1
		if len(args) == 1 {
			var err error
			if n, err = strconv.Atoi(args[0]); err != nil || n <= 0 {
				d.errorf("step expects a positive count")
				return
			}
		}
		d.cmdStep(n)
	case "next", "n":
		d.cmdNext()
	case "continue", "c":
		d.cmdContinue()
	case "seek", "term", "thm":
		k, ok := d.intArg(cmd, args)
		if !ok {
			return
		}
		d.cmdSeek(cmd, k)
	case "break", "b":
		if i, ok := d.intArg(cmd, args); ok {
			d.breaks[i] = true
			fmt.Fprintf(d.out, "breakpoint at statement %d\n", i) //nolint:errcheck
		}
	case "delete":
		if i, ok := d.intArg(cmd, args); ok {
			if !d.breaks[i] {
				d.errorf("no breakpoint at statement %d", i)
				return
			}
			delete(d.breaks, i)
		}
	case "list":
		d.cmdList()
	case "state":
		d.cmdState()
	case "stack":
		d.printEntries("stack", d.v.Context.ProofStack())
	case "heap":
		d.printEntries("heap", d.v.Context.ProofHeap())
	case "hyps":
		store := d.v.Context.Store()
		hyps := d.v.Context.HypStack()
		fmt.Fprintf(d.out, "hyps: %d\n", len(hyps)) //nolint:errcheck
		for i, h := range hyps {
			fmt.Fprintf(d.out, "  [%d] %s\n", i, store.Format(h)) //nolint:errcheck
		}
	case "app":
		if k, ok := d.intArg(cmd, args); ok {
			d.cmdApp(k)
		}
	case "quit", "q":
		d.quit = true
	default:
		d.errorf("unknown command %q (try help)", cmd)
	}
}

func (d *Debugger) intArg(cmd string, args []string) (int, bool) {
	if len(args) != 1 {
		d.errorf("%s expects one index", cmd)
		return 0, false
	}
	k, err := strconv.Atoi(args[0])
	if err != nil || k < 0 {
		d.errorf("%s: invalid index %q", cmd, args[0])
		return 0, false
	}
	return k, true
}

func (d *Debugger) errorf(format string, args ...any) {
	fmt.Fprintf(d.out, "error: "+format+"\n", args...) //nolint:errcheck
}

// blocked reports a previous failure; the verifier must be re-positioned
// with a seek before it can continue.
func (d *Debugger) blocked() bool {
	if d.failed == nil {
		return false
	}
	d.errorf("stopped after failure: %v (seek to continue)", d.failed)
	return true
}

func (d *Debugger) fail(err error) {
	d.failed = err
	fmt.Fprintf(d.out, "failed: %v\n", err) //nolint:errcheck
}

func (d *Debugger) printAction(act kernel.Action, _ *verifier.Verifier) {
	fmt.Fprintf(d.out, "step: %s\n", act) //nolint:errcheck
}

func (d *Debugger) cmdStep(n int) {
	if d.blocked() {
		return
	}
	for i := 0; i < n; i++ {
		ok, err := d.v.Step(d.printAction)
		if err != nil {
			d.fail(err)
			return
		}
		if !ok {
			fmt.Fprintf(d.out, "done: %s\n", d.v.State) //nolint:errcheck
			return
		}
	}
}

func (d *Debugger) cmdNext() {
	if d.blocked() {
		return
	}
	pos := d.current()
	ok, err := d.v.StepStatement(nil)
	if err != nil {
		d.fail(err)
		return
	}
	if !ok {
		fmt.Fprintf(d.out, "done: %s\n", d.v.State) //nolint:errcheck
		return
	}
	fmt.Fprintf(d.out, "statement %d %s: %s\n", pos, d.kind(pos), d.v.State) //nolint:errcheck
}

func (d *Debugger) cmdContinue() {
	if d.blocked() {
		return
	}
	// finish the statement in progress first
	for !d.v.IsStateNormal() {
		if _, err := d.v.Step(nil); err != nil {
			d.fail(err)
			return
		}
	}
	first := true
	for {
		pos := d.v.Stream().Pos()
		if d.breaks[pos] && !first {
			fmt.Fprintf(d.out, "stopped: breakpoint at statement %d %s\n", pos, d.kind(pos)) //nolint:errcheck
			return
		}
		first = false
		ok, err := d.v.StepStatement(nil)
		if err != nil {
			d.fail(err)
			return
		}
		if !ok {
			fmt.Fprintf(d.out, "done: %s\n", d.v.State) //nolint:errcheck
			return
		}
	}
}

func (d *Debugger) cmdSeek(cmd string, k int) {
	switch cmd {
	case "term":
		if !d.v.SeekTerm(k) {
			d.errorf("no term %d", k)
			return
		}
	case "thm":
		if !d.v.SeekTheorem(k) {
			d.errorf("no theorem %d", k)
			return
		}
	default:
		if k > d.v.Stream().Len() {
			d.errorf("statement %d out of range (%d statements)", k, d.v.Stream().Len())
			return
		}
		d.v.Seek(k)
	}
	d.failed = nil
	fmt.Fprintf(d.out, "at statement %d: %s\n", d.v.Stream().Pos(), d.v.State) //nolint:errcheck
}

func (d *Debugger) cmdList() {
	keys := make([]int, 0, len(d.breaks))
	for k := range d.breaks {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	fmt.Fprintln(d.out, "breakpoints:") //nolint:errcheck
	for _, k := range keys {
		fmt.Fprintf(d.out, "  statement %d %s\n", k, d.kind(k)) //nolint:errcheck
	}
}

func (d *Debugger) cmdState() {
	pos := d.current()
	where := "between statements"
	if !d.v.IsStateNormal() {
		where = "inside statement"
	}
	fmt.Fprintf(d.out, "statement %d/%d %s (%s)\n", pos, d.v.Stream().Len(), d.kind(pos), where) //nolint:errcheck
	fmt.Fprintf(d.out, "%s\n", d.v.State)                                                        //nolint:errcheck
	if d.failed != nil {
		fmt.Fprintf(d.out, "failed: %v\n", d.failed) //nolint:errcheck
	}
}

func (d *Debugger) cmdApp(k int) {
	id, err := safecast.Conv[uint32](k)
	if err != nil {
		d.errorf("no theorem %d", k)
		return
	}
	ctx := kernel.NewContext()
	app, err := d.v.CreateTheoremApplication(id, ctx)
	if err != nil {
		d.errorf("%v", err)
		return
	}
	store := ctx.Store()
	args := make([]string, len(app.Args))
	for i, a := range app.Args {
		args[i] = store.FormatEntry(a)
	}
	fmt.Fprintf(d.out, "theorem %d (%s)\n", k, strings.Join(args, " ")) //nolint:errcheck
	for _, h := range app.Hyps {
		fmt.Fprintf(d.out, "  hyp  %s\n", store.Format(h)) //nolint:errcheck
	}
	fmt.Fprintf(d.out, "  |-   %s\n", store.FormatEntry(app.Conclusion)) //nolint:errcheck
}

func (d *Debugger) printEntries(name string, entries []kernel.Entry) {
	store := d.v.Context.Store()
	fmt.Fprintf(d.out, "%s: %d\n", name, len(entries)) //nolint:errcheck
	for i, e := range entries {
		fmt.Fprintf(d.out, "  [%d] %s\n", i, store.FormatEntry(e)) //nolint:errcheck
	}
}

// current is the statement being checked, or the next one between
// statements.
func (d *Debugger) current() int {
	pos := d.v.Stream().Pos()
	if !d.v.IsStateNormal() {
		pos--
	}
	return pos
}

func (d *Debugger) kind(i int) string {
	stmts := d.v.Stream().Statements()
	if i < 0 || i >= len(stmts) {
		return "<end>"
	}
	return stmts[i].Kind.String()
}

func (d *Debugger) help() {
	fmt.Fprintln(d.out, "commands:")             //nolint:errcheck
	fmt.Fprintln(d.out, "  step|s [n]")          //nolint:errcheck
	fmt.Fprintln(d.out, "  next|n")              //nolint:errcheck
	fmt.Fprintln(d.out, "  continue|c")          //nolint:errcheck
	fmt.Fprintln(d.out, "  seek <statement>")    //nolint:errcheck
	fmt.Fprintln(d.out, "  term <k>")            //nolint:errcheck
	fmt.Fprintln(d.out, "  thm <k>")             //nolint:errcheck
	fmt.Fprintln(d.out, "  break|b <statement>") //nolint:errcheck
	fmt.Fprintln(d.out, "  delete <statement>")  //nolint:errcheck
	fmt.Fprintln(d.out, "  list")                //nolint:errcheck
	fmt.Fprintln(d.out, "  state")               //nolint:errcheck
	fmt.Fprintln(d.out, "  stack")               //nolint:errcheck
	fmt.Fprintln(d.out, "  heap")                //nolint:errcheck
	fmt.Fprintln(d.out, "  hyps")                //nolint:errcheck
	fmt.Fprintln(d.out, "  app <thm>")           //nolint:errcheck
	fmt.Fprintln(d.out, "  quit|q")              //nolint:errcheck
}
