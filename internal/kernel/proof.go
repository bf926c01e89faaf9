package kernel

import "mmbcheck/internal/opcode"

// proofMode restricts the commands a proof may use.
type proofMode uint8

const (
	proofDef   proofMode = iota // definition body: expressions only
	proofAxiom                  // axiom statement: expressions and hypotheses
	proofThm                    // theorem: everything
)

func (m proofMode) allows(op opcode.Proof) bool {
	switch op {
	case opcode.ProofTerm, opcode.ProofTermSave, opcode.ProofRef, opcode.ProofDummy, opcode.ProofSave:
		return true
	case opcode.ProofHyp:
		return m != proofDef
	default:
		return m == proofThm
	}
}

// execProof retires a single proof command.
func (c *Context) execProof(cmd opcode.ProofCommand, table *Table, state *State, mode proofMode, allowSorry bool) error {
	if !mode.allows(cmd.Op) {
		return failf(KindCommandNotAllowed, "%s", cmd.Op)
	}
	switch cmd.Op {
	case opcode.ProofTerm, opcode.ProofTermSave:
		id, err := c.applyTerm(table, state, cmd.Data)
		if err != nil {
			return err
		}
		c.push(Entry{Kind: EntryExpr, L: id})
		if cmd.Op == opcode.ProofTermSave {
			c.heap = append(c.heap, Entry{Kind: EntryExpr, L: id})
		}

	case opcode.ProofRef:
		e, err := c.heapAt(cmd.Data)
		if err != nil {
			return err
		}
		if e.Kind != EntryExpr && e.Kind != EntryProof {
			return failf(KindStackType, "ref %d is a %s", cmd.Data, e.Kind)
		}
		c.push(e)

	case opcode.ProofDummy:
		sortID := uint8(cmd.Data)
		sort, ok := table.Sort(sortID)
		if !ok || cmd.Data > 0x7F || cmd.Data >= state.CurrentSort {
			return failf(KindInvalidSort, "dummy sort %d", cmd.Data)
		}
		if sort.IsStrict() {
			return fail(KindStrictSort)
		}
		bit, err := c.allocBound()
		if err != nil {
			return err
		}
		e := Entry{Kind: EntryExpr, L: c.store.NewVar(sortID, true, bit)}
		c.push(e)
		c.heap = append(c.heap, e)

	case opcode.ProofThm, opcode.ProofThmSave:
		id, err := c.applyTheorem(table, state, cmd.Data)
		if err != nil {
			return err
		}
		c.push(Entry{Kind: EntryProof, L: id})
		if cmd.Op == opcode.ProofThmSave {
			c.heap = append(c.heap, Entry{Kind: EntryProof, L: id})
		}

	case opcode.ProofHyp:
		e, err := c.popKind(EntryExpr)
		if err != nil {
			return err
		}
		if err := c.requireProvable(table, e.L); err != nil {
			return err
		}
		c.hyps = append(c.hyps, e.L)
		c.heap = append(c.heap, Entry{Kind: EntryProof, L: e.L})

	case opcode.ProofConv:
		p, err := c.popKind(EntryProof)
		if err != nil {
			return err
		}
		e, err := c.popKind(EntryExpr)
		if err != nil {
			return err
		}
		c.push(Entry{Kind: EntryProof, L: e.L})
		c.push(Entry{Kind: EntryCoConv, L: e.L, R: p.L})

	case opcode.ProofRefl:
		cc, err := c.popKind(EntryCoConv)
		if err != nil {
			return err
		}
		if cc.L != cc.R {
			return failf(KindConvMismatch, "refl: %s", c.store.FormatEntry(cc))
		}

	case opcode.ProofSym:
		cc, err := c.popKind(EntryCoConv)
		if err != nil {
			return err
		}
		c.push(Entry{Kind: EntryCoConv, L: cc.R, R: cc.L})

	case opcode.ProofCong:
		cc, err := c.popKind(EntryCoConv)
		if err != nil {
			return err
		}
		l, r := c.store.Get(cc.L), c.store.Get(cc.R)
		if l.IsVar || r.IsVar || l.Term != r.Term {
			return failf(KindConvMismatch, "cong: %s", c.store.FormatEntry(cc))
		}
		la, ra := c.store.Args(cc.L), c.store.Args(cc.R)
		for i := len(la) - 1; i >= 0; i-- {
			c.push(Entry{Kind: EntryCoConv, L: la[i], R: ra[i]})
		}

	case opcode.ProofUnfold:
		e, err := c.popKind(EntryExpr)
		if err != nil {
			return err
		}
		cc, err := c.popKind(EntryCoConv)
		if err != nil {
			return err
		}
		head := c.store.Get(cc.L)
		if head.IsVar {
			return failf(KindNotDefinition, "unfold of a variable")
		}
		term, ok := table.Term(head.Term)
		if !ok {
			return failf(KindInvalidTerm, "%d", head.Term)
		}
		if !term.IsDef() {
			return failf(KindNotDefinition, "term %d", head.Term)
		}
		cmds, ok := table.UnifySlice(term.Unify)
		if !ok {
			return failf(KindInvalidUnifyCommandIndex, "term %d", head.Term)
		}
		if err := c.runUnify(table, unifyDef, c.store.Args(cc.L), e.L, cmds); err != nil {
			return err
		}
		c.push(Entry{Kind: EntryCoConv, L: e.L, R: cc.R})

	case opcode.ProofConvCut:
		cc, err := c.popKind(EntryCoConv)
		if err != nil {
			return err
		}
		c.push(Entry{Kind: EntryConv, L: cc.L, R: cc.R})
		c.push(cc)

	case opcode.ProofConvRef:
		cc, err := c.popKind(EntryCoConv)
		if err != nil {
			return err
		}
		h, err := c.heapAt(cmd.Data)
		if err != nil {
			return err
		}
		if h.Kind != EntryConv || h.L != cc.L || h.R != cc.R {
			return failf(KindConvMismatch, "conv-ref %d", cmd.Data)
		}

	case opcode.ProofConvSave:
		cv, err := c.popKind(EntryConv)
		if err != nil {
			return err
		}
		c.heap = append(c.heap, cv)

	case opcode.ProofSave:
		if len(c.stack) == 0 {
			return fail(KindProofStackUnderflow)
		}
		top := c.stack[len(c.stack)-1]
		if top.Kind == EntryCoConv {
			return failf(KindStackType, "cannot save a conversion obligation")
		}
		c.heap = append(c.heap, top)

	case opcode.ProofSorry:
		if !allowSorry {
			return fail(KindSorry)
		}
		e, err := c.popKind(EntryExpr)
		if err != nil {
			return err
		}
		c.push(Entry{Kind: EntryProof, L: e.L})

	default:
		return failf(KindCommandNotAllowed, "%s", cmd.Op)
	}
	return nil
}

func (c *Context) requireProvable(table *Table, id ExprID) error {
	sort, ok := table.Sort(c.store.Get(id).Sort)
	if !ok {
		return fail(KindInvalidSort)
	}
	if !sort.IsProvable() {
		return failf(KindNotProvable, "%s", c.store.Format(id))
	}
	return nil
}

// applyTerm pops the arguments of term id and pushes nothing; the caller
// decides where the application goes.
func (c *Context) applyTerm(table *Table, state *State, id uint32) (ExprID, error) {
	if id >= state.CurrentTerm {
		return 0, failf(KindInvalidTerm, "%d not yet declared", id)
	}
	term, ok := table.Term(id)
	if !ok {
		return 0, failf(KindInvalidTerm, "%d", id)
	}
	binders, ok := table.BinderSlice(term.Binders)
	if !ok {
		return 0, failf(KindInvalidBinderIndices, "term %d", id)
	}
	args, err := c.popExprs(len(binders))
	if err != nil {
		return 0, err
	}
	bound, err := c.checkArgs(binders, args)
	if err != nil {
		return 0, err
	}

	// Variables bound by the term are not free in the result unless the
	// return type says so.
	var deps uint64
	for i, b := range binders {
		if b.Bound() {
			continue
		}
		d := c.store.Get(args[i]).Deps
		for j, bd := range bound {
			if b.Deps()&(uint64(1)<<j) != 0 {
				d &^= bd
			}
		}
		deps |= d
	}
	for j, bd := range bound {
		if term.Ret.Deps()&(uint64(1)<<j) != 0 {
			deps |= bd
		}
	}
	return c.store.App(id, term.SortID(), deps, args), nil
}

// applyTheorem pops the target and arguments of theorem id, unifies them
// against its signature and returns the proved expression.
func (c *Context) applyTheorem(table *Table, state *State, id uint32) (ExprID, error) {
	if id >= state.CurrentTheorem {
		return 0, failf(KindInvalidTheorem, "%d not yet declared", id)
	}
	thm, ok := table.Theorem(id)
	if !ok {
		return 0, failf(KindInvalidTheorem, "%d", id)
	}
	target, err := c.popKind(EntryExpr)
	if err != nil {
		return 0, err
	}
	binders, ok := table.BinderSlice(thm.Binders)
	if !ok {
		return 0, failf(KindInvalidBinderIndices, "theorem %d", id)
	}
	args, err := c.popExprs(len(binders))
	if err != nil {
		return 0, err
	}
	if _, err := c.checkArgs(binders, args); err != nil {
		return 0, err
	}
	cmds, ok := table.UnifySlice(thm.Unify)
	if !ok {
		return 0, failf(KindInvalidUnifyCommandIndex, "theorem %d", id)
	}
	if err := c.runUnify(table, unifyThm, args, target.L, cmds); err != nil {
		return 0, err
	}
	return target.L, nil
}

// ProofStepper runs a standalone proof command sequence.
type ProofStepper struct {
	mode       proofMode
	state      State
	cmds       []opcode.ProofCommand
	pos        int
	allowSorry bool
}

// NewProofStepper prepares cmds for execution under state. Definition
// proofs may only build expressions.
func NewProofStepper(isDef bool, state State, cmds []opcode.ProofCommand) *ProofStepper {
	mode := proofThm
	if isDef {
		mode = proofDef
	}
	return &ProofStepper{mode: mode, state: state, cmds: cmds}
}

// Step retires one command; it reports false once the sequence is exhausted.
func (p *ProofStepper) Step(ctx *Context, table *Table) (opcode.ProofCommand, bool, error) {
	if p.pos >= len(p.cmds) {
		return opcode.ProofCommand{}, false, nil
	}
	cmd := p.cmds[p.pos]
	p.pos++
	if err := ctx.execProof(cmd, table, &p.state, p.mode, p.allowSorry); err != nil {
		return cmd, false, err
	}
	return cmd, true, nil
}

// Run executes the remaining commands.
func (p *ProofStepper) Run(ctx *Context, table *Table) error {
	for {
		_, ok, err := p.Step(ctx, table)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// RunProof executes cmds in ctx as a theorem-mode proof.
func RunProof(ctx *Context, table *Table, state State, cmds []opcode.ProofCommand) error {
	return NewProofStepper(false, state, cmds).Run(ctx, table)
}
