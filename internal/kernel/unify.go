package kernel

import "mmbcheck/internal/opcode"

// beginUnify seeds the unify heap with args and the unify stack with target.
func (c *Context) beginUnify(mode unifyMode, args []ExprID, target ExprID) {
	c.umode = mode
	c.uheap = append(c.uheap[:0], args...)
	c.ustack = append(c.ustack[:0], target)
	if mode == unifyThmDecl {
		c.hypCursor = len(c.hyps)
	}
}

// endUnify checks that every goal was matched.
func (c *Context) endUnify() error {
	mode := c.umode
	c.umode = unifyNone
	if len(c.ustack) != 0 {
		return failf(KindUnifyStackNotEmpty, "%d goals left", len(c.ustack))
	}
	if mode == unifyThmDecl && c.hypCursor != 0 {
		return failf(KindHypMismatch, "%d hypotheses not matched", c.hypCursor)
	}
	return nil
}

func (c *Context) upop() (ExprID, error) {
	n := len(c.ustack)
	if n == 0 {
		return 0, fail(KindUnifyStackUnderflow)
	}
	e := c.ustack[n-1]
	c.ustack = c.ustack[:n-1]
	return e, nil
}

// execUnify retires one unify command.
func (c *Context) execUnify(cmd opcode.UnifyCommand, table *Table) error {
	switch cmd.Op {
	case opcode.UnifyTerm, opcode.UnifyTermSave:
		e, err := c.upop()
		if err != nil {
			return err
		}
		x := c.store.Get(e)
		if x.IsVar || x.Term != cmd.Data {
			return failf(KindUnifyTermMismatch, "expected term %d, found %s", cmd.Data, c.store.Format(e))
		}
		if cmd.Op == opcode.UnifyTermSave {
			c.uheap = append(c.uheap, e)
		}
		args := c.store.Args(e)
		for i := len(args) - 1; i >= 0; i-- {
			c.ustack = append(c.ustack, args[i])
		}

	case opcode.UnifyRef:
		e, err := c.upop()
		if err != nil {
			return err
		}
		if uint64(cmd.Data) >= uint64(len(c.uheap)) {
			return failf(KindInvalidHeapIndex, "unify ref %d", cmd.Data)
		}
		if c.uheap[cmd.Data] != e {
			return failf(KindUnifyRefMismatch, "ref %d: %s != %s",
				cmd.Data, c.store.Format(c.uheap[cmd.Data]), c.store.Format(e))
		}

	case opcode.UnifyDummy:
		if c.umode != unifyDef {
			return fail(KindDummyNotAllowed)
		}
		e, err := c.upop()
		if err != nil {
			return err
		}
		x := c.store.Get(e)
		if !x.IsVar || !x.Bound {
			return failf(KindBoundExpected, "dummy: %s", c.store.Format(e))
		}
		if cmd.Data > 0x7F || uint32(x.Sort) != cmd.Data {
			return failf(KindSortMismatch, "dummy sort %d, found %d", cmd.Data, x.Sort)
		}
		sort, ok := table.Sort(x.Sort)
		if !ok {
			return fail(KindInvalidSort)
		}
		if sort.IsStrict() {
			return fail(KindStrictSort)
		}
		// A dummy must be fresh with respect to everything matched so far.
		for _, h := range c.uheap {
			if c.store.Get(h).Deps&x.Deps != 0 {
				return failf(KindDepsViolation, "dummy %s is not fresh", c.store.Format(e))
			}
		}
		c.uheap = append(c.uheap, e)

	case opcode.UnifyHyp:
		switch c.umode {
		case unifyThm:
			p, err := c.popKind(EntryProof)
			if err != nil {
				return err
			}
			c.ustack = append(c.ustack, p.L)
		case unifyThmDecl:
			if c.hypCursor == 0 {
				return failf(KindHypMismatch, "more hypotheses than declared")
			}
			c.hypCursor--
			c.ustack = append(c.ustack, c.hyps[c.hypCursor])
		default:
			return fail(KindHypNotAllowed)
		}

	default:
		return failf(KindCommandNotAllowed, "%s", cmd.Op)
	}
	return nil
}

// runUnify matches target against cmds in one go.
func (c *Context) runUnify(table *Table, mode unifyMode, args []ExprID, target ExprID, cmds []opcode.UnifyCommand) error {
	c.beginUnify(mode, args, target)
	for _, cmd := range cmds {
		if err := c.execUnify(cmd, table); err != nil {
			c.umode = unifyNone
			return err
		}
	}
	return c.endUnify()
}
