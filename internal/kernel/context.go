package kernel

// unifyMode selects how UHyp and UDummy behave.
type unifyMode uint8

const (
	unifyNone    unifyMode = iota
	unifyDef               // definition body: dummies allowed, no hypotheses
	unifyThm               // theorem application: hypotheses popped from the proof stack
	unifyThmDecl           // theorem declaration: hypotheses taken from the hypothesis list
)

// Context is the mutable machine state used while checking one declaration.
type Context struct {
	store *Store

	heap   []Entry
	stack  []Entry
	hyps   []ExprID
	ustack []ExprID
	uheap  []ExprID

	umode     unifyMode
	hypCursor int

	numArgs   int
	argBound  uint32
	nextBound uint32
}

// NewContext returns an empty context with its own store.
func NewContext() *Context {
	return &Context{
		store:  NewStore(),
		heap:   make([]Entry, 0, 64),
		stack:  make([]Entry, 0, 64),
		hyps:   make([]ExprID, 0, 16),
		ustack: make([]ExprID, 0, 64),
		uheap:  make([]ExprID, 0, 64),
	}
}

// Store exposes the expression arena.
func (c *Context) Store() *Store { return c.store }

// ProofHeap returns the saved cells, binders first.
func (c *Context) ProofHeap() []Entry { return c.heap }

// ProofStack returns the proof stack, bottom first.
func (c *Context) ProofStack() []Entry { return c.stack }

// HypStack returns the hypotheses introduced so far.
func (c *Context) HypStack() []ExprID { return c.hyps }

// UnifyStack returns the pending unify goals, bottom first.
func (c *Context) UnifyStack() []ExprID { return c.ustack }

// UnifyHeap returns the unify heap.
func (c *Context) UnifyHeap() []ExprID { return c.uheap }

// NumArgs reports how many binders the current declaration allocated.
func (c *Context) NumArgs() int { return c.numArgs }

// ClearExceptStore resets every stack but keeps allocated expressions alive.
func (c *Context) ClearExceptStore() {
	c.heap = c.heap[:0]
	c.stack = c.stack[:0]
	c.hyps = c.hyps[:0]
	c.ustack = c.ustack[:0]
	c.uheap = c.uheap[:0]
	c.umode = unifyNone
	c.hypCursor = 0
	c.numArgs = 0
	c.argBound = 0
	c.nextBound = 0
}

// Clear resets the context including the store.
func (c *Context) Clear() {
	c.ClearExceptStore()
	c.store.Reset()
}

// AllocateBinders creates one variable per binder and saves it on the heap.
// Binder sorts must already be declared, i.e. below currentSort.
func (c *Context) AllocateBinders(table *Table, currentSort uint32, binders []Binder) error {
	for i, b := range binders {
		sortID := b.Sort()
		sort, ok := table.Sort(sortID)
		if !ok || uint32(sortID) >= currentSort {
			return failf(KindInvalidSort, "binder %d: sort %d", i, sortID)
		}
		var deps uint64
		if b.Bound() {
			if sort.IsStrict() {
				return failf(KindStrictSort, "binder %d", i)
			}
			bit, err := c.allocBound()
			if err != nil {
				return err
			}
			deps = bit
		} else {
			deps = b.Deps()
			if deps&^(uint64(1)<<c.nextBound-1) != 0 {
				return failf(KindDepsViolation, "binder %d depends on undeclared variable", i)
			}
			if sort.IsFree() && deps != 0 {
				return failf(KindFreeSort, "binder %d", i)
			}
		}
		id := c.store.NewVar(sortID, b.Bound(), deps)
		c.heap = append(c.heap, Entry{Kind: EntryExpr, L: id})
	}
	c.numArgs = len(binders)
	c.argBound = c.nextBound
	return nil
}

func (c *Context) allocBound() (uint64, error) {
	if c.nextBound >= MaxBoundVars {
		return 0, fail(KindTooManyBoundVars)
	}
	bit := uint64(1) << c.nextBound
	c.nextBound++
	return bit, nil
}

// args returns the binder variables of the current declaration.
func (c *Context) args() []ExprID {
	out := make([]ExprID, c.numArgs)
	for i := range out {
		out[i] = c.heap[i].L
	}
	return out
}

func (c *Context) push(e Entry) { c.stack = append(c.stack, e) }

func (c *Context) pop() (Entry, error) {
	n := len(c.stack)
	if n == 0 {
		return Entry{}, fail(KindProofStackUnderflow)
	}
	e := c.stack[n-1]
	c.stack = c.stack[:n-1]
	return e, nil
}

func (c *Context) popKind(kind EntryKind) (Entry, error) {
	e, err := c.pop()
	if err != nil {
		return Entry{}, err
	}
	if e.Kind != kind {
		return Entry{}, failf(KindStackType, "expected %s, found %s", kind, e.Kind)
	}
	return e, nil
}

// popExprs pops n expressions, returning them bottom first.
func (c *Context) popExprs(n int) ([]ExprID, error) {
	if len(c.stack) < n {
		return nil, fail(KindProofStackUnderflow)
	}
	base := len(c.stack) - n
	out := make([]ExprID, n)
	for i, e := range c.stack[base:] {
		if e.Kind != EntryExpr {
			return nil, failf(KindStackType, "argument %d: expected expr, found %s", i, e.Kind)
		}
		out[i] = e.L
	}
	c.stack = c.stack[:base]
	return out, nil
}

func (c *Context) heapAt(i uint32) (Entry, error) {
	if uint64(i) >= uint64(len(c.heap)) {
		return Entry{}, failf(KindInvalidHeapIndex, "%d", i)
	}
	return c.heap[i], nil
}

// checkArgs verifies args against a binder signature and returns the
// dependencies of each bound argument, in binder order.
func (c *Context) checkArgs(binders []Binder, args []ExprID) ([]uint64, error) {
	bound := make([]uint64, 0, len(binders))
	for i, b := range binders {
		e := c.store.Get(args[i])
		if e.Sort != b.Sort() {
			return nil, failf(KindSortMismatch, "argument %d: sort %d, want %d", i, e.Sort, b.Sort())
		}
		if b.Bound() {
			if !e.IsVar || !e.Bound {
				return nil, failf(KindBoundExpected, "argument %d", i)
			}
			bound = append(bound, e.Deps)
			continue
		}
		for j, d := range bound {
			if b.Deps()&(uint64(1)<<j) == 0 && e.Deps&d != 0 {
				return nil, failf(KindDepsViolation, "argument %d depends on bound argument %d", i, j)
			}
		}
	}
	return bound, nil
}

// TheoremApplication is a theorem signature instantiated with fresh
// variables: the binders, the hypotheses in declaration order and the
// conclusion.
type TheoremApplication struct {
	Args       []Entry
	Hyps       []ExprID
	Conclusion Entry
}
