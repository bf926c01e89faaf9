// Package compiler turns a declaration's unify stream into a proof that
// rebuilds the declaration's statement from its binders.
package compiler

import (
	"errors"
	"fmt"

	"mmbcheck/internal/opcode"
)

// ErrMalformed reports a unify stream that does not describe a statement.
var ErrMalformed = errors.New("malformed unify stream")

type nodeKind uint8

const (
	nodeBinder nodeKind = iota
	nodeTerm
	nodeDummy
)

type node struct {
	kind nodeKind
	data uint32 // term id or dummy sort
	save bool
	args []int
	slot int // proof heap slot once emitted, -1 before
}

type program struct {
	cmds  []opcode.UnifyCommand
	pos   int
	arity func(uint32) (uint32, bool)

	nodes []node
	uheap []int

	out  []opcode.ProofCommand
	heap int
}

// UnifyToProof compiles cmds, the unify stream of a declaration with
// numBinders binders, into proof commands. Run in a context where the
// binders are already allocated, the proof leaves the conclusion on top
// of the stack and registers every hypothesis in order. arity reports
// the argument count of a term. References past the unify heap are
// compiled as plain heap references; only the stream's shape is
// validated here.
func UnifyToProof(numBinders uint32, cmds []opcode.UnifyCommand, arity func(uint32) (uint32, bool)) ([]opcode.ProofCommand, error) {
	p := &program{
		cmds:  cmds,
		arity: arity,
		nodes: make([]node, 0, int(numBinders)+len(cmds)),
		uheap: make([]int, 0, int(numBinders)+len(cmds)),
		out:   make([]opcode.ProofCommand, 0, len(cmds)+8),
		heap:  int(numBinders),
	}
	for i := 0; i < int(numBinders); i++ {
		p.nodes = append(p.nodes, node{kind: nodeBinder, slot: i})
		p.uheap = append(p.uheap, i)
	}

	concl, err := p.parse()
	if err != nil {
		return nil, err
	}
	var hyps []int
	for p.pos < len(p.cmds) {
		cmd := p.cmds[p.pos]
		p.pos++
		if cmd.Op == opcode.UnifyEnd {
			break
		}
		if cmd.Op != opcode.UnifyHyp {
			return nil, fmt.Errorf("%w: %s at %d, want hyp", ErrMalformed, cmd, p.pos-1)
		}
		h, err := p.parse()
		if err != nil {
			return nil, err
		}
		hyps = append(hyps, h)
	}

	// The stream lists hypotheses last to first.
	for i := len(hyps) - 1; i >= 0; i-- {
		p.emit(hyps[i])
		p.out = append(p.out, opcode.ProofCommand{Op: opcode.ProofHyp})
		p.heap++
	}
	p.emit(concl)
	return p.out, nil
}

// parse reads one expression in pre-order.
func (p *program) parse() (int, error) {
	if p.pos >= len(p.cmds) {
		return 0, fmt.Errorf("%w: unexpected end at %d", ErrMalformed, p.pos)
	}
	cmd := p.cmds[p.pos]
	p.pos++

	switch cmd.Op {
	case opcode.UnifyRef:
		if uint64(cmd.Data) >= uint64(len(p.uheap)) {
			// left for the checker, which rejects the heap index
			return p.add(node{kind: nodeBinder, slot: int(cmd.Data)}), nil
		}
		return p.uheap[cmd.Data], nil

	case opcode.UnifyDummy:
		n := p.add(node{kind: nodeDummy, data: cmd.Data, slot: -1})
		p.uheap = append(p.uheap, n)
		return n, nil

	case opcode.UnifyTerm, opcode.UnifyTermSave:
		k, ok := p.arity(cmd.Data)
		if !ok {
			return 0, fmt.Errorf("%w: unknown term %d", ErrMalformed, cmd.Data)
		}
		save := cmd.Op == opcode.UnifyTermSave
		n := p.add(node{kind: nodeTerm, data: cmd.Data, save: save, slot: -1})
		if save {
			p.uheap = append(p.uheap, n)
		}
		args := make([]int, 0, k)
		for i := uint32(0); i < k; i++ {
			a, err := p.parse()
			if err != nil {
				return 0, err
			}
			args = append(args, a)
		}
		p.nodes[n].args = args
		return n, nil
	}
	return 0, fmt.Errorf("%w: unexpected %s at %d", ErrMalformed, cmd, p.pos-1)
}

func (p *program) add(n node) int {
	p.nodes = append(p.nodes, n)
	return len(p.nodes) - 1
}

// emit writes n in post-order; nodes already on the heap are referenced.
func (p *program) emit(i int) {
	n := &p.nodes[i]
	if n.slot >= 0 {
		p.out = append(p.out, opcode.ProofCommand{Op: opcode.ProofRef, Data: uint32(n.slot)})
		return
	}
	switch n.kind {
	case nodeDummy:
		p.out = append(p.out, opcode.ProofCommand{Op: opcode.ProofDummy, Data: n.data})
		n.slot = p.heap
		p.heap++
	case nodeTerm:
		for _, a := range n.args {
			p.emit(a)
		}
		// p.nodes may not grow during emission, so n is still valid.
		if n.save {
			p.out = append(p.out, opcode.ProofCommand{Op: opcode.ProofTermSave, Data: n.data})
			n.slot = p.heap
			p.heap++
			return
		}
		p.out = append(p.out, opcode.ProofCommand{Op: opcode.ProofTerm, Data: n.data})
	}
}
