package opcode

import "fmt"

// Unify is a unify opcode.
type Unify uint8

const (
	UnifyEnd      Unify = 0x00
	UnifyTerm     Unify = 0x30
	UnifyTermSave Unify = 0x31
	UnifyRef      Unify = 0x32
	UnifyDummy    Unify = 0x33
	UnifyHyp      Unify = 0x36
)

// ParseUnify validates a raw unify opcode.
func ParseUnify(op uint8) (Unify, error) {
	switch u := Unify(op); u {
	case UnifyEnd, UnifyTerm, UnifyTermSave, UnifyRef, UnifyDummy, UnifyHyp:
		return u, nil
	default:
		return 0, fmt.Errorf("unknown unify opcode %#02x", op)
	}
}

func (u Unify) String() string {
	switch u {
	case UnifyEnd:
		return "end"
	case UnifyTerm:
		return "uterm"
	case UnifyTermSave:
		return "uterm-save"
	case UnifyRef:
		return "uref"
	case UnifyDummy:
		return "udummy"
	case UnifyHyp:
		return "uhyp"
	default:
		return fmt.Sprintf("unify(%#02x)", uint8(u))
	}
}
