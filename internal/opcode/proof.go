package opcode

import "fmt"

// Proof is a proof stack-machine opcode.
type Proof uint8

const (
	ProofEnd      Proof = 0x00
	ProofTerm     Proof = 0x10
	ProofTermSave Proof = 0x11
	ProofRef      Proof = 0x12
	ProofDummy    Proof = 0x13
	ProofThm      Proof = 0x14
	ProofThmSave  Proof = 0x15
	ProofHyp      Proof = 0x16
	ProofConv     Proof = 0x17
	ProofRefl     Proof = 0x18
	ProofSym      Proof = 0x19
	ProofCong     Proof = 0x1A
	ProofUnfold   Proof = 0x1B
	ProofConvCut  Proof = 0x1C
	ProofConvRef  Proof = 0x1D
	ProofConvSave Proof = 0x1E
	ProofSave     Proof = 0x1F
	ProofSorry    Proof = 0x20
)

var proofNames = map[Proof]string{
	ProofEnd:      "end",
	ProofTerm:     "term",
	ProofTermSave: "term-save",
	ProofRef:      "ref",
	ProofDummy:    "dummy",
	ProofThm:      "thm",
	ProofThmSave:  "thm-save",
	ProofHyp:      "hyp",
	ProofConv:     "conv",
	ProofRefl:     "refl",
	ProofSym:      "sym",
	ProofCong:     "cong",
	ProofUnfold:   "unfold",
	ProofConvCut:  "conv-cut",
	ProofConvRef:  "conv-ref",
	ProofConvSave: "conv-save",
	ProofSave:     "save",
	ProofSorry:    "sorry",
}

// ParseProof validates a raw proof opcode.
func ParseProof(op uint8) (Proof, error) {
	if _, ok := proofNames[Proof(op)]; !ok {
		return 0, fmt.Errorf("unknown proof opcode %#02x", op)
	}
	return Proof(op), nil
}

func (p Proof) String() string {
	if name, ok := proofNames[p]; ok {
		return name
	}
	return fmt.Sprintf("proof(%#02x)", uint8(p))
}
