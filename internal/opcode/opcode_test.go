package opcode

import "testing"

func TestAppendUsesShortestEncoding(t *testing.T) {
	tests := []struct {
		data uint32
		want []byte
	}{
		{0, []byte{0x12}},
		{0xFF, []byte{0x52, 0xFF}},
		{0x100, []byte{0x92, 0x00, 0x01}},
		{0x10000, []byte{0xD2, 0x00, 0x00, 0x01, 0x00}},
	}
	for _, tt := range tests {
		got := Append(nil, uint8(ProofRef), tt.data)
		if string(got) != string(tt.want) {
			t.Fatalf("Append(%#x): want % x, got % x", tt.data, tt.want, got)
		}
		op, data, n, ok := Decode(append(got, 0xAA))
		if !ok || op != uint8(ProofRef) || data != tt.data || n != len(tt.want) {
			t.Fatalf("Decode(% x): op=%#x data=%#x n=%d ok=%v", got, op, data, n, ok)
		}
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, _, _, ok := Decode(nil); ok {
		t.Fatalf("empty input decoded")
	}
	if _, _, _, ok := Decode([]byte{0x92, 0x01}); ok {
		t.Fatalf("truncated 16-bit data decoded")
	}
}

func TestStatementOpcodeCollapse(t *testing.T) {
	tests := []struct {
		stmt Statement
		want StatementOpcode
	}{
		{StmtEnd, OpEnd},
		{StmtSort, OpSort},
		{StmtTermDef, OpTermDef},
		{StmtLocalDef, OpTermDef},
		{StmtLocalTerm, OpTermDef},
		{StmtAxiom, OpAxiom},
		{StmtThm, OpThm},
	}
	for _, tt := range tests {
		if got := tt.stmt.Opcode(); got != tt.want {
			t.Fatalf("%s: want %s, got %s", tt.stmt, tt.want, got)
		}
	}
	if !StmtLocalTerm.IsTermFamily() || StmtLocalTerm.IsTheoremFamily() {
		t.Fatalf("local term must be term family")
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	if _, err := ParseStatement(0x07); err == nil {
		t.Fatalf("statement 0x07 accepted")
	}
	if _, err := ParseProof(0x21); err == nil {
		t.Fatalf("proof 0x21 accepted")
	}
	if _, err := ParseUnify(0x34); err == nil {
		t.Fatalf("unify 0x34 accepted")
	}
	if got := (ProofCommand{Op: ProofThm, Data: 3}).String(); got != "thm 3" {
		t.Fatalf("String: got %q", got)
	}
}
