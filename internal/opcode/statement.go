package opcode

import "fmt"

// Statement is the kind of a top-level declaration in the statement stream.
type Statement uint8

const (
	StmtEnd       Statement = 0x00
	StmtAxiom     Statement = 0x02
	StmtSort      Statement = 0x04
	StmtTermDef   Statement = 0x05
	StmtThm       Statement = 0x06
	StmtLocalDef  Statement = 0x0D
	StmtLocalTerm Statement = 0x0E
)

// ParseStatement validates a raw statement opcode.
func ParseStatement(op uint8) (Statement, error) {
	switch s := Statement(op); s {
	case StmtEnd, StmtAxiom, StmtSort, StmtTermDef, StmtThm, StmtLocalDef, StmtLocalTerm:
		return s, nil
	default:
		return 0, fmt.Errorf("unknown statement opcode %#02x", op)
	}
}

func (s Statement) String() string {
	switch s {
	case StmtEnd:
		return "end"
	case StmtAxiom:
		return "axiom"
	case StmtSort:
		return "sort"
	case StmtTermDef:
		return "term"
	case StmtThm:
		return "thm"
	case StmtLocalDef:
		return "local-def"
	case StmtLocalTerm:
		return "local-term"
	default:
		return fmt.Sprintf("stmt(%#02x)", uint8(s))
	}
}

// IsTermFamily reports whether the statement declares a term.
func (s Statement) IsTermFamily() bool {
	return s == StmtTermDef || s == StmtLocalDef || s == StmtLocalTerm
}

// IsTheoremFamily reports whether the statement declares a theorem or axiom.
func (s Statement) IsTheoremFamily() bool {
	return s == StmtAxiom || s == StmtThm
}

// StatementOpcode is the externally visible opcode a statement stream yields.
// Local declarations collapse onto their exported counterpart.
type StatementOpcode uint8

const (
	OpEnd StatementOpcode = iota
	OpSort
	OpTermDef
	OpAxiom
	OpThm
)

// Opcode maps a statement kind to the stream opcode.
func (s Statement) Opcode() StatementOpcode {
	switch s {
	case StmtSort:
		return OpSort
	case StmtTermDef, StmtLocalDef, StmtLocalTerm:
		return OpTermDef
	case StmtAxiom:
		return OpAxiom
	case StmtThm:
		return OpThm
	default:
		return OpEnd
	}
}

func (o StatementOpcode) String() string {
	switch o {
	case OpEnd:
		return "end"
	case OpSort:
		return "sort"
	case OpTermDef:
		return "term"
	case OpAxiom:
		return "axiom"
	case OpThm:
		return "thm"
	default:
		return "unknown"
	}
}
