package kernel

import "fmt"

// Sort is the modifier byte of a sort declaration.
type Sort uint8

const (
	SortPure     Sort = 0x01
	SortStrict   Sort = 0x02
	SortProvable Sort = 0x04
	SortFree     Sort = 0x08

	sortMask = SortPure | SortStrict | SortProvable | SortFree
)

// Valid reports whether only known modifier bits are set.
func (s Sort) Valid() bool { return s&^sortMask == 0 }

func (s Sort) IsPure() bool     { return s&SortPure != 0 }
func (s Sort) IsStrict() bool   { return s&SortStrict != 0 }
func (s Sort) IsProvable() bool { return s&SortProvable != 0 }
func (s Sort) IsFree() bool     { return s&SortFree != 0 }

func (s Sort) String() string {
	out := ""
	add := func(flag Sort, name string) {
		if s&flag != 0 {
			if out != "" {
				out += " "
			}
			out += name
		}
	}
	add(SortPure, "pure")
	add(SortStrict, "strict")
	add(SortProvable, "provable")
	add(SortFree, "free")
	if out == "" {
		return "sort"
	}
	return out
}

// MaxBoundVars is the number of dependency bits a binder word can carry.
const MaxBoundVars = 56

const (
	binderBound    = uint64(1) << 63
	binderSortBits = 56
	binderDepsMask = binderBound>>7 - 1
)

// Binder is a packed variable declaration: bit 63 marks a bound variable,
// bits 56..62 hold the sort and bits 0..55 the dependency mask.
type Binder uint64

// NewBinder packs a binder word.
func NewBinder(sort uint8, bound bool, deps uint64) Binder {
	b := uint64(sort&0x7F)<<binderSortBits | deps&binderDepsMask
	if bound {
		b |= binderBound
	}
	return Binder(b)
}

func (b Binder) Bound() bool  { return uint64(b)&binderBound != 0 }
func (b Binder) Sort() uint8  { return uint8(uint64(b)>>binderSortBits) & 0x7F }
func (b Binder) Deps() uint64 { return uint64(b) & binderDepsMask }

func (b Binder) String() string {
	if b.Bound() {
		return fmt.Sprintf("{s%d}", b.Sort())
	}
	return fmt.Sprintf("(s%d %#x)", b.Sort(), b.Deps())
}

// Range is a half-open window [Start, End) into one of the table buffers.
type Range struct {
	Start uint32
	End   uint32
}

// Len returns the number of elements covered by the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return int(r.End - r.Start)
}

// Within reports whether 0 <= Start <= End <= n.
func (r Range) Within(n int) bool {
	return r.Start <= r.End && int(r.End) <= n
}

func (r Range) String() string { return fmt.Sprintf("%d..%d", r.Start, r.End) }

// termDefFlag marks a term whose sort byte carries a definition.
const termDefFlag = 0x80

// Term is a term constructor or definition.
type Term struct {
	Sort    uint8 // raw sort byte; high bit set for definitions
	Binders Range
	Ret     Binder
	Unify   Range
}

// SortID returns the return sort of the term.
func (t *Term) SortID() uint8 { return t.Sort &^ termDefFlag }

// IsDef reports whether the term has a definition body.
func (t *Term) IsDef() bool { return t.Sort&termDefFlag != 0 }

// Theorem is an axiom or theorem signature.
type Theorem struct {
	Binders Range
	Unify   Range
}
