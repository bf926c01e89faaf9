package kernel

import "fmt"

// State counts the declarations of each kind that have been fully checked.
// It is the only summary needed to resume checking at a statement boundary.
type State struct {
	CurrentSort    uint32
	CurrentTerm    uint32
	CurrentTheorem uint32
}

// StateFromTable returns the state reached after every declaration of t.
func StateFromTable(t *Table) State {
	return State{
		CurrentSort:    uint32(len(t.Sorts)),
		CurrentTerm:    uint32(len(t.Terms)),
		CurrentTheorem: uint32(len(t.Theorems)),
	}
}

func (s *State) IncrementCurrentSort()    { s.CurrentSort++ }
func (s *State) IncrementCurrentTerm()    { s.CurrentTerm++ }
func (s *State) IncrementCurrentTheorem() { s.CurrentTheorem++ }

func (s State) String() string {
	return fmt.Sprintf("sorts=%d terms=%d theorems=%d", s.CurrentSort, s.CurrentTerm, s.CurrentTheorem)
}
