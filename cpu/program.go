package cpu

import (
	"iter"
)

// Program is an ordered sequence of decoded instructions, with optional
// source line numbers for diagnostics.
type Program struct {
	Instructions []Instruction
	Lines        []int // Source line of each instruction, if assembled.
}

// NewProgram creates a program from a list of instructions.
func NewProgram(ins ...Instruction) *Program {
	return &Program{Instructions: ins}
}

// Len returns the number of instructions.
func (prog *Program) Len() int {
	if prog == nil {
		return 0
	}
	return len(prog.Instructions)
}

// At returns the instruction at index.
func (prog *Program) At(index int64) (ins Instruction, ok bool) {
	if prog == nil || index < 0 || index >= int64(len(prog.Instructions)) {
		return
	}
	return prog.Instructions[index], true
}

// LineNo returns the source line of the instruction at index, or 0 if unknown.
func (prog *Program) LineNo(index int64) int {
	if prog == nil || index < 0 || index >= int64(len(prog.Lines)) {
		return 0
	}
	return prog.Lines[index]
}

// Validate checks every instruction against the instruction set.
func (prog *Program) Validate() (err error) {
	if prog == nil {
		return
	}
	for n, ins := range prog.Instructions {
		err = ins.Validate()
		if err != nil {
			err = &Fault{Pc: int64(n), Instruction: &prog.Instructions[n], Err: err}
			return
		}
	}
	return
}

// All iterates over the program's instructions by index.
func (prog *Program) All() iter.Seq2[int, Instruction] {
	return func(yield func(index int, ins Instruction) bool) {
		if prog == nil {
			return
		}
		for n, ins := range prog.Instructions {
			if !yield(n, ins) {
				return
			}
		}
	}
}
