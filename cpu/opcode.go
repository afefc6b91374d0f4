// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"strings"
)

// Opcode is the numeric code of an instruction.
type Opcode uint16

const (
	OP_ADD   = Opcode(0x0001) // add
	OP_SUB   = Opcode(0x0002) // sub
	OP_MUL   = Opcode(0x0003) // mul
	OP_DIV   = Opcode(0x0004) // div
	OP_MOV   = Opcode(0x0005) // mov
	OP_JMP   = Opcode(0x0006) // jmp
	OP_JZ    = Opcode(0x0007) // jz
	OP_JNZ   = Opcode(0x0008) // jnz
	OP_JE    = Opcode(0x0009) // je
	OP_JNE   = Opcode(0x000a) // jne
	OP_JL    = Opcode(0x000b) // jl
	OP_JLE   = Opcode(0x000c) // jle
	OP_JG    = Opcode(0x000d) // jg
	OP_JGE   = Opcode(0x000e) // jge
	OP_CMP   = Opcode(0x000f) // cmp
	OP_PUSH  = Opcode(0x0010) // push
	OP_POP   = Opcode(0x0011) // pop
	OP_CALL  = Opcode(0x0012) // call
	OP_RET   = Opcode(0x0013) // ret
	OP_HLT   = Opcode(0x0014) // hlt
	OP_NOP   = Opcode(0x0015) // nop
	OP_TRAP  = Opcode(0x0016) // trap
	OP_LOAD  = Opcode(0x0017) // load
	OP_STORE = Opcode(0x0018) // store
	OP_SET   = Opcode(0x0019) // set
)

var _opcode_names = map[Opcode]string{
	OP_ADD:   "add",
	OP_SUB:   "sub",
	OP_MUL:   "mul",
	OP_DIV:   "div",
	OP_MOV:   "mov",
	OP_JMP:   "jmp",
	OP_JZ:    "jz",
	OP_JNZ:   "jnz",
	OP_JE:    "je",
	OP_JNE:   "jne",
	OP_JL:    "jl",
	OP_JLE:   "jle",
	OP_JG:    "jg",
	OP_JGE:   "jge",
	OP_CMP:   "cmp",
	OP_PUSH:  "push",
	OP_POP:   "pop",
	OP_CALL:  "call",
	OP_RET:   "ret",
	OP_HLT:   "hlt",
	OP_NOP:   "nop",
	OP_TRAP:  "trap",
	OP_LOAD:  "load",
	OP_STORE: "store",
	OP_SET:   "set",
}

// String returns the mnemonic of the opcode.
func (op Opcode) String() string {
	name, ok := _opcode_names[op]
	if !ok {
		return fmt.Sprintf("Opcode(%#04x)", uint16(op))
	}
	return name
}

// ParseOpcode returns the opcode for a mnemonic, in any case.
func ParseOpcode(mnemonic string) (op Opcode, ok bool) {
	mnemonic = strings.ToLower(mnemonic)
	for op, name := range _opcode_names {
		if name == mnemonic {
			return op, true
		}
	}
	return
}

// OperandKind describes how an instruction interprets one operand.
type OperandKind int

const (
	OPERAND_REG  = OperandKind(0) // reg
	OPERAND_ADDR = OperandKind(1) // addr
	OPERAND_TRAP = OperandKind(2) // trap
	OPERAND_IMM  = OperandKind(3) // imm
)

func (kind OperandKind) String() string {
	switch kind {
	case OPERAND_REG:
		return "reg"
	case OPERAND_ADDR:
		return "addr"
	case OPERAND_TRAP:
		return "trap"
	case OPERAND_IMM:
		return "imm"
	}
	return fmt.Sprintf("OperandKind(%d)", int(kind))
}

// InstructionSpec is the static description of an opcode.
type InstructionSpec struct {
	Opcode Opcode
	Kinds  []OperandKind // One entry per required operand.
}

// Operands returns the required operand count.
func (spec InstructionSpec) Operands() int {
	return len(spec.Kinds)
}

var (
	kindsRegReg = []OperandKind{OPERAND_REG, OPERAND_REG}
	kindsAddr   = []OperandKind{OPERAND_ADDR}
	kindsReg    = []OperandKind{OPERAND_REG}
)

// InstructionSet is the table of every opcode the machine executes.
var InstructionSet = []InstructionSpec{
	{OP_ADD, kindsRegReg},
	{OP_SUB, kindsRegReg},
	{OP_MUL, kindsRegReg},
	{OP_DIV, kindsRegReg},
	{OP_MOV, kindsRegReg},
	{OP_JMP, kindsAddr},
	{OP_JZ, kindsAddr},
	{OP_JNZ, kindsAddr},
	{OP_JE, kindsAddr},
	{OP_JNE, kindsAddr},
	{OP_JL, kindsAddr},
	{OP_JLE, kindsAddr},
	{OP_JG, kindsAddr},
	{OP_JGE, kindsAddr},
	{OP_CMP, kindsRegReg},
	{OP_PUSH, kindsReg},
	{OP_POP, kindsReg},
	{OP_CALL, kindsAddr},
	{OP_RET, nil},
	{OP_HLT, nil},
	{OP_NOP, nil},
	{OP_TRAP, []OperandKind{OPERAND_TRAP}},
	{OP_LOAD, kindsRegReg},
	{OP_STORE, kindsRegReg},
	{OP_SET, []OperandKind{OPERAND_REG, OPERAND_IMM}},
}

// Lookup returns the instruction specification for an opcode.
func Lookup(op Opcode) (spec InstructionSpec, ok bool) {
	for _, spec = range InstructionSet {
		if spec.Opcode == op {
			return spec, true
		}
	}
	return InstructionSpec{}, false
}

// Instruction is a decoded instruction: an opcode and its operands.
type Instruction struct {
	Opcode   Opcode
	Operands []int64
}

// MakeInstruction creates an instruction.
func MakeInstruction(op Opcode, operands ...int64) Instruction {
	return Instruction{
		Opcode:   op,
		Operands: operands,
	}
}

// Validate checks the instruction against the instruction set table.
func (ins Instruction) Validate() (err error) {
	spec, ok := Lookup(ins.Opcode)
	if !ok {
		err = ErrOpcodeUnknown(ins.Opcode)
		return
	}

	if len(ins.Operands) != spec.Operands() {
		err = &ErrOperandCount{Opcode: ins.Opcode, Want: spec.Operands(), Have: len(ins.Operands)}
		return
	}

	for n, kind := range spec.Kinds {
		if kind == OPERAND_REG && !ValidRegister(ins.Operands[n]) {
			err = ErrRegisterInvalid(ins.Operands[n])
			return
		}
	}

	return
}

// String returns the assembly language representation of this instruction.
func (ins Instruction) String() string {
	spec, ok := Lookup(ins.Opcode)

	args := make([]string, len(ins.Operands))
	for n, operand := range ins.Operands {
		if ok && n < len(spec.Kinds) && spec.Kinds[n] == OPERAND_REG && ValidRegister(operand) {
			args[n] = RegisterName(int(operand))
		} else {
			args[n] = fmt.Sprintf("%d", operand)
		}
	}

	if len(args) == 0 {
		return ins.Opcode.String()
	}

	return fmt.Sprintf("%v %v", ins.Opcode, strings.Join(args, ", "))
}
