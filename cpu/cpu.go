// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/mimari/io"
)

// State is the execution state of a machine.
type State int

const (
	STATE_READY   = State(0) // ready
	STATE_RUNNING = State(1) // running
	STATE_HALTED  = State(2) // halted
	STATE_FAULTED = State(3) // faulted
)

func (state State) String() string {
	switch state {
	case STATE_READY:
		return "ready"
	case STATE_RUNNING:
		return "running"
	case STATE_HALTED:
		return "halted"
	case STATE_FAULTED:
		return "faulted"
	}
	return fmt.Sprintf("State(%d)", int(state))
}

// Terminal returns true if the state cannot execute further.
func (state State) Terminal() bool {
	return state == STATE_HALTED || state == STATE_FAULTED
}

var _cpu_defines = map[string]string{
	"REGISTER_COUNT": fmt.Sprintf("%d", REGISTER_COUNT),
	"TRAP_COUNT":     fmt.Sprintf("%d", TRAP_COUNT),
	"REG_FLAG":       fmt.Sprintf("%d", REG_FLAG),
	"REG_PC":         fmt.Sprintf("%d", REG_PC),
}

// Machine is the simulation context of one register machine.
// A machine owns all of its state; machines share nothing.
type Machine struct {
	Verbose bool // Set to enable verbose logging.

	Register Registers  // Register bank.
	Stack    Stack      // Stack simulation.
	Memory   Memory     // Data memory.
	Traps    TrapTable  // Trap handlers.
	Surface  io.Surface // Output surface for trap handlers.
	Program  *Program   // Currently loaded program.

	State State // Execution state.
	Fault error // Fault that stopped the machine, if any.
	Ticks int   // Executed instruction counter.
}

// NewMachine creates a machine with size cells of memory, the default traps,
// and an empty program.
func NewMachine(size int) (m *Machine) {
	m = &Machine{
		Memory:  NewMemory(size),
		Traps:   DefaultTraps(),
		Surface: io.Discard,
		Program: &Program{},
	}

	return
}

// Defines for the machine.
func (m *Machine) Defines() iter.Seq2[string, string] {
	defines := maps.Clone(_cpu_defines)
	defines["MEMORY_SIZE"] = fmt.Sprintf("%d", len(m.Memory))
	maps.Copy(defines, m.Traps.Defines())
	return maps.All(defines)
}

// Reset the machine state.
// - Clears the registers and stack.
// - Zeros the tick counter.
// - Points the program counter at the first instruction.
func (m *Machine) Reset() {
	if m.Verbose {
		log.Printf("cpu: reset")
	}

	clear(m.Register[:])
	m.Stack.Reset()
	m.Ticks = 0
	m.Fault = nil
	m.State = STATE_READY
}

// Load validates a program, installs it, and resets the machine.
// Each instruction's opcode is mirrored into the memory cell of the same
// index, as far as memory allows.
func (m *Machine) Load(prog *Program) (err error) {
	err = prog.Validate()
	if err != nil {
		return
	}

	m.Program = prog

	m.Memory.Reset()
	for n, ins := range prog.All() {
		if !m.Memory.Valid(int64(n)) {
			break
		}
		m.Memory[n] = int64(ins.Opcode)
	}

	if m.Verbose {
		log.Printf("cpu: loaded %d instructions", prog.Len())
	}

	m.Reset()

	return
}

// String returns the current machine state as a string.
func (m *Machine) String() (text string) {
	text = fmt.Sprintf("% 5s: %v\n", "state", m.State)
	for n, val := range m.Register {
		name := RegisterName(n)
		switch n {
		case REG_FLAG:
			name = "flag"
		case REG_PC:
			name = "pc"
		}
		text += fmt.Sprintf("% 5s: %016X (%d)\n", name, uint64(val), val)
	}

	val, ok := m.Stack.Peek()
	if ok {
		text += fmt.Sprintf("% 5s: %016X (%d) depth %d\n", "stack", uint64(val), val, m.Stack.Depth())
	} else {
		text += fmt.Sprintf("% 5s: ----------------\n", "stack")
	}

	return
}

// fault stops the machine.
func (m *Machine) fault(pc int64, ins *Instruction, err error) error {
	m.State = STATE_FAULTED
	m.Fault = &Fault{Pc: pc, Instruction: ins, Err: err}
	if m.Verbose {
		log.Printf("cpu: %v", m.Fault)
	}
	return m.Fault
}

// FetchInstruction fetches the instruction addressed by the program counter.
func (m *Machine) FetchInstruction() (ins Instruction, err error) {
	ins, ok := m.Program.At(m.Register[REG_PC])
	if !ok {
		err = ErrFetchOutOfBounds
		return
	}

	return
}

// Step executes a single fetch, decode and execute cycle.
func (m *Machine) Step() (err error) {
	switch m.State {
	case STATE_READY:
		m.State = STATE_RUNNING
	case STATE_RUNNING:
		// pass
	default:
		err = ErrNotRunnable
		return
	}

	pc := m.Register[REG_PC]

	ins, err := m.FetchInstruction()
	if err != nil {
		return m.fault(pc, nil, err)
	}

	err = ins.Validate()
	if err != nil {
		return m.fault(pc, &ins, err)
	}

	halt, err := m.Execute(ins)
	if err != nil {
		return m.fault(pc, &ins, err)
	}

	m.Ticks += 1

	if halt {
		m.State = STATE_HALTED
		if m.Verbose {
			log.Printf("cpu: halted at %d", m.Register[REG_PC])
		}
	}

	return
}

// Run executes instructions until the machine halts or faults.
func (m *Machine) Run() (err error) {
	for {
		err = m.Step()
		if err != nil {
			return
		}
		if m.State == STATE_HALTED {
			return
		}
	}
}

// Execute executes a single instruction at the current program counter.
// An instruction that fails validation returns its decode error. Either all
// of the instruction's effects are applied, or none are and an error is
// returned.
func (m *Machine) Execute(ins Instruction) (halt bool, err error) {
	err = ins.Validate()
	if err != nil {
		return
	}

	pc := m.Register[REG_PC]
	if m.Verbose {
		log.Printf("%03d: %v", pc, ins)
	}

	regs := m.Register
	next_pc := pc + 1

	ops := ins.Operands
	reg := func(n int) int64 { return regs[ops[n]] }
	set_reg := func(n int, value int64) {
		regs[ops[n]] = value
		if ops[n] == REG_PC {
			next_pc = value
		}
	}
	branch := func(taken bool) {
		if taken {
			next_pc = ops[0]
		}
	}

	switch ins.Opcode {
	case OP_ADD:
		set_reg(0, reg(0)+reg(1))
	case OP_SUB:
		set_reg(0, reg(0)-reg(1))
	case OP_MUL:
		set_reg(0, reg(0)*reg(1))
	case OP_DIV:
		if reg(1) == 0 {
			err = ErrDivideByZero
			return
		}
		set_reg(0, reg(0)/reg(1))
	case OP_MOV:
		set_reg(0, reg(1))
	case OP_SET:
		set_reg(0, ops[1])
	case OP_CMP:
		a, b := reg(0), reg(1)
		switch {
		case a < b:
			regs[REG_FLAG] = -1
		case a > b:
			regs[REG_FLAG] = 1
		default:
			regs[REG_FLAG] = 0
		}
	case OP_JMP:
		branch(true)
	case OP_JZ:
		branch(regs[REG_FLAG] == 0)
	case OP_JNZ:
		branch(regs[REG_FLAG] != 0)
	case OP_JE:
		branch(regs[0] == regs[1])
	case OP_JNE:
		branch(regs[0] != regs[1])
	case OP_JL:
		branch(regs[0] < regs[1])
	case OP_JLE:
		branch(regs[0] <= regs[1])
	case OP_JG:
		branch(regs[0] > regs[1])
	case OP_JGE:
		branch(regs[0] >= regs[1])
	case OP_PUSH:
		if m.Stack.Full() {
			err = ErrStackOverflow
			return
		}
		m.Stack.Push(reg(0))
	case OP_POP:
		value, ok := m.Stack.Pop()
		if !ok {
			err = ErrStackUnderflow
			return
		}
		set_reg(0, value)
	case OP_CALL:
		if m.Stack.Full() {
			err = ErrStackOverflow
			return
		}
		m.Stack.Push(pc + 1)
		branch(true)
	case OP_RET:
		value, ok := m.Stack.Pop()
		if !ok {
			err = ErrStackUnderflow
			return
		}
		next_pc = value
	case OP_LOAD:
		var value int64
		value, err = m.Memory.Read(reg(1))
		if err != nil {
			return
		}
		set_reg(0, value)
	case OP_STORE:
		err = m.Memory.Write(reg(0), reg(1))
		if err != nil {
			return
		}
	case OP_HLT:
		next_pc = pc
		halt = true
	case OP_NOP:
		// pass
	case OP_TRAP:
		halt, err = m.trap(ops[0])
		if err != nil {
			return
		}
	default:
		err = ErrOpcodeUnknown(ins.Opcode)
		return
	}

	regs[REG_PC] = next_pc
	m.Register = regs

	return
}

// trap calls the handler of a trap number.
func (m *Machine) trap(number int64) (halt bool, err error) {
	trap, err := m.Traps.Get(number)
	if err != nil {
		return
	}

	surface := m.Surface
	if surface == nil {
		surface = io.Discard
	}

	frame := &TrapFrame{
		Number:    int(number),
		Registers: m.Register,
		Surface:   surface,
	}

	action, err := trap.Handler.Trap(frame)
	if err != nil {
		err = &ErrTrapHandler{Number: int(number), Err: err}
		return
	}

	halt = action == TRAP_HALT

	return
}
