// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"fmt"
	stdio "io"
	"iter"
	"maps"

	"github.com/ezrec/mimari/cpu"
	"github.com/ezrec/mimari/internal"
	"github.com/ezrec/mimari/io"
)

const (
	MEMORY_SIZE = cpu.MEMORY_SIZE // Default data memory, in cells.
)

var _emulator_defines = map[string]string{
	"TRAP_PUTN":    fmt.Sprintf("%d", cpu.TRAP_PUTN),
	"TRAP_PUTC":    fmt.Sprintf("%d", cpu.TRAP_PUTC),
	"TRAP_NEWLINE": fmt.Sprintf("%d", cpu.TRAP_NEWLINE),
	"TRAP_PLOT":    fmt.Sprintf("%d", cpu.TRAP_PLOT),
	"TRAP_EXIT":    fmt.Sprintf("%d", cpu.TRAP_EXIT),
}

// Emulator state. Machine + program + console.
type Emulator struct {
	Verbose      bool         // If set, enables verbose logging.
	*cpu.Machine              // Reference to the machine simulation.
	Program      *cpu.Program // Reference to the currently running program listing.

	Console io.Console // Console output surface.
}

// NewEmulator creates a new emulator with the default trap set.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Machine: cpu.NewMachine(MEMORY_SIZE),
		Program: &cpu.Program{},
	}

	emu.Machine.Surface = &emu.Console

	return
}

// UseConsoleTraps installs the console trap services.
func (emu *Emulator) UseConsoleTraps() {
	emu.Machine.Traps = cpu.ConsoleTraps()
}

// UseMemory replaces the machine memory with size zeroed cells.
func (emu *Emulator) UseMemory(size int) (err error) {
	if size < 0 {
		err = ErrMemorySize
		return
	}

	emu.Machine.Memory = cpu.NewMemory(size)

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Unique(internal.IterSeq2Concat(
		maps.All(_emulator_defines),
		emu.Machine.Defines(),
	))
}

// Assemble parses assembly source into the emulator's program, with all
// of the emulator defines visible to the source.
func (emu *Emulator) Assemble(input stdio.Reader) (err error) {
	asm := &cpu.Assembler{Verbose: emu.Verbose}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	prog, err := asm.Parse(input)
	if err != nil {
		return
	}

	emu.Program = prog

	return
}

// Close the emulator
func (emu *Emulator) Close() (err error) {
	emu.Console.Output = nil

	return
}

// Reset loads the program into the machine, and resets it.
func (emu *Emulator) Reset() (err error) {
	emu.Machine.Verbose = emu.Verbose

	err = emu.Machine.Load(emu.Program)
	if err != nil {
		var fault *cpu.Fault
		if errors.As(err, &fault) {
			err = &ErrRuntime{LineNo: emu.Program.LineNo(fault.Pc), Err: err}
		}
		return
	}

	return
}

// Pc returns the current program counter.
func (emu *Emulator) Pc() int64 {
	return emu.Machine.Register[cpu.REG_PC]
}

// Instruction returns the current instruction.
func (emu *Emulator) Instruction() cpu.Instruction {
	ins, _ := emu.Program.At(emu.Pc())
	return ins
}

// LineNo returns the current line number for the executing instruction.
func (emu *Emulator) LineNo() int {
	return emu.Program.LineNo(emu.Pc())
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set machine verbosity
	emu.Machine.Verbose = emu.Verbose

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			done = true
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	err = emu.Machine.Step()
	if err != nil {
		return
	}

	done = emu.Machine.State.Terminal()

	return
}

// Run ticks the emulator until it halts or faults. If limit is greater
// than zero, at most limit instructions are executed.
func (emu *Emulator) Run(limit int) (err error) {
	for ticks := 0; limit <= 0 || ticks < limit; ticks++ {
		var done bool
		done, err = emu.Tick()
		if done || err != nil {
			return
		}
	}

	err = &ErrRuntime{LineNo: emu.LineNo(), Err: ErrTickLimit}

	return
}
