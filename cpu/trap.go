// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"log"

	"github.com/ezrec/mimari/io"
)

const (
	TRAP_COUNT = 16 // Number of trap table slots.
)

// TrapAction is the request a trap handler returns to the machine.
type TrapAction int

const (
	TRAP_CONTINUE = TrapAction(0) // Resume with the next instruction.
	TRAP_HALT     = TrapAction(1) // Halt after this instruction.
)

// TrapFrame is everything a trap handler may touch.
type TrapFrame struct {
	Number    int        // Trap number being serviced.
	Registers Registers  // Copy of the register bank at the TRAP instruction.
	Surface   io.Surface // Output surface.
}

// TrapHandler services a trap.
type TrapHandler interface {
	Trap(frame *TrapFrame) (action TrapAction, err error)
}

// TrapFunc adapts a function to a TrapHandler.
type TrapFunc func(frame *TrapFrame) (TrapAction, error)

func (fn TrapFunc) Trap(frame *TrapFrame) (TrapAction, error) {
	return fn(frame)
}

// Trap is an entry of the trap table.
type Trap struct {
	Name    string
	Handler TrapHandler
}

// TrapTable maps trap numbers to handlers.
type TrapTable [TRAP_COUNT]Trap

// Set installs a handler for a trap number.
func (tt *TrapTable) Set(number int, name string, handler TrapHandler) (err error) {
	if number < 0 || number >= len(tt) {
		err = ErrTrapNumber(number)
		return
	}

	tt[number] = Trap{Name: name, Handler: handler}

	return
}

// Get returns the trap for a trap number.
func (tt *TrapTable) Get(number int64) (trap Trap, err error) {
	if number < 0 || number >= int64(len(tt)) || tt[number].Handler == nil {
		err = ErrTrapNumber(number)
		return
	}

	trap = tt[number]

	return
}

// Defines returns the trap names as assembler defines.
func (tt *TrapTable) Defines() map[string]string {
	defines := map[string]string{}
	for n, trap := range tt {
		if trap.Handler == nil || len(trap.Name) == 0 {
			continue
		}
		defines[trap.Name] = fmt.Sprintf("%d", n)
	}
	return defines
}

// diagnostic is the default trap handler: it reports the trap number.
func diagnostic(frame *TrapFrame) (action TrapAction, err error) {
	log.Printf("trap: %d", frame.Number)
	err = frame.Surface.Write(f("Trap %d\n", frame.Number))
	return
}

// DefaultTraps returns a table where every trap reports its number.
func DefaultTraps() (tt TrapTable) {
	for n := range tt {
		tt[n] = Trap{
			Name:    fmt.Sprintf("TRAP_%d", n),
			Handler: TrapFunc(diagnostic),
		}
	}
	return
}

// Console trap numbers.
const (
	TRAP_PUTN    = 0 // Write r1 in decimal.
	TRAP_PUTC    = 1 // Write r1 as a character.
	TRAP_NEWLINE = 2 // Write a newline.
	TRAP_PLOT    = 3 // Plot pixel (r1, r2) with colour r3.
	TRAP_EXIT    = 4 // Halt the machine.
)

// ConsoleTraps returns the default table with a small console service set
// installed in the low trap numbers.
func ConsoleTraps() (tt TrapTable) {
	tt = DefaultTraps()

	tt[TRAP_PUTN] = Trap{Name: "TRAP_PUTN", Handler: TrapFunc(func(frame *TrapFrame) (TrapAction, error) {
		return TRAP_CONTINUE, frame.Surface.Write(fmt.Sprintf("%d", frame.Registers[1]))
	})}
	tt[TRAP_PUTC] = Trap{Name: "TRAP_PUTC", Handler: TrapFunc(func(frame *TrapFrame) (TrapAction, error) {
		return TRAP_CONTINUE, frame.Surface.Write(string(rune(frame.Registers[1])))
	})}
	tt[TRAP_NEWLINE] = Trap{Name: "TRAP_NEWLINE", Handler: TrapFunc(func(frame *TrapFrame) (TrapAction, error) {
		return TRAP_CONTINUE, frame.Surface.Write("\n")
	})}
	tt[TRAP_PLOT] = Trap{Name: "TRAP_PLOT", Handler: TrapFunc(func(frame *TrapFrame) (TrapAction, error) {
		op := io.PixelOp{
			X:     int(frame.Registers[1]),
			Y:     int(frame.Registers[2]),
			Color: uint32(frame.Registers[3]),
		}
		return TRAP_CONTINUE, frame.Surface.Render(op)
	})}
	tt[TRAP_EXIT] = Trap{Name: "TRAP_EXIT", Handler: TrapFunc(func(frame *TrapFrame) (TrapAction, error) {
		return TRAP_HALT, nil
	})}

	return
}
