// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	REGISTER_COUNT = 16 // Number of general purpose registers.

	REG_FLAG = 0  // R0 holds the comparison result.
	REG_PC   = 15 // R15 is the program counter.
)

// Registers is the register bank, indexed 0..15.
type Registers [REGISTER_COUNT]int64

// Flag returns the comparison register.
func (regs *Registers) Flag() int64 {
	return regs[REG_FLAG]
}

// Pc returns the program counter.
func (regs *Registers) Pc() int64 {
	return regs[REG_PC]
}

// ValidRegister returns true if index names one of r0..r15.
func ValidRegister(index int64) bool {
	return index >= 0 && index < REGISTER_COUNT
}

// RegisterName returns the assembler name of a register.
func RegisterName(index int) string {
	return fmt.Sprintf("r%d", index)
}

// ParseRegister parses 'r0'..'r15', 'flag' or 'pc'.
func ParseRegister(word string) (index int, ok bool) {
	word = strings.ToLower(word)
	switch word {
	case "flag":
		return REG_FLAG, true
	case "pc":
		return REG_PC, true
	}

	if len(word) < 2 || word[0] != 'r' {
		return
	}

	n, err := strconv.Atoi(word[1:])
	if err != nil || !ValidRegister(int64(n)) {
		return
	}

	// Reject 'r01' style spellings.
	if RegisterName(n) != word {
		return
	}

	return n, true
}
