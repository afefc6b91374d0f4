package cpu

import (
	"errors"

	"github.com/ezrec/mimari/translate"
)

var f = translate.From

var (
	// Machine faults
	ErrDecode           = errors.New(f("decode"))
	ErrFetchOutOfBounds = errors.New(f("fetch out of bounds"))
	ErrDivideByZero     = errors.New(f("divide by zero"))
	ErrStackUnderflow   = errors.New(f("stack underflow"))
	ErrStackOverflow    = errors.New(f("stack overflow"))
	ErrTrap             = errors.New(f("trap"))
	ErrMemoryFault      = errors.New(f("memory fault"))
	ErrNotRunnable      = errors.New(f("machine not runnable"))

	// Program image errors
	ErrImageMagic     = errors.New(f("image magic invalid"))
	ErrImageVersion   = errors.New(f("image version unsupported"))
	ErrImageTruncated = errors.New(f("image truncated"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrLabelSyntax        = errors.New(f("label syntax"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrMacroRecursion     = errors.New(f(".macro expansion too deep"))
)

// ErrOpcodeUnknown is a decode error for an opcode absent from the instruction set.
type ErrOpcodeUnknown Opcode

func (eo ErrOpcodeUnknown) Error() string {
	return f("bad opcode 0x%04x", uint16(eo))
}

func (eo ErrOpcodeUnknown) Is(err error) bool {
	return err == ErrDecode
}

// ErrOperandCount is a decode error for an operand count mismatch.
type ErrOperandCount struct {
	Opcode Opcode
	Want   int
	Have   int
}

func (err *ErrOperandCount) Error() string {
	return f("%v needs %d operands, has %d", err.Opcode, err.Want, err.Have)
}

func (err *ErrOperandCount) Is(target error) bool {
	return target == ErrDecode
}

// ErrRegisterInvalid is a decode error for a register operand outside r0..r15.
type ErrRegisterInvalid int64

func (er ErrRegisterInvalid) Error() string {
	return f("register %d invalid", int64(er))
}

func (er ErrRegisterInvalid) Is(err error) bool {
	return err == ErrDecode
}

// ErrMemoryAddress is a memory fault at an address.
type ErrMemoryAddress int64

func (em ErrMemoryAddress) Error() string {
	return f("address %d out of range", int64(em))
}

func (em ErrMemoryAddress) Is(err error) bool {
	return err == ErrMemoryFault
}

// ErrTrapNumber is a trap error for an undefined trap number.
type ErrTrapNumber int64

func (et ErrTrapNumber) Error() string {
	return f("trap %d undefined", int64(et))
}

func (et ErrTrapNumber) Is(err error) bool {
	return err == ErrTrap
}

// ErrTrapHandler wraps an error returned by a trap handler.
type ErrTrapHandler struct {
	Number int
	Err    error
}

func (err *ErrTrapHandler) Error() string {
	return f("trap %d: %v", err.Number, err.Err)
}

func (err *ErrTrapHandler) Is(target error) bool {
	return target == ErrTrap
}

func (err *ErrTrapHandler) Unwrap() error {
	return err.Err
}

// Fault is the terminal error of a machine, with the program counter
// and instruction at the time of the fault.
type Fault struct {
	Pc          int64
	Instruction *Instruction // nil if the fault happened during fetch.
	Err         error
}

func (err *Fault) Error() string {
	if err.Instruction == nil {
		return f("pc %d: %v", err.Pc, err.Err)
	}
	return f("pc %d '%v': %v", err.Pc, err.Instruction.String(), err.Err)
}

func (err *Fault) Unwrap() error {
	return err.Err
}

// ErrLabelMissing is an assembler error for a jump to an undefined label.
type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrOpcodeInvalid is an assembler error for an unknown mnemonic.
type ErrOpcodeInvalid string

func (eo ErrOpcodeInvalid) Error() string {
	return f("opcode '%v' invalid", string(eo))
}

// ErrRegisterName is an assembler error for a word that is not a register.
type ErrRegisterName string

func (er ErrRegisterName) Error() string {
	return f("'%v' is not a register", string(er))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
