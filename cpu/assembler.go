// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const (
	MACRO_DEPTH = 64 // Maximum nesting of macro expansions.
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":         "0",
	"REGISTER_COUNT": fmt.Sprintf("%d", REGISTER_COUNT),
	"TRAP_COUNT":     fmt.Sprintf("%d", TRAP_COUNT),
}

// link is an operand waiting for a label address.
type link struct {
	Index   int    // Instruction index.
	Operand int    // Operand index.
	Label   string // Label to resolve.
	LineNo  int    // Source line, for errors.
}

// Assembler is a single pass macro assembler for the mimari machine.
type Assembler struct {
	Verbose bool // If set, verbosely logs the assembler actions.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of jump labels to instruction indexes.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	instructions []Instruction
	lines        []int
	links        []link
	expansions   int // Macro expansion counter, for '@' local labels.
	expanding    int // Current macro expansion depth.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	invert := false
	if strings.HasPrefix(word, "~") {
		invert = true
		word = word[1:]
	}

	value, err = strconv.ParseInt(word, 0, 64)
	if err != nil {
		// Allow full width hexadecimal bit patterns.
		var u64 uint64
		u64, err = strconv.ParseUint(word, 0, 64)
		if err != nil {
			err = ErrParseNumber(word)
			return
		}
		value = int64(u64)
	}

	if invert {
		value = ^value
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value64 int64
		value64, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt64(value64)
	}
	for key, ip := range asm.Label {
		_, ok := pred[key]
		if !ok {
			pred[key] = starlark.MakeInt(ip)
		}
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
)

// splitWords splits a line on spaces and commas.
func splitWords(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
}

// parseLine expands a single line into words, handling equates, labels,
// and macros.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})
	if err != nil {
		return
	}

	words = splitWords(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		if len(label) == 0 {
			err = ErrLabelSyntax
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		asm.Label[label] = len(asm.instructions)
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = args[n]
		}
		defer func() { asm.Equate = old_equate }()

		if asm.expanding >= MACRO_DEPTH {
			err = &ErrMacro{Macro: name, Line: macro.LineNo, Err: ErrMacroRecursion}
			return
		}
		asm.expanding++
		defer func() { asm.expanding-- }()

		asm.expansions++
		local := fmt.Sprintf("%v_%v_", name, asm.expansions)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err == nil {
				err = asm.parseWords(words, lineno)
			}
			if err != nil {
				if !errors.Is(err, ErrMacroRecursion) {
					err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				}
				return
			}
		}

		words = nil
		return
	}

	return
}

// parseOperand parses one operand word of the given kind.
// Address and immediate operands may name a label, which is returned
// for linking once all labels are known.
func (asm *Assembler) parseOperand(kind OperandKind, word string) (value int64, label string, err error) {
	switch kind {
	case OPERAND_REG:
		reg, ok := ParseRegister(word)
		if !ok {
			err = ErrRegisterName(word)
			return
		}
		value = int64(reg)
	case OPERAND_ADDR, OPERAND_IMM:
		value, err = asm.valueOf(word)
		if err != nil {
			ip, ok := asm.Label[word]
			switch {
			case ok:
				value = int64(ip)
				err = nil
			case isLabel(word):
				label = word
				err = nil
			}
		}
	case OPERAND_TRAP:
		value, err = asm.valueOf(word)
	}

	return
}

var reLabel = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)

// isLabel returns true if word could be a label.
func isLabel(word string) bool {
	return reLabel.MatchString(word)
}

// parseWords converts a list of words into an instruction.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	if len(words) == 0 {
		return
	}

	op, ok := ParseOpcode(words[0])
	if !ok {
		err = ErrOpcodeInvalid(words[0])
		return
	}

	spec, _ := Lookup(op)
	args := words[1:]
	if len(args) > spec.Operands() {
		err = ErrOpcodeExtraArgs
		return
	}
	if len(args) < spec.Operands() {
		err = ErrOpcodeValueMissing
		return
	}

	ins := Instruction{Opcode: op}
	if spec.Operands() > 0 {
		ins.Operands = make([]int64, spec.Operands())
	}
	for n, kind := range spec.Kinds {
		var label string
		ins.Operands[n], label, err = asm.parseOperand(kind, args[n])
		if err != nil {
			return
		}
		if len(label) != 0 {
			asm.links = append(asm.links, link{
				Index:   len(asm.instructions),
				Operand: n,
				Label:   label,
				LineNo:  lineno,
			})
		}
	}

	if asm.Verbose {
		log.Printf("asm: %03d: %v", len(asm.instructions), ins)
	}

	asm.instructions = append(asm.instructions, ins)
	asm.lines = append(asm.lines, lineno)

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.instructions = nil
	asm.lines = nil
	asm.links = nil
	asm.expansions = 0
	asm.expanding = 0
	asm.Label = make(map[string]int, 16)
	asm.Macro = make(map[string](*Macro))
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, asm.predefine)

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.SplitN(text, ";", 2)
		line = strings.TrimSpace(text_comment[0])
		words := splitWords(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
				Args:   slices.Clone(words[2:]),
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of jump labels.
	for _, lk := range asm.links {
		ip, ok := asm.Label[lk.Label]
		if !ok {
			lineno = lk.LineNo
			line = asm.instructions[lk.Index].String()
			err = ErrLabelMissing(lk.Label)
			return
		}
		asm.instructions[lk.Index].Operands[lk.Operand] = int64(ip)
	}

	prog = &Program{
		Instructions: slices.Clone(asm.instructions),
		Lines:        slices.Clone(asm.lines),
	}

	return
}
