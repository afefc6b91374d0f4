// Package cpu implements the register machine and assembler for the mimari system.
//
// The machine consists of sixteen 64-bit registers (r0-r15), where r0 doubles
// as the comparison flag and r15 is the program counter, a stack for
// operands and return addresses, a flat cell memory, and a sixteen entry trap
// table. Programs are sequences of decoded instructions, validated against the
// instruction set table before they run.
//
// The assembler provides a small assembly language for the instruction set,
// supporting labels, equates, macros, and compile-time expression evaluation.
// Programs also round trip through a compact binary image (WriteImage,
// ReadImage).
package cpu
