// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

const (
	MEMORY_SIZE = 64 * 1024 // Default memory size, in cells.
)

// Memory is a flat array of register-width cells.
type Memory []int64

// NewMemory allocates a memory of size cells.
func NewMemory(size int) Memory {
	return make(Memory, size)
}

// Valid returns true if addr is within memory.
func (mem Memory) Valid(addr int64) bool {
	return addr >= 0 && addr < int64(len(mem))
}

// Read returns the cell at addr.
func (mem Memory) Read(addr int64) (value int64, err error) {
	if !mem.Valid(addr) {
		err = ErrMemoryAddress(addr)
		return
	}
	value = mem[addr]
	return
}

// Write sets the cell at addr.
func (mem Memory) Write(addr int64, value int64) (err error) {
	if !mem.Valid(addr) {
		err = ErrMemoryAddress(addr)
		return
	}
	mem[addr] = value
	return
}

// Reset zeros all of memory.
func (mem Memory) Reset() {
	clear(mem)
}
