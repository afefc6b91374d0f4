// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

// Stack is the operand and return address stack.
type Stack struct {
	Limit int // Maximum stack depth, or 0 for unbounded.
	Data  []int64
}

func (s *Stack) Push(value int64) {
	s.Data = append(s.Data, value)
}

func (s *Stack) Pop() (value int64, ok bool) {
	value, ok = s.Peek()
	if ok {
		s.Data = s.Data[:len(s.Data)-1]
	}
	return
}

func (s *Stack) Empty() bool {
	return len(s.Data) == 0
}

func (s *Stack) Full() bool {
	return s.Limit > 0 && len(s.Data) >= s.Limit
}

func (s *Stack) Depth() int {
	return len(s.Data)
}

func (s *Stack) Peek() (value int64, ok bool) {
	if s.Empty() {
		return
	}

	return s.Data[len(s.Data)-1], true
}

func (s *Stack) Reset() {
	if len(s.Data) > 0 {
		s.Data = s.Data[:0]
	}
}
