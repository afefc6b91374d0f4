package cpu

//go:generate mockgen -write_package_comment=false -package=$GOPACKAGE -destination=mock_surface_test.go github.com/ezrec/mimari/io Surface

import (
	"errors"
	"fmt"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/ezrec/mimari/io"
)

// newMachine creates a small machine with the program loaded.
func newMachine(t *testing.T, ins ...Instruction) (m *Machine) {
	m = NewMachine(256)
	err := m.Load(NewProgram(ins...))
	assert.NoError(t, err)
	return
}

func TestMachine_New(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine(1024)
	assert.Equal(STATE_READY, m.State)
	assert.Equal(1024, len(m.Memory))
	assert.Equal(0, m.Program.Len())
	assert.True(m.Stack.Empty())
	for n := range TRAP_COUNT {
		assert.NotNil(m.Traps[n].Handler)
	}
}

func TestMachine_Arithmetic(t *testing.T) {
	table := [](struct {
		name   string
		op     Opcode
		dest   int64
		src    int64
		expect int64
	}){
		{"add", OP_ADD, 3, 4, 7},
		{"add_negative", OP_ADD, 3, -10, -7},
		{"sub", OP_SUB, 3, 4, -1},
		{"mul", OP_MUL, -6, 7, -42},
		{"div", OP_DIV, 17, 5, 3},
		{"div_truncate", OP_DIV, -17, 5, -3},
		{"mov", OP_MOV, 99, -1, -1},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)

			m := newMachine(t, MakeInstruction(entry.op, 2, 3), MakeInstruction(OP_HLT))
			for n := range REGISTER_COUNT - 1 {
				m.Register[n] = int64(100 + n)
			}
			m.Register[2] = entry.dest
			m.Register[3] = entry.src
			before := m.Register

			err := m.Step()
			assert.NoError(err)

			assert.Equal(entry.expect, m.Register[2])
			for n := range REGISTER_COUNT {
				switch n {
				case 2:
				case REG_PC:
					assert.Equal(int64(1), m.Register[n])
				default:
					assert.Equal(before[n], m.Register[n], RegisterName(n))
				}
			}
		})
	}
}

func TestMachine_Cmp(t *testing.T) {
	assert := assert.New(t)

	values := []int64{-100, -1, 0, 1, 7, 100}

	for _, a := range values {
		for _, b := range values {
			m := newMachine(t,
				MakeInstruction(OP_CMP, 2, 3),
				MakeInstruction(OP_MOV, 4, 0),
				MakeInstruction(OP_CMP, 3, 2),
				MakeInstruction(OP_HLT),
			)
			m.Register[2] = a
			m.Register[3] = b

			err := m.Run()
			assert.NoError(err)

			ab := m.Register[4]
			ba := m.Register[REG_FLAG]
			switch {
			case a < b:
				assert.Equal(int64(-1), ab)
			case a > b:
				assert.Equal(int64(1), ab)
			default:
				assert.Equal(int64(0), ab)
			}
			assert.Equal(-ab, ba, fmt.Sprintf("cmp %d %d", a, b))
		}
	}
}

func TestMachine_Branch(t *testing.T) {
	table := [](struct {
		op    Opcode
		r0    int64
		r1    int64
		taken bool
	}){
		{OP_JMP, 0, 0, true},
		{OP_JZ, 0, 5, true},
		{OP_JZ, 1, 5, false},
		{OP_JNZ, 0, 5, false},
		{OP_JNZ, -1, 5, true},
		{OP_JE, 3, 3, true},
		{OP_JE, 3, 4, false},
		{OP_JNE, 3, 3, false},
		{OP_JNE, 3, 4, true},
		{OP_JL, 3, 4, true},
		{OP_JL, 4, 4, false},
		{OP_JLE, 4, 4, true},
		{OP_JLE, 5, 4, false},
		{OP_JG, 5, 4, true},
		{OP_JG, 4, 4, false},
		{OP_JGE, 4, 4, true},
		{OP_JGE, 3, 4, false},
	}

	for _, entry := range table {
		name := fmt.Sprintf("%v_%d_%d", entry.op, entry.r0, entry.r1)
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)

			m := newMachine(t,
				MakeInstruction(entry.op, 3),
				MakeInstruction(OP_HLT),
				MakeInstruction(OP_HLT),
				MakeInstruction(OP_HLT),
			)
			m.Register[0] = entry.r0
			m.Register[1] = entry.r1

			err := m.Step()
			assert.NoError(err)

			if entry.taken {
				assert.Equal(int64(3), m.Register.Pc())
			} else {
				assert.Equal(int64(1), m.Register.Pc())
			}
			assert.Equal(entry.r0, m.Register[0])
			assert.Equal(entry.r1, m.Register[1])
		})
	}
}

func TestMachine_PushPop(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t,
		MakeInstruction(OP_PUSH, 5),
		MakeInstruction(OP_POP, 6),
		MakeInstruction(OP_HLT),
	)
	m.Stack.Push(42)
	m.Register[5] = -77

	assert.NoError(m.Step())
	assert.Equal(2, m.Stack.Depth())

	assert.NoError(m.Step())
	assert.Equal(int64(-77), m.Register[6])
	assert.Equal(1, m.Stack.Depth())
	val, _ := m.Stack.Peek()
	assert.Equal(int64(42), val)
}

func TestMachine_StackUnderflow(t *testing.T) {
	for _, ins := range []Instruction{MakeInstruction(OP_POP, 4), MakeInstruction(OP_RET)} {
		t.Run(ins.Opcode.String(), func(t *testing.T) {
			assert := assert.New(t)

			m := newMachine(t, MakeInstruction(OP_NOP), ins, MakeInstruction(OP_HLT))
			m.Register[4] = 12

			assert.NoError(m.Step())
			err := m.Step()
			assert.ErrorIs(err, ErrStackUnderflow)
			assert.Equal(STATE_FAULTED, m.State)
			assert.True(m.Stack.Empty())
			assert.Equal(int64(12), m.Register[4])
			assert.Equal(int64(1), m.Register.Pc())

			var fault *Fault
			assert.True(errors.As(err, &fault))
			assert.Equal(int64(1), fault.Pc)
			assert.Equal(ins.Opcode, fault.Instruction.Opcode)
		})
	}
}

func TestMachine_StackOverflow(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t,
		MakeInstruction(OP_PUSH, 1),
		MakeInstruction(OP_JMP, 0),
	)
	m.Stack.Limit = 8

	err := m.Run()
	assert.ErrorIs(err, ErrStackOverflow)
	assert.Equal(8, m.Stack.Depth())
}

func TestMachine_CallRet(t *testing.T) {
	for _, depth := range []int{1, 2, 5, 50} {
		t.Run(fmt.Sprintf("depth_%d", depth), func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)

			// 0: call 2
			// 1: hlt
			// 2: call 4  ; repeated 'depth' times
			// 3: ret
			// ...
			// n: ret
			ins := []Instruction{
				MakeInstruction(OP_CALL, 2),
				MakeInstruction(OP_HLT),
			}
			for n := 1; n < depth; n++ {
				ins = append(ins,
					MakeInstruction(OP_CALL, int64(len(ins)+2)),
					MakeInstruction(OP_RET),
				)
			}
			ins = append(ins, MakeInstruction(OP_RET))

			m := newMachine(t, ins...)

			maxDepth := 0
			for !m.State.Terminal() {
				assert.NoError(m.Step())
				maxDepth = max(maxDepth, m.Stack.Depth())
			}

			assert.Equal(STATE_HALTED, m.State)
			assert.Equal(depth, maxDepth)
			assert.True(m.Stack.Empty())
			assert.Equal(int64(1), m.Register.Pc())
		})
	}
}

func TestMachine_CallReturnAddress(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t,
		MakeInstruction(OP_NOP),
		MakeInstruction(OP_CALL, 4),
		MakeInstruction(OP_HLT),
		MakeInstruction(OP_HLT),
		MakeInstruction(OP_RET),
	)

	assert.NoError(m.Step())
	assert.NoError(m.Step())
	assert.Equal(int64(4), m.Register.Pc())
	ret, ok := m.Stack.Peek()
	assert.True(ok)
	assert.Equal(int64(2), ret)

	assert.NoError(m.Step())
	assert.Equal(int64(2), m.Register.Pc())
}

func TestMachine_WriteProgramCounter(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t,
		MakeInstruction(OP_MOV, REG_PC, 2),
		MakeInstruction(OP_HLT),
		MakeInstruction(OP_HLT),
		MakeInstruction(OP_HLT),
	)
	m.Register[2] = 3

	assert.NoError(m.Step())
	assert.Equal(int64(3), m.Register.Pc())
}

func TestMachine_Trap(t *testing.T) {
	assert := assert.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	surface := NewMockSurface(ctrl)
	surface.EXPECT().Write("Trap 3\n").Return(nil).Times(1)

	m := newMachine(t, MakeInstruction(OP_TRAP, 3), MakeInstruction(OP_HLT))
	m.Surface = surface
	for n := range REGISTER_COUNT - 1 {
		m.Register[n] = int64(n * 3)
	}
	before := m.Register

	assert.NoError(m.Step())
	for n := range REGISTER_COUNT - 1 {
		assert.Equal(before[n], m.Register[n])
	}
	assert.Equal(int64(1), m.Register.Pc())
}

func TestMachine_TrapHandler(t *testing.T) {
	assert := assert.New(t)

	calls := map[int]int{}
	m := newMachine(t, MakeInstruction(OP_TRAP, 9), MakeInstruction(OP_HLT))
	for n := range TRAP_COUNT {
		m.Traps.Set(n, fmt.Sprintf("T%d", n), TrapFunc(func(frame *TrapFrame) (TrapAction, error) {
			calls[n]++
			assert.Equal(n, frame.Number)
			assert.Equal(int64(0), frame.Registers.Pc())
			frame.Registers[REG_PC] = 100 // Only a copy.
			return TRAP_CONTINUE, nil
		}))
	}

	assert.NoError(m.Run())
	assert.Equal(map[int]int{9: 1}, calls)
	assert.Equal(int64(1), m.Register.Pc())
}

func TestMachine_TrapHalt(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, MakeInstruction(OP_TRAP, TRAP_EXIT), MakeInstruction(OP_NOP))
	m.Traps = ConsoleTraps()

	assert.NoError(m.Run())
	assert.Equal(STATE_HALTED, m.State)
	assert.Equal(1, m.Ticks)
}

func TestMachine_TrapError(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, MakeInstruction(OP_TRAP, TRAP_COUNT), MakeInstruction(OP_HLT))
	err := m.Run()
	assert.ErrorIs(err, ErrTrap)
	assert.Equal(STATE_FAULTED, m.State)

	m = newMachine(t, MakeInstruction(OP_TRAP, -1), MakeInstruction(OP_HLT))
	assert.ErrorIs(m.Run(), ErrTrap)

	m = newMachine(t, MakeInstruction(OP_TRAP, 5), MakeInstruction(OP_HLT))
	m.Traps[5] = Trap{}
	assert.ErrorIs(m.Run(), ErrTrap)

	failure := errors.New("surface on fire")
	m = newMachine(t, MakeInstruction(OP_TRAP, 2), MakeInstruction(OP_HLT))
	m.Traps.Set(2, "FIRE", TrapFunc(func(frame *TrapFrame) (TrapAction, error) {
		return TRAP_CONTINUE, failure
	}))
	err = m.Run()
	assert.ErrorIs(err, ErrTrap)
	assert.ErrorIs(err, failure)
	assert.Equal(int64(0), m.Register.Pc())
}

func TestMachine_Scenario(t *testing.T) {
	assert := assert.New(t)

	surface := &io.Recorder{}
	m := newMachine(t,
		MakeInstruction(OP_ADD, 0, 5),
		MakeInstruction(OP_ADD, 1, 6),
		MakeInstruction(OP_MOV, 0, 1),
		MakeInstruction(OP_TRAP, 15),
		MakeInstruction(OP_HLT),
	)
	m.Surface = surface
	m.Register[0] = 10
	m.Register[1] = 20
	m.Register[5] = 3
	m.Register[6] = 4

	assert.NoError(m.Step())
	assert.Equal(int64(13), m.Register[0])
	assert.NoError(m.Step())
	assert.Equal(int64(24), m.Register[1])
	assert.NoError(m.Step())
	assert.Equal(int64(24), m.Register[0])
	assert.NoError(m.Run())

	assert.Equal("Trap 15\n", surface.String())
	assert.Equal(STATE_HALTED, m.State)
	assert.Equal(int64(4), m.Register.Pc())
	assert.Equal(5, m.Ticks)

	assert.ErrorIs(m.Step(), ErrNotRunnable)
}

func TestMachine_DivideByZero(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, MakeInstruction(OP_DIV, 2, 3), MakeInstruction(OP_HLT))
	m.Register[2] = 10

	err := m.Run()
	assert.ErrorIs(err, ErrDivideByZero)
	assert.Equal(STATE_FAULTED, m.State)
	assert.Equal(int64(10), m.Register[2])
	assert.Equal(int64(0), m.Register.Pc())
	assert.Equal(err, m.Fault)
}

func TestMachine_FetchOutOfBounds(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, MakeInstruction(OP_NOP), MakeInstruction(OP_NOP))

	err := m.Run()
	assert.ErrorIs(err, ErrFetchOutOfBounds)
	assert.Equal(STATE_FAULTED, m.State)

	var fault *Fault
	assert.True(errors.As(err, &fault))
	assert.Equal(int64(2), fault.Pc)
	assert.Nil(fault.Instruction)

	m = newMachine(t, MakeInstruction(OP_JMP, -4))
	assert.ErrorIs(m.Run(), ErrFetchOutOfBounds)
}

func TestMachine_Decode(t *testing.T) {
	table := [](struct {
		name string
		ins  Instruction
	}){
		{"unknown", MakeInstruction(Opcode(0x7777))},
		{"zero", MakeInstruction(Opcode(0))},
		{"few", MakeInstruction(OP_ADD, 1)},
		{"many", MakeInstruction(OP_HLT, 1)},
		{"register", MakeInstruction(OP_PUSH, 16)},
		{"negative_register", MakeInstruction(OP_MOV, -1, 0)},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			m := NewMachine(16)
			err := m.Load(NewProgram(MakeInstruction(OP_NOP), entry.ins))
			assert.ErrorIs(err, ErrDecode)

			var fault *Fault
			assert.True(errors.As(err, &fault))
			assert.Equal(int64(1), fault.Pc)

			// Programs built without Load are checked at execution.
			m.Program = NewProgram(entry.ins)
			m.Reset()
			err = m.Step()
			assert.ErrorIs(err, ErrDecode)
			assert.Equal(STATE_FAULTED, m.State)
		})
	}
}

func TestMachine_ExecuteInvalid(t *testing.T) {
	table := [](struct {
		name string
		ins  Instruction
	}){
		{"few", MakeInstruction(OP_ADD, 1)},
		{"none", MakeInstruction(OP_SET)},
		{"unknown", MakeInstruction(Opcode(0x7777), 1, 2)},
		{"register", MakeInstruction(OP_MOV, 3, 99)},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			m := newMachine(t, MakeInstruction(OP_NOP))
			m.Register[1] = 7
			before := m.Register

			halt, err := m.Execute(entry.ins)
			assert.ErrorIs(err, ErrDecode)
			assert.False(halt)
			assert.Equal(before, m.Register)
		})
	}
}

func TestMachine_Memory(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t,
		MakeInstruction(OP_SET, 1, 200),
		MakeInstruction(OP_SET, 2, -9),
		MakeInstruction(OP_STORE, 1, 2),
		MakeInstruction(OP_LOAD, 3, 1),
		MakeInstruction(OP_HLT),
	)

	assert.Equal(int64(OP_SET), m.Memory[0])
	assert.Equal(int64(OP_HLT), m.Memory[4])

	assert.NoError(m.Run())
	assert.Equal(int64(-9), m.Memory[200])
	assert.Equal(int64(-9), m.Register[3])

	m = newMachine(t,
		MakeInstruction(OP_SET, 1, 256),
		MakeInstruction(OP_LOAD, 3, 1),
	)
	m.Register[3] = 5
	err := m.Run()
	assert.ErrorIs(err, ErrMemoryFault)
	assert.Equal(int64(5), m.Register[3])
}

func TestMachine_Reset(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, MakeInstruction(OP_PUSH, 0), MakeInstruction(OP_DIV, 0, 1))
	assert.Error(m.Run())

	m.Reset()
	assert.Equal(STATE_READY, m.State)
	assert.Nil(m.Fault)
	assert.True(m.Stack.Empty())
	assert.Equal(int64(0), m.Register.Pc())
	assert.Equal(0, m.Ticks)
}

func TestMachine_Parallel(t *testing.T) {
	// count down from n in r2, summing into r3
	program := NewProgram(
		MakeInstruction(OP_SET, 4, 1),
		MakeInstruction(OP_MOV, 0, 2),
		MakeInstruction(OP_JZ, 6),
		MakeInstruction(OP_ADD, 3, 2),
		MakeInstruction(OP_SUB, 2, 4),
		MakeInstruction(OP_JMP, 1),
		MakeInstruction(OP_HLT),
	)

	for n := range 8 {
		t.Run(fmt.Sprintf("sum_%d", n*10), func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)

			m := NewMachine(16)
			assert.NoError(m.Load(program))
			m.Register[2] = int64(n * 10)

			assert.NoError(m.Run())
			total := n * 10 * (n*10 + 1) / 2
			assert.Equal(int64(total), m.Register[3])
		})
	}
}

func TestMachine_String(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, MakeInstruction(OP_HLT))
	m.Stack.Push(3)

	text := m.String()
	assert.Contains(text, "state: ready")
	assert.Contains(text, "   pc: 0000000000000000 (0)")
	assert.Contains(text, "stack: 0000000000000003 (3) depth 1")
}

func TestMachine_Defines(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine(32)
	defines := map[string]string{}
	for key, value := range m.Defines() {
		defines[key] = value
	}

	assert.Equal("32", defines["MEMORY_SIZE"])
	assert.Equal("15", defines["REG_PC"])
	assert.Equal("7", defines["TRAP_7"])
}
