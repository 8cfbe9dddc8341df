package script

// StackSize is the number of slots in a Stack.
const StackSize = 256

// stackFill is written into slots as they are popped.
const stackFill int16 = -1

// Stack is the operand stack shared by the conditional and arithmetic
// opcodes. The stack pointer starts at StackSize and grows downward.
//
// Push/pop discipline is the script's responsibility: a push onto a full
// stack is dropped and a pop from an empty stack yields 0.
type Stack struct {
	slots [StackSize]int16
	pos   int
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	s := &Stack{}
	s.Clear()
	return s
}

// Clear empties the stack.
func (s *Stack) Clear() {
	for i := range s.slots {
		s.slots[i] = stackFill
	}
	s.pos = StackSize
}

// Push pushes a value.
func (s *Stack) Push(value int16) {
	if s.pos <= 0 {
		return
	}
	s.pos--
	s.slots[s.pos] = value
}

// Pop removes and returns the top value, or 0 if the stack is empty.
func (s *Stack) Pop() int16 {
	if s.pos >= StackSize {
		return 0
	}
	value := s.slots[s.pos]
	s.slots[s.pos] = stackFill
	s.pos++
	return value
}

// Peek returns the top value without removing it, or 0 if the stack is empty.
func (s *Stack) Peek() int16 {
	if s.pos >= StackSize {
		return 0
	}
	return s.slots[s.pos]
}

// Len returns the number of values on the stack.
func (s *Stack) Len() int {
	return StackSize - s.pos
}

// Values returns the stack contents, bottom first.
func (s *Stack) Values() []int16 {
	if s.Len() == 0 {
		return nil
	}
	out := make([]int16, 0, s.Len())
	for i := StackSize - 1; i >= s.pos; i-- {
		out = append(out, s.slots[i])
	}
	return out
}
