package hmcts

import (
	"fmt"
)

const (
	rootFrom      = -1
	primitiveFrom = -2
)

// Option is a macro-action. Option{From: f, To: t} navigates from abstract
// region f toward region t; primitive options wrap a single ground action
// and the root task stands for the whole problem.
type Option struct {
	From int
	To   int
}

var RootTask = Option{From: rootFrom, To: 0}

func Primitive(action int) Option {
	return Option{From: primitiveFrom, To: action}
}

func (o Option) IsPrimitive() bool {
	return o.From == primitiveFrom
}

func (o Option) IsRoot() bool {
	return o.From == rootFrom
}

// Action is the ground action of a primitive option.
func (o Option) Action() int {
	if !o.IsPrimitive() {
		panic(fmt.Sprintf("BUG: %v is not primitive", o))
	}
	return o.To
}

func (o Option) String() string {
	switch {
	case o.IsRoot():
		return "root"
	case o.IsPrimitive():
		return fmt.Sprintf("a%d", o.To)
	default:
		return fmt.Sprintf("(%d->%d)", o.From, o.To)
	}
}

// CallStack holds the options currently being executed, innermost on top.
type CallStack struct {
	options []Option
}

func (s *CallStack) Push(o Option) {
	s.options = append(s.options, o)
}

func (s *CallStack) Pop() Option {
	if len(s.options) == 0 {
		panic("BUG: pop from an empty call stack")
	}
	o := s.options[len(s.options)-1]
	s.options = s.options[:len(s.options)-1]
	return o
}

func (s *CallStack) Top() Option {
	if len(s.options) == 0 {
		panic("BUG: top of an empty call stack")
	}
	return s.options[len(s.options)-1]
}

func (s *CallStack) Len() int {
	return len(s.options)
}

func (s *CallStack) Empty() bool {
	return len(s.options) == 0
}

// Reset leaves only root on the stack.
func (s *CallStack) Reset(root Option) {
	s.options = append(s.options[:0], root)
}

// Options returns the stack bottom first.
func (s *CallStack) Options() []Option {
	return s.options
}
