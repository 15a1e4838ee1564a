package ioplus

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned before any bus traffic when a stack,
	// channel or value is outside its documented range.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTransport wraps failures of the underlying bus.
	ErrTransport = errors.New("transport failure")

	// ErrSpuriousRead means the debounced read never saw two agreeing samples.
	ErrSpuriousRead = errors.New("spurious read detected")
)

// OpError describes a failed driver operation.
type OpError struct {
	Op      string
	Stack   int
	Channel int // 0 when the operation addresses the whole board
	Kind    error
	Err     error
}

func (e *OpError) Error() string {
	where := fmt.Sprintf("stack %d", e.Stack)
	if e.Channel > 0 {
		where = fmt.Sprintf("stack %d channel %d", e.Stack, e.Channel)
	}
	if e.Err == nil {
		return fmt.Sprintf("ioplus %s (%s): %v", e.Op, where, e.Kind)
	}
	return fmt.Sprintf("ioplus %s (%s): %v: %v", e.Op, where, e.Kind, e.Err)
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func invalid(op string, stack, channel int, format string, args ...any) error {
	return &OpError{
		Op:      op,
		Stack:   stack,
		Channel: channel,
		Kind:    ErrInvalidArgument,
		Err:     fmt.Errorf(format, args...),
	}
}

// IsInvalidArgument reports whether err was raised by argument validation.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsSpuriousRead reports whether err came from an exhausted debounce loop.
func IsSpuriousRead(err error) bool {
	return errors.Is(err, ErrSpuriousRead)
}

// IsTransport reports whether err came from the bus.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
