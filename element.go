package bson

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-stack/stack"

	"github.com/ikmak/bson/llbson"
)

// ErrTooSmall indicates that a byte slice did not hold enough bytes for the
// value it was declared to contain.
type ErrTooSmall struct {
	Stack stack.CallStack
}

// NewErrTooSmall creates a new ErrTooSmall with the current stack.
func NewErrTooSmall() ErrTooSmall {
	return ErrTooSmall{Stack: stack.Trace().TrimRuntime()}
}

// Error implements the error interface.
func (e ErrTooSmall) Error() string {
	return "too small"
}

// ErrorStack returns a string representing the stack at the point where the
// error occurred.
func (e ErrTooSmall) ErrorStack() string {
	s := bytes.NewBufferString("too small: [")

	for i, call := range e.Stack {
		if i != 0 {
			s.WriteString(", ")
		}

		// go vet doesn't like %k even though it's part of stack's API, so we move the format
		// string so it doesn't complain. (We also can't make it a constant, or go vet still
		// complains.)
		callFormat := "%k.%n %v"

		s.WriteString(fmt.Sprintf(callFormat, call, call, call))
	}

	s.WriteRune(']')

	return s.String()
}

// Equals checks that err2 also is an ErrTooSmall.
func (e ErrTooSmall) Equals(err2 error) bool {
	switch err2.(type) {
	case ErrTooSmall:
		return true
	default:
		return false
	}
}

// ElementTypeError specifies that a method to obtain a BSON value of one type
// was called on a value of another type.
type ElementTypeError struct {
	Method string
	Type   Type
}

// Error implements the error interface.
func (ete ElementTypeError) Error() string {
	return "Call of " + ete.Method + " on " + ete.Type.String() + " type"
}

// Element represents a BSON element, i.e. a key-value pair of a BSON document.
type Element struct {
	Key   string
	Value Val
}

// Equal compares e to e2 and returns true if they are equal.
func (e Element) Equal(e2 Element) bool {
	return e.Key == e2.Key && e.Value.Equal(e2.Value)
}

// String implements the fmt.Stringer interface.
func (e Element) String() string {
	var buf strings.Builder
	buf.WriteByte('"')
	buf.WriteString(e.Key)
	buf.WriteString(`": `)
	buf.WriteString(e.Value.String())
	return buf.String()
}

// append encodes the full element wire form, the type byte, the
// null-terminated key, and the value bytes, onto dst.
func (e Element) append(dst []byte) ([]byte, error) {
	if err := validKey(e.Key); err != nil {
		return dst, err
	}
	dst = llbson.AppendHeader(dst, e.Value.Type(), e.Key)
	return e.Value.append(dst)
}

// validKey rejects keys a BSON document cannot carry: the empty key and keys
// containing a NUL byte, which would terminate the key early on the wire.
func validKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.IndexByte(key, 0x00) != -1 {
		return ErrInvalidKey
	}
	return nil
}
