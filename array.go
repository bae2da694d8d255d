package bson

import (
	"bytes"
	"strconv"

	"github.com/ikmak/bson/llbson"
)

// Arr represents a BSON array. On the wire an array is a document whose keys
// are the decimal element indexes, "0", "1", and so on; Arr carries only the
// values and synthesizes the keys when encoding.
type Arr []Val

// String implements the fmt.Stringer interface.
func (a Arr) String() string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for idx, val := range a {
		if idx > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(val.String())
	}
	buf.WriteByte(']')
	return buf.String()
}

// Equal compares a to a2 and returns true if they are equal.
func (a Arr) Equal(a2 Arr) bool {
	if len(a) != len(a2) {
		return false
	}
	for idx := range a {
		if !a[idx].Equal(a2[idx]) {
			return false
		}
	}
	return true
}

// appendDocument encodes the array as its document wire form, keyed by element
// index, onto dst.
func (a Arr) appendDocument(dst []byte) ([]byte, error) {
	index, dst := llbson.ReserveLength(dst)
	for idx, val := range a {
		dst = llbson.AppendHeader(dst, val.Type(), strconv.Itoa(idx))
		var err error
		dst, err = val.append(dst)
		if err != nil {
			return dst, err
		}
	}
	dst = append(dst, 0x00)
	return llbson.UpdateLength(dst, index, int32(len(dst[index:]))), nil
}

// readArr decodes the document wire form of an array. Keys are not inspected;
// values are taken in wire order.
func readArr(raw []byte) (Arr, error) {
	if len(raw) < 5 {
		return nil, NewErrTooSmall()
	}
	if raw[len(raw)-1] != 0x00 {
		return nil, ErrInvalidLength
	}
	arr := make(Arr, 0)
	rem := raw[4 : len(raw)-1]
	for len(rem) > 0 {
		t, _, after, ok := llbson.ReadHeader(rem)
		if !ok {
			return nil, NewErrTooSmall()
		}
		val, after, err := readValue(t, after)
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)
		rem = after
	}
	return arr, nil
}
