package bson

import (
	"fmt"

	"github.com/ikmak/bson/bsontype"
)

// Marshaler describes a type that can marshal a BSON representation of itself
// as a complete document.
type Marshaler interface {
	MarshalBSON() ([]byte, error)
}

// ValueMarshaler describes a type that can marshal a BSON representation of
// itself as a single value.
type ValueMarshaler interface {
	MarshalBSONValue() (Val, error)
}

// Marshal returns the BSON encoding of val. The value must encode to a
// document: a struct, a map with string keys, a *Document, or a Marshaler.
func Marshal(val interface{}) ([]byte, error) {
	return MarshalWithRegistry(defaultRegistry, val)
}

// MarshalWithRegistry is the same as Marshal, using the provided Registry
// instead of the default one.
func MarshalWithRegistry(r *Registry, val interface{}) ([]byte, error) {
	if m, ok := val.(Marshaler); ok {
		raw, err := m.MarshalBSON()
		if err != nil {
			return nil, err
		}
		// A Marshaler may legally produce an empty document nested inside a
		// container, but at the top level an absent document is an encoder
		// implementation error.
		if len(raw) == 0 {
			return nil, InvalidValueError{Value: val, Msg: "top-level Marshaler produced no document"}
		}
		if err := validateDocument(raw, 0); err != nil {
			return nil, err
		}
		return raw, nil
	}

	v, err := encodeValue(EncodeContext{Registry: r}, val)
	if err != nil {
		return nil, err
	}
	doc, ok := v.DocumentOK()
	if !ok {
		return nil, fmt.Errorf("cannot marshal a %s as a top-level document", v.Type())
	}
	return doc.MarshalBSON()
}

// MarshalValue encodes val as a single BSON value, returning its type and its
// value bytes without any enclosing document. Scalars and arrays can be
// encoded this way directly.
func MarshalValue(val interface{}) (bsontype.Type, []byte, error) {
	return MarshalValueWithRegistry(defaultRegistry, val)
}

// MarshalValueWithRegistry is the same as MarshalValue, using the provided
// Registry instead of the default one.
func MarshalValueWithRegistry(r *Registry, val interface{}) (bsontype.Type, []byte, error) {
	v, err := encodeValue(EncodeContext{Registry: r}, val)
	if err != nil {
		return 0, nil, err
	}
	data, err := v.append(nil)
	if err != nil {
		return 0, nil, err
	}
	return v.Type(), data, nil
}
