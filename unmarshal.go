package bson

import "github.com/ikmak/bson/bsontype"

// Unmarshaler describes a type that can unmarshal itself from a complete BSON
// document.
type Unmarshaler interface {
	UnmarshalBSON([]byte) error
}

// ValueUnmarshaler describes a type that can unmarshal itself from a single
// BSON value.
type ValueUnmarshaler interface {
	UnmarshalBSONValue(Val) error
}

// Unmarshal parses the BSON document data and stores the result in the value
// pointed to by val.
func Unmarshal(data []byte, val interface{}) error {
	return UnmarshalWithRegistry(defaultRegistry, data, val)
}

// UnmarshalWithRegistry is the same as Unmarshal, using the provided Registry
// instead of the default one.
func UnmarshalWithRegistry(r *Registry, data []byte, val interface{}) error {
	doc, err := ReadDocument(data)
	if err != nil {
		return err
	}
	return decodeValue(DecodeContext{Registry: r}, VC.Document(doc), val)
}

// UnmarshalValue parses a single BSON value of type t from data and stores the
// result in the value pointed to by val. Decoding into a *Val stores the value
// unchanged, with no numeric coercion.
func UnmarshalValue(t bsontype.Type, data []byte, val interface{}) error {
	return UnmarshalValueWithRegistry(defaultRegistry, t, data, val)
}

// UnmarshalValueWithRegistry is the same as UnmarshalValue, using the provided
// Registry instead of the default one.
func UnmarshalValueWithRegistry(r *Registry, t bsontype.Type, data []byte, val interface{}) error {
	v, _, err := readValue(t, data)
	if err != nil {
		return err
	}
	return decodeValue(DecodeContext{Registry: r}, v, val)
}
