// Package bsontype contains the BSON wire type tags. Every BSON value variant
// maps to exactly one tag byte and that mapping is used both when writing
// elements and when dispatching reads. The zero value is the reserved invalid
// sentinel, which doubles as the document terminator byte on the wire.
package bsontype

// Type represents a BSON type tag byte.
type Type byte

// The BSON types. These constants are the element type bytes defined by the
// BSON specification.
const (
	Double           Type = 0x01
	String           Type = 0x02
	EmbeddedDocument Type = 0x03
	Array            Type = 0x04
	Binary           Type = 0x05
	Undefined        Type = 0x06
	ObjectID         Type = 0x07
	Boolean          Type = 0x08
	DateTime         Type = 0x09
	Null             Type = 0x0A
	Regex            Type = 0x0B
	DBPointer        Type = 0x0C
	JavaScript       Type = 0x0D
	Symbol           Type = 0x0E
	CodeWithScope    Type = 0x0F
	Int32            Type = 0x10
	Timestamp        Type = 0x11
	Int64            Type = 0x12
	Decimal128       Type = 0x13
	MinKey           Type = 0xFF
	MaxKey           Type = 0x7F
)

// String implements the fmt.Stringer interface.
func (bt Type) String() string {
	switch bt {
	case Double:
		return "double"
	case String:
		return "string"
	case EmbeddedDocument:
		return "embedded document"
	case Array:
		return "array"
	case Binary:
		return "binary"
	case Undefined:
		return "undefined"
	case ObjectID:
		return "objectID"
	case Boolean:
		return "boolean"
	case DateTime:
		return "UTC datetime"
	case Null:
		return "null"
	case Regex:
		return "regex"
	case DBPointer:
		return "dbPointer"
	case JavaScript:
		return "javascript"
	case Symbol:
		return "symbol"
	case CodeWithScope:
		return "code with scope"
	case Int32:
		return "32-bit integer"
	case Timestamp:
		return "timestamp"
	case Int64:
		return "64-bit integer"
	case Decimal128:
		return "decimal128"
	case MinKey:
		return "min key"
	case MaxKey:
		return "max key"
	default:
		return "invalid"
	}
}

// IsValid returns true if bt is one of the type bytes defined by the BSON
// specification.
func (bt Type) IsValid() bool {
	switch bt {
	case Double, String, EmbeddedDocument, Array, Binary, Undefined, ObjectID,
		Boolean, DateTime, Null, Regex, DBPointer, JavaScript, Symbol,
		CodeWithScope, Int32, Timestamp, Int64, Decimal128, MinKey, MaxKey:
		return true
	default:
		return false
	}
}
