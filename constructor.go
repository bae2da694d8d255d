package bson

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/ikmak/bson/bsontype"
	"github.com/ikmak/bson/decimal"
	"github.com/ikmak/bson/objectid"
)

// EC is a convenience variable provided for access to the ElementConstructor
// methods.
var EC ElementConstructor

// VC is a convenience variable provided for access to the ValueConstructor
// methods.
var VC ValueConstructor

// ElementConstructor is used as a namespace for Element constructor functions.
type ElementConstructor struct{}

// ValueConstructor is used as a namespace for Val constructor functions.
type ValueConstructor struct{}

// Double constructs a BSON double Value.
func (ValueConstructor) Double(f64 float64) Val {
	v := Val{t: bsontype.Double}
	binary.LittleEndian.PutUint64(v.bootstrap[0:8], math.Float64bits(f64))
	return v
}

// String constructs a BSON string Value.
func (ValueConstructor) String(str string) Val {
	return Val{t: bsontype.String}.writestring(str)
}

// Document constructs a Value from the given document. A nil document becomes
// a BSON null.
func (ValueConstructor) Document(d *Document) Val {
	if d == nil {
		return VC.Null()
	}
	return Val{t: bsontype.EmbeddedDocument, primitive: d}
}

// DocumentFromElements constructs a Value from the given elements.
func (ValueConstructor) DocumentFromElements(elems ...Element) Val {
	return VC.Document(NewDocument(elems...))
}

// Array constructs a Value from the given array. A nil array becomes an empty
// BSON array.
func (ValueConstructor) Array(a Arr) Val {
	if a == nil {
		a = Arr{}
	}
	return Val{t: bsontype.Array, primitive: a}
}

// ArrayFromValues constructs a Value from the given values.
func (ValueConstructor) ArrayFromValues(vals ...Val) Val {
	return VC.Array(Arr(vals))
}

// Binary constructs a BSON binary Value with the generic subtype.
func (ValueConstructor) Binary(data []byte) Val {
	return VC.BinaryWithSubtype(data, 0x00)
}

// BinaryWithSubtype constructs a BSON binary Value with the given subtype.
func (ValueConstructor) BinaryWithSubtype(data []byte, subtype byte) Val {
	return Val{t: bsontype.Binary, primitive: Binary{Subtype: subtype, Data: data}}
}

// Undefined constructs a BSON undefined Value.
func (ValueConstructor) Undefined() Val {
	return Val{t: bsontype.Undefined}
}

// ObjectID constructs a BSON objectid Value.
func (ValueConstructor) ObjectID(oid objectid.ObjectID) Val {
	v := Val{t: bsontype.ObjectID}
	copy(v.bootstrap[0:12], oid[:])
	return v
}

// Boolean constructs a BSON boolean Value.
func (ValueConstructor) Boolean(b bool) Val {
	v := Val{t: bsontype.Boolean}
	if b {
		v.bootstrap[0] = 0x01
	}
	return v
}

// DateTime constructs a BSON datetime Value from milliseconds since the Unix
// epoch.
func (ValueConstructor) DateTime(dt int64) Val {
	return Val{t: bsontype.DateTime}.writei64(dt)
}

// Time constructs a BSON datetime Value from a time.Time, truncated to
// millisecond precision.
func (ValueConstructor) Time(t time.Time) Val {
	return VC.DateTime(t.Unix()*1000 + int64(t.Nanosecond()/1000000))
}

// Null constructs a BSON null Value.
func (ValueConstructor) Null() Val {
	return Val{t: bsontype.Null}
}

// Regex constructs a BSON regex Value.
func (ValueConstructor) Regex(pattern, options string) Val {
	return Val{t: bsontype.Regex, primitive: Regex{Pattern: pattern, Options: options}}
}

// DBPointer constructs a BSON dbpointer Value.
func (ValueConstructor) DBPointer(ns string, oid objectid.ObjectID) Val {
	return Val{t: bsontype.DBPointer, primitive: DBPointer{DB: ns, Pointer: oid}}
}

// JavaScript constructs a BSON JavaScript code Value.
func (ValueConstructor) JavaScript(code string) Val {
	return Val{t: bsontype.JavaScript}.writestring(code)
}

// Symbol constructs a BSON symbol Value.
func (ValueConstructor) Symbol(symbol string) Val {
	return Val{t: bsontype.Symbol}.writestring(symbol)
}

// CodeWithScope constructs a BSON code with scope Value.
func (ValueConstructor) CodeWithScope(code string, scope *Document) Val {
	return Val{t: bsontype.CodeWithScope, primitive: CodeWithScope{Code: code, Scope: scope}}
}

// Int32 constructs a BSON int32 Value.
func (ValueConstructor) Int32(i32 int32) Val {
	v := Val{t: bsontype.Int32}
	v.bootstrap[0] = byte(i32)
	v.bootstrap[1] = byte(i32 >> 8)
	v.bootstrap[2] = byte(i32 >> 16)
	v.bootstrap[3] = byte(i32 >> 24)
	return v
}

// Timestamp constructs a BSON timestamp Value.
func (ValueConstructor) Timestamp(t, i uint32) Val {
	v := Val{t: bsontype.Timestamp}
	binary.LittleEndian.PutUint32(v.bootstrap[0:4], i)
	binary.LittleEndian.PutUint32(v.bootstrap[4:8], t)
	return v
}

// Int64 constructs a BSON int64 Value.
func (ValueConstructor) Int64(i64 int64) Val {
	return Val{t: bsontype.Int64}.writei64(i64)
}

// Decimal128 constructs a BSON decimal128 Value.
func (ValueConstructor) Decimal128(d128 decimal.Decimal128) Val {
	return Val{t: bsontype.Decimal128, primitive: d128}
}

// MinKey constructs a BSON minkey Value.
func (ValueConstructor) MinKey() Val {
	return Val{t: bsontype.MinKey}
}

// MaxKey constructs a BSON maxkey Value.
func (ValueConstructor) MaxKey() Val {
	return Val{t: bsontype.MaxKey}
}

// Double constructs a BSON double Element with the given key.
func (ElementConstructor) Double(key string, f64 float64) Element {
	return Element{Key: key, Value: VC.Double(f64)}
}

// String constructs a BSON string Element with the given key.
func (ElementConstructor) String(key, str string) Element {
	return Element{Key: key, Value: VC.String(str)}
}

// SubDocument constructs an embedded document Element with the given key.
func (ElementConstructor) SubDocument(key string, d *Document) Element {
	return Element{Key: key, Value: VC.Document(d)}
}

// SubDocumentFromElements constructs an embedded document Element with the
// given key from the given elements.
func (ElementConstructor) SubDocumentFromElements(key string, elems ...Element) Element {
	return Element{Key: key, Value: VC.DocumentFromElements(elems...)}
}

// Array constructs an array Element with the given key.
func (ElementConstructor) Array(key string, a Arr) Element {
	return Element{Key: key, Value: VC.Array(a)}
}

// ArrayFromValues constructs an array Element with the given key from the
// given values.
func (ElementConstructor) ArrayFromValues(key string, vals ...Val) Element {
	return Element{Key: key, Value: VC.ArrayFromValues(vals...)}
}

// Binary constructs a binary Element with the given key and the generic
// subtype.
func (ElementConstructor) Binary(key string, data []byte) Element {
	return Element{Key: key, Value: VC.Binary(data)}
}

// BinaryWithSubtype constructs a binary Element with the given key and
// subtype.
func (ElementConstructor) BinaryWithSubtype(key string, data []byte, subtype byte) Element {
	return Element{Key: key, Value: VC.BinaryWithSubtype(data, subtype)}
}

// Undefined constructs an undefined Element with the given key.
func (ElementConstructor) Undefined(key string) Element {
	return Element{Key: key, Value: VC.Undefined()}
}

// ObjectID constructs an objectid Element with the given key.
func (ElementConstructor) ObjectID(key string, oid objectid.ObjectID) Element {
	return Element{Key: key, Value: VC.ObjectID(oid)}
}

// Boolean constructs a boolean Element with the given key.
func (ElementConstructor) Boolean(key string, b bool) Element {
	return Element{Key: key, Value: VC.Boolean(b)}
}

// DateTime constructs a datetime Element with the given key.
func (ElementConstructor) DateTime(key string, dt int64) Element {
	return Element{Key: key, Value: VC.DateTime(dt)}
}

// Time constructs a datetime Element with the given key from a time.Time.
func (ElementConstructor) Time(key string, t time.Time) Element {
	return Element{Key: key, Value: VC.Time(t)}
}

// Null constructs a null Element with the given key.
func (ElementConstructor) Null(key string) Element {
	return Element{Key: key, Value: VC.Null()}
}

// Regex constructs a regex Element with the given key.
func (ElementConstructor) Regex(key, pattern, options string) Element {
	return Element{Key: key, Value: VC.Regex(pattern, options)}
}

// DBPointer constructs a dbpointer Element with the given key.
func (ElementConstructor) DBPointer(key, ns string, oid objectid.ObjectID) Element {
	return Element{Key: key, Value: VC.DBPointer(ns, oid)}
}

// JavaScript constructs a JavaScript code Element with the given key.
func (ElementConstructor) JavaScript(key, code string) Element {
	return Element{Key: key, Value: VC.JavaScript(code)}
}

// Symbol constructs a symbol Element with the given key.
func (ElementConstructor) Symbol(key, symbol string) Element {
	return Element{Key: key, Value: VC.Symbol(symbol)}
}

// CodeWithScope constructs a code with scope Element with the given key.
func (ElementConstructor) CodeWithScope(key, code string, scope *Document) Element {
	return Element{Key: key, Value: VC.CodeWithScope(code, scope)}
}

// Int32 constructs an int32 Element with the given key.
func (ElementConstructor) Int32(key string, i32 int32) Element {
	return Element{Key: key, Value: VC.Int32(i32)}
}

// Timestamp constructs a timestamp Element with the given key.
func (ElementConstructor) Timestamp(key string, t, i uint32) Element {
	return Element{Key: key, Value: VC.Timestamp(t, i)}
}

// Int64 constructs an int64 Element with the given key.
func (ElementConstructor) Int64(key string, i64 int64) Element {
	return Element{Key: key, Value: VC.Int64(i64)}
}

// Decimal128 constructs a decimal128 Element with the given key.
func (ElementConstructor) Decimal128(key string, d128 decimal.Decimal128) Element {
	return Element{Key: key, Value: VC.Decimal128(d128)}
}

// MinKey constructs a minkey Element with the given key.
func (ElementConstructor) MinKey(key string) Element {
	return Element{Key: key, Value: VC.MinKey()}
}

// MaxKey constructs a maxkey Element with the given key.
func (ElementConstructor) MaxKey(key string) Element {
	return Element{Key: key, Value: VC.MaxKey()}
}
