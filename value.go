package bson

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/ikmak/bson/bsontype"
	"github.com/ikmak/bson/decimal"
	"github.com/ikmak/bson/llbson"
	"github.com/ikmak/bson/objectid"
)

// Val represents a BSON value.
type Val struct {
	// NOTE: The bootstrap is a small amount of space that'll be on the stack. At 15 bytes this
	// doesn't make this type any larger, since there are 7 bytes of padding and we want an int64 to
	// store small values (e.g. boolean, double, int64, etc...). The primitive property is where all
	// of the larger values go. They will use either Go primitives or the value types in this
	// package.
	t         bsontype.Type
	bootstrap [15]byte
	primitive interface{}
}

func (v Val) string() string {
	if v.primitive != nil {
		return v.primitive.(string)
	}
	// The first bootstrap byte holds the length, so strings containing null
	// bytes survive intact.
	length := int(v.bootstrap[0])
	return string(v.bootstrap[1 : 1+length])
}

func (v Val) writestring(str string) Val {
	switch {
	case len(str) < 15:
		v.bootstrap[0] = byte(len(str))
		copy(v.bootstrap[1:], str)
	default:
		v.primitive = str
	}
	return v
}

func (v Val) i64() int64 {
	return int64(v.bootstrap[0]) | int64(v.bootstrap[1])<<8 | int64(v.bootstrap[2])<<16 |
		int64(v.bootstrap[3])<<24 | int64(v.bootstrap[4])<<32 | int64(v.bootstrap[5])<<40 |
		int64(v.bootstrap[6])<<48 | int64(v.bootstrap[7])<<56
}

func (v Val) writei64(i64 int64) Val {
	binary.LittleEndian.PutUint64(v.bootstrap[0:8], uint64(i64))
	return v
}

// IsZero returns true if this value is zero.
func (v Val) IsZero() bool { return v.t == bsontype.Type(0) }

// Type returns the BSON type of this value.
func (v Val) Type() bsontype.Type { return v.t }

// IsNumber returns true if the type of v is a numeric BSON type.
func (v Val) IsNumber() bool {
	switch v.t {
	case TypeDouble, TypeInt32, TypeInt64, TypeDecimal128:
		return true
	default:
		return false
	}
}

// String implements the fmt.Stringer interface. The value is rendered as
// canonical Extended JSON.
func (v Val) String() string {
	if v.IsZero() {
		return ""
	}
	var buf bytes.Buffer
	err := writeExtJSONValue(&buf, v, true)
	if err != nil {
		return ""
	}
	return buf.String()
}

// Interface returns the Go value of this Value as an empty interface.
//
// This method will return nil if it is empty, otherwise it will return a Go
// primitive or one of the value types in this package.
func (v Val) Interface() interface{} {
	switch v.t {
	case TypeDouble:
		return v.Double()
	case TypeString:
		return v.StringValue()
	case TypeEmbeddedDocument:
		return v.Document()
	case TypeArray:
		return v.Array()
	case TypeBinary:
		return v.Binary()
	case TypeUndefined:
		return Undefined{}
	case TypeObjectID:
		return v.ObjectID()
	case TypeBoolean:
		return v.Boolean()
	case TypeDateTime:
		return v.Time()
	case TypeNull:
		return Null{}
	case TypeRegex:
		return v.Regex()
	case TypeDBPointer:
		return v.DBPointer()
	case TypeJavaScript:
		return v.JavaScript()
	case TypeSymbol:
		return v.Symbol()
	case TypeCodeWithScope:
		return v.JavaScriptWithScope()
	case TypeInt32:
		return v.Int32()
	case TypeTimestamp:
		return v.Timestamp()
	case TypeInt64:
		return v.Int64()
	case TypeDecimal128:
		return v.Decimal128()
	case TypeMinKey:
		return MinKey{}
	case TypeMaxKey:
		return MaxKey{}
	default:
		return nil
	}
}

// Double returns the BSON double value the Value represents. It panics if the
// value is a BSON type other than double.
func (v Val) Double() float64 {
	if v.t != bsontype.Double {
		panic(ElementTypeError{"bson.Val.Double", v.t})
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(v.bootstrap[0:8]))
}

// DoubleOK is the same as Double, but returns a boolean instead of panicking.
func (v Val) DoubleOK() (float64, bool) {
	if v.t != bsontype.Double {
		return 0, false
	}
	return v.Double(), true
}

// StringValue returns the BSON string the Value represents. It panics if the
// value is a BSON type other than string.
//
// NOTE: This method is called StringValue to avoid it implementing the
// fmt.Stringer interface.
func (v Val) StringValue() string {
	if v.t != bsontype.String {
		panic(ElementTypeError{"bson.Val.StringValue", v.t})
	}
	return v.string()
}

// StringValueOK is the same as StringValue, but returns a boolean instead of
// panicking.
func (v Val) StringValueOK() (string, bool) {
	if v.t != bsontype.String {
		return "", false
	}
	return v.StringValue(), true
}

// Document returns the BSON embedded document value the Value represents. It
// panics if the value is a BSON type other than embedded document.
func (v Val) Document() *Document {
	if v.t != bsontype.EmbeddedDocument {
		panic(ElementTypeError{"bson.Val.Document", v.t})
	}
	return v.primitive.(*Document)
}

// DocumentOK is the same as Document, except it returns a boolean instead of
// panicking.
func (v Val) DocumentOK() (*Document, bool) {
	if v.t != bsontype.EmbeddedDocument {
		return nil, false
	}
	return v.Document(), true
}

// Array returns the BSON array value the Value represents. It panics if the
// value is a BSON type other than array.
func (v Val) Array() Arr {
	if v.t != bsontype.Array {
		panic(ElementTypeError{"bson.Val.Array", v.t})
	}
	return v.primitive.(Arr)
}

// ArrayOK is the same as Array, except it returns a boolean instead of
// panicking.
func (v Val) ArrayOK() (Arr, bool) {
	if v.t != bsontype.Array {
		return nil, false
	}
	return v.Array(), true
}

// Binary returns the BSON binary value the Value represents. It panics if the
// value is a BSON type other than binary.
func (v Val) Binary() Binary {
	if v.t != bsontype.Binary {
		panic(ElementTypeError{"bson.Val.Binary", v.t})
	}
	return v.primitive.(Binary)
}

// BinaryOK is the same as Binary, except it returns a boolean instead of
// panicking.
func (v Val) BinaryOK() (Binary, bool) {
	if v.t != bsontype.Binary {
		return Binary{}, false
	}
	return v.Binary(), true
}

// ObjectID returns the BSON ObjectID the Value represents. It panics if the
// value is a BSON type other than ObjectID.
func (v Val) ObjectID() objectid.ObjectID {
	if v.t != bsontype.ObjectID {
		panic(ElementTypeError{"bson.Val.ObjectID", v.t})
	}
	var oid objectid.ObjectID
	copy(oid[:], v.bootstrap[:12])
	return oid
}

// ObjectIDOK is the same as ObjectID, except it returns a boolean instead of
// panicking.
func (v Val) ObjectIDOK() (objectid.ObjectID, bool) {
	if v.t != bsontype.ObjectID {
		return objectid.ObjectID{}, false
	}
	return v.ObjectID(), true
}

// Boolean returns the BSON boolean the Value represents. It panics if the
// value is a BSON type other than boolean.
func (v Val) Boolean() bool {
	if v.t != bsontype.Boolean {
		panic(ElementTypeError{"bson.Val.Boolean", v.t})
	}
	return v.bootstrap[0] == 0x01
}

// BooleanOK is the same as Boolean, except it returns a boolean instead of
// panicking.
func (v Val) BooleanOK() (bool, bool) {
	if v.t != bsontype.Boolean {
		return false, false
	}
	return v.Boolean(), true
}

// DateTime returns the BSON datetime the Value represents as milliseconds
// since the Unix epoch. It panics if the value is a BSON type other than
// datetime.
func (v Val) DateTime() int64 {
	if v.t != bsontype.DateTime {
		panic(ElementTypeError{"bson.Val.DateTime", v.t})
	}
	return v.i64()
}

// DateTimeOK is the same as DateTime, except it returns a boolean instead of
// panicking.
func (v Val) DateTimeOK() (int64, bool) {
	if v.t != bsontype.DateTime {
		return 0, false
	}
	return v.DateTime(), true
}

// Time returns the BSON datetime the Value represents as time.Time. It panics
// if the value is a BSON type other than datetime.
func (v Val) Time() time.Time {
	i := v.DateTime()
	return time.Unix(i/1000, i%1000*1000000).UTC()
}

// TimeOK is the same as Time, except it returns a boolean instead of
// panicking.
func (v Val) TimeOK() (time.Time, bool) {
	if v.t != bsontype.DateTime {
		return time.Time{}, false
	}
	return v.Time(), true
}

// Regex returns the BSON regex the Value represents. It panics if the value is
// a BSON type other than regex.
func (v Val) Regex() Regex {
	if v.t != bsontype.Regex {
		panic(ElementTypeError{"bson.Val.Regex", v.t})
	}
	return v.primitive.(Regex)
}

// RegexOK is the same as Regex, except that it returns a boolean instead of
// panicking.
func (v Val) RegexOK() (Regex, bool) {
	if v.t != bsontype.Regex {
		return Regex{}, false
	}
	return v.Regex(), true
}

// DBPointer returns the BSON dbpointer the Value represents. It panics if the
// value is a BSON type other than dbpointer.
func (v Val) DBPointer() DBPointer {
	if v.t != bsontype.DBPointer {
		panic(ElementTypeError{"bson.Val.DBPointer", v.t})
	}
	return v.primitive.(DBPointer)
}

// DBPointerOK is the same as DBPointer, except that it returns a boolean
// instead of panicking.
func (v Val) DBPointerOK() (DBPointer, bool) {
	if v.t != bsontype.DBPointer {
		return DBPointer{}, false
	}
	return v.DBPointer(), true
}

// JavaScript returns the BSON JavaScript code the Value represents. It panics
// if the value is a BSON type other than JavaScript.
func (v Val) JavaScript() JavaScriptCode {
	if v.t != bsontype.JavaScript {
		panic(ElementTypeError{"bson.Val.JavaScript", v.t})
	}
	return JavaScriptCode(v.string())
}

// JavaScriptOK is the same as JavaScript, except that it returns a boolean
// instead of panicking.
func (v Val) JavaScriptOK() (JavaScriptCode, bool) {
	if v.t != bsontype.JavaScript {
		return "", false
	}
	return v.JavaScript(), true
}

// Symbol returns the BSON symbol the Value represents. It panics if the value
// is a BSON type other than symbol.
func (v Val) Symbol() Symbol {
	if v.t != bsontype.Symbol {
		panic(ElementTypeError{"bson.Val.Symbol", v.t})
	}
	return Symbol(v.string())
}

// SymbolOK is the same as Symbol, except that it returns a boolean instead of
// panicking.
func (v Val) SymbolOK() (Symbol, bool) {
	if v.t != bsontype.Symbol {
		return "", false
	}
	return v.Symbol(), true
}

// JavaScriptWithScope returns the BSON code with scope value the Value
// represents. It panics if the value is a BSON type other than code with
// scope.
func (v Val) JavaScriptWithScope() CodeWithScope {
	if v.t != bsontype.CodeWithScope {
		panic(ElementTypeError{"bson.Val.JavaScriptWithScope", v.t})
	}
	return v.primitive.(CodeWithScope)
}

// JavaScriptWithScopeOK is the same as JavaScriptWithScope, except that it
// returns a boolean instead of panicking.
func (v Val) JavaScriptWithScopeOK() (CodeWithScope, bool) {
	if v.t != bsontype.CodeWithScope {
		return CodeWithScope{}, false
	}
	return v.JavaScriptWithScope(), true
}

// Int32 returns the BSON int32 the Value represents. It panics if the value is
// a BSON type other than int32.
func (v Val) Int32() int32 {
	if v.t != bsontype.Int32 {
		panic(ElementTypeError{"bson.Val.Int32", v.t})
	}
	return int32(v.bootstrap[0]) | int32(v.bootstrap[1])<<8 |
		int32(v.bootstrap[2])<<16 | int32(v.bootstrap[3])<<24
}

// Int32OK is the same as Int32, except that it returns a boolean instead of
// panicking.
func (v Val) Int32OK() (int32, bool) {
	if v.t != bsontype.Int32 {
		return 0, false
	}
	return v.Int32(), true
}

// Timestamp returns the BSON timestamp the Value represents. It panics if the
// value is a BSON type other than timestamp.
func (v Val) Timestamp() Timestamp {
	if v.t != bsontype.Timestamp {
		panic(ElementTypeError{"bson.Val.Timestamp", v.t})
	}
	return Timestamp{
		I: uint32(v.bootstrap[0]) | uint32(v.bootstrap[1])<<8 |
			uint32(v.bootstrap[2])<<16 | uint32(v.bootstrap[3])<<24,
		T: uint32(v.bootstrap[4]) | uint32(v.bootstrap[5])<<8 |
			uint32(v.bootstrap[6])<<16 | uint32(v.bootstrap[7])<<24,
	}
}

// TimestampOK is the same as Timestamp, except that it returns a boolean
// instead of panicking.
func (v Val) TimestampOK() (Timestamp, bool) {
	if v.t != bsontype.Timestamp {
		return Timestamp{}, false
	}
	return v.Timestamp(), true
}

// Int64 returns the BSON int64 the Value represents. It panics if the value is
// a BSON type other than int64.
func (v Val) Int64() int64 {
	if v.t != bsontype.Int64 {
		panic(ElementTypeError{"bson.Val.Int64", v.t})
	}
	return v.i64()
}

// Int64OK is the same as Int64, except that it returns a boolean instead of
// panicking.
func (v Val) Int64OK() (int64, bool) {
	if v.t != bsontype.Int64 {
		return 0, false
	}
	return v.Int64(), true
}

// Decimal128 returns the BSON decimal128 value the Value represents. It panics
// if the value is a BSON type other than decimal128.
func (v Val) Decimal128() decimal.Decimal128 {
	if v.t != bsontype.Decimal128 {
		panic(ElementTypeError{"bson.Val.Decimal128", v.t})
	}
	return v.primitive.(decimal.Decimal128)
}

// Decimal128OK is the same as Decimal128, except that it returns a boolean
// instead of panicking.
func (v Val) Decimal128OK() (decimal.Decimal128, bool) {
	if v.t != bsontype.Decimal128 {
		return decimal.Decimal128{}, false
	}
	return v.Decimal128(), true
}

// Equal compares v to v2 and returns true if they are equal.
func (v Val) Equal(v2 Val) bool {
	if v.t != v2.t {
		return false
	}
	switch v.t {
	case TypeDouble, TypeDateTime, TypeInt64:
		return bytes.Equal(v.bootstrap[0:8], v2.bootstrap[0:8])
	case TypeString:
		return v.string() == v2.string()
	case TypeEmbeddedDocument:
		return v.Document().Equal(v2.Document())
	case TypeArray:
		return v.Array().Equal(v2.Array())
	case TypeBinary:
		return v.Binary().Equal(v2.Binary())
	case TypeUndefined:
		return true
	case TypeObjectID:
		return bytes.Equal(v.bootstrap[0:12], v2.bootstrap[0:12])
	case TypeBoolean:
		return v.bootstrap[0] == v2.bootstrap[0]
	case TypeNull:
		return true
	case TypeRegex:
		return v.Regex().Equal(v2.Regex())
	case TypeDBPointer:
		return v.DBPointer().Equal(v2.DBPointer())
	case TypeJavaScript:
		return v.JavaScript() == v2.JavaScript()
	case TypeSymbol:
		return v.Symbol() == v2.Symbol()
	case TypeCodeWithScope:
		return v.JavaScriptWithScope().Equal(v2.JavaScriptWithScope())
	case TypeInt32:
		return v.Int32() == v2.Int32()
	case TypeTimestamp:
		return v.Timestamp().Equal(v2.Timestamp())
	case TypeDecimal128:
		h, l := v.Decimal128().GetBytes()
		h2, l2 := v2.Decimal128().GetBytes()
		return h == h2 && l == l2
	case TypeMinKey:
		return true
	case TypeMaxKey:
		return true
	default:
		return true
	}
}

// append encodes the wire form of the value, without the type byte or key,
// onto dst.
func (v Val) append(dst []byte) ([]byte, error) {
	switch v.t {
	case TypeDouble:
		return llbson.AppendDouble(dst, v.Double()), nil
	case TypeString:
		return llbson.AppendString(dst, v.string()), nil
	case TypeEmbeddedDocument:
		doc := v.primitive.(*Document)
		if doc == nil {
			return dst, ErrNilDocument
		}
		return llbson.AppendDocument(dst, doc.buf), nil
	case TypeArray:
		raw, err := v.Array().appendDocument(nil)
		if err != nil {
			return dst, err
		}
		return llbson.AppendArray(dst, raw), nil
	case TypeBinary:
		bin := v.Binary()
		return llbson.AppendBinary(dst, bin.Subtype, bin.Data), nil
	case TypeUndefined, TypeNull, TypeMinKey, TypeMaxKey:
		return dst, nil
	case TypeObjectID:
		return llbson.AppendObjectID(dst, v.ObjectID()), nil
	case TypeBoolean:
		return llbson.AppendBoolean(dst, v.Boolean()), nil
	case TypeDateTime:
		return llbson.AppendDateTime(dst, v.DateTime()), nil
	case TypeRegex:
		rgx := v.Regex()
		return llbson.AppendRegex(dst, rgx.Pattern, rgx.Options), nil
	case TypeDBPointer:
		dbp := v.DBPointer()
		return llbson.AppendDBPointer(dst, dbp.DB, dbp.Pointer), nil
	case TypeJavaScript:
		return llbson.AppendJavaScript(dst, v.string()), nil
	case TypeSymbol:
		return llbson.AppendSymbol(dst, v.string()), nil
	case TypeCodeWithScope:
		cws := v.JavaScriptWithScope()
		if cws.Scope == nil {
			return dst, ErrNilDocument
		}
		return llbson.AppendCodeWithScope(dst, cws.Code, cws.Scope.buf), nil
	case TypeInt32:
		return llbson.AppendInt32(dst, v.Int32()), nil
	case TypeTimestamp:
		ts := v.Timestamp()
		return llbson.AppendTimestamp(dst, ts.T, ts.I), nil
	case TypeInt64:
		return llbson.AppendInt64(dst, v.Int64()), nil
	case TypeDecimal128:
		return llbson.AppendDecimal128(dst, v.Decimal128()), nil
	default:
		return dst, fmt.Errorf("invalid BSON type %v", byte(v.t))
	}
}

// readValue decodes one value of type t from the front of src and returns the
// remaining bytes. Reads that run out of bytes return ErrTooSmall; an unknown
// type tag is an invalid-type error.
func readValue(t bsontype.Type, src []byte) (Val, []byte, error) {
	switch t {
	case bsontype.Double:
		f, rem, ok := llbson.ReadDouble(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		return VC.Double(f), rem, nil
	case bsontype.String:
		str, rem, ok := llbson.ReadString(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		return VC.String(str), rem, nil
	case bsontype.EmbeddedDocument:
		raw, rem, ok := llbson.ReadDocument(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		doc := &Document{buf: append([]byte(nil), raw...)}
		return VC.Document(doc), rem, nil
	case bsontype.Array:
		raw, rem, ok := llbson.ReadArray(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		arr, err := readArr(raw)
		if err != nil {
			return Val{}, src, err
		}
		return VC.Array(arr), rem, nil
	case bsontype.Binary:
		subtype, data, rem, ok := llbson.ReadBinary(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		return VC.BinaryWithSubtype(append([]byte(nil), data...), subtype), rem, nil
	case bsontype.Undefined:
		return VC.Undefined(), src, nil
	case bsontype.ObjectID:
		oid, rem, ok := llbson.ReadObjectID(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		return VC.ObjectID(oid), rem, nil
	case bsontype.Boolean:
		b, rem, ok := llbson.ReadBoolean(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		return VC.Boolean(b), rem, nil
	case bsontype.DateTime:
		dt, rem, ok := llbson.ReadDateTime(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		return VC.DateTime(dt), rem, nil
	case bsontype.Null:
		return VC.Null(), src, nil
	case bsontype.Regex:
		pattern, options, rem, ok := llbson.ReadRegex(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		return VC.Regex(pattern, options), rem, nil
	case bsontype.DBPointer:
		ns, oid, rem, ok := llbson.ReadDBPointer(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		return VC.DBPointer(ns, oid), rem, nil
	case bsontype.JavaScript:
		js, rem, ok := llbson.ReadJavaScript(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		return VC.JavaScript(js), rem, nil
	case bsontype.Symbol:
		symbol, rem, ok := llbson.ReadSymbol(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		return VC.Symbol(symbol), rem, nil
	case bsontype.CodeWithScope:
		code, scope, rem, ok := llbson.ReadCodeWithScope(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		scopeDoc := &Document{buf: append([]byte(nil), scope...)}
		return VC.CodeWithScope(code, scopeDoc), rem, nil
	case bsontype.Int32:
		i32, rem, ok := llbson.ReadInt32(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		return VC.Int32(i32), rem, nil
	case bsontype.Timestamp:
		t, i, rem, ok := llbson.ReadTimestamp(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		return VC.Timestamp(t, i), rem, nil
	case bsontype.Int64:
		i64, rem, ok := llbson.ReadInt64(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		return VC.Int64(i64), rem, nil
	case bsontype.Decimal128:
		d128, rem, ok := llbson.ReadDecimal128(src)
		if !ok {
			return Val{}, src, NewErrTooSmall()
		}
		return VC.Decimal128(d128), rem, nil
	case bsontype.MinKey:
		return VC.MinKey(), src, nil
	case bsontype.MaxKey:
		return VC.MaxKey(), src, nil
	default:
		return Val{}, src, fmt.Errorf("invalid BSON type %v", byte(t))
	}
}
