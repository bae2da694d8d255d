package bson

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/ikmak/bson/bsontype"
)

// EncodeContext is the contextual information a Codec receives when encoding.
type EncodeContext struct {
	*Registry
	// MinSize narrows int64 values to int32 when the value fits.
	MinSize bool
}

// DecodeContext is the contextual information a Codec receives when decoding.
type DecodeContext struct {
	*Registry
	// Truncate allows lossy numeric conversions: doubles with a fractional
	// part may be truncated toward zero and oversized floats clamped into
	// float32. Without it only exactly representable conversions succeed.
	Truncate bool
}

// Codec implementations convert between Go values and BSON values. They can be
// registered in a Registry, which handles invoking them.
type Codec interface {
	EncodeValue(EncodeContext, interface{}) (Val, error)
	DecodeValue(DecodeContext, Val, interface{}) error
}

// CodecEncodeError is an error returned from a Codec's EncodeValue method when
// the provided value can't be encoded with the given Codec.
type CodecEncodeError struct {
	Codec    interface{}
	Types    []interface{}
	Received interface{}
}

func (cee CodecEncodeError) Error() string {
	types := make([]string, 0, len(cee.Types))
	for _, t := range cee.Types {
		types = append(types, fmt.Sprintf("%T", t))
	}
	return fmt.Sprintf("%T can only process %s, but got a %T", cee.Codec, strings.Join(types, ", "), cee.Received)
}

// CodecDecodeError is an error returned from a Codec's DecodeValue method when
// the provided value can't be decoded with the given Codec.
type CodecDecodeError struct {
	Codec    interface{}
	Types    []interface{}
	Received interface{}
}

func (cde CodecDecodeError) Error() string {
	types := make([]string, 0, len(cde.Types))
	for _, t := range cde.Types {
		types = append(types, fmt.Sprintf("%T", t))
	}
	return fmt.Sprintf("%T can only process %s, but got a %T", cde.Codec, strings.Join(types, ", "), cde.Received)
}

// TypeMismatchError is returned when the stored BSON type cannot be decoded
// into the requested Go type, either because the variant is wrong or because
// the stored value is not exactly representable in the requested type.
type TypeMismatchError struct {
	Target reflect.Type
	Stored bsontype.Type
	Reason string
}

func (tme TypeMismatchError) Error() string {
	if tme.Reason != "" {
		return fmt.Sprintf("cannot decode %v into a %s: %s", tme.Stored, tme.Target, tme.Reason)
	}
	return fmt.Sprintf("cannot decode %v into a %s", tme.Stored, tme.Target)
}

// InvalidValueError is returned when a value cannot be encoded losslessly,
// e.g. a uint64 too large for any BSON numeric type, or when a top-level
// value cannot form a document.
type InvalidValueError struct {
	Value interface{}
	Msg   string
}

func (ive InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %v: %s", ive.Value, ive.Msg)
}

// encodeValue converts a single Go value into a BSON value using the registry
// in ec. The Marshaler and ValueMarshaler hooks are honored here, so an empty
// document returned from a nested Marshaler becomes an empty embedded
// document.
func encodeValue(ec EncodeContext, val interface{}) (Val, error) {
	if val == nil {
		return VC.Null(), nil
	}
	switch tt := val.(type) {
	case Val:
		if tt.IsZero() {
			return VC.Null(), nil
		}
		return tt, nil
	case *Document:
		if tt == nil {
			return VC.Null(), nil
		}
		return VC.Document(tt), nil
	case ValueMarshaler:
		return tt.MarshalBSONValue()
	case Marshaler:
		raw, err := tt.MarshalBSON()
		if err != nil {
			return Val{}, err
		}
		if len(raw) == 0 {
			return VC.Document(NewDocument()), nil
		}
		doc, err := ReadDocument(raw)
		if err != nil {
			return Val{}, err
		}
		return VC.Document(doc), nil
	}
	rv := reflect.ValueOf(val)
	codec, err := ec.Lookup(rv.Type())
	if err != nil {
		return Val{}, err
	}
	return codec.EncodeValue(ec, val)
}

// decodeValue stores a single BSON value into the Go value pointed to by
// target. Decoding into a *Val performs no conversion at all.
func decodeValue(dc DecodeContext, v Val, target interface{}) error {
	if target == nil {
		return fmt.Errorf("cannot decode into a nil target")
	}
	switch tt := target.(type) {
	case *Val:
		*tt = v
		return nil
	case ValueUnmarshaler:
		return tt.UnmarshalBSONValue(v)
	case Unmarshaler:
		doc, ok := v.DocumentOK()
		if !ok {
			return TypeMismatchError{Target: reflect.TypeOf(target), Stored: v.Type()}
		}
		raw, err := doc.MarshalBSON()
		if err != nil {
			return err
		}
		return tt.UnmarshalBSON(raw)
	}
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("can only decode into non-nil pointers, got %T", target)
	}
	codec, err := dc.Lookup(rv.Type().Elem())
	if err != nil {
		return err
	}
	return codec.DecodeValue(dc, v, target)
}

// numericInt64 extracts an integer from a stored numeric value. Doubles must
// be fraction-free unless dc.Truncate is set; values outside the int64 range
// never convert.
func numericInt64(dc DecodeContext, v Val, target reflect.Type) (int64, error) {
	switch v.Type() {
	case TypeInt32:
		return int64(v.Int32()), nil
	case TypeInt64:
		return v.Int64(), nil
	case TypeDouble:
		f := v.Double()
		if math.IsNaN(f) || math.IsInf(f, 0) || f >= 9223372036854775808.0 || f < -9223372036854775808.0 {
			return 0, TypeMismatchError{Target: target, Stored: v.Type(), Reason: "out of range for an integer type"}
		}
		if math.Trunc(f) != f && !dc.Truncate {
			return 0, TypeMismatchError{Target: target, Stored: v.Type(), Reason: "double has a fractional part"}
		}
		return int64(math.Trunc(f)), nil
	default:
		return 0, TypeMismatchError{Target: target, Stored: v.Type()}
	}
}

// BooleanCodec is the Codec used for bool values.
type BooleanCodec struct{}

var _ Codec = &BooleanCodec{}

// EncodeValue implements the Codec interface.
func (bc *BooleanCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	b, ok := i.(bool)
	if !ok {
		if reflect.TypeOf(i).Kind() != reflect.Bool {
			return Val{}, CodecEncodeError{Codec: bc, Types: []interface{}{bool(true)}, Received: i}
		}
		b = reflect.ValueOf(i).Bool()
	}
	return VC.Boolean(b), nil
}

// DecodeValue implements the Codec interface.
func (bc *BooleanCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	if target, ok := i.(*bool); ok && target != nil {
		b, ok := v.BooleanOK()
		if !ok {
			return TypeMismatchError{Target: reflect.TypeOf(i).Elem(), Stored: v.Type()}
		}
		*target = b
		return nil
	}
	rv, err := settableValue(bc, i, reflect.Bool)
	if err != nil {
		return err
	}
	b, ok := v.BooleanOK()
	if !ok {
		return TypeMismatchError{Target: rv.Type(), Stored: v.Type()}
	}
	rv.SetBool(b)
	return nil
}

// IntCodec is the Codec used for int8, int16, int32, int64, and int values.
type IntCodec struct{}

var _ Codec = &IntCodec{}

// EncodeValue implements the Codec interface. int8, int16, and int32 become
// BSON int32; int and int64 become BSON int64 unless ec.MinSize is set and the
// value fits in an int32.
func (ic *IntCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	rv := reflect.ValueOf(i)
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return VC.Int32(int32(rv.Int())), nil
	case reflect.Int, reflect.Int64:
		i64 := rv.Int()
		if ec.MinSize && i64 >= math.MinInt32 && i64 <= math.MaxInt32 {
			return VC.Int32(int32(i64)), nil
		}
		return VC.Int64(i64), nil
	default:
		return Val{}, CodecEncodeError{
			Codec:    ic,
			Types:    []interface{}{int8(0), int16(0), int32(0), int64(0), int(0)},
			Received: i,
		}
	}
}

// DecodeValue implements the Codec interface.
func (ic *IntCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	rv, err := settableValue(ic, i, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int)
	if err != nil {
		return err
	}
	i64, err := numericInt64(dc, v, rv.Type())
	if err != nil {
		return err
	}
	if rv.OverflowInt(i64) {
		return TypeMismatchError{Target: rv.Type(), Stored: v.Type(), Reason: fmt.Sprintf("%d overflows", i64)}
	}
	rv.SetInt(i64)
	return nil
}

// UintCodec is the Codec used for uint8, uint16, uint32, uint64, and uint
// values.
type UintCodec struct{}

var _ Codec = &UintCodec{}

// EncodeValue implements the Codec interface. Unsigned values become the
// narrowest of BSON int32 and int64 that holds the value. Values above the
// int64 range become doubles when exactly representable; otherwise encoding
// fails.
func (uc *UintCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	rv := reflect.ValueOf(i)
	switch rv.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
	default:
		return Val{}, CodecEncodeError{
			Codec:    uc,
			Types:    []interface{}{uint8(0), uint16(0), uint32(0), uint64(0), uint(0)},
			Received: i,
		}
	}
	u64 := rv.Uint()
	switch {
	case u64 <= math.MaxInt32:
		return VC.Int32(int32(u64)), nil
	case u64 <= math.MaxInt64:
		return VC.Int64(int64(u64)), nil
	default:
		f := float64(u64)
		if f >= 18446744073709551616.0 || uint64(f) != u64 {
			return Val{}, InvalidValueError{Value: u64, Msg: "not exactly representable in any BSON numeric type"}
		}
		return VC.Double(f), nil
	}
}

// DecodeValue implements the Codec interface.
func (uc *UintCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	rv, err := settableValue(uc, i, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint)
	if err != nil {
		return err
	}
	i64, err := numericInt64(dc, v, rv.Type())
	if err != nil {
		return err
	}
	if i64 < 0 {
		return TypeMismatchError{Target: rv.Type(), Stored: v.Type(), Reason: fmt.Sprintf("%d is negative", i64)}
	}
	if rv.OverflowUint(uint64(i64)) {
		return TypeMismatchError{Target: rv.Type(), Stored: v.Type(), Reason: fmt.Sprintf("%d overflows", i64)}
	}
	rv.SetUint(uint64(i64))
	return nil
}

// FloatCodec is the Codec used for float32 and float64 values.
type FloatCodec struct{}

var _ Codec = &FloatCodec{}

// EncodeValue implements the Codec interface.
func (fc *FloatCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	rv := reflect.ValueOf(i)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return VC.Double(rv.Float()), nil
	default:
		return Val{}, CodecEncodeError{Codec: fc, Types: []interface{}{float32(0), float64(0)}, Received: i}
	}
}

// DecodeValue implements the Codec interface. Stored int32 and int64 values
// decode into floats when exactly representable; stored doubles decode into
// float32 only when no precision is lost, unless dc.Truncate is set.
func (fc *FloatCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	rv, err := settableValue(fc, i, reflect.Float32, reflect.Float64)
	if err != nil {
		return err
	}
	var f float64
	switch v.Type() {
	case TypeDouble:
		f = v.Double()
	case TypeInt32:
		f = float64(v.Int32())
	case TypeInt64:
		i64 := v.Int64()
		f = float64(i64)
		if int64(f) != i64 && !dc.Truncate {
			return TypeMismatchError{Target: rv.Type(), Stored: v.Type(), Reason: fmt.Sprintf("%d is not exactly representable as a double", i64)}
		}
	default:
		return TypeMismatchError{Target: rv.Type(), Stored: v.Type()}
	}
	if rv.Kind() == reflect.Float32 && !dc.Truncate {
		if !math.IsNaN(f) && !math.IsInf(f, 0) && float64(float32(f)) != f {
			return TypeMismatchError{Target: rv.Type(), Stored: v.Type(), Reason: fmt.Sprintf("%v is not exactly representable as a float32", f)}
		}
	}
	rv.SetFloat(f)
	return nil
}

// StringCodec is the Codec used for string values.
type StringCodec struct{}

var _ Codec = &StringCodec{}

// EncodeValue implements the Codec interface.
func (sc *StringCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	s, ok := i.(string)
	if !ok {
		if reflect.TypeOf(i).Kind() != reflect.String {
			return Val{}, CodecEncodeError{Codec: sc, Types: []interface{}{string("")}, Received: i}
		}
		s = reflect.ValueOf(i).String()
	}
	return VC.String(s), nil
}

// DecodeValue implements the Codec interface.
func (sc *StringCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	if target, ok := i.(*string); ok && target != nil {
		s, ok := v.StringValueOK()
		if !ok {
			return TypeMismatchError{Target: reflect.TypeOf(i).Elem(), Stored: v.Type()}
		}
		*target = s
		return nil
	}
	rv, err := settableValue(sc, i, reflect.String)
	if err != nil {
		return err
	}
	s, ok := v.StringValueOK()
	if !ok {
		return TypeMismatchError{Target: rv.Type(), Stored: v.Type()}
	}
	rv.SetString(s)
	return nil
}

// TimeCodec is the Codec used for time.Time values, stored as BSON datetimes
// with millisecond precision.
type TimeCodec struct{}

var _ Codec = &TimeCodec{}

// EncodeValue implements the Codec interface.
func (tc *TimeCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	switch tt := i.(type) {
	case time.Time:
		return VC.Time(tt), nil
	case *time.Time:
		if tt == nil {
			return VC.Null(), nil
		}
		return VC.Time(*tt), nil
	default:
		return Val{}, CodecEncodeError{Codec: tc, Types: []interface{}{time.Time{}, (*time.Time)(nil)}, Received: i}
	}
}

// DecodeValue implements the Codec interface.
func (tc *TimeCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	target, ok := i.(*time.Time)
	if !ok || target == nil {
		return CodecDecodeError{Codec: tc, Types: []interface{}{(*time.Time)(nil)}, Received: i}
	}
	t, ok := v.TimeOK()
	if !ok {
		return TypeMismatchError{Target: reflect.TypeOf(time.Time{}), Stored: v.Type()}
	}
	*target = t
	return nil
}

// settableValue checks that i is a non-nil pointer to a settable value of one
// of the given kinds and returns the value pointed to.
func settableValue(codec Codec, i interface{}, kinds ...reflect.Kind) (reflect.Value, error) {
	rv := reflect.ValueOf(i)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() || !rv.Elem().CanSet() {
		return reflect.Value{}, fmt.Errorf("%T can only be used to decode settable (non-nil) values", codec)
	}
	elem := rv.Elem()
	for _, k := range kinds {
		if elem.Kind() == k {
			return elem, nil
		}
	}
	return reflect.Value{}, CodecDecodeError{Codec: codec, Types: kindsToTypes(kinds), Received: i}
}

func kindsToTypes(kinds []reflect.Kind) []interface{} {
	types := make([]interface{}, 0, len(kinds))
	for _, k := range kinds {
		types = append(types, k.String())
	}
	return types
}
