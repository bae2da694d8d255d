package bson

import (
	"fmt"
	"reflect"
	"sort"
)

var defaultBoolCodec = &BooleanCodec{}
var defaultIntCodec = &IntCodec{}
var defaultUintCodec = &UintCodec{}
var defaultFloatCodec = &FloatCodec{}
var defaultStringCodec = &StringCodec{}
var defaultTimeCodec = &TimeCodec{}
var defaultMapCodec = &MapCodec{}
var defaultSliceCodec = &SliceCodec{}
var defaultByteSliceCodec = &ByteSliceCodec{}
var defaultPointerCodec = &PointerCodec{}
var defaultEmptyInterfaceCodec = &EmptyInterfaceCodec{}
var defaultStructCodec = &StructCodec{}

// MapCodec is the Codec used for map values. Only maps with string keys can be
// encoded or decoded. Keys are encoded in sorted order so the output is
// deterministic.
type MapCodec struct{}

var _ Codec = &MapCodec{}

// EncodeValue implements the Codec interface.
func (mc *MapCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	rv := reflect.ValueOf(i)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return Val{}, CodecEncodeError{Codec: mc, Types: []interface{}{map[string]interface{}(nil)}, Received: i}
	}
	if rv.IsNil() {
		return VC.Null(), nil
	}

	keys := make([]string, 0, rv.Len())
	for _, kv := range rv.MapKeys() {
		keys = append(keys, kv.String())
	}
	sort.Strings(keys)

	doc := NewDocument()
	for _, key := range keys {
		val, err := encodeValue(ec, rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key())).Interface())
		if err != nil {
			return Val{}, err
		}
		doc.Append(Element{Key: key, Value: val})
	}
	return VC.Document(doc), nil
}

// DecodeValue implements the Codec interface.
func (mc *MapCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	rv := reflect.ValueOf(i)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%T can only be used to decode settable (non-nil) values", mc)
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Map || elem.Type().Key().Kind() != reflect.String {
		return CodecDecodeError{Codec: mc, Types: []interface{}{map[string]interface{}(nil)}, Received: i}
	}
	doc, ok := v.DocumentOK()
	if !ok {
		return TypeMismatchError{Target: elem.Type(), Stored: v.Type()}
	}

	if elem.IsNil() {
		elem.Set(reflect.MakeMap(elem.Type()))
	}
	valType := elem.Type().Elem()
	itr := doc.Iterator()
	for itr.Next() {
		de := itr.Element()
		target := reflect.New(valType)
		if err := decodeValue(dc, de.Value, target.Interface()); err != nil {
			return err
		}
		elem.SetMapIndex(reflect.ValueOf(de.Key).Convert(elem.Type().Key()), target.Elem())
	}
	return itr.Err()
}

// SliceCodec is the Codec used for slice and array values. Byte slices become
// BSON binary values; all other slices and arrays become BSON arrays.
type SliceCodec struct{}

var _ Codec = &SliceCodec{}

// EncodeValue implements the Codec interface.
func (sc *SliceCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	rv := reflect.ValueOf(i)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return VC.Null(), nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			data := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(data), rv)
			return VC.Binary(data), nil
		}
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			data := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(data), rv)
			return VC.Binary(data), nil
		}
	default:
		return Val{}, CodecEncodeError{Codec: sc, Types: []interface{}{[]interface{}(nil)}, Received: i}
	}

	arr := make(Arr, 0, rv.Len())
	for idx := 0; idx < rv.Len(); idx++ {
		val, err := encodeValue(ec, rv.Index(idx).Interface())
		if err != nil {
			return Val{}, err
		}
		arr = append(arr, val)
	}
	return VC.Array(arr), nil
}

// DecodeValue implements the Codec interface.
func (sc *SliceCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	rv := reflect.ValueOf(i)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%T can only be used to decode settable (non-nil) values", sc)
	}
	elem := rv.Elem()

	switch elem.Kind() {
	case reflect.Slice, reflect.Array:
	default:
		return CodecDecodeError{Codec: sc, Types: []interface{}{[]interface{}(nil)}, Received: i}
	}

	if elem.Type().Elem().Kind() == reflect.Uint8 {
		bin, ok := v.BinaryOK()
		if !ok {
			return TypeMismatchError{Target: elem.Type(), Stored: v.Type()}
		}
		if elem.Kind() == reflect.Slice {
			elem.Set(reflect.MakeSlice(elem.Type(), len(bin.Data), len(bin.Data)))
		} else if elem.Len() != len(bin.Data) {
			return InvalidValueError{Value: bin, Msg: fmt.Sprintf("binary payload of %d bytes does not fit a %s", len(bin.Data), elem.Type())}
		}
		reflect.Copy(elem, reflect.ValueOf(bin.Data))
		return nil
	}

	arr, ok := v.ArrayOK()
	if !ok {
		return TypeMismatchError{Target: elem.Type(), Stored: v.Type()}
	}
	if elem.Kind() == reflect.Slice {
		elem.Set(reflect.MakeSlice(elem.Type(), len(arr), len(arr)))
	} else if elem.Len() != len(arr) {
		return InvalidValueError{Value: arr, Msg: fmt.Sprintf("array of %d elements does not fit a %s", len(arr), elem.Type())}
	}
	for idx := range arr {
		if err := decodeValue(dc, arr[idx], elem.Index(idx).Addr().Interface()); err != nil {
			return err
		}
	}
	return nil
}

// ByteSliceCodec is the Codec used for []byte values, stored as BSON binary
// values with the generic subtype.
type ByteSliceCodec struct{}

var _ Codec = &ByteSliceCodec{}

// EncodeValue implements the Codec interface.
func (bsc *ByteSliceCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	b, ok := i.([]byte)
	if !ok {
		return Val{}, CodecEncodeError{Codec: bsc, Types: []interface{}{[]byte(nil)}, Received: i}
	}
	if b == nil {
		return VC.Null(), nil
	}
	return VC.Binary(append([]byte(nil), b...)), nil
}

// DecodeValue implements the Codec interface.
func (bsc *ByteSliceCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	target, ok := i.(*[]byte)
	if !ok || target == nil {
		return CodecDecodeError{Codec: bsc, Types: []interface{}{(*[]byte)(nil)}, Received: i}
	}
	if v.Type() == TypeNull {
		*target = nil
		return nil
	}
	bin, ok := v.BinaryOK()
	if !ok {
		return TypeMismatchError{Target: reflect.TypeOf([]byte(nil)), Stored: v.Type()}
	}
	*target = append([]byte(nil), bin.Data...)
	return nil
}

// PointerCodec is the Codec used for pointer values. A nil pointer encodes as
// BSON null; decoding null sets the pointer to nil, and decoding any other
// value allocates as needed.
type PointerCodec struct{}

var _ Codec = &PointerCodec{}

// EncodeValue implements the Codec interface.
func (pc *PointerCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	rv := reflect.ValueOf(i)
	if rv.Kind() != reflect.Ptr {
		return Val{}, CodecEncodeError{Codec: pc, Types: []interface{}{(*interface{})(nil)}, Received: i}
	}
	if rv.IsNil() {
		return VC.Null(), nil
	}
	return encodeValue(ec, rv.Elem().Interface())
}

// DecodeValue implements the Codec interface.
func (pc *PointerCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	rv := reflect.ValueOf(i)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Ptr {
		return CodecDecodeError{Codec: pc, Types: []interface{}{(*interface{})(nil)}, Received: i}
	}
	elem := rv.Elem()
	if v.Type() == TypeNull {
		elem.Set(reflect.Zero(elem.Type()))
		return nil
	}
	if elem.IsNil() {
		elem.Set(reflect.New(elem.Type().Elem()))
	}
	return decodeValue(dc, v, elem.Interface())
}

// EmptyInterfaceCodec is the Codec used for interface{} values. Decoding
// stores the natural Go form of the value, as returned by Val.Interface.
type EmptyInterfaceCodec struct{}

var _ Codec = &EmptyInterfaceCodec{}

// EncodeValue implements the Codec interface.
func (eic *EmptyInterfaceCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	return encodeValue(ec, i)
}

// DecodeValue implements the Codec interface.
func (eic *EmptyInterfaceCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	rv := reflect.ValueOf(i)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Interface {
		return CodecDecodeError{Codec: eic, Types: []interface{}{(*interface{})(nil)}, Received: i}
	}
	elem := rv.Elem()
	if elem.NumMethod() != 0 {
		return CodecDecodeError{Codec: eic, Types: []interface{}{(*interface{})(nil)}, Received: i}
	}
	iface := v.Interface()
	if iface == nil {
		elem.Set(reflect.Zero(elem.Type()))
		return nil
	}
	elem.Set(reflect.ValueOf(iface))
	return nil
}
