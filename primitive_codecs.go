package bson

import (
	"reflect"

	"github.com/ikmak/bson/decimal"
	"github.com/ikmak/bson/objectid"
)

var defaultValCodec = &ValCodec{}
var defaultDocumentCodec = &DocumentCodec{}
var defaultArrCodec = &ArrCodec{}
var defaultObjectIDCodec = &ObjectIDCodec{}
var defaultDecimal128Codec = &Decimal128Codec{}
var defaultUUIDCodec = &UUIDCodec{}
var defaultValueTypesCodec = &ValueTypesCodec{}

// ValCodec is the Codec used for Val values. A Val passes through both
// directions without any numeric coercion.
type ValCodec struct{}

var _ Codec = &ValCodec{}

// EncodeValue implements the Codec interface.
func (vc *ValCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	val, ok := i.(Val)
	if !ok {
		return Val{}, CodecEncodeError{Codec: vc, Types: []interface{}{Val{}}, Received: i}
	}
	if val.IsZero() {
		return VC.Null(), nil
	}
	return val, nil
}

// DecodeValue implements the Codec interface.
func (vc *ValCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	target, ok := i.(*Val)
	if !ok || target == nil {
		return CodecDecodeError{Codec: vc, Types: []interface{}{(*Val)(nil)}, Received: i}
	}
	*target = v
	return nil
}

// DocumentCodec is the Codec used for *Document values.
type DocumentCodec struct{}

var _ Codec = &DocumentCodec{}

// EncodeValue implements the Codec interface.
func (dco *DocumentCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	doc, ok := i.(*Document)
	if !ok {
		return Val{}, CodecEncodeError{Codec: dco, Types: []interface{}{(*Document)(nil)}, Received: i}
	}
	return VC.Document(doc), nil
}

// DecodeValue implements the Codec interface.
func (dco *DocumentCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	target, ok := i.(**Document)
	if !ok || target == nil {
		return CodecDecodeError{Codec: dco, Types: []interface{}{(**Document)(nil)}, Received: i}
	}
	doc, ok := v.DocumentOK()
	if !ok {
		return TypeMismatchError{Target: reflect.TypeOf((*Document)(nil)), Stored: v.Type()}
	}
	*target = doc
	return nil
}

// ArrCodec is the Codec used for Arr values.
type ArrCodec struct{}

var _ Codec = &ArrCodec{}

// EncodeValue implements the Codec interface.
func (ac *ArrCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	arr, ok := i.(Arr)
	if !ok {
		return Val{}, CodecEncodeError{Codec: ac, Types: []interface{}{Arr{}}, Received: i}
	}
	return VC.Array(arr), nil
}

// DecodeValue implements the Codec interface.
func (ac *ArrCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	target, ok := i.(*Arr)
	if !ok || target == nil {
		return CodecDecodeError{Codec: ac, Types: []interface{}{(*Arr)(nil)}, Received: i}
	}
	arr, ok := v.ArrayOK()
	if !ok {
		return TypeMismatchError{Target: reflect.TypeOf(Arr{}), Stored: v.Type()}
	}
	*target = arr
	return nil
}

// ObjectIDCodec is the Codec used for objectid.ObjectID values.
type ObjectIDCodec struct{}

var _ Codec = &ObjectIDCodec{}

// EncodeValue implements the Codec interface.
func (oc *ObjectIDCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	oid, ok := i.(objectid.ObjectID)
	if !ok {
		return Val{}, CodecEncodeError{Codec: oc, Types: []interface{}{objectid.ObjectID{}}, Received: i}
	}
	return VC.ObjectID(oid), nil
}

// DecodeValue implements the Codec interface.
func (oc *ObjectIDCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	target, ok := i.(*objectid.ObjectID)
	if !ok || target == nil {
		return CodecDecodeError{Codec: oc, Types: []interface{}{(*objectid.ObjectID)(nil)}, Received: i}
	}
	oid, ok := v.ObjectIDOK()
	if !ok {
		return TypeMismatchError{Target: reflect.TypeOf(objectid.ObjectID{}), Stored: v.Type()}
	}
	*target = oid
	return nil
}

// Decimal128Codec is the Codec used for decimal.Decimal128 values.
type Decimal128Codec struct{}

var _ Codec = &Decimal128Codec{}

// EncodeValue implements the Codec interface.
func (dcc *Decimal128Codec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	d128, ok := i.(decimal.Decimal128)
	if !ok {
		return Val{}, CodecEncodeError{Codec: dcc, Types: []interface{}{decimal.Decimal128{}}, Received: i}
	}
	return VC.Decimal128(d128), nil
}

// DecodeValue implements the Codec interface.
func (dcc *Decimal128Codec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	target, ok := i.(*decimal.Decimal128)
	if !ok || target == nil {
		return CodecDecodeError{Codec: dcc, Types: []interface{}{(*decimal.Decimal128)(nil)}, Received: i}
	}
	d128, ok := v.Decimal128OK()
	if !ok {
		return TypeMismatchError{Target: reflect.TypeOf(decimal.Decimal128{}), Stored: v.Type()}
	}
	*target = d128
	return nil
}

// UUIDCodec is the Codec used for UUID values, stored as BSON binary values
// with subtype 0x04.
type UUIDCodec struct{}

var _ Codec = &UUIDCodec{}

// EncodeValue implements the Codec interface.
func (uc *UUIDCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	u, ok := i.(UUID)
	if !ok {
		return Val{}, CodecEncodeError{Codec: uc, Types: []interface{}{UUID{}}, Received: i}
	}
	bin := u.Binary()
	return VC.BinaryWithSubtype(bin.Data, bin.Subtype), nil
}

// DecodeValue implements the Codec interface.
func (uc *UUIDCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	target, ok := i.(*UUID)
	if !ok || target == nil {
		return CodecDecodeError{Codec: uc, Types: []interface{}{(*UUID)(nil)}, Received: i}
	}
	bin, ok := v.BinaryOK()
	if !ok {
		return TypeMismatchError{Target: reflect.TypeOf(UUID{}), Stored: v.Type()}
	}
	u, err := UUIDFromBinary(bin)
	if err != nil {
		return err
	}
	*target = u
	return nil
}

// ValueTypesCodec is the Codec used for the BSON-specific value types Binary,
// Undefined, Null, Regex, DBPointer, JavaScriptCode, Symbol, CodeWithScope,
// Timestamp, MinKey, and MaxKey.
type ValueTypesCodec struct{}

var _ Codec = &ValueTypesCodec{}

// EncodeValue implements the Codec interface.
func (vtc *ValueTypesCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	switch tt := i.(type) {
	case Binary:
		return VC.BinaryWithSubtype(tt.Data, tt.Subtype), nil
	case Undefined:
		return VC.Undefined(), nil
	case Null:
		return VC.Null(), nil
	case Regex:
		return VC.Regex(tt.Pattern, tt.Options), nil
	case DBPointer:
		return VC.DBPointer(tt.DB, tt.Pointer), nil
	case JavaScriptCode:
		return VC.JavaScript(string(tt)), nil
	case Symbol:
		return VC.Symbol(string(tt)), nil
	case CodeWithScope:
		return VC.CodeWithScope(tt.Code, tt.Scope), nil
	case Timestamp:
		return VC.Timestamp(tt.T, tt.I), nil
	case MinKey:
		return VC.MinKey(), nil
	case MaxKey:
		return VC.MaxKey(), nil
	default:
		return Val{}, CodecEncodeError{
			Codec:    vtc,
			Types:    []interface{}{Binary{}, Undefined{}, Null{}, Regex{}, DBPointer{}, JavaScriptCode(""), Symbol(""), CodeWithScope{}, Timestamp{}, MinKey{}, MaxKey{}},
			Received: i,
		}
	}
}

// DecodeValue implements the Codec interface.
func (vtc *ValueTypesCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	switch target := i.(type) {
	case *Binary:
		bin, ok := v.BinaryOK()
		if !ok {
			return TypeMismatchError{Target: reflect.TypeOf(Binary{}), Stored: v.Type()}
		}
		*target = bin
	case *Undefined:
		if v.Type() != TypeUndefined {
			return TypeMismatchError{Target: reflect.TypeOf(Undefined{}), Stored: v.Type()}
		}
		*target = Undefined{}
	case *Null:
		if v.Type() != TypeNull {
			return TypeMismatchError{Target: reflect.TypeOf(Null{}), Stored: v.Type()}
		}
		*target = Null{}
	case *Regex:
		rgx, ok := v.RegexOK()
		if !ok {
			return TypeMismatchError{Target: reflect.TypeOf(Regex{}), Stored: v.Type()}
		}
		*target = rgx
	case *DBPointer:
		dbp, ok := v.DBPointerOK()
		if !ok {
			return TypeMismatchError{Target: reflect.TypeOf(DBPointer{}), Stored: v.Type()}
		}
		*target = dbp
	case *JavaScriptCode:
		js, ok := v.JavaScriptOK()
		if !ok {
			return TypeMismatchError{Target: reflect.TypeOf(JavaScriptCode("")), Stored: v.Type()}
		}
		*target = js
	case *Symbol:
		symbol, ok := v.SymbolOK()
		if !ok {
			return TypeMismatchError{Target: reflect.TypeOf(Symbol("")), Stored: v.Type()}
		}
		*target = symbol
	case *CodeWithScope:
		cws, ok := v.JavaScriptWithScopeOK()
		if !ok {
			return TypeMismatchError{Target: reflect.TypeOf(CodeWithScope{}), Stored: v.Type()}
		}
		*target = cws
	case *Timestamp:
		ts, ok := v.TimestampOK()
		if !ok {
			return TypeMismatchError{Target: reflect.TypeOf(Timestamp{}), Stored: v.Type()}
		}
		*target = ts
	case *MinKey:
		if v.Type() != TypeMinKey {
			return TypeMismatchError{Target: reflect.TypeOf(MinKey{}), Stored: v.Type()}
		}
		*target = MinKey{}
	case *MaxKey:
		if v.Type() != TypeMaxKey {
			return TypeMismatchError{Target: reflect.TypeOf(MaxKey{}), Stored: v.Type()}
		}
		*target = MaxKey{}
	default:
		return CodecDecodeError{
			Codec:    vtc,
			Types:    []interface{}{(*Binary)(nil), (*Undefined)(nil), (*Null)(nil), (*Regex)(nil), (*DBPointer)(nil), (*JavaScriptCode)(nil), (*Symbol)(nil), (*CodeWithScope)(nil), (*Timestamp)(nil), (*MinKey)(nil), (*MaxKey)(nil)},
			Received: i,
		}
	}
	return nil
}
