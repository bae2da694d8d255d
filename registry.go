package bson

import (
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/ikmak/bson/decimal"
	"github.com/ikmak/bson/objectid"
)

// ErrNoCodec is returned when there is no codec available for a type or
// interface in the registry.
type ErrNoCodec struct {
	Type reflect.Type
}

func (enc ErrNoCodec) Error() string {
	return "no codec found for " + enc.Type.String()
}

// ErrNotInterface is returned when a type registered with RegisterInterface is
// not an interface.
var ErrNotInterface = errors.New("the provided type is not an interface")

type interfacePair struct {
	i reflect.Type
	c Codec
}

// A RegistryBuilder is used to build a Registry. This type is not goroutine
// safe.
type RegistryBuilder struct {
	tr map[reflect.Type]Codec
	ir []interfacePair
	kr map[reflect.Kind]Codec
}

// A Registry is an immutable store for codecs. Lookup resolves a codec for a
// type by checking, in order, the exact type registrations, the interface
// registrations, and the kind defaults.
type Registry struct {
	tr       map[reflect.Type]Codec
	ir       []interfacePair
	kr       map[reflect.Kind]Codec
	ircache  map[reflect.Type]Codec
	ircacheL sync.RWMutex
}

// NewRegistryBuilder creates a RegistryBuilder preloaded with the default
// codecs for this package's value types and the Go primitive, map, slice, and
// struct kinds.
func NewRegistryBuilder() *RegistryBuilder {
	rb := &RegistryBuilder{
		tr: make(map[reflect.Type]Codec),
		ir: make([]interfacePair, 0),
		kr: make(map[reflect.Kind]Codec),
	}

	rb.RegisterCodec(reflect.TypeOf(time.Time{}), defaultTimeCodec).
		RegisterCodec(reflect.TypeOf(objectid.ObjectID{}), defaultObjectIDCodec).
		RegisterCodec(reflect.TypeOf(decimal.Decimal128{}), defaultDecimal128Codec).
		RegisterCodec(reflect.TypeOf(UUID{}), defaultUUIDCodec).
		RegisterCodec(reflect.TypeOf(Val{}), defaultValCodec).
		RegisterCodec(reflect.TypeOf((*Document)(nil)), defaultDocumentCodec).
		RegisterCodec(reflect.TypeOf(Arr{}), defaultArrCodec).
		RegisterCodec(reflect.TypeOf(Binary{}), defaultValueTypesCodec).
		RegisterCodec(reflect.TypeOf(Undefined{}), defaultValueTypesCodec).
		RegisterCodec(reflect.TypeOf(Null{}), defaultValueTypesCodec).
		RegisterCodec(reflect.TypeOf(Regex{}), defaultValueTypesCodec).
		RegisterCodec(reflect.TypeOf(DBPointer{}), defaultValueTypesCodec).
		RegisterCodec(reflect.TypeOf(JavaScriptCode("")), defaultValueTypesCodec).
		RegisterCodec(reflect.TypeOf(Symbol("")), defaultValueTypesCodec).
		RegisterCodec(reflect.TypeOf(CodeWithScope{}), defaultValueTypesCodec).
		RegisterCodec(reflect.TypeOf(Timestamp{}), defaultValueTypesCodec).
		RegisterCodec(reflect.TypeOf(MinKey{}), defaultValueTypesCodec).
		RegisterCodec(reflect.TypeOf(MaxKey{}), defaultValueTypesCodec).
		RegisterCodec(reflect.TypeOf([]byte(nil)), defaultByteSliceCodec)

	rb.RegisterDefault(reflect.Bool, defaultBoolCodec).
		RegisterDefault(reflect.Int8, defaultIntCodec).
		RegisterDefault(reflect.Int16, defaultIntCodec).
		RegisterDefault(reflect.Int32, defaultIntCodec).
		RegisterDefault(reflect.Int64, defaultIntCodec).
		RegisterDefault(reflect.Int, defaultIntCodec).
		RegisterDefault(reflect.Uint8, defaultUintCodec).
		RegisterDefault(reflect.Uint16, defaultUintCodec).
		RegisterDefault(reflect.Uint32, defaultUintCodec).
		RegisterDefault(reflect.Uint64, defaultUintCodec).
		RegisterDefault(reflect.Uint, defaultUintCodec).
		RegisterDefault(reflect.Float32, defaultFloatCodec).
		RegisterDefault(reflect.Float64, defaultFloatCodec).
		RegisterDefault(reflect.String, defaultStringCodec).
		RegisterDefault(reflect.Map, defaultMapCodec).
		RegisterDefault(reflect.Slice, defaultSliceCodec).
		RegisterDefault(reflect.Array, defaultSliceCodec).
		RegisterDefault(reflect.Struct, defaultStructCodec).
		RegisterDefault(reflect.Ptr, defaultPointerCodec).
		RegisterDefault(reflect.Interface, defaultEmptyInterfaceCodec)

	return rb
}

// RegisterCodec registers the provided Codec for the exact type t.
func (rb *RegistryBuilder) RegisterCodec(t reflect.Type, codec Codec) *RegistryBuilder {
	rb.tr[t] = codec
	return rb
}

// RegisterInterface registers the provided Codec for any type implementing the
// interface i. Interface registrations are consulted in registration order
// after the exact type registrations.
func (rb *RegistryBuilder) RegisterInterface(i reflect.Type, codec Codec) (*RegistryBuilder, error) {
	if i.Kind() != reflect.Interface {
		return rb, ErrNotInterface
	}
	for idx, ip := range rb.ir {
		if ip.i == i {
			rb.ir[idx].c = codec
			return rb, nil
		}
	}
	rb.ir = append(rb.ir, interfacePair{i: i, c: codec})
	return rb, nil
}

// RegisterDefault registers the provided Codec as the fallback for the given
// reflect.Kind.
func (rb *RegistryBuilder) RegisterDefault(kind reflect.Kind, codec Codec) *RegistryBuilder {
	rb.kr[kind] = codec
	return rb
}

// Build creates a frozen Registry from the builder.
func (rb *RegistryBuilder) Build() *Registry {
	tr := make(map[reflect.Type]Codec, len(rb.tr))
	for t, c := range rb.tr {
		tr[t] = c
	}
	kr := make(map[reflect.Kind]Codec, len(rb.kr))
	for k, c := range rb.kr {
		kr[k] = c
	}
	return &Registry{
		tr:      tr,
		ir:      append([]interfacePair(nil), rb.ir...),
		kr:      kr,
		ircache: make(map[reflect.Type]Codec),
	}
}

// Lookup returns the Codec registered for the given type.
func (r *Registry) Lookup(t reflect.Type) (Codec, error) {
	if codec, found := r.tr[t]; found {
		return codec, nil
	}

	if len(r.ir) > 0 {
		r.ircacheL.RLock()
		codec, found := r.ircache[t]
		r.ircacheL.RUnlock()
		if found {
			if codec == nil {
				return nil, ErrNoCodec{Type: t}
			}
			return codec, nil
		}
		for _, ip := range r.ir {
			if t.Implements(ip.i) || reflect.PtrTo(t).Implements(ip.i) {
				r.ircacheL.Lock()
				r.ircache[t] = ip.c
				r.ircacheL.Unlock()
				return ip.c, nil
			}
		}
	}

	if codec, found := r.kr[t.Kind()]; found {
		return codec, nil
	}
	return nil, ErrNoCodec{Type: t}
}

var defaultRegistry = NewRegistryBuilder().Build()

// DefaultRegistry returns the Registry used by the package-level Marshal and
// Unmarshal functions.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
