package bson

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// StructCodec is the Codec used for struct values. Fields are encoded in
// declaration order under their lowercased names unless a bson struct tag
// renames them. The supported tag flags are omitempty, minsize, and inline:
//
//	Name string `bson:"name,omitempty"`
//
// A field tagged "-" is skipped. Nil pointer fields are omitted entirely when
// encoding. When decoding, a document key with no matching field is ignored
// unless the struct has an inline map, and a field with no matching key is an
// error unless the field is a pointer, is tagged omitempty, or is inlined.
type StructCodec struct {
	cache sync.Map // reflect.Type -> structDescription
}

var _ Codec = &StructCodec{}

type structDescription struct {
	fields    []fieldDescription
	inlineMap int // field index of the inline map, -1 if none
}

type fieldDescription struct {
	name      string
	index     []int
	omitEmpty bool
	minSize   bool
}

func (sc *StructCodec) describeStruct(t reflect.Type) (structDescription, error) {
	if cached, ok := sc.cache.Load(t); ok {
		return cached.(structDescription), nil
	}

	sd := structDescription{inlineMap: -1}
	var describe func(t reflect.Type, index []int) error
	describe = func(t reflect.Type, index []int) error {
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if sf.PkgPath != "" {
				continue // unexported
			}

			name := strings.ToLower(sf.Name)
			var omitEmpty, minSize, inline bool
			if tag, ok := sf.Tag.Lookup("bson"); ok {
				if tag == "-" {
					continue
				}
				parts := strings.Split(tag, ",")
				if parts[0] != "" {
					name = parts[0]
				}
				for _, flag := range parts[1:] {
					switch flag {
					case "omitempty":
						omitEmpty = true
					case "minsize":
						minSize = true
					case "inline":
						inline = true
					}
				}
			}

			fidx := append(append([]int(nil), index...), i)
			if inline {
				switch sf.Type.Kind() {
				case reflect.Struct:
					if err := describe(sf.Type, fidx); err != nil {
						return err
					}
					continue
				case reflect.Map:
					if sf.Type.Key().Kind() != reflect.String {
						return fmt.Errorf("inline map field %s must have string keys", sf.Name)
					}
					if sd.inlineMap >= 0 {
						return fmt.Errorf("struct %s has multiple inline maps", t)
					}
					if len(index) > 0 {
						return fmt.Errorf("inline map field %s must be declared at the top level", sf.Name)
					}
					sd.inlineMap = i
					continue
				default:
					return fmt.Errorf("inline field %s must be a struct or a map", sf.Name)
				}
			}

			sd.fields = append(sd.fields, fieldDescription{
				name:      name,
				index:     fidx,
				omitEmpty: omitEmpty,
				minSize:   minSize,
			})
		}
		return nil
	}
	if err := describe(t, nil); err != nil {
		return structDescription{}, err
	}

	sc.cache.Store(t, sd)
	return sd, nil
}

// EncodeValue implements the Codec interface.
func (sc *StructCodec) EncodeValue(ec EncodeContext, i interface{}) (Val, error) {
	rv := reflect.ValueOf(i)
	if rv.Kind() != reflect.Struct {
		return Val{}, CodecEncodeError{Codec: sc, Types: []interface{}{struct{}{}}, Received: i}
	}
	sd, err := sc.describeStruct(rv.Type())
	if err != nil {
		return Val{}, err
	}

	doc := NewDocument()
	for _, fd := range sd.fields {
		fv := rv.FieldByIndex(fd.index)
		if fv.Kind() == reflect.Ptr && fv.IsNil() {
			continue
		}
		if fd.omitEmpty && fv.IsZero() {
			continue
		}
		fec := ec
		if fd.minSize {
			fec.MinSize = true
		}
		val, err := encodeValue(fec, fv.Interface())
		if err != nil {
			return Val{}, err
		}
		doc.Append(Element{Key: fd.name, Value: val})
	}

	if sd.inlineMap >= 0 {
		mv := rv.Field(sd.inlineMap)
		keys := make([]string, 0, mv.Len())
		for _, kv := range mv.MapKeys() {
			keys = append(keys, kv.String())
		}
		sort.Strings(keys)
		for _, key := range keys {
			val, err := encodeValue(ec, mv.MapIndex(reflect.ValueOf(key).Convert(mv.Type().Key())).Interface())
			if err != nil {
				return Val{}, err
			}
			doc.Append(Element{Key: key, Value: val})
		}
	}

	return VC.Document(doc), nil
}

// DecodeValue implements the Codec interface.
func (sc *StructCodec) DecodeValue(dc DecodeContext, v Val, i interface{}) error {
	rv := reflect.ValueOf(i)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return CodecDecodeError{Codec: sc, Types: []interface{}{struct{}{}}, Received: i}
	}
	elem := rv.Elem()
	doc, ok := v.DocumentOK()
	if !ok {
		return TypeMismatchError{Target: elem.Type(), Stored: v.Type()}
	}
	sd, err := sc.describeStruct(elem.Type())
	if err != nil {
		return err
	}

	byName := make(map[string]fieldDescription, len(sd.fields))
	for _, fd := range sd.fields {
		byName[fd.name] = fd
	}

	seen := make(map[string]bool, len(sd.fields))
	itr := doc.Iterator()
	for itr.Next() {
		de := itr.Element()
		fd, found := byName[de.Key]
		if !found {
			if sd.inlineMap >= 0 {
				if err := decodeInlineMapEntry(dc, elem.Field(sd.inlineMap), de); err != nil {
					return err
				}
			}
			continue
		}
		if seen[de.Key] {
			continue // duplicate key, first match wins
		}
		seen[de.Key] = true

		fv := elem.FieldByIndex(fd.index)
		if fv.Kind() == reflect.Ptr {
			if de.Value.Type() == TypeNull {
				fv.Set(reflect.Zero(fv.Type()))
				continue
			}
			if fv.IsNil() {
				fv.Set(reflect.New(fv.Type().Elem()))
			}
			if err := decodeValue(dc, de.Value, fv.Interface()); err != nil {
				return err
			}
			continue
		}
		if err := decodeValue(dc, de.Value, fv.Addr().Interface()); err != nil {
			return err
		}
	}
	if err := itr.Err(); err != nil {
		return err
	}

	for _, fd := range sd.fields {
		if seen[fd.name] || fd.omitEmpty {
			continue
		}
		if elem.FieldByIndex(fd.index).Kind() == reflect.Ptr {
			continue
		}
		return fmt.Errorf("missing key %q for required field %s of %s", fd.name, fd.name, elem.Type())
	}
	return nil
}

func decodeInlineMapEntry(dc DecodeContext, mv reflect.Value, de Element) error {
	if mv.IsNil() {
		mv.Set(reflect.MakeMap(mv.Type()))
	}
	target := reflect.New(mv.Type().Elem())
	if err := decodeValue(dc, de.Value, target.Interface()); err != nil {
		return err
	}
	mv.SetMapIndex(reflect.ValueOf(de.Key).Convert(mv.Type().Key()), target.Elem())
	return nil
}
