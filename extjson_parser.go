package bson

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
)

// ExtJSONError is a structural Extended JSON decode error. KeyPath holds the
// JSON keys, outermost first, leading to the offending value.
type ExtJSONError struct {
	KeyPath []string
	Msg     string
}

// Error implements the error interface.
func (e ExtJSONError) Error() string {
	if len(e.KeyPath) == 0 {
		return "extended json: " + e.Msg
	}
	return "extended json: " + e.Msg + " at " + strings.Join(e.KeyPath, ".")
}

func newExtJSONError(path []string, format string, args ...interface{}) ExtJSONError {
	return ExtJSONError{
		KeyPath: append([]string(nil), path...),
		Msg:     fmt.Sprintf(format, args...),
	}
}

// jsonKV is one key-value pair of a JSON object, in source order.
type jsonKV struct {
	key   string
	value []byte
	vt    jsonparser.ValueType
}

// objectPairs tokenizes a JSON object into its pairs, preserving key order.
func objectPairs(data []byte, path []string) ([]jsonKV, error) {
	pairs := make([]jsonKV, 0, 4)
	err := jsonparser.ObjectEach(data, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
		k, kerr := jsonparser.ParseString(key)
		if kerr != nil {
			k = string(key)
		}
		pairs = append(pairs, jsonKV{key: k, value: value, vt: vt})
		return nil
	})
	if err != nil {
		return nil, newExtJSONError(path, "invalid JSON object: %v", err)
	}
	return pairs, nil
}

// parseExtJSONValue converts one JSON value into a BSON value. Objects whose
// first key is a $-wrapper key parse as that wrapper; all other objects parse
// as embedded documents, arrays as BSON arrays, and literals as relaxed
// scalars.
func parseExtJSONValue(data []byte, vt jsonparser.ValueType, path []string) (Val, error) {
	switch vt {
	case jsonparser.String:
		s, err := jsonparser.ParseString(data)
		if err != nil {
			return Val{}, newExtJSONError(path, "invalid string value")
		}
		return VC.String(s), nil
	case jsonparser.Number:
		return parseRelaxedNumber(data, path)
	case jsonparser.Boolean:
		return VC.Boolean(string(data) == "true"), nil
	case jsonparser.Null:
		return VC.Null(), nil
	case jsonparser.Object:
		return parseExtJSONObject(data, path)
	case jsonparser.Array:
		arr, err := parseExtJSONArray(data, path)
		if err != nil {
			return Val{}, err
		}
		return VC.Array(arr), nil
	default:
		return Val{}, newExtJSONError(path, "unsupported JSON value")
	}
}

// parseRelaxedNumber converts a bare JSON number. Integer literals become the
// narrowest of int32 and int64 that holds the value, falling back to double
// when the value exceeds int64; literals with a fraction or exponent always
// become doubles.
func parseRelaxedNumber(data []byte, path []string) (Val, error) {
	s := string(data)
	if !strings.ContainsAny(s, ".eE") {
		i, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			if i >= -2147483648 && i <= 2147483647 {
				return VC.Int32(int32(i)), nil
			}
			return VC.Int64(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Val{}, newExtJSONError(path, "cannot parse %q as a number", s)
	}
	return VC.Double(f), nil
}

// parseExtJSONObject converts a JSON object into either the value its
// $-wrapper denotes or an embedded document.
func parseExtJSONObject(data []byte, path []string) (Val, error) {
	pairs, err := objectPairs(data, path)
	if err != nil {
		return Val{}, err
	}
	if len(pairs) > 0 {
		if kind := wrapperKeyType(pairs[0].key); kind != wrapperNone {
			return parseWrapper(kind, pairs, path)
		}
	}
	doc := NewDocument()
	for _, p := range pairs {
		val, err := parseExtJSONValue(p.value, p.vt, append(path, p.key))
		if err != nil {
			return Val{}, err
		}
		if verr := validKey(p.key); verr != nil {
			return Val{}, newExtJSONError(path, "invalid document key %q", p.key)
		}
		doc.Append(Element{Key: p.key, Value: val})
	}
	return VC.Document(doc), nil
}

// parseExtJSONArray converts a JSON array into a BSON array.
func parseExtJSONArray(data []byte, path []string) (Arr, error) {
	arr := make(Arr, 0)
	var inner error
	idx := 0
	_, err := jsonparser.ArrayEach(data, func(value []byte, vt jsonparser.ValueType, _ int, aerr error) {
		if inner != nil {
			return
		}
		if aerr != nil {
			inner = newExtJSONError(path, "invalid JSON array: %v", aerr)
			return
		}
		val, verr := parseExtJSONValue(value, vt, append(path, strconv.Itoa(idx)))
		if verr != nil {
			inner = verr
			return
		}
		arr = append(arr, val)
		idx++
	})
	if err != nil {
		return nil, newExtJSONError(path, "invalid JSON array: %v", err)
	}
	if inner != nil {
		return nil, inner
	}
	return arr, nil
}

// ParseExtJSONObject parses an Extended JSON object, in either the canonical
// or the relaxed dialect, into a Document. The top-level JSON value must be an
// object and must not be a $-wrapper.
func ParseExtJSONObject(data []byte) (*Document, error) {
	val, err := parseExtJSONObject(data, nil)
	if err != nil {
		return nil, err
	}
	doc, ok := val.DocumentOK()
	if !ok {
		return nil, newExtJSONError(nil, "top-level value must be a document, not a %s", val.Type())
	}
	return doc, nil
}

// ParseExtJSONArray parses an Extended JSON array, in either the canonical or
// the relaxed dialect, into an Arr.
func ParseExtJSONArray(data []byte) (Arr, error) {
	return parseExtJSONArray(data, nil)
}

// MarshalExtJSON encodes val as Extended JSON. When canonical is true the
// canonical dialect is produced; otherwise the relaxed dialect is produced.
func MarshalExtJSON(val interface{}, canonical bool) ([]byte, error) {
	raw, err := Marshal(val)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeExtJSONDocument(&buf, raw, canonical); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalExtJSON parses the Extended JSON data, in either dialect, and
// stores the result in the value pointed to by val.
func UnmarshalExtJSON(data []byte, val interface{}) error {
	doc, err := ParseExtJSONObject(data)
	if err != nil {
		return err
	}
	return Unmarshal(doc.buf, val)
}
