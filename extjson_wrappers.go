package bson

import (
	"encoding/base64"
	"strconv"
	"time"

	"github.com/buger/jsonparser"

	"github.com/ikmak/bson/decimal"
	"github.com/ikmak/bson/objectid"
)

// wrapperKey identifies the Extended JSON $-wrapper an object's first key
// selects. Once an object's first key matches a wrapper the whole object must
// parse as that wrapper; a wrapper key can never fall back to being a plain
// document key.
type wrapperKey byte

const (
	wrapperNone wrapperKey = iota
	wrapperNumberInt
	wrapperNumberLong
	wrapperNumberDouble
	wrapperNumberDecimal
	wrapperOID
	wrapperSymbol
	wrapperBinary
	wrapperCode
	wrapperTimestamp
	wrapperRegex
	wrapperDBPointer
	wrapperDate
	wrapperMinKey
	wrapperMaxKey
	wrapperUndefined
)

func wrapperKeyType(key string) wrapperKey {
	switch key {
	case "$numberInt":
		return wrapperNumberInt
	case "$numberLong":
		return wrapperNumberLong
	case "$numberDouble":
		return wrapperNumberDouble
	case "$numberDecimal":
		return wrapperNumberDecimal
	case "$oid":
		return wrapperOID
	case "$symbol":
		return wrapperSymbol
	case "$binary":
		return wrapperBinary
	case "$code", "$scope":
		return wrapperCode
	case "$timestamp":
		return wrapperTimestamp
	case "$regularExpression":
		return wrapperRegex
	case "$dbPointer":
		return wrapperDBPointer
	case "$date":
		return wrapperDate
	case "$minKey":
		return wrapperMinKey
	case "$maxKey":
		return wrapperMaxKey
	case "$undefined":
		return wrapperUndefined
	default:
		return wrapperNone
	}
}

// parseWrapper converts the pairs of a wrapper object into the value the
// wrapper denotes. Extra keys and payloads of the wrong JSON shape are
// structural errors carrying the key path.
func parseWrapper(kind wrapperKey, pairs []jsonKV, path []string) (Val, error) {
	if kind == wrapperCode {
		return parseCodeWrapper(pairs, path)
	}
	if len(pairs) > 1 {
		return Val{}, newExtJSONError(path, "unexpected key %q in %q wrapper", pairs[1].key, pairs[0].key)
	}
	p := pairs[0]
	wpath := append(path, p.key)
	switch kind {
	case wrapperNumberInt:
		s, err := wrapperString(p, wpath)
		if err != nil {
			return Val{}, err
		}
		i, perr := strconv.ParseInt(s, 10, 32)
		if perr != nil {
			return Val{}, newExtJSONError(wpath, "cannot parse %q as an int32", s)
		}
		return VC.Int32(int32(i)), nil
	case wrapperNumberLong:
		s, err := wrapperString(p, wpath)
		if err != nil {
			return Val{}, err
		}
		i, perr := strconv.ParseInt(s, 10, 64)
		if perr != nil {
			return Val{}, newExtJSONError(wpath, "cannot parse %q as an int64", s)
		}
		return VC.Int64(i), nil
	case wrapperNumberDouble:
		s, err := wrapperString(p, wpath)
		if err != nil {
			return Val{}, err
		}
		f, perr := strconv.ParseFloat(s, 64)
		if perr != nil {
			return Val{}, newExtJSONError(wpath, "cannot parse %q as a double", s)
		}
		return VC.Double(f), nil
	case wrapperNumberDecimal:
		s, err := wrapperString(p, wpath)
		if err != nil {
			return Val{}, err
		}
		d128, perr := decimal.ParseDecimal128(s)
		if perr != nil {
			return Val{}, newExtJSONError(wpath, "cannot parse %q as a decimal128", s)
		}
		return VC.Decimal128(d128), nil
	case wrapperOID:
		s, err := wrapperString(p, wpath)
		if err != nil {
			return Val{}, err
		}
		oid, perr := objectid.FromHex(s)
		if perr != nil {
			return Val{}, newExtJSONError(wpath, "cannot parse %q as an ObjectID", s)
		}
		return VC.ObjectID(oid), nil
	case wrapperSymbol:
		s, err := wrapperString(p, wpath)
		if err != nil {
			return Val{}, err
		}
		return VC.Symbol(s), nil
	case wrapperBinary:
		return parseBinaryWrapper(p, wpath)
	case wrapperTimestamp:
		return parseTimestampWrapper(p, wpath)
	case wrapperRegex:
		return parseRegexWrapper(p, wpath)
	case wrapperDBPointer:
		return parseDBPointerWrapper(p, wpath)
	case wrapperDate:
		return parseDateWrapper(p, wpath)
	case wrapperMinKey:
		if err := wrapperOne(p, wpath); err != nil {
			return Val{}, err
		}
		return VC.MinKey(), nil
	case wrapperMaxKey:
		if err := wrapperOne(p, wpath); err != nil {
			return Val{}, err
		}
		return VC.MaxKey(), nil
	case wrapperUndefined:
		if p.vt != jsonparser.Boolean || string(p.value) != "true" {
			return Val{}, newExtJSONError(wpath, "value must be the boolean true")
		}
		return VC.Undefined(), nil
	default:
		return Val{}, newExtJSONError(path, "unknown wrapper key %q", p.key)
	}
}

func wrapperString(p jsonKV, path []string) (string, error) {
	if p.vt != jsonparser.String {
		return "", newExtJSONError(path, "value must be a string")
	}
	s, err := jsonparser.ParseString(p.value)
	if err != nil {
		return "", newExtJSONError(path, "invalid string value")
	}
	return s, nil
}

func wrapperOne(p jsonKV, path []string) error {
	if p.vt != jsonparser.Number || string(p.value) != "1" {
		return newExtJSONError(path, "value must be the number 1")
	}
	return nil
}

func parseCodeWrapper(pairs []jsonKV, path []string) (Val, error) {
	var code string
	var scope *Document
	var haveCode bool
	for _, p := range pairs {
		switch p.key {
		case "$code":
			if haveCode {
				return Val{}, newExtJSONError(path, "duplicate $code key")
			}
			s, err := wrapperString(p, append(path, p.key))
			if err != nil {
				return Val{}, err
			}
			code, haveCode = s, true
		case "$scope":
			if scope != nil {
				return Val{}, newExtJSONError(path, "duplicate $scope key")
			}
			if p.vt != jsonparser.Object {
				return Val{}, newExtJSONError(append(path, p.key), "value must be an object")
			}
			val, err := parseExtJSONObject(p.value, append(path, p.key))
			if err != nil {
				return Val{}, err
			}
			doc, ok := val.DocumentOK()
			if !ok {
				return Val{}, newExtJSONError(append(path, p.key), "value must be a document")
			}
			scope = doc
		default:
			return Val{}, newExtJSONError(path, "unexpected key %q in $code wrapper", p.key)
		}
	}
	if !haveCode {
		return Val{}, newExtJSONError(path, "$scope requires an accompanying $code key")
	}
	if scope == nil {
		return VC.JavaScript(code), nil
	}
	return VC.CodeWithScope(code, scope), nil
}

func parseBinaryWrapper(p jsonKV, path []string) (Val, error) {
	if p.vt != jsonparser.Object {
		return Val{}, newExtJSONError(path, "value must be an object")
	}
	pairs, err := objectPairs(p.value, path)
	if err != nil {
		return Val{}, err
	}
	var data []byte
	var subtype byte
	var haveData, haveSubtype bool
	for _, kv := range pairs {
		kpath := append(path, kv.key)
		switch kv.key {
		case "base64":
			s, err := wrapperString(kv, kpath)
			if err != nil {
				return Val{}, err
			}
			data, err = base64.StdEncoding.DecodeString(s)
			if err != nil {
				return Val{}, newExtJSONError(kpath, "invalid base64 payload")
			}
			haveData = true
		case "subType":
			s, err := wrapperString(kv, kpath)
			if err != nil {
				return Val{}, err
			}
			st, perr := strconv.ParseUint(s, 16, 8)
			if perr != nil {
				return Val{}, newExtJSONError(kpath, "cannot parse %q as a binary subtype", s)
			}
			subtype = byte(st)
			haveSubtype = true
		default:
			return Val{}, newExtJSONError(path, "unexpected key %q in $binary wrapper", kv.key)
		}
	}
	if !haveData || !haveSubtype {
		return Val{}, newExtJSONError(path, "$binary requires both base64 and subType keys")
	}
	return VC.BinaryWithSubtype(data, subtype), nil
}

func parseTimestampWrapper(p jsonKV, path []string) (Val, error) {
	if p.vt != jsonparser.Object {
		return Val{}, newExtJSONError(path, "value must be an object")
	}
	pairs, err := objectPairs(p.value, path)
	if err != nil {
		return Val{}, err
	}
	var t, i uint32
	var haveT, haveI bool
	for _, kv := range pairs {
		kpath := append(path, kv.key)
		if kv.vt != jsonparser.Number {
			return Val{}, newExtJSONError(kpath, "value must be a number")
		}
		u, perr := strconv.ParseUint(string(kv.value), 10, 32)
		if perr != nil {
			return Val{}, newExtJSONError(kpath, "cannot parse %q as a uint32", string(kv.value))
		}
		switch kv.key {
		case "t":
			t, haveT = uint32(u), true
		case "i":
			i, haveI = uint32(u), true
		default:
			return Val{}, newExtJSONError(path, "unexpected key %q in $timestamp wrapper", kv.key)
		}
	}
	if !haveT || !haveI {
		return Val{}, newExtJSONError(path, "$timestamp requires both t and i keys")
	}
	return VC.Timestamp(t, i), nil
}

func parseRegexWrapper(p jsonKV, path []string) (Val, error) {
	if p.vt != jsonparser.Object {
		return Val{}, newExtJSONError(path, "value must be an object")
	}
	pairs, err := objectPairs(p.value, path)
	if err != nil {
		return Val{}, err
	}
	var pattern, options string
	var havePattern, haveOptions bool
	for _, kv := range pairs {
		kpath := append(path, kv.key)
		switch kv.key {
		case "pattern":
			pattern, err = wrapperString(kv, kpath)
			havePattern = true
		case "options":
			options, err = wrapperString(kv, kpath)
			haveOptions = true
		default:
			return Val{}, newExtJSONError(path, "unexpected key %q in $regularExpression wrapper", kv.key)
		}
		if err != nil {
			return Val{}, err
		}
	}
	if !havePattern || !haveOptions {
		return Val{}, newExtJSONError(path, "$regularExpression requires both pattern and options keys")
	}
	return VC.Regex(pattern, options), nil
}

func parseDBPointerWrapper(p jsonKV, path []string) (Val, error) {
	if p.vt != jsonparser.Object {
		return Val{}, newExtJSONError(path, "value must be an object")
	}
	pairs, err := objectPairs(p.value, path)
	if err != nil {
		return Val{}, err
	}
	var ns string
	var oid objectid.ObjectID
	var haveRef, haveID bool
	for _, kv := range pairs {
		kpath := append(path, kv.key)
		switch kv.key {
		case "$ref":
			ns, err = wrapperString(kv, kpath)
			if err != nil {
				return Val{}, err
			}
			haveRef = true
		case "$id":
			if kv.vt != jsonparser.Object {
				return Val{}, newExtJSONError(kpath, "value must be an $oid wrapper")
			}
			val, err := parseExtJSONObject(kv.value, kpath)
			if err != nil {
				return Val{}, err
			}
			id, ok := val.ObjectIDOK()
			if !ok {
				return Val{}, newExtJSONError(kpath, "value must be an $oid wrapper")
			}
			oid, haveID = id, true
		default:
			return Val{}, newExtJSONError(path, "unexpected key %q in $dbPointer wrapper", kv.key)
		}
	}
	if !haveRef || !haveID {
		return Val{}, newExtJSONError(path, "$dbPointer requires both $ref and $id keys")
	}
	return VC.DBPointer(ns, oid), nil
}

func parseDateWrapper(p jsonKV, path []string) (Val, error) {
	switch p.vt {
	case jsonparser.String:
		s, err := wrapperString(p, path)
		if err != nil {
			return Val{}, err
		}
		t, perr := time.Parse(time.RFC3339Nano, s)
		if perr != nil {
			return Val{}, newExtJSONError(path, "cannot parse %q as an ISO-8601 datetime", s)
		}
		return VC.Time(t), nil
	case jsonparser.Object:
		pairs, err := objectPairs(p.value, path)
		if err != nil {
			return Val{}, err
		}
		if len(pairs) != 1 || pairs[0].key != "$numberLong" {
			return Val{}, newExtJSONError(path, "$date object form requires a single $numberLong key")
		}
		val, err := parseWrapper(wrapperNumberLong, pairs, path)
		if err != nil {
			return Val{}, err
		}
		return VC.DateTime(val.Int64()), nil
	default:
		return Val{}, newExtJSONError(path, "value must be a string or a $numberLong wrapper")
	}
}
