// Package llbson contains the low level functions used to encode and decode
// BSON elements and values to or from slices of bytes. These functions allow a
// higher level BSON library to be built on top of them.
//
// The Read* functions return the decoded value, the remaining bytes, and a
// boolean indicating whether the read succeeded. A boolean is used instead of
// an error because the failure modes are the same everywhere: not enough
// bytes, or length prefixes that disagree with each other. No validation
// beyond length checking is performed; reads never inspect bytes past the
// span the type's layout defines.
//
// The Append* functions append the value's wire form to dst and return the
// extended buffer. The Append*Element variants additionally prepend the type
// byte and the null-terminated key.
package llbson

import (
	"bytes"
	"math"

	"github.com/ikmak/bson/bsontype"
	"github.com/ikmak/bson/decimal"
	"github.com/ikmak/bson/objectid"
)

// AppendType appends the type byte t to dst.
func AppendType(dst []byte, t bsontype.Type) []byte { return append(dst, byte(t)) }

// AppendKey appends the null-terminated key to dst.
func AppendKey(dst []byte, key string) []byte { return append(append(dst, key...), 0x00) }

// AppendHeader appends the type byte t and the null-terminated key to dst.
func AppendHeader(dst []byte, t bsontype.Type, key string) []byte {
	return AppendKey(AppendType(dst, t), key)
}

// ReadType reads the leading type byte from src.
func ReadType(src []byte) (bsontype.Type, []byte, bool) {
	if len(src) < 1 {
		return 0, src, false
	}
	return bsontype.Type(src[0]), src[1:], true
}

// ReadKey reads a null-terminated key from src. The terminator is consumed but
// not included in the returned string.
func ReadKey(src []byte) (string, []byte, bool) {
	idx := bytes.IndexByte(src, 0x00)
	if idx < 0 {
		return "", src, false
	}
	return string(src[:idx]), src[idx+1:], true
}

// ReadHeader reads a type byte and a null-terminated key from src.
func ReadHeader(src []byte) (t bsontype.Type, key string, rem []byte, ok bool) {
	t, rem, ok = ReadType(src)
	if !ok {
		return 0, "", src, false
	}
	key, rem, ok = ReadKey(rem)
	if !ok {
		return 0, "", src, false
	}
	return t, key, rem, true
}

// ReserveLength appends four zero bytes to dst, reserving space for a length
// prefix, and returns the index of the reservation.
func ReserveLength(dst []byte) (int32, []byte) {
	index := len(dst)
	return int32(index), append(dst, 0x00, 0x00, 0x00, 0x00)
}

// UpdateLength writes the little-endian length l at the reservation index.
func UpdateLength(dst []byte, index, l int32) []byte {
	dst[index] = byte(l)
	dst[index+1] = byte(l >> 8)
	dst[index+2] = byte(l >> 16)
	dst[index+3] = byte(l >> 24)
	return dst
}

// AppendDouble appends the little-endian IEEE-754 form of f to dst.
func AppendDouble(dst []byte, f float64) []byte {
	return appendu64(dst, math.Float64bits(f))
}

// AppendDoubleElement appends a double element with the given key to dst.
func AppendDoubleElement(dst []byte, key string, f float64) []byte {
	return AppendDouble(AppendHeader(dst, bsontype.Double, key), f)
}

// ReadDouble reads a float64 from src.
func ReadDouble(src []byte) (float64, []byte, bool) {
	bits, rem, ok := readu64(src)
	if !ok {
		return 0, src, false
	}
	return math.Float64frombits(bits), rem, true
}

// AppendString appends the length-prefixed, null-terminated UTF-8 form of s to
// dst.
func AppendString(dst []byte, s string) []byte { return appendstring(dst, s) }

// AppendStringElement appends a string element with the given key to dst.
func AppendStringElement(dst []byte, key, val string) []byte {
	return AppendString(AppendHeader(dst, bsontype.String, key), val)
}

// ReadString reads a length-prefixed string from src.
func ReadString(src []byte) (string, []byte, bool) { return readstring(src) }

// AppendDocument appends an already encoded document to dst.
func AppendDocument(dst []byte, doc []byte) []byte { return append(dst, doc...) }

// AppendDocumentElement appends an embedded document element with the given
// key to dst.
func AppendDocumentElement(dst []byte, key string, doc []byte) []byte {
	return AppendDocument(AppendHeader(dst, bsontype.EmbeddedDocument, key), doc)
}

// ReadDocument reads the bytes of one length-prefixed document from src. The
// returned slice includes the length prefix and the terminator.
func ReadDocument(src []byte) ([]byte, []byte, bool) { return readLengthBytes(src) }

// AppendArray appends an already encoded array to dst.
func AppendArray(dst []byte, arr []byte) []byte { return append(dst, arr...) }

// AppendArrayElement appends an array element with the given key to dst.
func AppendArrayElement(dst []byte, key string, arr []byte) []byte {
	return AppendArray(AppendHeader(dst, bsontype.Array, key), arr)
}

// ReadArray reads the bytes of one length-prefixed array from src.
func ReadArray(src []byte) ([]byte, []byte, bool) { return readLengthBytes(src) }

// AppendBinary appends the length-prefixed payload b and its subtype to dst.
// Subtype 0x02 carries a second, inner length prefix per the BSON spec.
func AppendBinary(dst []byte, subtype byte, b []byte) []byte {
	if subtype == 0x02 {
		dst = appendLength(dst, int32(len(b)+4))
		dst = append(dst, subtype)
		dst = appendLength(dst, int32(len(b)))
		return append(dst, b...)
	}
	dst = append(appendLength(dst, int32(len(b))), subtype)
	return append(dst, b...)
}

// AppendBinaryElement appends a binary element with the given key to dst.
func AppendBinaryElement(dst []byte, key string, subtype byte, b []byte) []byte {
	return AppendBinary(AppendHeader(dst, bsontype.Binary, key), subtype, b)
}

// ReadBinary reads a subtype and payload from src.
func ReadBinary(src []byte) (subtype byte, bin []byte, rem []byte, ok bool) {
	length, after, ok := readLength(src)
	if !ok || len(after) < 1 || length < 0 {
		return 0x00, nil, src, false
	}
	subtype = after[0]
	after = after[1:]

	if subtype == 0x02 {
		outer := length
		length, after, ok = readLength(after)
		if !ok || length < 0 || length != outer-4 {
			return 0x00, nil, src, false
		}
	}
	if len(after) < int(length) {
		return 0x00, nil, src, false
	}
	return subtype, after[:length], after[length:], true
}

// AppendUndefinedElement appends an undefined element with the given key to
// dst. Undefined has no value bytes.
func AppendUndefinedElement(dst []byte, key string) []byte {
	return AppendHeader(dst, bsontype.Undefined, key)
}

// AppendObjectID appends the 12 raw bytes of oid to dst.
func AppendObjectID(dst []byte, oid objectid.ObjectID) []byte { return append(dst, oid[:]...) }

// AppendObjectIDElement appends an ObjectID element with the given key to dst.
func AppendObjectIDElement(dst []byte, key string, oid objectid.ObjectID) []byte {
	return AppendObjectID(AppendHeader(dst, bsontype.ObjectID, key), oid)
}

// ReadObjectID reads an ObjectID from src.
func ReadObjectID(src []byte) (objectid.ObjectID, []byte, bool) {
	if len(src) < 12 {
		return objectid.ObjectID{}, src, false
	}
	var oid objectid.ObjectID
	copy(oid[:], src[0:12])
	return oid, src[12:], true
}

// AppendBoolean appends the canonical single byte form of b to dst.
func AppendBoolean(dst []byte, b bool) []byte {
	if b {
		return append(dst, 0x01)
	}
	return append(dst, 0x00)
}

// AppendBooleanElement appends a boolean element with the given key to dst.
func AppendBooleanElement(dst []byte, key string, b bool) []byte {
	return AppendBoolean(AppendHeader(dst, bsontype.Boolean, key), b)
}

// ReadBoolean reads a bool from src. Any nonzero byte is accepted as true;
// only 0x00 and 0x01 are ever written.
func ReadBoolean(src []byte) (bool, []byte, bool) {
	if len(src) < 1 {
		return false, src, false
	}
	return src[0] != 0x00, src[1:], true
}

// AppendDateTime appends the millisecond datetime dt to dst.
func AppendDateTime(dst []byte, dt int64) []byte { return appendi64(dst, dt) }

// AppendDateTimeElement appends a datetime element with the given key to dst.
func AppendDateTimeElement(dst []byte, key string, dt int64) []byte {
	return AppendDateTime(AppendHeader(dst, bsontype.DateTime, key), dt)
}

// ReadDateTime reads an int64 millisecond datetime from src.
func ReadDateTime(src []byte) (int64, []byte, bool) { return readi64(src) }

// AppendNullElement appends a null element with the given key to dst. Null has
// no value bytes.
func AppendNullElement(dst []byte, key string) []byte {
	return AppendHeader(dst, bsontype.Null, key)
}

// AppendRegex appends the null-terminated pattern and options to dst.
func AppendRegex(dst []byte, pattern, options string) []byte {
	dst = append(append(dst, pattern...), 0x00)
	return append(append(dst, options...), 0x00)
}

// AppendRegexElement appends a regex element with the given key to dst.
func AppendRegexElement(dst []byte, key, pattern, options string) []byte {
	return AppendRegex(AppendHeader(dst, bsontype.Regex, key), pattern, options)
}

// ReadRegex reads a pattern and options from src.
func ReadRegex(src []byte) (pattern, options string, rem []byte, ok bool) {
	pattern, rem, ok = ReadKey(src)
	if !ok {
		return "", "", src, false
	}
	options, rem, ok = ReadKey(rem)
	if !ok {
		return "", "", src, false
	}
	return pattern, options, rem, true
}

// AppendDBPointer appends the namespace string and ObjectID to dst.
func AppendDBPointer(dst []byte, ns string, oid objectid.ObjectID) []byte {
	return append(appendstring(dst, ns), oid[:]...)
}

// AppendDBPointerElement appends a dbpointer element with the given key to
// dst.
func AppendDBPointerElement(dst []byte, key, ns string, oid objectid.ObjectID) []byte {
	return AppendDBPointer(AppendHeader(dst, bsontype.DBPointer, key), ns, oid)
}

// ReadDBPointer reads a namespace and ObjectID from src.
func ReadDBPointer(src []byte) (ns string, oid objectid.ObjectID, rem []byte, ok bool) {
	ns, rem, ok = readstring(src)
	if !ok {
		return "", objectid.ObjectID{}, src, false
	}
	oid, rem, ok = ReadObjectID(rem)
	if !ok {
		return "", objectid.ObjectID{}, src, false
	}
	return ns, oid, rem, true
}

// AppendJavaScript appends the JavaScript code string js to dst.
func AppendJavaScript(dst []byte, js string) []byte { return appendstring(dst, js) }

// AppendJavaScriptElement appends a JavaScript element with the given key to
// dst.
func AppendJavaScriptElement(dst []byte, key, js string) []byte {
	return AppendJavaScript(AppendHeader(dst, bsontype.JavaScript, key), js)
}

// ReadJavaScript reads a JavaScript code string from src.
func ReadJavaScript(src []byte) (string, []byte, bool) { return readstring(src) }

// AppendSymbol appends the symbol string to dst.
func AppendSymbol(dst []byte, symbol string) []byte { return appendstring(dst, symbol) }

// AppendSymbolElement appends a symbol element with the given key to dst.
func AppendSymbolElement(dst []byte, key, symbol string) []byte {
	return AppendSymbol(AppendHeader(dst, bsontype.Symbol, key), symbol)
}

// ReadSymbol reads a symbol string from src.
func ReadSymbol(src []byte) (string, []byte, bool) { return readstring(src) }

// AppendCodeWithScope appends code and an encoded scope document to dst. The
// outer length covers itself, the code string, and the scope.
func AppendCodeWithScope(dst []byte, code string, scope []byte) []byte {
	length := int32(4 + 4 + len(code) + 1 + len(scope))
	dst = appendLength(dst, length)
	return append(appendstring(dst, code), scope...)
}

// AppendCodeWithScopeElement appends a code-with-scope element with the given
// key to dst.
func AppendCodeWithScopeElement(dst []byte, key, code string, scope []byte) []byte {
	return AppendCodeWithScope(AppendHeader(dst, bsontype.CodeWithScope, key), code, scope)
}

// ReadCodeWithScope reads code and the encoded scope document from src.
func ReadCodeWithScope(src []byte) (code string, scope []byte, rem []byte, ok bool) {
	length, _, ok := readLength(src)
	// 14 = 4 (total length) + 4 (code length) + 1 (terminator) + 5 (minimal scope)
	if !ok || length < 14 || len(src) < int(length) {
		return "", nil, src, false
	}
	code, _, ok = readstring(src[4:length])
	if !ok {
		return "", nil, src, false
	}
	// 9 = 4 (total length) + 4 (code length) + 1 (terminator)
	scopeStart := 9 + len(code)
	if int(length) < scopeStart {
		return "", nil, src, false
	}
	return code, src[scopeStart:length], src[length:], true
}

// AppendInt32 appends the little-endian form of i32 to dst.
func AppendInt32(dst []byte, i32 int32) []byte { return appendi32(dst, i32) }

// AppendInt32Element appends an int32 element with the given key to dst.
func AppendInt32Element(dst []byte, key string, i32 int32) []byte {
	return AppendInt32(AppendHeader(dst, bsontype.Int32, key), i32)
}

// ReadInt32 reads an int32 from src.
func ReadInt32(src []byte) (int32, []byte, bool) { return readi32(src) }

// AppendTimestamp appends t and i to dst. The increment i occupies the low
// four bytes and the seconds t the high four, per the BSON spec.
func AppendTimestamp(dst []byte, t, i uint32) []byte {
	return appendu32(appendu32(dst, i), t)
}

// AppendTimestampElement appends a timestamp element with the given key to
// dst.
func AppendTimestampElement(dst []byte, key string, t, i uint32) []byte {
	return AppendTimestamp(AppendHeader(dst, bsontype.Timestamp, key), t, i)
}

// ReadTimestamp reads the seconds and increment fields from src.
func ReadTimestamp(src []byte) (t, i uint32, rem []byte, ok bool) {
	i, rem, ok = readu32(src)
	if !ok {
		return 0, 0, src, false
	}
	t, rem, ok = readu32(rem)
	if !ok {
		return 0, 0, src, false
	}
	return t, i, rem, true
}

// AppendInt64 appends the little-endian form of i64 to dst.
func AppendInt64(dst []byte, i64 int64) []byte { return appendi64(dst, i64) }

// AppendInt64Element appends an int64 element with the given key to dst.
func AppendInt64Element(dst []byte, key string, i64 int64) []byte {
	return AppendInt64(AppendHeader(dst, bsontype.Int64, key), i64)
}

// ReadInt64 reads an int64 from src.
func ReadInt64(src []byte) (int64, []byte, bool) { return readi64(src) }

// AppendDecimal128 appends the low and high halves of d128 to dst.
func AppendDecimal128(dst []byte, d128 decimal.Decimal128) []byte {
	high, low := d128.GetBytes()
	return appendu64(appendu64(dst, low), high)
}

// AppendDecimal128Element appends a decimal128 element with the given key to
// dst.
func AppendDecimal128Element(dst []byte, key string, d128 decimal.Decimal128) []byte {
	return AppendDecimal128(AppendHeader(dst, bsontype.Decimal128, key), d128)
}

// ReadDecimal128 reads a decimal.Decimal128 from src.
func ReadDecimal128(src []byte) (decimal.Decimal128, []byte, bool) {
	l, rem, ok := readu64(src)
	if !ok {
		return decimal.Decimal128{}, src, false
	}
	h, rem, ok := readu64(rem)
	if !ok {
		return decimal.Decimal128{}, src, false
	}
	return decimal.NewDecimal128(h, l), rem, true
}

// AppendMaxKeyElement appends a max key element with the given key to dst.
func AppendMaxKeyElement(dst []byte, key string) []byte {
	return AppendHeader(dst, bsontype.MaxKey, key)
}

// AppendMinKeyElement appends a min key element with the given key to dst.
func AppendMinKeyElement(dst []byte, key string) []byte {
	return AppendHeader(dst, bsontype.MinKey, key)
}

// EqualValue returns true if the two value byte spans represent equal values
// of equal types.
func EqualValue(t1, t2 bsontype.Type, v1, v2 []byte) bool {
	if t1 != t2 {
		return false
	}
	length1, ok := ValueLength(t1, v1)
	if !ok {
		return false
	}
	length2, ok := ValueLength(t2, v2)
	if !ok {
		return false
	}
	return bytes.Equal(v1[:length1], v2[:length2])
}

// ValueLength returns the number of bytes the value of type t occupies at the
// start of val. It returns false if val holds fewer bytes than the type's
// layout requires.
func ValueLength(t bsontype.Type, val []byte) (int32, bool) {
	var length int32
	ok := true
	switch t {
	case bsontype.Array, bsontype.EmbeddedDocument, bsontype.CodeWithScope:
		length, _, ok = readLength(val)
	case bsontype.Binary:
		length, _, ok = readLength(val)
		if ok && len(val) > 4 && val[4] == 0x02 {
			var inner int32
			inner, _, ok = readLength(val[5:])
			if ok && inner != length-4 {
				ok = false
			}
		}
		length += 4 + 1 // length prefix + subtype byte
	case bsontype.Boolean:
		length = 1
	case bsontype.DBPointer:
		length, _, ok = readLength(val)
		length += 4 + 12 // string length prefix + ObjectID
	case bsontype.DateTime, bsontype.Double, bsontype.Int64, bsontype.Timestamp:
		length = 8
	case bsontype.Decimal128:
		length = 16
	case bsontype.Int32:
		length = 4
	case bsontype.JavaScript, bsontype.String, bsontype.Symbol:
		length, _, ok = readLength(val)
		length += 4
	case bsontype.MaxKey, bsontype.MinKey, bsontype.Null, bsontype.Undefined:
		length = 0
	case bsontype.ObjectID:
		length = 12
	case bsontype.Regex:
		pattern := bytes.IndexByte(val, 0x00)
		if pattern < 0 {
			ok = false
			break
		}
		options := bytes.IndexByte(val[pattern+1:], 0x00)
		if options < 0 {
			ok = false
			break
		}
		length = int32(pattern + 1 + options + 1)
	default:
		ok = false
	}

	if !ok || length < 0 || len(val) < int(length) {
		return 0, false
	}
	return length, true
}

func appendLength(dst []byte, l int32) []byte { return appendi32(dst, l) }

func appendi32(dst []byte, i32 int32) []byte {
	return append(dst, byte(i32), byte(i32>>8), byte(i32>>16), byte(i32>>24))
}

func readLength(src []byte) (int32, []byte, bool) { return readi32(src) }

func readi32(src []byte) (int32, []byte, bool) {
	if len(src) < 4 {
		return 0, src, false
	}
	return int32(src[0]) | int32(src[1])<<8 | int32(src[2])<<16 | int32(src[3])<<24, src[4:], true
}

func appendi64(dst []byte, i64 int64) []byte {
	return append(dst,
		byte(i64), byte(i64>>8), byte(i64>>16), byte(i64>>24),
		byte(i64>>32), byte(i64>>40), byte(i64>>48), byte(i64>>56),
	)
}

func readi64(src []byte) (int64, []byte, bool) {
	u64, rem, ok := readu64(src)
	return int64(u64), rem, ok
}

func appendu32(dst []byte, u32 uint32) []byte {
	return append(dst, byte(u32), byte(u32>>8), byte(u32>>16), byte(u32>>24))
}

func readu32(src []byte) (uint32, []byte, bool) {
	if len(src) < 4 {
		return 0, src, false
	}
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24, src[4:], true
}

func appendu64(dst []byte, u64 uint64) []byte {
	return append(dst,
		byte(u64), byte(u64>>8), byte(u64>>16), byte(u64>>24),
		byte(u64>>32), byte(u64>>40), byte(u64>>48), byte(u64>>56),
	)
}

func readu64(src []byte) (uint64, []byte, bool) {
	if len(src) < 8 {
		return 0, src, false
	}
	u64 := uint64(src[0]) | uint64(src[1])<<8 | uint64(src[2])<<16 | uint64(src[3])<<24 |
		uint64(src[4])<<32 | uint64(src[5])<<40 | uint64(src[6])<<48 | uint64(src[7])<<56
	return u64, src[8:], true
}

func appendstring(dst []byte, s string) []byte {
	dst = appendLength(dst, int32(len(s)+1))
	dst = append(dst, s...)
	return append(dst, 0x00)
}

func readstring(src []byte) (string, []byte, bool) {
	l, rem, ok := readLength(src)
	if !ok || l < 1 || len(rem) < int(l) {
		return "", src, false
	}
	if rem[l-1] != 0x00 {
		return "", src, false
	}
	return string(rem[:l-1]), rem[l:], true
}

// readLengthBytes reads a length and that many bytes, the length prefix
// included in the count.
func readLengthBytes(src []byte) ([]byte, []byte, bool) {
	l, _, ok := readLength(src)
	if !ok || l < 5 || len(src) < int(l) {
		return nil, src, false
	}
	return src[:l], src[l:], true
}
