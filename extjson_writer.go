package bson

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// rfc3339Milli is the RFC 3339 layout with up to millisecond precision. The
// fractional second is omitted when the value is a whole second.
const rfc3339Milli = "2006-01-02T15:04:05.999Z07:00"

// writeExtJSONDocument renders the document bytes raw as an Extended JSON
// object. canonical selects the canonical dialect; otherwise the relaxed
// dialect is used.
func writeExtJSONDocument(buf *bytes.Buffer, raw []byte, canonical bool) error {
	if len(raw) < 5 {
		return NewErrTooSmall()
	}
	buf.WriteByte('{')
	pos := 4
	first := true
	for pos < len(raw)-1 {
		ref, err := parseElemAt(raw, pos)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		writeJSONString(buf, ref.key)
		buf.WriteByte(':')
		val, _, err := readValue(ref.t, raw[ref.value:ref.end])
		if err != nil {
			return err
		}
		if err := writeExtJSONValue(buf, val, canonical); err != nil {
			return err
		}
		pos = ref.end
		first = false
	}
	buf.WriteByte('}')
	return nil
}

func writeExtJSONArray(buf *bytes.Buffer, arr Arr, canonical bool) error {
	buf.WriteByte('[')
	for idx, val := range arr {
		if idx > 0 {
			buf.WriteByte(',')
		}
		if err := writeExtJSONValue(buf, val, canonical); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

// writeExtJSONValue renders a single value as Extended JSON. In the relaxed
// dialect int32, int64, and finite doubles render as plain JSON numbers and
// datetimes within the formattable year range render as ISO-8601 strings;
// everything else uses the same $-wrapper in both dialects.
func writeExtJSONValue(buf *bytes.Buffer, v Val, canonical bool) error {
	switch v.Type() {
	case TypeDouble:
		f := v.Double()
		if !canonical && !math.IsInf(f, 0) && !math.IsNaN(f) {
			buf.WriteString(formatDouble(f))
			return nil
		}
		buf.WriteString(`{"$numberDouble":"`)
		buf.WriteString(formatDouble(f))
		buf.WriteString(`"}`)
	case TypeString:
		writeJSONString(buf, v.StringValue())
	case TypeEmbeddedDocument:
		return writeExtJSONDocument(buf, v.Document().buf, canonical)
	case TypeArray:
		return writeExtJSONArray(buf, v.Array(), canonical)
	case TypeBinary:
		bin := v.Binary()
		buf.WriteString(`{"$binary":{"base64":"`)
		buf.WriteString(base64.StdEncoding.EncodeToString(bin.Data))
		buf.WriteString(`","subType":"`)
		fmt.Fprintf(buf, "%02x", bin.Subtype)
		buf.WriteString(`"}}`)
	case TypeUndefined:
		buf.WriteString(`{"$undefined":true}`)
	case TypeObjectID:
		buf.WriteString(`{"$oid":"`)
		buf.WriteString(v.ObjectID().Hex())
		buf.WriteString(`"}`)
	case TypeBoolean:
		buf.WriteString(strconv.FormatBool(v.Boolean()))
	case TypeDateTime:
		dt := v.DateTime()
		if !canonical && dt >= 0 && v.Time().Year() <= 9999 {
			buf.WriteString(`{"$date":"`)
			buf.WriteString(v.Time().Format(rfc3339Milli))
			buf.WriteString(`"}`)
			return nil
		}
		buf.WriteString(`{"$date":{"$numberLong":"`)
		buf.WriteString(strconv.FormatInt(dt, 10))
		buf.WriteString(`"}}`)
	case TypeNull:
		buf.WriteString("null")
	case TypeRegex:
		rgx := v.Regex()
		buf.WriteString(`{"$regularExpression":{"pattern":`)
		writeJSONString(buf, rgx.Pattern)
		buf.WriteString(`,"options":`)
		writeJSONString(buf, rgx.Options)
		buf.WriteString(`}}`)
	case TypeDBPointer:
		dbp := v.DBPointer()
		buf.WriteString(`{"$dbPointer":{"$ref":`)
		writeJSONString(buf, dbp.DB)
		buf.WriteString(`,"$id":{"$oid":"`)
		buf.WriteString(dbp.Pointer.Hex())
		buf.WriteString(`"}}}`)
	case TypeJavaScript:
		buf.WriteString(`{"$code":`)
		writeJSONString(buf, string(v.JavaScript()))
		buf.WriteByte('}')
	case TypeSymbol:
		buf.WriteString(`{"$symbol":`)
		writeJSONString(buf, string(v.Symbol()))
		buf.WriteByte('}')
	case TypeCodeWithScope:
		cws := v.JavaScriptWithScope()
		buf.WriteString(`{"$code":`)
		writeJSONString(buf, cws.Code)
		buf.WriteString(`,"$scope":`)
		if err := writeExtJSONDocument(buf, cws.Scope.buf, canonical); err != nil {
			return err
		}
		buf.WriteByte('}')
	case TypeInt32:
		if !canonical {
			buf.WriteString(strconv.FormatInt(int64(v.Int32()), 10))
			return nil
		}
		buf.WriteString(`{"$numberInt":"`)
		buf.WriteString(strconv.FormatInt(int64(v.Int32()), 10))
		buf.WriteString(`"}`)
	case TypeTimestamp:
		ts := v.Timestamp()
		buf.WriteString(`{"$timestamp":{"t":`)
		buf.WriteString(strconv.FormatUint(uint64(ts.T), 10))
		buf.WriteString(`,"i":`)
		buf.WriteString(strconv.FormatUint(uint64(ts.I), 10))
		buf.WriteString(`}}`)
	case TypeInt64:
		if !canonical {
			buf.WriteString(strconv.FormatInt(v.Int64(), 10))
			return nil
		}
		buf.WriteString(`{"$numberLong":"`)
		buf.WriteString(strconv.FormatInt(v.Int64(), 10))
		buf.WriteString(`"}`)
	case TypeDecimal128:
		buf.WriteString(`{"$numberDecimal":"`)
		buf.WriteString(v.Decimal128().String())
		buf.WriteString(`"}`)
	case TypeMinKey:
		buf.WriteString(`{"$minKey":1}`)
	case TypeMaxKey:
		buf.WriteString(`{"$maxKey":1}`)
	default:
		return fmt.Errorf("invalid BSON type %v", byte(v.Type()))
	}
	return nil
}

func formatDouble(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	s := strconv.FormatFloat(f, 'G', -1, 64)
	if !strings.ContainsAny(s, ".E") {
		s += ".0"
	}
	return s
}

// writeJSONString writes s as a quoted, escaped JSON string.
func writeJSONString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < 0x20 || c == '"' || c == '\\' {
			switch c {
			case '"':
				buf.WriteString(`\"`)
			case '\\':
				buf.WriteString(`\\`)
			case '\b':
				buf.WriteString(`\b`)
			case '\f':
				buf.WriteString(`\f`)
			case '\n':
				buf.WriteString(`\n`)
			case '\r':
				buf.WriteString(`\r`)
			case '\t':
				buf.WriteString(`\t`)
			default:
				fmt.Fprintf(buf, `\u%04x`, c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf.WriteString(`�`)
			i++
			continue
		}
		buf.WriteString(s[i : i+size])
		i += size
	}
	buf.WriteByte('"')
}
