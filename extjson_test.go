package bson

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/pretty"

	"github.com/ikmak/bson/decimal"
	"github.com/ikmak/bson/objectid"
)

func TestParseExtJSONDualDialect(t *testing.T) {
	// The relaxed and canonical spellings of a value must parse identically.
	testCases := []struct {
		name      string
		relaxed   string
		canonical string
	}{
		{"int32", `{"a":42}`, `{"a":{"$numberInt":"42"}}`},
		{"int64", `{"a":2147483648}`, `{"a":{"$numberLong":"2147483648"}}`},
		{"double", `{"a":3.25}`, `{"a":{"$numberDouble":"3.25"}}`},
		{"nested", `{"a":{"b":[1,2]}}`, `{"a":{"b":[{"$numberInt":"1"},{"$numberInt":"2"}]}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rd, err := ParseExtJSONObject([]byte(tc.relaxed))
			require.NoError(t, err)
			cd, err := ParseExtJSONObject([]byte(tc.canonical))
			require.NoError(t, err)
			require.True(t, rd.Equal(cd), "relaxed %s != canonical %s", rd, cd)
		})
	}
}

func TestParseExtJSONWrappers(t *testing.T) {
	oid, err := objectid.FromHex("5a9b1c8f9d2e3f4a5b6c7d8e")
	require.NoError(t, err)
	d128, err := decimal.ParseDecimal128("1.5")
	require.NoError(t, err)

	testCases := []struct {
		name     string
		json     string
		expected Val
	}{
		{"$numberInt", `{"v":{"$numberInt":"-42"}}`, VC.Int32(-42)},
		{"$numberLong", `{"v":{"$numberLong":"9223372036854775807"}}`, VC.Int64(math.MaxInt64)},
		{"$numberDouble", `{"v":{"$numberDouble":"3.25"}}`, VC.Double(3.25)},
		{"$numberDouble infinity", `{"v":{"$numberDouble":"-Infinity"}}`, VC.Double(math.Inf(-1))},
		{"$numberDecimal", `{"v":{"$numberDecimal":"1.5"}}`, VC.Decimal128(d128)},
		{"$oid", `{"v":{"$oid":"5a9b1c8f9d2e3f4a5b6c7d8e"}}`, VC.ObjectID(oid)},
		{"$symbol", `{"v":{"$symbol":"sym"}}`, VC.Symbol("sym")},
		{"$binary", `{"v":{"$binary":{"base64":"AQID","subType":"80"}}}`, VC.BinaryWithSubtype([]byte{1, 2, 3}, 0x80)},
		{"$code", `{"v":{"$code":"var x = 1;"}}`, VC.JavaScript("var x = 1;")},
		{
			"$code with $scope",
			`{"v":{"$code":"function(){}","$scope":{"x":{"$numberInt":"1"}}}}`,
			VC.CodeWithScope("function(){}", NewDocument(EC.Int32("x", 1))),
		},
		{
			"$scope before $code",
			`{"v":{"$scope":{"x":{"$numberInt":"1"}},"$code":"function(){}"}}`,
			VC.CodeWithScope("function(){}", NewDocument(EC.Int32("x", 1))),
		},
		{"$timestamp", `{"v":{"$timestamp":{"t":100,"i":7}}}`, VC.Timestamp(100, 7)},
		{"$regularExpression", `{"v":{"$regularExpression":{"pattern":"ab+c","options":"ix"}}}`, VC.Regex("ab+c", "ix")},
		{
			"$dbPointer",
			`{"v":{"$dbPointer":{"$ref":"db.coll","$id":{"$oid":"5a9b1c8f9d2e3f4a5b6c7d8e"}}}}`,
			VC.DBPointer("db.coll", oid),
		},
		{"$date ISO", `{"v":{"$date":"2019-08-11T17:54:14.692Z"}}`, VC.DateTime(1565546054692)},
		{"$date numberLong", `{"v":{"$date":{"$numberLong":"-1576261062000"}}}`, VC.DateTime(-1576261062000)},
		{"$minKey", `{"v":{"$minKey":1}}`, VC.MinKey()},
		{"$maxKey", `{"v":{"$maxKey":1}}`, VC.MaxKey()},
		{"$undefined", `{"v":{"$undefined":true}}`, VC.Undefined()},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := ParseExtJSONObject([]byte(tc.json))
			require.NoError(t, err)
			val, err := doc.Lookup("v")
			require.NoError(t, err)
			require.True(t, tc.expected.Equal(val), "expected %s, got %s", tc.expected, val)
		})
	}
}

func TestParseExtJSONErrors(t *testing.T) {
	testCases := []struct {
		name    string
		json    string
		keyPath []string
	}{
		{"extra wrapper key", `{"a":{"$numberInt":"42","bogus":1}}`, []string{"a"}},
		{"wrong payload shape", `{"out":{"in":{"$numberLong":true}}}`, []string{"out", "in", "$numberLong"}},
		{"unparsable int32", `{"a":{"$numberInt":"abc"}}`, []string{"a", "$numberInt"}},
		{"int32 overflow", `{"a":{"$numberInt":"2147483648"}}`, []string{"a", "$numberInt"}},
		{"binary missing subType", `{"a":{"$binary":{"base64":"AQID"}}}`, []string{"a", "$binary"}},
		{"binary bad base64", `{"a":{"$binary":{"base64":"!!","subType":"00"}}}`, []string{"a", "$binary", "base64"}},
		{"timestamp non-number", `{"a":{"$timestamp":{"t":"1","i":2}}}`, []string{"a", "$timestamp", "t"}},
		{"scope without code", `{"a":{"$scope":{}}}`, []string{"a"}},
		{"minKey wrong value", `{"a":{"$minKey":2}}`, []string{"a", "$minKey"}},
		{"undefined wrong value", `{"a":{"$undefined":false}}`, []string{"a", "$undefined"}},
		{"date bad ISO string", `{"a":{"$date":"not a date"}}`, []string{"a", "$date"}},
		{"error inside array", `{"a":[{"$numberInt":"x"}]}`, []string{"a", "0", "$numberInt"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseExtJSONObject([]byte(tc.json))
			require.Error(t, err)
			extErr, ok := err.(ExtJSONError)
			require.True(t, ok, "expected ExtJSONError, got %T: %v", err, err)
			require.Equal(t, tc.keyPath, extErr.KeyPath, "error: %v", err)
		})
	}

	t.Run("top-level wrapper", func(t *testing.T) {
		_, err := ParseExtJSONObject([]byte(`{"$numberInt":"42"}`))
		require.Error(t, err)
	})
	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseExtJSONObject([]byte(`{"a":`))
		require.Error(t, err)
	})
	t.Run("key with null byte", func(t *testing.T) {
		_, err := ParseExtJSONObject([]byte("{\"a\\u0000b\":1}"))
		require.Error(t, err)
	})
}

func TestParseRelaxedNumberBoundaries(t *testing.T) {
	testCases := []struct {
		name     string
		json     string
		expected Val
	}{
		{"max int32", `{"v":2147483647}`, VC.Int32(math.MaxInt32)},
		{"min int32", `{"v":-2147483648}`, VC.Int32(math.MinInt32)},
		{"int32 plus one", `{"v":2147483648}`, VC.Int64(2147483648)},
		{"max int64", `{"v":9223372036854775807}`, VC.Int64(math.MaxInt64)},
		{"int64 plus one", `{"v":9223372036854775808}`, VC.Double(9223372036854775808.0)},
		{"fraction", `{"v":1.5}`, VC.Double(1.5)},
		{"exponent", `{"v":1e3}`, VC.Double(1000)},
		{"integral with exponent", `{"v":2E2}`, VC.Double(200)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := ParseExtJSONObject([]byte(tc.json))
			require.NoError(t, err)
			val, err := doc.Lookup("v")
			require.NoError(t, err)
			require.Equal(t, tc.expected.Type(), val.Type())
			require.True(t, tc.expected.Equal(val), "expected %s, got %s", tc.expected, val)
		})
	}
}

func TestMarshalExtJSON(t *testing.T) {
	doc := NewDocument(
		EC.Int32("i32", 42),
		EC.Int64("i64", 2147483648),
		EC.Double("dbl", 3.25),
		EC.String("str", "hello"),
		EC.DateTime("when", 1565546054692),
		EC.Boolean("ok", true),
		EC.Null("nothing"),
	)

	t.Run("canonical", func(t *testing.T) {
		got, err := MarshalExtJSON(doc, true)
		require.NoError(t, err)
		expected := pretty.Ugly([]byte(`{
			"i32": {"$numberInt": "42"},
			"i64": {"$numberLong": "2147483648"},
			"dbl": {"$numberDouble": "3.25"},
			"str": "hello",
			"when": {"$date": {"$numberLong": "1565546054692"}},
			"ok": true,
			"nothing": null
		}`))
		require.Equal(t, string(expected), string(got))
	})
	t.Run("relaxed", func(t *testing.T) {
		got, err := MarshalExtJSON(doc, false)
		require.NoError(t, err)
		expected := pretty.Ugly([]byte(`{
			"i32": 42,
			"i64": 2147483648,
			"dbl": 3.25,
			"str": "hello",
			"when": {"$date": "2019-08-11T17:54:14.692Z"},
			"ok": true,
			"nothing": null
		}`))
		require.Equal(t, string(expected), string(got))
	})
}

func TestExtJSONDateRendering(t *testing.T) {
	t.Run("whole seconds omit the fraction", func(t *testing.T) {
		got, err := MarshalExtJSON(NewDocument(EC.DateTime("d", 1565546054000)), false)
		require.NoError(t, err)
		require.Equal(t, `{"d":{"$date":"2019-08-11T17:54:14Z"}}`, string(got))
	})
	t.Run("pre-epoch dates use $numberLong even when relaxed", func(t *testing.T) {
		got, err := MarshalExtJSON(NewDocument(EC.DateTime("d", -1576261062000)), false)
		require.NoError(t, err)
		require.Equal(t, `{"d":{"$date":{"$numberLong":"-1576261062000"}}}`, string(got))
	})
}

func TestExtJSONDoubleRendering(t *testing.T) {
	t.Run("integral doubles keep a fraction", func(t *testing.T) {
		got, err := MarshalExtJSON(NewDocument(EC.Double("d", 10)), false)
		require.NoError(t, err)
		require.Equal(t, `{"d":10.0}`, string(got))
	})
	t.Run("non-finite doubles wrap even when relaxed", func(t *testing.T) {
		got, err := MarshalExtJSON(NewDocument(EC.Double("d", math.NaN())), false)
		require.NoError(t, err)
		require.Equal(t, `{"d":{"$numberDouble":"NaN"}}`, string(got))

		got, err = MarshalExtJSON(NewDocument(EC.Double("d", math.Inf(1))), false)
		require.NoError(t, err)
		require.Equal(t, `{"d":{"$numberDouble":"Infinity"}}`, string(got))
	})
}

func TestExtJSONStringEscaping(t *testing.T) {
	got, err := MarshalExtJSON(NewDocument(EC.String("s", "a\"b\\c\nd\te\x01f")), false)
	require.NoError(t, err)
	require.Equal(t, `{"s":"a\"b\\c\nd\te\u0001f"}`, string(got))

	// Invalid UTF-8 is replaced rather than emitted raw.
	got, err = MarshalExtJSON(NewDocument(EC.String("s", "a\xffb")), false)
	require.NoError(t, err)
	require.Equal(t, `{"s":"a�b"}`, string(got))
}

func TestExtJSONRoundTrip(t *testing.T) {
	oid := objectid.New()
	d128, err := decimal.ParseDecimal128("-1.5E+3")
	require.NoError(t, err)

	doc := NewDocument(
		EC.Double("double", 3.14159),
		EC.String("string", "hello"),
		EC.SubDocumentFromElements("doc", EC.Int32("x", 1)),
		EC.ArrayFromValues("arr", VC.Int32(1), VC.String("two"), VC.Null()),
		EC.BinaryWithSubtype("binary", []byte{1, 2, 3}, 0x80),
		EC.Undefined("undefined"),
		EC.ObjectID("oid", oid),
		EC.Boolean("bool", true),
		EC.DateTime("date", 1565546054692),
		EC.Null("null"),
		EC.Regex("regex", "ab+c", "ix"),
		EC.DBPointer("dbpointer", "db.coll", oid),
		EC.JavaScript("code", "var x = 1;"),
		EC.Symbol("symbol", "sym"),
		EC.CodeWithScope("cws", "function(){}", NewDocument(EC.Int32("y", 2))),
		EC.Int32("int32", -42),
		EC.Timestamp("timestamp", 100, 7),
		EC.Int64("int64", 1<<40),
		EC.Decimal128("decimal", d128),
		EC.MinKey("min"),
		EC.MaxKey("max"),
	)

	for _, canonical := range []bool{true, false} {
		b, err := MarshalExtJSON(doc, canonical)
		require.NoError(t, err)

		got, err := ParseExtJSONObject(b)
		require.NoError(t, err)
		require.True(t, doc.Equal(got), "canonical=%v:\nexpected %s\ngot      %s", canonical, doc, got)
	}
}

func TestParseExtJSONArrayTopLevel(t *testing.T) {
	arr, err := ParseExtJSONArray([]byte(`[1,"two",{"$numberLong":"3"},null]`))
	require.NoError(t, err)
	require.Len(t, arr, 4)
	require.Equal(t, int32(1), arr[0].Int32())
	require.Equal(t, "two", arr[1].StringValue())
	require.Equal(t, int64(3), arr[2].Int64())
	require.Equal(t, TypeNull, arr[3].Type())
}

func TestUnmarshalExtJSONStruct(t *testing.T) {
	type target struct {
		A int32  `bson:"a"`
		B string `bson:"b"`
	}

	var relaxed target
	require.NoError(t, UnmarshalExtJSON([]byte(`{"a":42,"b":"hi"}`), &relaxed))
	require.Equal(t, target{A: 42, B: "hi"}, relaxed)

	var canonical target
	require.NoError(t, UnmarshalExtJSON([]byte(`{"a":{"$numberInt":"42"},"b":"hi"}`), &canonical))
	require.Equal(t, relaxed, canonical)
}
