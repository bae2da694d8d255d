package bson

import (
	"bytes"
	"io"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ikmak/bson/decimal"
	"github.com/ikmak/bson/objectid"
)

// docCapture stores the raw document bytes it was decoded from.
type docCapture struct{ raw []byte }

func (d *docCapture) UnmarshalBSON(b []byte) error {
	d.raw = append([]byte(nil), b...)
	return nil
}

// int32Capture stores the stored value's int32 form.
type int32Capture int32

func (c *int32Capture) UnmarshalBSONValue(v Val) error {
	i32, ok := v.Int32OK()
	if !ok {
		return TypeMismatchError{Stored: v.Type()}
	}
	*c = int32Capture(i32)
	return nil
}

func mustMarshal(t *testing.T, val interface{}) []byte {
	t.Helper()
	b, err := Marshal(val)
	require.NoError(t, err)
	return b
}

func TestUnmarshalStruct(t *testing.T) {
	type person struct {
		Name    string `bson:"name"`
		Age     int32  `bson:"age"`
		Email   string `bson:",omitempty"`
		Nick    *string
		Balance int64 `bson:"balance,minsize"`
	}

	t.Run("round trip", func(t *testing.T) {
		nick := "al"
		p := person{Name: "Alice", Age: 30, Email: "a@b.c", Nick: &nick, Balance: 5}

		var got person
		require.NoError(t, Unmarshal(mustMarshal(t, p), &got))
		require.Empty(t, cmp.Diff(p, got))
	})
	t.Run("missing required field", func(t *testing.T) {
		var got person
		err := Unmarshal(mustMarshal(t, NewDocument(EC.String("name", "Bob"), EC.Int32("age", 1))), &got)
		require.Error(t, err)
		require.Contains(t, err.Error(), `missing key "balance"`)
	})
	t.Run("omitempty and pointer fields may be absent", func(t *testing.T) {
		var got person
		doc := NewDocument(EC.String("name", "Bob"), EC.Int32("age", 1), EC.Int64("balance", 2))
		require.NoError(t, Unmarshal(mustMarshal(t, doc), &got))
		require.Equal(t, "", got.Email)
		require.Nil(t, got.Nick)
	})
	t.Run("null clears a pointer field", func(t *testing.T) {
		nick := "al"
		got := person{Nick: &nick}
		doc := NewDocument(
			EC.String("name", "Bob"), EC.Int32("age", 1),
			EC.Null("nick"), EC.Int64("balance", 2),
		)
		require.NoError(t, Unmarshal(mustMarshal(t, doc), &got))
		require.Nil(t, got.Nick)
	})
	t.Run("unknown keys are ignored", func(t *testing.T) {
		var got person
		doc := NewDocument(
			EC.String("name", "Bob"), EC.Int32("age", 1),
			EC.String("stray", "x"), EC.Int64("balance", 2),
		)
		require.NoError(t, Unmarshal(mustMarshal(t, doc), &got))
		require.Equal(t, "Bob", got.Name)
	})
	t.Run("duplicate keys, first match wins", func(t *testing.T) {
		var got person
		doc := NewDocument(
			EC.String("name", "first"), EC.String("name", "second"),
			EC.Int32("age", 1), EC.Int64("balance", 2),
		)
		require.NoError(t, Unmarshal(mustMarshal(t, doc), &got))
		require.Equal(t, "first", got.Name)
	})
}

func TestUnmarshalInlineMap(t *testing.T) {
	type bag struct {
		A    int32             `bson:"a"`
		Rest map[string]string `bson:",inline"`
	}

	var got bag
	doc := NewDocument(EC.Int32("a", 1), EC.String("b", "2"), EC.String("z", "1"))
	require.NoError(t, Unmarshal(mustMarshal(t, doc), &got))
	require.Equal(t, int32(1), got.A)
	require.Empty(t, cmp.Diff(map[string]string{"b": "2", "z": "1"}, got.Rest))
}

func TestUnmarshalNumericCoercion(t *testing.T) {
	unmarshalValue := func(t *testing.T, v Val, target interface{}) error {
		t.Helper()
		data, err := v.append(nil)
		require.NoError(t, err)
		return UnmarshalValue(v.Type(), data, target)
	}

	t.Run("int64 into int8", func(t *testing.T) {
		var i8 int8
		require.NoError(t, unmarshalValue(t, VC.Int64(127), &i8))
		require.Equal(t, int8(127), i8)

		err := unmarshalValue(t, VC.Int64(128), &i8)
		require.Error(t, err)
		require.IsType(t, TypeMismatchError{}, err)
	})
	t.Run("int32 widens into int64", func(t *testing.T) {
		var i64 int64
		require.NoError(t, unmarshalValue(t, VC.Int32(42), &i64))
		require.Equal(t, int64(42), i64)
	})
	t.Run("fraction-free double into int32", func(t *testing.T) {
		var i32 int32
		require.NoError(t, unmarshalValue(t, VC.Double(42.0), &i32))
		require.Equal(t, int32(42), i32)
	})
	t.Run("fractional double into int32 fails", func(t *testing.T) {
		var i32 int32
		err := unmarshalValue(t, VC.Double(42.5), &i32)
		require.Error(t, err)
		require.IsType(t, TypeMismatchError{}, err)
	})
	t.Run("double outside the int64 range fails", func(t *testing.T) {
		var i64 int64
		err := unmarshalValue(t, VC.Double(9223372036854775808.0), &i64)
		require.Error(t, err)
		require.IsType(t, TypeMismatchError{}, err)
	})
	t.Run("NaN into int fails", func(t *testing.T) {
		var i int
		require.Error(t, unmarshalValue(t, VC.Double(math.NaN()), &i))
	})
	t.Run("negative into uint fails", func(t *testing.T) {
		var u32 uint32
		err := unmarshalValue(t, VC.Int64(-1), &u32)
		require.Error(t, err)
		require.IsType(t, TypeMismatchError{}, err)
	})
	t.Run("uint overflow fails", func(t *testing.T) {
		var u16 uint16
		require.Error(t, unmarshalValue(t, VC.Int64(65536), &u16))
		require.NoError(t, unmarshalValue(t, VC.Int64(65535), &u16))
		require.Equal(t, uint16(65535), u16)
	})
	t.Run("int64 into float64 must be exact", func(t *testing.T) {
		var f64 float64
		require.NoError(t, unmarshalValue(t, VC.Int64(1<<53), &f64))
		require.Equal(t, float64(1<<53), f64)

		err := unmarshalValue(t, VC.Int64(1<<53+1), &f64)
		require.Error(t, err)
		require.IsType(t, TypeMismatchError{}, err)
	})
	t.Run("double into float32 must be exact", func(t *testing.T) {
		var f32 float32
		require.NoError(t, unmarshalValue(t, VC.Double(3.5), &f32))
		require.Equal(t, float32(3.5), f32)

		err := unmarshalValue(t, VC.Double(1.1), &f32)
		require.Error(t, err)
		require.IsType(t, TypeMismatchError{}, err)
	})
	t.Run("non-numeric stored type", func(t *testing.T) {
		var i32 int32
		err := unmarshalValue(t, VC.String("42"), &i32)
		require.Error(t, err)
		require.IsType(t, TypeMismatchError{}, err)
	})
}

func TestDecoderTruncate(t *testing.T) {
	type holder struct {
		N int32   `bson:"n"`
		F float32 `bson:"f"`
	}
	raw := mustMarshal(t, NewDocument(EC.Double("n", 42.5), EC.Double("f", 1.1)))

	t.Run("without truncate", func(t *testing.T) {
		var got holder
		dec := NewDecoder(bytes.NewReader(raw))
		require.Error(t, dec.Decode(&got))
	})
	t.Run("with truncate", func(t *testing.T) {
		var got holder
		dec := NewDecoder(bytes.NewReader(raw))
		dec.SetTruncate(true)
		require.NoError(t, dec.Decode(&got))
		require.Equal(t, int32(42), got.N)
		require.Equal(t, float32(1.1), got.F)
	})
}

func TestUnmarshalValNoCoercion(t *testing.T) {
	// Decoding into a *Val keeps the stored type untouched.
	data, err := VC.Double(42.0).append(nil)
	require.NoError(t, err)

	var v Val
	require.NoError(t, UnmarshalValue(TypeDouble, data, &v))
	require.Equal(t, TypeDouble, v.Type())
	require.Equal(t, 42.0, v.Double())
}

func TestUnmarshalInterface(t *testing.T) {
	doc := NewDocument(
		EC.Int32("i", 1),
		EC.String("s", "x"),
		EC.ArrayFromValues("a", VC.Int64(2)),
		EC.SubDocumentFromElements("d", EC.Boolean("b", true)),
	)

	var got map[string]interface{}
	require.NoError(t, Unmarshal(mustMarshal(t, doc), &got))

	require.Equal(t, int32(1), got["i"])
	require.Equal(t, "x", got["s"])
	arr, ok := got["a"].(Arr)
	require.True(t, ok, "expected an Arr, got %T", got["a"])
	require.Equal(t, int64(2), arr[0].Int64())
	sub, ok := got["d"].(*Document)
	require.True(t, ok, "expected a *Document, got %T", got["d"])
	require.True(t, NewDocument(EC.Boolean("b", true)).Equal(sub))
}

func TestUnmarshalerHooks(t *testing.T) {
	t.Run("Unmarshaler receives the document bytes", func(t *testing.T) {
		type holder struct {
			D docCapture `bson:"d"`
		}
		inner := NewDocument(EC.Int32("x", 1))
		raw := mustMarshal(t, NewDocument(EC.SubDocument("d", inner)))

		var got holder
		require.NoError(t, Unmarshal(raw, &got))
		innerRaw, err := inner.MarshalBSON()
		require.NoError(t, err)
		require.Equal(t, innerRaw, got.D.raw)
	})
	t.Run("Unmarshaler rejects non-documents", func(t *testing.T) {
		type holder struct {
			D docCapture `bson:"d"`
		}
		var got holder
		err := Unmarshal(mustMarshal(t, NewDocument(EC.Int32("d", 5))), &got)
		require.Error(t, err)
		require.IsType(t, TypeMismatchError{}, err)
	})
	t.Run("ValueUnmarshaler receives the value", func(t *testing.T) {
		type holder struct {
			C int32Capture `bson:"c"`
		}
		var got holder
		require.NoError(t, Unmarshal(mustMarshal(t, NewDocument(EC.Int32("c", 9))), &got))
		require.Equal(t, int32Capture(9), got.C)
	})
}

func TestUnmarshalSpecialTypes(t *testing.T) {
	oid := objectid.New()
	d128, err := decimal.ParseDecimal128("1.5")
	require.NoError(t, err)
	id, err := NewUUID()
	require.NoError(t, err)
	when := time.Date(2021, 5, 15, 12, 30, 0, 123000000, time.UTC)

	type everything struct {
		OID     objectid.ObjectID  `bson:"oid"`
		Dec     decimal.Decimal128 `bson:"dec"`
		ID      UUID               `bson:"id"`
		When    time.Time          `bson:"when"`
		Bin     Binary             `bson:"bin"`
		Rgx     Regex              `bson:"rgx"`
		Ts      Timestamp          `bson:"ts"`
		Code    JavaScriptCode     `bson:"code"`
		Sym     Symbol             `bson:"sym"`
		Raw     []byte             `bson:"raw"`
		SubDoc  *Document          `bson:"subdoc"`
		SubArr  Arr                `bson:"subarr"`
		Nothing Null               `bson:"nothing"`
	}

	in := everything{
		OID:     oid,
		Dec:     d128,
		ID:      id,
		When:    when,
		Bin:     Binary{Subtype: 0x80, Data: []byte{1, 2}},
		Rgx:     Regex{Pattern: "ab+c", Options: "i"},
		Ts:      Timestamp{T: 100, I: 7},
		Code:    JavaScriptCode("var x;"),
		Sym:     Symbol("sym"),
		Raw:     []byte{3, 4},
		SubDoc:  NewDocument(EC.Int32("x", 1)),
		SubArr:  Arr{VC.Int32(1), VC.String("two")},
		Nothing: Null{},
	}

	var got everything
	require.NoError(t, Unmarshal(mustMarshal(t, in), &got))

	require.Equal(t, in.OID, got.OID)
	require.Equal(t, in.Dec, got.Dec)
	require.Equal(t, in.ID, got.ID)
	require.True(t, in.When.Equal(got.When), "expected %v, got %v", in.When, got.When)
	require.True(t, in.Bin.Equal(got.Bin))
	require.True(t, in.Rgx.Equal(got.Rgx))
	require.True(t, in.Ts.Equal(got.Ts))
	require.Equal(t, in.Code, got.Code)
	require.Equal(t, in.Sym, got.Sym)
	require.Equal(t, in.Raw, got.Raw)
	require.True(t, in.SubDoc.Equal(got.SubDoc))
	require.True(t, in.SubArr.Equal(got.SubArr))
}

func TestUnmarshalByteSlice(t *testing.T) {
	type holder struct {
		B []byte `bson:"b"`
	}

	var got holder
	require.NoError(t, Unmarshal(mustMarshal(t, NewDocument(EC.Binary("b", []byte{1, 2}))), &got))
	require.Equal(t, []byte{1, 2}, got.B)

	require.NoError(t, Unmarshal(mustMarshal(t, NewDocument(EC.Null("b"))), &got))
	require.Nil(t, got.B)
}

func TestUnmarshalSlicesAndArrays(t *testing.T) {
	raw := mustMarshal(t, NewDocument(EC.ArrayFromValues("a", VC.Int32(1), VC.Int32(2))))

	t.Run("slice", func(t *testing.T) {
		var got struct {
			A []int32 `bson:"a"`
		}
		require.NoError(t, Unmarshal(raw, &got))
		require.Equal(t, []int32{1, 2}, got.A)
	})
	t.Run("array of matching length", func(t *testing.T) {
		var got struct {
			A [2]int32 `bson:"a"`
		}
		require.NoError(t, Unmarshal(raw, &got))
		require.Equal(t, [2]int32{1, 2}, got.A)
	})
	t.Run("array of the wrong length", func(t *testing.T) {
		var got struct {
			A [3]int32 `bson:"a"`
		}
		err := Unmarshal(raw, &got)
		require.Error(t, err)
		require.IsType(t, InvalidValueError{}, err)
	})
	t.Run("fixed byte array from binary", func(t *testing.T) {
		bin := mustMarshal(t, NewDocument(EC.Binary("a", []byte{9, 8})))
		var got struct {
			A [2]byte `bson:"a"`
		}
		require.NoError(t, Unmarshal(bin, &got))
		require.Equal(t, [2]byte{9, 8}, got.A)
	})
}

func TestUnmarshalMap(t *testing.T) {
	raw := mustMarshal(t, NewDocument(EC.Int64("a", 1), EC.Int64("b", 2)))

	var got map[string]int64
	require.NoError(t, Unmarshal(raw, &got))
	require.Empty(t, cmp.Diff(map[string]int64{"a": 1, "b": 2}, got))
}

func TestUnmarshalErrors(t *testing.T) {
	t.Run("nil target", func(t *testing.T) {
		require.Error(t, Unmarshal(helloWorldBytes, nil))
	})
	t.Run("non-pointer target", func(t *testing.T) {
		var got map[string]string
		require.Error(t, Unmarshal(helloWorldBytes, got))
	})
	t.Run("corrupt document", func(t *testing.T) {
		var got map[string]string
		require.Error(t, Unmarshal([]byte{0x01, 0x02}, &got))
	})
	t.Run("truncated value", func(t *testing.T) {
		var v Val
		err := UnmarshalValue(TypeDouble, []byte{0x01}, &v)
		require.IsType(t, ErrTooSmall{}, err)
	})
}

func TestDecoderStream(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(NewDocument(EC.Int32("a", 1))))
	require.NoError(t, enc.Encode(NewDocument(EC.Int32("a", 2))))

	dec := NewDecoder(&buf)
	var first, second, third map[string]int32
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	require.Equal(t, io.EOF, dec.Decode(&third))

	require.Equal(t, int32(1), first["a"])
	require.Equal(t, int32(2), second["a"])
}
