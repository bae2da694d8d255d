package bson

import (
	"bytes"
	"io"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// helloWorldBytes is the encoded form of {"hello": "world"}.
var helloWorldBytes = []byte{
	0x16, 0x00, 0x00, 0x00,
	0x02, 'h', 'e', 'l', 'l', 'o', 0x00,
	0x06, 0x00, 0x00, 0x00, 'w', 'o', 'r', 'l', 'd', 0x00,
	0x00,
}

// requireValid asserts the document's length prefix and structure are intact.
func requireValid(t *testing.T, d *Document) {
	t.Helper()
	size, err := d.Validate()
	require.NoError(t, err, "document failed validation: %s", spew.Sdump(d.buf))
	require.Equal(t, uint32(len(d.buf)), size)
}

func TestNewDocument(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		d := NewDocument()
		requireValid(t, d)
		require.Equal(t, 0, d.Len())
		require.Equal(t, minDocumentBytes(), d.buf)
	})
	t.Run("hello world", func(t *testing.T) {
		d := NewDocument(EC.String("hello", "world"))
		requireValid(t, d)
		require.Equal(t, helloWorldBytes, d.buf)
	})
	t.Run("invalid key panics", func(t *testing.T) {
		require.Panics(t, func() { NewDocument(EC.Int32("a\x00b", 1)) })
		require.Panics(t, func() { NewDocument(EC.Int32("", 1)) })
	})
	t.Run("nil subdocument panics", func(t *testing.T) {
		require.Panics(t, func() {
			NewDocument(Element{Key: "d", Value: Val{t: TypeEmbeddedDocument, primitive: (*Document)(nil)}})
		})
	})
}

func TestReadDocument(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d, err := ReadDocument(helloWorldBytes)
		require.NoError(t, err)
		requireValid(t, d)

		val, err := d.Lookup("hello")
		require.NoError(t, err)
		require.Equal(t, "world", val.StringValue())
	})
	t.Run("copies input", func(t *testing.T) {
		b := append([]byte(nil), helloWorldBytes...)
		d, err := ReadDocument(b)
		require.NoError(t, err)
		b[15] = 'X'
		val, err := d.Lookup("hello")
		require.NoError(t, err)
		require.Equal(t, "world", val.StringValue())
	})
	t.Run("length mismatch", func(t *testing.T) {
		b := append([]byte(nil), helloWorldBytes...)
		b[0] = 0x17
		_, err := ReadDocument(b)
		require.Equal(t, ErrInvalidLength, err)
	})
	t.Run("missing terminator", func(t *testing.T) {
		b := append([]byte(nil), helloWorldBytes...)
		b[len(b)-1] = 0x01
		_, err := ReadDocument(b)
		require.Equal(t, ErrInvalidReadOnlyDocument, err)
	})
	t.Run("truncated element", func(t *testing.T) {
		// Declared length matches but the string value runs past the buffer.
		b := append([]byte(nil), helloWorldBytes...)
		b[11] = 0x40
		_, err := ReadDocument(b)
		require.Error(t, err)
		require.IsType(t, ErrTooSmall{}, err)
	})
	t.Run("too small", func(t *testing.T) {
		_, err := ReadDocument([]byte{0x04, 0x00, 0x00})
		require.IsType(t, ErrTooSmall{}, err)
	})
	t.Run("invalid type tag", func(t *testing.T) {
		b := append([]byte(nil), helloWorldBytes...)
		b[4] = 0x20
		_, err := ReadDocument(b)
		require.Error(t, err)
	})
	t.Run("binary inner length disagreeing with outer", func(t *testing.T) {
		// Subtype 0x02 binary "a" declares a 10-byte inner payload inside a
		// 5-byte outer span; the next element "b" must stay unreachable.
		raw := []byte{
			0x1C, 0x00, 0x00, 0x00,
			0x05, 'a', 0x00,
			0x05, 0x00, 0x00, 0x00, 0x02, 0x0A, 0x00, 0x00, 0x00, 0x31,
			0x02, 'b', 0x00, 0x03, 0x00, 0x00, 0x00, '3', '0', 0x00,
			0x00,
		}
		_, err := ReadDocument(raw)
		require.Error(t, err)

		d := &Document{buf: raw}
		_, err = d.Lookup("a")
		require.Error(t, err)
	})
}

func TestDocumentMutationInvariant(t *testing.T) {
	// The length prefix must equal the buffer size after every mutation.
	d := NewDocument()
	requireValid(t, d)

	d.Append(EC.Int32("a", 1), EC.String("b", "two"))
	requireValid(t, d)
	require.Equal(t, 2, d.Len())

	d.Set("a", VC.String("a much longer replacement value"))
	requireValid(t, d)
	require.Equal(t, 2, d.Len())

	d.Set("c", VC.Boolean(true))
	requireValid(t, d)
	require.Equal(t, 3, d.Len())

	require.True(t, d.Delete("a"))
	requireValid(t, d)
	require.Equal(t, 2, d.Len())

	require.False(t, d.Delete("a"))
	requireValid(t, d)

	d.Reset()
	requireValid(t, d)
	require.Equal(t, 0, d.Len())
}

func TestDocumentSet(t *testing.T) {
	t.Run("replace keeps position", func(t *testing.T) {
		d := NewDocument(EC.Int32("a", 1), EC.Int32("b", 2))
		d.Set("a", VC.Int64(10))
		requireValid(t, d)

		elem, err := d.ElementAt(0)
		require.NoError(t, err)
		require.Equal(t, "a", elem.Key)
		require.Equal(t, int64(10), elem.Value.Int64())
	})
	t.Run("insert appends", func(t *testing.T) {
		d := NewDocument(EC.Int32("a", 1))
		d.Set("z", VC.Null())
		requireValid(t, d)

		elem, err := d.ElementAt(1)
		require.NoError(t, err)
		require.Equal(t, "z", elem.Key)
		require.Equal(t, TypeNull, elem.Value.Type())
	})
	t.Run("replaces only the first duplicate", func(t *testing.T) {
		d := NewDocument(EC.Int32("a", 1), EC.Int32("a", 2))
		d.Set("a", VC.Int32(99))
		requireValid(t, d)

		first, err := d.ElementAt(0)
		require.NoError(t, err)
		require.Equal(t, int32(99), first.Value.Int32())
		second, err := d.ElementAt(1)
		require.NoError(t, err)
		require.Equal(t, int32(2), second.Value.Int32())
	})
	t.Run("invalid key panics", func(t *testing.T) {
		d := NewDocument()
		require.Panics(t, func() { d.Set("", VC.Int32(1)) })
	})
	t.Run("nil document panics", func(t *testing.T) {
		var d *Document
		require.Panics(t, func() { d.Set("a", VC.Int32(1)) })
	})
}

func TestDocumentDeleteDuplicates(t *testing.T) {
	d := NewDocument(EC.Int32("a", 1), EC.Int32("a", 2))

	val, err := d.Lookup("a")
	require.NoError(t, err)
	require.Equal(t, int32(1), val.Int32())

	require.True(t, d.Delete("a"))
	val, err = d.Lookup("a")
	require.NoError(t, err)
	require.Equal(t, int32(2), val.Int32())

	require.True(t, d.Delete("a"))
	_, err = d.Lookup("a")
	require.Equal(t, ErrElementNotFound, err)
}

func TestDocumentLookup(t *testing.T) {
	d := NewDocument(
		EC.Int32("a", 1),
		EC.SubDocumentFromElements("sub",
			EC.String("x", "y"),
			EC.ArrayFromValues("arr", VC.Int32(5), VC.String("six")),
		),
	)

	t.Run("top level", func(t *testing.T) {
		val, err := d.Lookup("a")
		require.NoError(t, err)
		require.Equal(t, int32(1), val.Int32())
	})
	t.Run("nested document", func(t *testing.T) {
		val, err := d.Lookup("sub", "x")
		require.NoError(t, err)
		require.Equal(t, "y", val.StringValue())
	})
	t.Run("array index", func(t *testing.T) {
		val, err := d.Lookup("sub", "arr", "1")
		require.NoError(t, err)
		require.Equal(t, "six", val.StringValue())
	})
	t.Run("missing", func(t *testing.T) {
		_, err := d.Lookup("nope")
		require.Equal(t, ErrElementNotFound, err)
		_, ok := d.LookupOK("nope")
		require.False(t, ok)
	})
	t.Run("path through a non-container", func(t *testing.T) {
		_, err := d.Lookup("a", "deeper")
		require.Equal(t, ErrElementNotFound, err)
	})
	t.Run("no key", func(t *testing.T) {
		_, err := d.Lookup()
		require.Equal(t, ErrEmptyKey, err)
	})
	t.Run("nil document", func(t *testing.T) {
		var nilDoc *Document
		_, err := nilDoc.Lookup("a")
		require.Equal(t, ErrNilDocument, err)
	})
	t.Run("element", func(t *testing.T) {
		elem, err := d.LookupElement("sub", "x")
		require.NoError(t, err)
		require.Equal(t, "x", elem.Key)
	})
}

func TestDocumentFilter(t *testing.T) {
	d := NewDocument(EC.Int32("a", 1), EC.String("b", "x"), EC.Int32("c", 3))

	filtered, err := d.Filter(func(e Element) bool { return e.Value.Type() == TypeInt32 })
	require.NoError(t, err)
	requireValid(t, filtered)

	keys, err := filtered.Keys(false)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, keys)

	// The receiver is untouched.
	require.Equal(t, 3, d.Len())

	// Filtering the result again is a no-op.
	again, err := filtered.Filter(func(e Element) bool { return e.Value.Type() == TypeInt32 })
	require.NoError(t, err)
	require.True(t, filtered.Equal(again))
}

func TestDocumentElementAt(t *testing.T) {
	d := NewDocument(EC.Int32("a", 1), EC.Int32("b", 2))

	elem, err := d.ElementAt(1)
	require.NoError(t, err)
	require.Equal(t, "b", elem.Key)

	_, err = d.ElementAt(2)
	require.Equal(t, ErrOutOfBounds, err)
}

func TestDocumentKeys(t *testing.T) {
	d := NewDocument(
		EC.Int32("a", 1),
		EC.SubDocumentFromElements("sub",
			EC.Int32("x", 1),
			EC.ArrayFromValues("arr", VC.Int32(5)),
		),
	)

	flat, err := d.Keys(false)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff([]string{"a", "sub"}, flat))

	recursive, err := d.Keys(true)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff([]string{"a", "sub", "sub.x", "sub.arr", "sub.arr.0"}, recursive))
}

func TestIterator(t *testing.T) {
	t.Run("in order", func(t *testing.T) {
		elems := []Element{EC.Int32("a", 1), EC.String("b", "two"), EC.Boolean("c", true)}
		d := NewDocument(elems...)

		itr := d.Iterator()
		var got []Element
		for itr.Next() {
			got = append(got, itr.Element())
		}
		require.NoError(t, itr.Err())
		require.Len(t, got, len(elems))
		for i := range elems {
			require.True(t, elems[i].Equal(got[i]), "element %d mismatch: %s", i, spew.Sdump(got[i]))
		}
	})
	t.Run("corrupted buffer", func(t *testing.T) {
		d := NewDocument(EC.String("a", "abcdef"))
		// Inflate the string's length prefix past the buffer.
		d.buf[7] = 0x40

		itr := d.Iterator()
		require.False(t, itr.Next())
		require.Error(t, itr.Err())
	})
	t.Run("nil document", func(t *testing.T) {
		itr := newIterator(nil)
		require.False(t, itr.Next())
		require.Equal(t, ErrNilDocument, itr.Err())
	})
}

func TestDocumentWriteToReadFrom(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		d := NewDocument(EC.Int32("a", 1), EC.String("b", "two"))

		var buf bytes.Buffer
		n, err := d.WriteTo(&buf)
		require.NoError(t, err)
		require.Equal(t, int64(len(d.buf)), n)

		got, err := NewDocumentFromReader(&buf)
		require.NoError(t, err)
		require.True(t, d.Equal(got))
	})
	t.Run("consumes exactly one document", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := NewDocument(EC.Int32("a", 1)).WriteTo(&buf)
		require.NoError(t, err)
		_, err = NewDocument(EC.Int32("b", 2)).WriteTo(&buf)
		require.NoError(t, err)

		first, err := NewDocumentFromReader(&buf)
		require.NoError(t, err)
		second, err := NewDocumentFromReader(&buf)
		require.NoError(t, err)

		_, err = first.Lookup("a")
		require.NoError(t, err)
		_, err = second.Lookup("b")
		require.NoError(t, err)
	})
	t.Run("invalid length", func(t *testing.T) {
		_, err := NewDocumentFromReader(bytes.NewReader([]byte{0x02, 0x00, 0x00, 0x00, 0x00}))
		require.Equal(t, ErrInvalidLength, err)
	})
	t.Run("truncated stream", func(t *testing.T) {
		_, err := NewDocumentFromReader(bytes.NewReader(helloWorldBytes[:10]))
		require.Equal(t, io.ErrUnexpectedEOF, err)
	})
	t.Run("empty stream", func(t *testing.T) {
		_, err := NewDocumentFromReader(bytes.NewReader(nil))
		require.Equal(t, io.EOF, err)
	})
}

func TestDocumentEqual(t *testing.T) {
	d1 := NewDocument(EC.Int32("a", 1))
	d2 := NewDocument(EC.Int32("a", 1))
	d3 := NewDocument(EC.Int32("a", 2))

	require.True(t, d1.Equal(d2))
	require.False(t, d1.Equal(d3))
	require.False(t, d1.Equal(nil))
	require.True(t, (*Document)(nil).Equal(nil))
}

func TestDocumentString(t *testing.T) {
	d := NewDocument(EC.String("a", "b"), EC.Int32("n", 1))
	require.Equal(t, `{"a":"b","n":{"$numberInt":"1"}}`, d.String())
	require.Equal(t, "", (*Document)(nil).String())
}

func TestDocumentMarshalUnmarshalBSON(t *testing.T) {
	d := NewDocument(EC.String("hello", "world"))

	b, err := d.MarshalBSON()
	require.NoError(t, err)
	require.Equal(t, helloWorldBytes, b)

	var got Document
	require.NoError(t, got.UnmarshalBSON(b))
	require.True(t, d.Equal(&got))

	require.Error(t, got.UnmarshalBSON([]byte{0x01}))
}

func TestDocumentValidateNesting(t *testing.T) {
	inner := NewDocument(EC.Int32("x", 1))
	d := NewDocument(
		EC.SubDocument("doc", inner),
		EC.CodeWithScope("js", "function(){}", NewDocument(EC.Int32("y", 2))),
	)
	requireValid(t, d)

	// Corrupt the nested document's terminator.
	ref, found := d.findElement("doc")
	require.True(t, found)
	d.buf[ref.end-1] = 0x01
	_, err := d.Validate()
	require.Error(t, err)
}
