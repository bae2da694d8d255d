package bson

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ikmak/bson/bsontype"
	"github.com/ikmak/bson/llbson"
)

const validateMaxDepthDefault = 2048

// ErrInvalidLength indicates that a length prefix does not match the number of
// bytes available.
var ErrInvalidLength = errors.New("document length is invalid")

// ErrInvalidKey indicates that a document key is invalid, e.g. it contains a
// null byte.
var ErrInvalidKey = errors.New("invalid document key")

// ErrInvalidReadOnlyDocument indicates that the underlying bytes of a document
// are malformed.
var ErrInvalidReadOnlyDocument = errors.New("invalid read-only document")

// ErrElementNotFound indicates that an Element matching the provided key could
// not be found.
var ErrElementNotFound = errors.New("element not found")

// ErrEmptyKey indicates that no key was provided to a Lookup method.
var ErrEmptyKey = errors.New("empty key provided")

// ErrNilDocument indicates that an operation was attempted on a nil *Document.
var ErrNilDocument = errors.New("document is nil")

// ErrOutOfBounds indicates that the requested index is outside of the document.
var ErrOutOfBounds = errors.New("out of bounds")

var errMaxDepth = errors.New("document exceeds the maximum allowed nesting depth")

// Document is a BSON document backed by its complete encoded byte form. The
// buffer always starts with a little-endian length prefix equal to the buffer
// size and ends with a 0x00 terminator. Elements are decoded lazily; mutation
// splices element byte ranges and rewrites the length prefix.
//
// The buffer is exclusively owned. Iterators and element byte ranges must not
// be used across a mutation, and a Document is not safe for concurrent use.
type Document struct {
	buf []byte
}

// elemRef locates one element within a document buffer. start is the index of
// the type byte, value the index of the first value byte, and end the index
// one past the last value byte.
type elemRef struct {
	start int
	value int
	end   int
	t     bsontype.Type
	key   string
}

func minDocumentBytes() []byte {
	return []byte{0x05, 0x00, 0x00, 0x00, 0x00}
}

// NewDocument creates a Document from the given elements. The elements are
// encoded immediately; an empty call yields the minimal five byte document.
// NewDocument panics if an element has an invalid key or an unencodable value.
func NewDocument(elems ...Element) *Document {
	d := &Document{buf: minDocumentBytes()}
	return d.Append(elems...)
}

// ReadDocument creates a Document from the given byte slice. The declared
// length must equal len(b) and the document must be structurally valid
// throughout; the bytes are copied.
func ReadDocument(b []byte) (*Document, error) {
	if err := validateDocument(b, 0); err != nil {
		return nil, err
	}
	return &Document{buf: append([]byte(nil), b...)}, nil
}

// NewDocumentFromReader creates a Document from the given io.Reader. It reads
// the four byte length prefix and then exactly the remaining declared bytes.
func NewDocumentFromReader(r io.Reader) (*Document, error) {
	d := new(Document)
	_, err := d.ReadFrom(r)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// validateDocument walks the complete structure of raw, verifying length
// prefixes, terminators, type tags, and element value spans.
func validateDocument(raw []byte, depth int) error {
	if depth > validateMaxDepthDefault {
		return errMaxDepth
	}
	if len(raw) < 5 {
		return NewErrTooSmall()
	}
	length, _, _ := llbson.ReadInt32(raw)
	if int(length) != len(raw) {
		return ErrInvalidLength
	}
	if raw[len(raw)-1] != 0x00 {
		return ErrInvalidReadOnlyDocument
	}

	pos := 4
	for pos < len(raw)-1 {
		ref, err := parseElemAt(raw, pos)
		if err != nil {
			return err
		}
		switch ref.t {
		case bsontype.EmbeddedDocument, bsontype.Array:
			if err := validateDocument(raw[ref.value:ref.end], depth+1); err != nil {
				return err
			}
		case bsontype.CodeWithScope:
			_, scope, _, ok := llbson.ReadCodeWithScope(raw[ref.value:ref.end])
			if !ok {
				return ErrInvalidReadOnlyDocument
			}
			if err := validateDocument(scope, depth+1); err != nil {
				return err
			}
		}
		pos = ref.end
	}
	if pos != len(raw)-1 {
		return ErrInvalidLength
	}
	return nil
}

// parseElemAt decodes the header of the element starting at pos and computes
// its byte range. The value bytes are not decoded.
func parseElemAt(raw []byte, pos int) (elemRef, error) {
	t, key, rem, ok := llbson.ReadHeader(raw[pos:])
	if !ok {
		return elemRef{}, NewErrTooSmall()
	}
	if !t.IsValid() {
		return elemRef{}, fmt.Errorf("%w: invalid element type %v", ErrInvalidReadOnlyDocument, byte(t))
	}
	value := len(raw) - len(rem)
	length, ok := llbson.ValueLength(t, raw[value:])
	if !ok {
		return elemRef{}, NewErrTooSmall()
	}
	end := value + int(length)
	if end > len(raw)-1 {
		return elemRef{}, NewErrTooSmall()
	}
	return elemRef{start: pos, value: value, end: end, t: t, key: key}, nil
}

// decodeElemAt decodes the element located by ref. The value read is bounded
// to the element's byte span so a corrupt inner length prefix can never reach
// a neighboring element.
func decodeElemAt(raw []byte, ref elemRef) (Element, error) {
	val, _, err := readValue(ref.t, raw[ref.value:ref.end])
	if err != nil {
		return Element{}, err
	}
	return Element{Key: ref.key, Value: val}, nil
}

// findElement returns the location of the first element with the given key.
func (d *Document) findElement(key string) (elemRef, bool) {
	pos := 4
	for pos < len(d.buf)-1 {
		ref, err := parseElemAt(d.buf, pos)
		if err != nil {
			return elemRef{}, false
		}
		if ref.key == key {
			return ref, true
		}
		pos = ref.end
	}
	return elemRef{}, false
}

// splice replaces d.buf[start:end] with repl and rewrites the length prefix.
func (d *Document) splice(start, end int, repl []byte) {
	buf := make([]byte, 0, len(d.buf)-(end-start)+len(repl))
	buf = append(buf, d.buf[:start]...)
	buf = append(buf, repl...)
	buf = append(buf, d.buf[end:]...)
	llbson.UpdateLength(buf, 0, int32(len(buf)))
	d.buf = buf
}

// Append adds each element to the end of the document, immediately before the
// terminator, and rewrites the length prefix. Duplicate keys are not checked.
// Append panics if an element has an invalid key or an unencodable value, and
// if the document is nil.
func (d *Document) Append(elems ...Element) *Document {
	if d == nil {
		panic(ErrNilDocument)
	}
	buf := make([]byte, len(d.buf)-1, len(d.buf)+len(elems)*16)
	copy(buf, d.buf[:len(d.buf)-1])
	for _, elem := range elems {
		var err error
		buf, err = elem.append(buf)
		if err != nil {
			panic(err)
		}
	}
	buf = append(buf, 0x00)
	llbson.UpdateLength(buf, 0, int32(len(buf)))
	d.buf = buf
	return d
}

// Set replaces the value of the first element with the given key, or appends a
// new element if the key is absent. Set panics if the key or value cannot be
// encoded, and if the document is nil.
func (d *Document) Set(key string, value Val) *Document {
	if d == nil {
		panic(ErrNilDocument)
	}
	enc, err := Element{Key: key, Value: value}.append(nil)
	if err != nil {
		panic(err)
	}
	ref, found := d.findElement(key)
	if found {
		d.splice(ref.start, ref.end, enc)
		return d
	}
	d.splice(len(d.buf)-1, len(d.buf)-1, enc)
	return d
}

// Delete removes the first element with the given key and reports whether an
// element was removed.
func (d *Document) Delete(key string) bool {
	if d == nil {
		return false
	}
	ref, found := d.findElement(key)
	if !found {
		return false
	}
	d.splice(ref.start, ref.end, nil)
	return true
}

// Lookup searches the document and potentially subdocuments or arrays for the
// provided key path. Each key provided to this method represents a layer of
// depth; array layers are addressed by decimal index strings. The first
// element whose key matches is used at every layer.
func (d *Document) Lookup(key ...string) (Val, error) {
	elem, err := d.LookupElement(key...)
	if err != nil {
		return Val{}, err
	}
	return elem.Value, nil
}

// LookupOK is the same as Lookup, except it returns a boolean instead of an
// error. A malformed buffer and a missing key both report false.
func (d *Document) LookupOK(key ...string) (Val, bool) {
	val, err := d.Lookup(key...)
	if err != nil {
		return Val{}, false
	}
	return val, true
}

// LookupElement searches for the element at the provided key path.
func (d *Document) LookupElement(key ...string) (Element, error) {
	if d == nil {
		return Element{}, ErrNilDocument
	}
	if len(key) == 0 {
		return Element{}, ErrEmptyKey
	}
	return lookupElement(d.buf, key)
}

func lookupElement(raw []byte, keys []string) (Element, error) {
	pos := 4
	for pos < len(raw)-1 {
		ref, err := parseElemAt(raw, pos)
		if err != nil {
			return Element{}, err
		}
		if ref.key == keys[0] {
			if len(keys) == 1 {
				return decodeElemAt(raw, ref)
			}
			switch ref.t {
			case bsontype.EmbeddedDocument, bsontype.Array:
				return lookupElement(raw[ref.value:ref.end], keys[1:])
			default:
				return Element{}, ErrElementNotFound
			}
		}
		pos = ref.end
	}
	return Element{}, ErrElementNotFound
}

// Filter returns a new document holding the subsequence of elements for which
// fn returns true, in their original order. The receiver is not modified.
func (d *Document) Filter(fn func(Element) bool) (*Document, error) {
	if d == nil {
		return nil, ErrNilDocument
	}
	filtered := NewDocument()
	itr := d.Iterator()
	for itr.Next() {
		elem := itr.Element()
		if fn(elem) {
			filtered.Append(elem)
		}
	}
	if err := itr.Err(); err != nil {
		return nil, err
	}
	return filtered, nil
}

// ElementAt retrieves the element at the given index. It returns
// ErrOutOfBounds if the index is past the last element.
func (d *Document) ElementAt(index uint) (Element, error) {
	if d == nil {
		return Element{}, ErrNilDocument
	}
	itr := d.Iterator()
	var i uint
	for itr.Next() {
		if i == index {
			return itr.Element(), nil
		}
		i++
	}
	if err := itr.Err(); err != nil {
		return Element{}, err
	}
	return Element{}, ErrOutOfBounds
}

// Len returns the number of elements in the document. Elements past a
// corrupted region are not counted.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	count := 0
	pos := 4
	for pos < len(d.buf)-1 {
		ref, err := parseElemAt(d.buf, pos)
		if err != nil {
			break
		}
		count++
		pos = ref.end
	}
	return count
}

// Keys returns the keys of the document. If recursive is true, the keys of
// embedded documents and arrays are included, prefixed with their path
// segments joined by periods.
func (d *Document) Keys(recursive bool) ([]string, error) {
	if d == nil {
		return nil, ErrNilDocument
	}
	return documentKeys(d.buf, "", recursive)
}

func documentKeys(raw []byte, prefix string, recursive bool) ([]string, error) {
	keys := make([]string, 0)
	pos := 4
	for pos < len(raw)-1 {
		ref, err := parseElemAt(raw, pos)
		if err != nil {
			return nil, err
		}
		name := ref.key
		if prefix != "" {
			name = prefix + "." + ref.key
		}
		keys = append(keys, name)
		if recursive {
			switch ref.t {
			case bsontype.EmbeddedDocument, bsontype.Array:
				sub, err := documentKeys(raw[ref.value:ref.end], name, recursive)
				if err != nil {
					return nil, err
				}
				keys = append(keys, sub...)
			}
		}
		pos = ref.end
	}
	return keys, nil
}

// Validate validates the document and returns its total size in bytes.
func (d *Document) Validate() (uint32, error) {
	if d == nil {
		return 0, ErrNilDocument
	}
	if err := validateDocument(d.buf, 0); err != nil {
		return 0, err
	}
	return uint32(len(d.buf)), nil
}

// Equal compares this document to another, returning true if they are equal.
// Documents are equal when their byte forms are equal.
func (d *Document) Equal(d2 *Document) bool {
	if d == nil && d2 == nil {
		return true
	}
	if d == nil || d2 == nil {
		return false
	}
	return bytes.Equal(d.buf, d2.buf)
}

// Reset clears the document, rewriting it to the minimal five byte form.
func (d *Document) Reset() {
	d.buf = minDocumentBytes()
}

// Iterator returns an iterator over the elements of the document. The iterator
// must not be used across a mutation of the document.
func (d *Document) Iterator() *Iterator {
	return newIterator(d)
}

// String implements the fmt.Stringer interface. The document is rendered as
// canonical Extended JSON; a malformed document renders as the empty string.
func (d *Document) String() string {
	if d == nil {
		return ""
	}
	var buf bytes.Buffer
	err := writeExtJSONDocument(&buf, d.buf, true)
	if err != nil {
		return ""
	}
	return buf.String()
}

// WriteTo implements the io.WriterTo interface.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	if d == nil {
		return 0, ErrNilDocument
	}
	n, err := w.Write(d.buf)
	return int64(n), err
}

// ReadFrom implements the io.ReaderFrom interface, replacing the document with
// one length-prefixed document read from r.
func (d *Document) ReadFrom(r io.Reader) (int64, error) {
	if d == nil {
		return 0, ErrNilDocument
	}
	var header [4]byte
	n, err := io.ReadFull(r, header[:])
	total := int64(n)
	if err != nil {
		return total, err
	}
	length, _, _ := llbson.ReadInt32(header[:])
	if length < 5 {
		return total, ErrInvalidLength
	}
	buf := make([]byte, length)
	copy(buf, header[:])
	n, err = io.ReadFull(r, buf[4:])
	total += int64(n)
	if err != nil {
		return total, err
	}
	if err := validateDocument(buf, 0); err != nil {
		return total, err
	}
	d.buf = buf
	return total, nil
}

// MarshalBSON implements the Marshaler interface, returning a copy of the
// document's bytes.
func (d *Document) MarshalBSON() ([]byte, error) {
	if d == nil {
		return nil, ErrNilDocument
	}
	return append([]byte(nil), d.buf...), nil
}

// UnmarshalBSON implements the Unmarshaler interface, replacing the document
// with the given bytes after validating them.
func (d *Document) UnmarshalBSON(b []byte) error {
	if d == nil {
		return ErrNilDocument
	}
	if err := validateDocument(b, 0); err != nil {
		return err
	}
	d.buf = append([]byte(nil), b...)
	return nil
}
