package bson

import "io"

// A Decoder reads BSON documents from an input stream.
type Decoder struct {
	r  io.Reader
	dc DecodeContext
}

// NewDecoder returns a new Decoder that reads from r using the default
// Registry.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, dc: DecodeContext{Registry: defaultRegistry}}
}

// NewDecoderWithRegistry returns a new Decoder that reads from r using the
// provided Registry.
func NewDecoderWithRegistry(reg *Registry, r io.Reader) *Decoder {
	return &Decoder{r: r, dc: DecodeContext{Registry: reg}}
}

// SetTruncate controls whether lossy numeric conversions are allowed when
// decoding.
func (d *Decoder) SetTruncate(truncate bool) {
	d.dc.Truncate = truncate
}

// Decode reads the next BSON document from the stream and stores it in the
// value pointed to by val. It returns io.EOF when the stream ends cleanly on a
// document boundary.
func (d *Decoder) Decode(val interface{}) error {
	doc, err := NewDocumentFromReader(d.r)
	if err != nil {
		return err
	}
	return decodeValue(d.dc, VC.Document(doc), val)
}
