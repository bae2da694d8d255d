package bson

import "io"

// An Encoder writes BSON documents to an output stream.
type Encoder struct {
	w  io.Writer
	ec EncodeContext
}

// NewEncoder returns a new Encoder that writes to w using the default
// Registry.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, ec: EncodeContext{Registry: defaultRegistry}}
}

// NewEncoderWithRegistry returns a new Encoder that writes to w using the
// provided Registry.
func NewEncoderWithRegistry(r *Registry, w io.Writer) *Encoder {
	return &Encoder{w: w, ec: EncodeContext{Registry: r}}
}

// SetMinSize controls whether int64 values that fit in an int32 are narrowed
// when encoding.
func (e *Encoder) SetMinSize(minSize bool) {
	e.ec.MinSize = minSize
}

// Encode writes the BSON encoding of val to the stream.
func (e *Encoder) Encode(val interface{}) error {
	v, err := encodeValue(e.ec, val)
	if err != nil {
		return err
	}
	doc, ok := v.DocumentOK()
	if !ok {
		return InvalidValueError{Value: val, Msg: "only documents can be encoded to a stream"}
	}
	_, err = doc.WriteTo(e.w)
	return err
}
