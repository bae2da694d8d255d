package bson

// Iterator facilitates iterating over a bson.Document. Elements are decoded
// lazily, one per call to Next, directly from the document's bytes.
type Iterator struct {
	d    *Document
	pos  int
	elem Element
	err  error
}

func newIterator(d *Document) *Iterator {
	itr := &Iterator{d: d, pos: 4}
	if d == nil {
		itr.err = ErrNilDocument
	}
	return itr
}

// Next fetches the next element of the document, returning whether or not the
// next element was able to be fetched. If true is returned, then call Element
// to get the element. If false is returned, call Err to check if an error
// occurred.
func (itr *Iterator) Next() bool {
	if itr.err != nil {
		return false
	}

	buf := itr.d.buf
	if itr.pos >= len(buf)-1 || buf[itr.pos] == 0x00 {
		return false
	}

	ref, err := parseElemAt(buf, itr.pos)
	if err != nil {
		itr.err = err
		return false
	}
	elem, err := decodeElemAt(buf, ref)
	if err != nil {
		itr.err = err
		return false
	}

	itr.elem = elem
	itr.pos = ref.end

	return true
}

// Element returns the current element of the Iterator.
func (itr *Iterator) Element() Element {
	return itr.elem
}

// Err returns the error that occurred when iterating, or nil if none occurred.
func (itr *Iterator) Err() error {
	return itr.err
}
