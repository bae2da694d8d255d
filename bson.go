// Package bson is a library for reading, writing, and manipulating BSON. The
// wire format is defined at http://bsonspec.org/.
//
// The core type is Document, which is a thin wrapper around a complete encoded
// BSON byte slice. Elements are decoded lazily during iteration and lookup,
// and mutation splices element byte ranges in place, so a Document never holds
// a second, parsed representation of its contents.
//
// Val is the tagged union for the individual BSON value variants. Values are
// constructed through the VC namespace and elements through the EC namespace:
//
//	doc := bson.NewDocument(
//		bson.EC.String("hello", "world"),
//		bson.EC.Int32("pi", 3),
//	)
//
// Marshal and Unmarshal convert between Go values and BSON documents using a
// codec Registry, and MarshalExtJSON and UnmarshalExtJSON do the same for the
// canonical and relaxed Extended JSON dialects.
package bson
