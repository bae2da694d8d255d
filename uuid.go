package bson

import (
	"fmt"

	"github.com/google/uuid"
)

// uuidSubtype is the BSON binary subtype for UUIDs.
const uuidSubtype byte = 0x04

// UUID represents a universally unique identifier. It is stored in BSON as a
// binary value with subtype 0x04.
type UUID [16]byte

// NewUUID returns a new random (version 4) UUID.
func NewUUID() (UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return UUID{}, err
	}
	return UUID(id), nil
}

// ParseUUID parses the canonical string form of a UUID.
func ParseUUID(s string) (UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, err
	}
	return UUID(id), nil
}

// String implements the fmt.Stringer interface.
func (u UUID) String() string {
	return uuid.UUID(u).String()
}

// Binary returns the BSON binary form of the UUID.
func (u UUID) Binary() Binary {
	return Binary{Subtype: uuidSubtype, Data: append([]byte(nil), u[:]...)}
}

// UUIDFromBinary converts a BSON binary value into a UUID. The value must have
// subtype 0x04 and a sixteen byte payload.
func UUIDFromBinary(b Binary) (UUID, error) {
	if b.Subtype != uuidSubtype {
		return UUID{}, fmt.Errorf("cannot convert binary value of subtype %#x into a UUID", b.Subtype)
	}
	if len(b.Data) != 16 {
		return UUID{}, fmt.Errorf("cannot convert binary value of length %d into a UUID", len(b.Data))
	}
	var u UUID
	copy(u[:], b.Data)
	return u, nil
}
