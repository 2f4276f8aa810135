package bsonutil

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Date converts t to a BSON datetime truncated to whole seconds.
func Date(t time.Time) primitive.DateTime {
	return primitive.DateTime(t.Unix() * 1000)
}

// DateMillis converts t to a BSON datetime keeping millisecond precision.
func DateMillis(t time.Time) primitive.DateTime {
	return primitive.NewDateTimeFromTime(t)
}

// Now returns the current time as a BSON datetime (whole seconds).
func Now() primitive.DateTime {
	return Date(time.Now())
}

// OID builds an ObjectID from its hex representation.
func OID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid object id %q: %w", hex, err)
	}
	return id, nil
}

// MustOID is OID for identifiers known to be valid, such as literals in tests.
func MustOID(hex string) primitive.ObjectID {
	id, err := OID(hex)
	if err != nil {
		panic(err)
	}
	return id
}
