package core

import "go.mongodb.org/mongo-driver/bson"

// Serializable values produce their own document representation.
// The returned value is encoded again by the mapper, so it may contain
// mapped types, dates or any other supported value.
type Serializable interface {
	BSONSerialize() (any, error)
}

// Unserializable values populate themselves from a document.
// The mapper calls BSONUnserialize on a fresh instance.
type Unserializable interface {
	BSONUnserialize(data bson.D) error
}

// Enum is implemented by backed-choice types. EnumValue returns the scalar
// stored in the document.
type Enum interface {
	EnumValue() any
}
