package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Identifiers are 24 character hex ObjectIDs so that records move between the
// relational and the document store unchanged.

// NewID returns a fresh identifier.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ValidID reports whether id is a well-formed identifier.
func ValidID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}
