package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
)

// ParseID decodes a hex ObjectID taken from a URL or token. A malformed id can
// never reference a stored document, so it is reported as not found.
func ParseID(resource, hex string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apierrors.NewNotFoundError(resource)
	}
	return oid, nil
}

// ContainsID reports whether ids holds id.
func ContainsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
