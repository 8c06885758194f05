// Package models holds the entity domain vocabulary shared by the entity
// handler, service and stores.
package models

// TypeFallback is the generic entity type used when a create request names
// a type with no backing collection.
const TypeFallback = "Thing"

// EntityCollection is the collection holding general context entities.
const EntityCollection = "Entities"

// immutable fields are set at creation and stripped from every attribute
// write body.
var immutable = []string{"id", "type"}

// StripImmutable removes the identity fields from an attribute document.
func StripImmutable(doc map[string]any) {
	for _, field := range immutable {
		delete(doc, field)
	}
}

// IsIdentity reports whether a field is part of the entity identity.
func IsIdentity(field string) bool {
	return field == "id" || field == "type" || field == "_id"
}
