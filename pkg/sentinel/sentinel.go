// Package sentinel holds sentinel errors for infrastructure facts. Stores
// return these (optionally wrapped) so services can translate them into
// domain errors without knowing which backend produced them.
package sentinel

import "errors"

var (
	// ErrNotFound: the document does not exist in the store.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a uniqueness constraint was violated.
	ErrConflict = errors.New("conflict")
	// ErrUnknownType: the entity type maps to no backing collection.
	ErrUnknownType = errors.New("unknown entity type")
)
