// Package domain holds typed identifiers shared across modules. Wrapping
// uuid.UUID in distinct types lets the compiler catch identifier mix-ups.
package domain

import (
	"github.com/google/uuid"

	dErrors "signup/pkg/domain-errors"
)

// UserID is the public, non-sequential identifier of a user. It is the only
// identifier exposed outside the trust boundary; the numeric surrogate key
// never leaves the store layer and cannot be enumerated from it.
type UserID uuid.UUID

// NewUserID returns a random public identifier.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// ParseUserID parses an external identifier. IDs must be valid, non-nil
// UUIDs; anything else is rejected at the trust boundary.
func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return UserID{}, dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, dErrors.New(dErrors.CodeBadRequest, "user id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return UserID{}, dErrors.New(dErrors.CodeBadRequest, "user id must not be the nil UUID")
	}
	return UserID(parsed), nil
}

func (id UserID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the identifier is unset.
func (id UserID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}
