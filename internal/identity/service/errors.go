package service

import (
	"errors"

	dErrors "signup/pkg/domain-errors"
	"signup/pkg/platform/sentinel"
)

func conflictError(field, value string) error {
	return dErrors.NewField(dErrors.CodeConflict, field, value+" already taken")
}

func invalidTokenError() error {
	return dErrors.New(dErrors.CodeInvalidToken, "invalid or expired verification token")
}

// lookupHit folds a finder result into "exists or not". Store errors other
// than not-found surface as internal errors.
func lookupHit(err error, what string) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return false, nil
	default:
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up "+what)
	}
}
