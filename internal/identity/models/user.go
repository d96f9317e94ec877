package models

import (
	"regexp"
	"time"

	"github.com/asaskevich/govalidator"

	id "signup/pkg/domain"
	dErrors "signup/pkg/domain-errors"
)

// Username and email constraints enforced at registration time.
const (
	UsernameMinLen = 3
	UsernameMaxLen = 30
	EmailMaxLen    = 255
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// User is the identity aggregate.
//
// Invariants:
//   - Username and Email are each unique across all records (store-enforced)
//   - VerificationToken is non-nil iff VerificationTokenExpiry is non-nil
//   - EmailVerified=true implies both token fields are nil
//   - A set expiry is strictly after the issuance time
//   - CreatedAt and PublicID are immutable after construction
//
// User values are snapshots: transition methods return copies and stores
// never hand out shared references, so no mutation crosses layer boundaries.
type User struct {
	ID                      int64      `json:"id"`
	PublicID                id.UserID  `json:"public_id"`
	Username                string     `json:"username"`
	Email                   string     `json:"email"`
	CreatedAt               time.Time  `json:"created_at"`
	EmailVerified           bool       `json:"email_verified"`
	VerificationToken       *string    `json:"-"`
	VerificationTokenExpiry *time.Time `json:"-"`
}

// ValidateUsername checks the syntactic username rules. The returned error is
// field-scoped so callers can surface which rule failed.
func ValidateUsername(username string) error {
	if username == "" {
		return dErrors.NewField(dErrors.CodeValidation, "username", "is required")
	}
	if len(username) < UsernameMinLen {
		return dErrors.NewField(dErrors.CodeValidation, "username", "must be at least 3 characters")
	}
	if len(username) > UsernameMaxLen {
		return dErrors.NewField(dErrors.CodeValidation, "username", "must be at most 30 characters")
	}
	if !usernamePattern.MatchString(username) {
		return dErrors.NewField(dErrors.CodeValidation, "username", "may only contain letters, digits and underscores")
	}
	return nil
}

// ValidateEmail checks the syntactic email rules.
func ValidateEmail(email string) error {
	if email == "" {
		return dErrors.NewField(dErrors.CodeValidation, "email", "is required")
	}
	if len(email) > EmailMaxLen {
		return dErrors.NewField(dErrors.CodeValidation, "email", "must be at most 255 characters")
	}
	if !govalidator.IsEmail(email) {
		return dErrors.NewField(dErrors.CodeValidation, "email", "must be a valid email address")
	}
	return nil
}

// NewUser constructs an unverified User snapshot. The numeric ID is assigned
// by the store on insert.
func NewUser(publicID id.UserID, username, email string, now time.Time) (User, error) {
	if err := ValidateUsername(username); err != nil {
		return User{}, err
	}
	if err := ValidateEmail(email); err != nil {
		return User{}, err
	}
	if publicID.IsNil() {
		return User{}, dErrors.New(dErrors.CodeInvariantViolation, "public id must be set at creation")
	}
	return User{
		PublicID:  publicID,
		Username:  username,
		Email:     email,
		CreatedAt: now,
	}, nil
}

// WithIssuedToken returns a copy carrying a live verification token. Issuing
// replaces any outstanding token; the old value becomes permanently unusable
// once the copy is persisted.
func (u User) WithIssuedToken(token string, expiry time.Time) (User, error) {
	if u.EmailVerified {
		return User{}, dErrors.New(dErrors.CodeInvariantViolation, "cannot issue a token for a verified user")
	}
	if token == "" {
		return User{}, dErrors.New(dErrors.CodeInvariantViolation, "verification token must not be empty")
	}
	u.VerificationToken = &token
	u.VerificationTokenExpiry = &expiry
	return u, nil
}

// AsVerified returns a copy in the terminal verified state with both token
// fields cleared. Verification is one-way; no transition leads back.
func (u User) AsVerified() User {
	u.EmailVerified = true
	u.VerificationToken = nil
	u.VerificationTokenExpiry = nil
	return u
}

// HasLiveToken reports whether an unexpired verification token is
// outstanding at the given instant.
func (u User) HasLiveToken(now time.Time) bool {
	return u.VerificationToken != nil &&
		u.VerificationTokenExpiry != nil &&
		now.Before(*u.VerificationTokenExpiry)
}

// TokenExpired reports whether a token is outstanding but past its expiry.
// Expiry is detected lazily at verification time; nothing sweeps tokens.
func (u User) TokenExpired(now time.Time) bool {
	return u.VerificationToken != nil &&
		u.VerificationTokenExpiry != nil &&
		!now.Before(*u.VerificationTokenExpiry)
}

// Clone returns a deep copy. Stores clone on read and write so callers never
// share pointer fields with stored state.
func (u User) Clone() User {
	if u.VerificationToken != nil {
		token := *u.VerificationToken
		u.VerificationToken = &token
	}
	if u.VerificationTokenExpiry != nil {
		expiry := *u.VerificationTokenExpiry
		u.VerificationTokenExpiry = &expiry
	}
	return u
}
