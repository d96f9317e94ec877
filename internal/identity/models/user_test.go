package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "signup/pkg/domain"
	dErrors "signup/pkg/domain-errors"
	"signup/pkg/testutil"
)

func TestValidateUsername(t *testing.T) {
	t.Run("accepts letters digits and underscores", func(t *testing.T) {
		for _, name := range []string{"bob", "Alice_99", "x_y_z", strings.Repeat("a", 30)} {
			assert.NoError(t, ValidateUsername(name), "username %q", name)
		}
	})

	t.Run("rejects out-of-range lengths", func(t *testing.T) {
		for _, name := range []string{"", "ab", strings.Repeat("a", 31)} {
			err := ValidateUsername(name)
			require.Error(t, err, "username %q", name)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, "username", dErrors.FieldOf(err))
		}
	})

	t.Run("rejects forbidden characters", func(t *testing.T) {
		for _, name := range []string{"bob smith", "bob-smith", "bob@x", "böb"} {
			err := ValidateUsername(name)
			require.Error(t, err, "username %q", name)
			assert.Equal(t, "username", dErrors.FieldOf(err))
		}
	})
}

func TestValidateEmail(t *testing.T) {
	t.Run("accepts plausible addresses", func(t *testing.T) {
		for _, addr := range []string{"alice@x.com", "jane.doe+tag@sub.example.org"} {
			assert.NoError(t, ValidateEmail(addr), "email %q", addr)
		}
	})

	t.Run("rejects malformed addresses", func(t *testing.T) {
		long := strings.Repeat("a", 250) + "@example.com"
		for _, addr := range []string{"", "not-an-email", "a@", long} {
			err := ValidateEmail(addr)
			require.Error(t, err, "email %q", addr)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, "email", dErrors.FieldOf(err))
		}
	})
}

func TestUserTransitions(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	newUser := func(t *testing.T) User {
		t.Helper()
		u, err := NewUser(id.NewUserID(), "alice", "alice@x.com", now)
		require.NoError(t, err)
		return u
	}

	t.Run("new user is unverified with no token", func(t *testing.T) {
		u := newUser(t)
		assert.False(t, u.EmailVerified)
		assert.Nil(t, u.VerificationToken)
		assert.Nil(t, u.VerificationTokenExpiry)
		assert.Equal(t, now, u.CreatedAt)
	})

	t.Run("issuing sets token and expiry together", func(t *testing.T) {
		u := newUser(t)
		issued, err := u.WithIssuedToken("tok", now.Add(2*time.Hour))
		require.NoError(t, err)
		require.NotNil(t, issued.VerificationToken)
		require.NotNil(t, issued.VerificationTokenExpiry)
		assert.True(t, issued.HasLiveToken(now))
		assert.False(t, issued.TokenExpired(now))

		// the original snapshot stays untouched
		assert.Nil(t, u.VerificationToken)
	})

	t.Run("token is expired at and after the expiry instant", func(t *testing.T) {
		u := newUser(t)
		issued, err := u.WithIssuedToken("tok", now.Add(2*time.Hour))
		require.NoError(t, err)
		assert.True(t, issued.TokenExpired(now.Add(2*time.Hour)))
		assert.True(t, issued.TokenExpired(now.Add(3*time.Hour)))
		assert.False(t, issued.HasLiveToken(now.Add(2*time.Hour)))
	})

	t.Run("verification clears token fields", func(t *testing.T) {
		u := newUser(t)
		issued, err := u.WithIssuedToken("tok", now.Add(2*time.Hour))
		require.NoError(t, err)

		verified := issued.AsVerified()
		assert.True(t, verified.EmailVerified)
		assert.Nil(t, verified.VerificationToken)
		assert.Nil(t, verified.VerificationTokenExpiry)
	})

	t.Run("cannot issue a token for a verified user", func(t *testing.T) {
		u := newUser(t).AsVerified()
		_, err := u.WithIssuedToken("tok", now.Add(2*time.Hour))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("constructor rejects invalid input", func(t *testing.T) {
		_, err := NewUser(id.NewUserID(), "x", "alice@x.com", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = NewUser(id.NewUserID(), "alice", "nope", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = NewUser(id.UserID{}, "alice", "alice@x.com", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestTokenLifecycle(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	testutil.Given(t, "a freshly registered user with an issued token", func(t *testing.T) {
		u, err := NewUser(id.NewUserID(), "carol", "carol@x.com", now)
		require.NoError(t, err)
		issued, err := u.WithIssuedToken("t1", now.Add(2*time.Hour))
		require.NoError(t, err)

		testutil.When(t, "the expiry window passes", func(t *testing.T) {
			late := now.Add(3 * time.Hour)

			testutil.Then(t, "the token reads as expired but is still present", func(t *testing.T) {
				assert.True(t, issued.TokenExpired(late))
				assert.NotNil(t, issued.VerificationToken)
			})

			testutil.Then(t, "a reissue restarts the window", func(t *testing.T) {
				reissued, err := issued.WithIssuedToken("t2", late.Add(2*time.Hour))
				require.NoError(t, err)
				assert.True(t, reissued.HasLiveToken(late))
				assert.Equal(t, "t2", *reissued.VerificationToken)
			})
		})
	})
}

func TestUserClone(t *testing.T) {
	now := time.Now()
	u, err := NewUser(id.NewUserID(), "alice", "alice@x.com", now)
	require.NoError(t, err)
	issued, err := u.WithIssuedToken("tok", now.Add(time.Hour))
	require.NoError(t, err)

	clone := issued.Clone()
	require.NotNil(t, clone.VerificationToken)
	assert.NotSame(t, issued.VerificationToken, clone.VerificationToken)
	assert.NotSame(t, issued.VerificationTokenExpiry, clone.VerificationTokenExpiry)
	assert.Equal(t, *issued.VerificationToken, *clone.VerificationToken)
}
