package service

import (
	"context"
	"errors"

	"signup/internal/identity/models"
	id "signup/pkg/domain"
	dErrors "signup/pkg/domain-errors"
	"signup/pkg/email"
	"signup/pkg/platform/sentinel"
	"signup/pkg/requestcontext"
)

// Verify consumes a verification token. Exactly one call per issued token can
// perform the live transition; replayed, unknown and expired tokens are
// reported identically so callers cannot probe token state. An expired token
// is left in place for a later resend, never silently cleared.
func (s *RegistrationService) Verify(ctx context.Context, tok string) (models.User, error) {
	if tok == "" {
		s.metrics.ObserveVerification("bad_request")
		return models.User{}, dErrors.New(dErrors.CodeBadRequest, "token is required")
	}

	var verified models.User
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.store.FindByVerificationToken(txCtx, tok)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return invalidTokenError()
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up verification token")
		}

		// Reachable only when a concurrent Verify has committed between the
		// lookup above and an earlier token write; treat as idempotent success.
		if user.EmailVerified {
			verified = user
			return nil
		}

		if user.TokenExpired(requestcontext.Now(txCtx)) {
			return dErrors.Wrap(sentinel.ErrExpired, dErrors.CodeInvalidToken, "invalid or expired verification token")
		}

		verified, err = s.store.Update(txCtx, user.AsVerified())
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist verification")
		}
		return nil
	})
	if err != nil {
		s.metrics.ObserveVerification(verificationOutcome(err))
		return models.User{}, err
	}

	s.metrics.ObserveVerification("verified")
	s.logger.InfoContext(ctx, "email verified",
		"user_id", verified.PublicID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return verified, nil
}

// Resend issues a fresh token for an unverified address and delivers it. The
// previous token becomes unusable the instant the new one is written. The
// boolean result never reveals whether the address is registered: unknown and
// already-verified addresses both report sent=false without error.
func (s *RegistrationService) Resend(ctx context.Context, addr string) (bool, error) {
	addr = email.Normalize(addr)
	if err := models.ValidateEmail(addr); err != nil {
		return false, err
	}

	var reissued models.User
	sent := false
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.store.FindByEmail(txCtx, addr)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up email")
		}
		if user.EmailVerified {
			return nil
		}

		reissued, err = s.issueFor(txCtx, user)
		if err != nil {
			return err
		}
		sent = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !sent {
		return false, nil
	}

	s.logger.InfoContext(ctx, "verification token reissued",
		"user_id", reissued.PublicID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.deliverToken(ctx, reissued)
	return true, nil
}

// issueFor writes a fresh token and expiry onto user and persists it.
func (s *RegistrationService) issueFor(ctx context.Context, user models.User) (models.User, error) {
	tok, err := s.tokens.Generate()
	if err != nil {
		return models.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification token")
	}

	now := requestcontext.Now(ctx)
	issued, err := user.WithIssuedToken(tok, now.Add(s.tokenTTL))
	if err != nil {
		return models.User{}, err
	}

	persisted, err := s.store.Update(ctx, issued)
	if err != nil {
		return models.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist verification token")
	}
	return persisted, nil
}

// IsVerifiedByPublicID reports the verification state of the identity behind
// the given public identifier.
func (s *RegistrationService) IsVerifiedByPublicID(ctx context.Context, publicID id.UserID) (bool, error) {
	user, err := s.store.FindByPublicID(ctx, publicID)
	if err != nil {
		return false, notFoundOrInternal(err, "user")
	}
	return user.EmailVerified, nil
}

// IsVerifiedByUsername reports the verification state of the named identity.
func (s *RegistrationService) IsVerifiedByUsername(ctx context.Context, username string) (bool, error) {
	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return false, notFoundOrInternal(err, "user")
	}
	return user.EmailVerified, nil
}

// IsVerifiedByID reports the verification state by internal surrogate key.
func (s *RegistrationService) IsVerifiedByID(ctx context.Context, userID int64) (bool, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return false, notFoundOrInternal(err, "user")
	}
	return user.EmailVerified, nil
}

func notFoundOrInternal(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, what+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up "+what)
}

func verificationOutcome(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInvalidToken:
		return "invalid_token"
	case dErrors.CodeBadRequest:
		return "bad_request"
	default:
		return "store_error"
	}
}
