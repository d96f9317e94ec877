package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"signup/internal/events"
	"signup/internal/identity/models"
	"signup/internal/identity/store"
	"signup/internal/identity/token"
	id "signup/pkg/domain"
	dErrors "signup/pkg/domain-errors"
	"signup/pkg/email"
	"signup/pkg/requestcontext"
)

// DefaultTokenTTL is how long a verification token stays redeemable unless
// overridden with WithTokenTTL.
const DefaultTokenTTL = 2 * time.Hour

// UserStore persists identity records. Implementations must enforce
// case-insensitive uniqueness of username and email atomically on insert:
// the pre-checks in Register are advisory, the store constraint is the
// authority under concurrency.
type UserStore interface {
	CreateIfAvailable(ctx context.Context, user models.User) (models.User, error)
	Update(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, userID int64) (models.User, error)
	FindByPublicID(ctx context.Context, publicID id.UserID) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByEmail(ctx context.Context, addr string) (models.User, error)
	FindByVerificationToken(ctx context.Context, tok string) (models.User, error)
	Count(ctx context.Context) (int64, error)
}

// Publisher delivers domain events to in-process subscribers. Publishing
// happens only after the triggering mutation is durably persisted.
type Publisher interface {
	Publish(ctx context.Context, event events.Event)
}

// VerificationSender delivers the verification secret out of band. Delivery
// failures are logged and never fail the operation that issued the token.
type VerificationSender interface {
	SendVerification(ctx context.Context, addr, username, tok string) error
}

// Metrics receives outcome counters for the registration and verification
// flows. A nil-safe no-op is used when none is configured.
type Metrics interface {
	ObserveRegistration(outcome string)
	ObserveVerification(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveRegistration(string) {}
func (noopMetrics) ObserveVerification(string) {}

// RegistrationService orchestrates identity creation and the verification
// token lifecycle on top of a UserStore.
type RegistrationService struct {
	store     UserStore
	tokens    token.Generator
	tx        StoreTx
	publisher Publisher
	sender    VerificationSender
	metrics   Metrics
	logger    *slog.Logger
	tokenTTL  time.Duration
}

type Option func(*RegistrationService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *RegistrationService) {
		s.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *RegistrationService) {
		s.metrics = m
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *RegistrationService) {
		s.publisher = p
	}
}

func WithVerificationSender(sender VerificationSender) Option {
	return func(s *RegistrationService) {
		s.sender = sender
	}
}

func WithTx(tx StoreTx) Option {
	return func(s *RegistrationService) {
		s.tx = tx
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *RegistrationService) {
		s.tokenTTL = ttl
	}
}

func New(userStore UserStore, tokens token.Generator, opts ...Option) (*RegistrationService, error) {
	if userStore == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token generator is required")
	}

	svc := &RegistrationService{
		store:    userStore,
		tokens:   tokens,
		tx:       NoopTx{},
		metrics:  noopMetrics{},
		logger:   slog.Default(),
		tokenTTL: DefaultTokenTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates a new identity with a live verification token. The insert
// and token issuance are one atomic unit; the UserRegistered event fires only
// after that unit has committed. The returned snapshot still carries the
// plaintext token for callers that deliver it out of band.
func (s *RegistrationService) Register(ctx context.Context, username, addr string) (models.User, error) {
	addr = email.Normalize(addr)
	if err := models.ValidateUsername(username); err != nil {
		s.metrics.ObserveRegistration("invalid")
		return models.User{}, err
	}
	if err := models.ValidateEmail(addr); err != nil {
		s.metrics.ObserveRegistration("invalid")
		return models.User{}, err
	}

	// Advisory pre-checks for deterministic error ordering. The store's
	// unique constraints remain the authority under concurrency.
	if taken, err := s.usernameTaken(ctx, username); err != nil {
		return models.User{}, err
	} else if taken {
		s.metrics.ObserveRegistration("conflict")
		return models.User{}, conflictError("username", username)
	}
	if taken, err := s.emailTaken(ctx, addr); err != nil {
		return models.User{}, err
	} else if taken {
		s.metrics.ObserveRegistration("conflict")
		return models.User{}, conflictError("email", addr)
	}

	now := requestcontext.Now(ctx)
	user, err := models.NewUser(id.NewUserID(), username, addr, now)
	if err != nil {
		return models.User{}, err
	}

	tok, err := s.tokens.Generate()
	if err != nil {
		return models.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification token")
	}
	user, err = user.WithIssuedToken(tok, now.Add(s.tokenTTL))
	if err != nil {
		return models.User{}, err
	}

	var created models.User
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var createErr error
		created, createErr = s.store.CreateIfAvailable(txCtx, user)
		return createErr
	})
	if err != nil {
		var conflict *store.Conflict
		if errors.As(err, &conflict) {
			s.metrics.ObserveRegistration("conflict")
			return models.User{}, dErrors.Wrap(err, dErrors.CodeConflict, conflict.Field+" already taken").WithField(conflict.Field)
		}
		s.metrics.ObserveRegistration("store_error")
		return models.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.metrics.ObserveRegistration("created")
	s.logger.InfoContext(ctx, "user registered",
		"user_id", created.PublicID,
		"username", created.Username,
		"request_id", requestcontext.RequestID(ctx),
	)

	s.deliverToken(ctx, created)

	if s.publisher != nil {
		s.publisher.Publish(ctx, events.UserRegistered{
			UserID:       created.ID,
			PublicID:     created.PublicID,
			Username:     created.Username,
			Email:        created.Email,
			RegisteredAt: created.CreatedAt,
		})
	}

	return created, nil
}

// CheckUsernameAvailable reports whether username is syntactically valid and
// not yet claimed.
func (s *RegistrationService) CheckUsernameAvailable(ctx context.Context, username string) (bool, error) {
	if err := models.ValidateUsername(username); err != nil {
		return false, err
	}
	taken, err := s.usernameTaken(ctx, username)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// CheckEmailAvailable reports whether addr is syntactically valid and not yet
// claimed.
func (s *RegistrationService) CheckEmailAvailable(ctx context.Context, addr string) (bool, error) {
	addr = email.Normalize(addr)
	if err := models.ValidateEmail(addr); err != nil {
		return false, err
	}
	taken, err := s.emailTaken(ctx, addr)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// Count reports the total number of registered identities.
func (s *RegistrationService) Count(ctx context.Context) (int64, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count users")
	}
	return count, nil
}

func (s *RegistrationService) usernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := s.store.FindByUsername(ctx, username)
	return lookupHit(err, "username")
}

func (s *RegistrationService) emailTaken(ctx context.Context, addr string) (bool, error) {
	_, err := s.store.FindByEmail(ctx, addr)
	return lookupHit(err, "email")
}

func (s *RegistrationService) deliverToken(ctx context.Context, user models.User) {
	if s.sender == nil || user.VerificationToken == nil {
		return
	}
	if err := s.sender.SendVerification(ctx, user.Email, user.Username, *user.VerificationToken); err != nil {
		s.logger.ErrorContext(ctx, "verification delivery failed",
			"user_id", user.PublicID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}
