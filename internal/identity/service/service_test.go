package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"signup/internal/events"
	"signup/internal/identity/service"
	"signup/internal/identity/token"
	userstore "signup/internal/identity/store/user"
	dErrors "signup/pkg/domain-errors"
	"signup/pkg/requestcontext"
)

// seqGenerator hands out predictable tokens so tests can assert on exact
// token values across issue and resend.
type seqGenerator struct {
	n   int
	err error
}

func (g *seqGenerator) Generate() (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.n++
	return fmt.Sprintf("token-%d", g.n), nil
}

// recordingSender captures outgoing verification deliveries.
type recordingSender struct {
	sent []string
	err  error
}

func (r *recordingSender) SendVerification(_ context.Context, addr, _, tok string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, addr+":"+tok)
	return nil
}

type RegistrationSuite struct {
	suite.Suite

	ctx    context.Context
	now    time.Time
	store  *userstore.InMemory
	gen    *seqGenerator
	sender *recordingSender
	svc    *service.RegistrationService
}

func TestRegistrationSuite(t *testing.T) {
	suite.Run(t, new(RegistrationSuite))
}

func (s *RegistrationSuite) SetupTest() {
	s.now = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) // a Monday
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = userstore.NewInMemory()
	s.gen = &seqGenerator{}
	s.sender = &recordingSender{}

	svc, err := service.New(s.store, s.gen,
		service.WithVerificationSender(s.sender),
	)
	s.Require().NoError(err)
	s.svc = svc
}

func (s *RegistrationSuite) TestRegisterHappyPath() {
	user, err := s.svc.Register(s.ctx, "alice", "Alice@X.com")
	s.Require().NoError(err)

	s.Positive(user.ID)
	s.False(user.PublicID.IsNil())
	s.Equal("alice", user.Username)
	s.Equal("alice@x.com", user.Email, "email is normalized to lower case")
	s.Equal(s.now, user.CreatedAt)
	s.False(user.EmailVerified)

	s.Require().NotNil(user.VerificationToken)
	s.Equal("token-1", *user.VerificationToken)
	s.Require().NotNil(user.VerificationTokenExpiry)
	s.Equal(s.now.Add(service.DefaultTokenTTL), *user.VerificationTokenExpiry)

	s.Equal([]string{"alice@x.com:token-1"}, s.sender.sent)
}

func (s *RegistrationSuite) TestRegisterValidation() {
	cases := []struct {
		name     string
		username string
		email    string
		field    string
	}{
		{"username too short", "ab", "a@x.com", "username"},
		{"username bad charset", "has space", "a@x.com", "username"},
		{"email malformed", "alice", "not-an-email", "email"},
		{"email empty", "alice", "", "email"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.svc.Register(s.ctx, tc.username, tc.email)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
			s.Equal(tc.field, dErrors.FieldOf(err))
		})
	}

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(count, "no record is written for invalid input")
}

func (s *RegistrationSuite) TestRegisterConflicts() {
	_, err := s.svc.Register(s.ctx, "bob", "bob@x.com")
	s.Require().NoError(err)

	s.Run("duplicate username wins over duplicate email", func() {
		_, err := s.svc.Register(s.ctx, "bob", "bob@x.com")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal("username", dErrors.FieldOf(err), "username is checked first")
	})

	s.Run("duplicate username, different email", func() {
		_, err := s.svc.Register(s.ctx, "bob", "other@x.com")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal("username", dErrors.FieldOf(err))
	})

	s.Run("duplicate email, different username", func() {
		_, err := s.svc.Register(s.ctx, "robert", "bob@x.com")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal("email", dErrors.FieldOf(err))
	})

	s.Run("case-insensitive collisions", func() {
		_, err := s.svc.Register(s.ctx, "BOB", "whatever@x.com")
		s.Equal("username", dErrors.FieldOf(err))

		_, err = s.svc.Register(s.ctx, "someone", "BOB@X.COM")
		s.Equal("email", dErrors.FieldOf(err))
	})

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(1, count)
}

func (s *RegistrationSuite) TestRegisterPublishesAfterPersist() {
	dispatcher := events.NewDispatcher()
	var observed []events.UserRegistered
	dispatcher.Subscribe("user.registered", 1, events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		reg := e.(events.UserRegistered)
		// The record must already be durable when the handler runs.
		stored, err := s.store.FindByID(ctx, reg.UserID)
		s.Require().NoError(err)
		s.Equal(reg.Username, stored.Username)
		observed = append(observed, reg)
		return nil
	}))

	svc, err := service.New(s.store, s.gen, service.WithPublisher(dispatcher))
	s.Require().NoError(err)

	user, err := svc.Register(s.ctx, "carol", "carol@x.com")
	s.Require().NoError(err)

	s.Require().Len(observed, 1)
	s.Equal(user.ID, observed[0].UserID)
	s.Equal(user.PublicID, observed[0].PublicID)
	s.Equal("carol", observed[0].Username)
	s.Equal("carol@x.com", observed[0].Email)
	s.Equal(s.now, observed[0].RegisteredAt)
}

func (s *RegistrationSuite) TestRegisterNoEventOnConflict() {
	dispatcher := events.NewDispatcher()
	published := 0
	dispatcher.Subscribe("user.registered", 1, events.HandlerFunc(func(context.Context, events.Event) error {
		published++
		return nil
	}))

	svc, err := service.New(s.store, s.gen, service.WithPublisher(dispatcher))
	s.Require().NoError(err)

	_, err = svc.Register(s.ctx, "dave", "dave@x.com")
	s.Require().NoError(err)
	_, err = svc.Register(s.ctx, "dave", "dave2@x.com")
	s.Require().Error(err)

	s.Equal(1, published)
}

func (s *RegistrationSuite) TestListenerFailureDoesNotFailRegistration() {
	dispatcher := events.NewDispatcher()
	dispatcher.Subscribe("user.registered", 1, events.HandlerFunc(func(context.Context, events.Event) error {
		return errors.New("smtp down")
	}))
	ran := false
	dispatcher.Subscribe("user.registered", 2, events.HandlerFunc(func(context.Context, events.Event) error {
		ran = true
		return nil
	}))

	svc, err := service.New(s.store, s.gen, service.WithPublisher(dispatcher))
	s.Require().NoError(err)

	user, err := svc.Register(s.ctx, "erin", "erin@x.com")
	s.Require().NoError(err)
	s.True(ran, "later listeners still run after one fails")

	stored, err := s.store.FindByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("erin", stored.Username, "the persisted record survives listener failure")
}

func (s *RegistrationSuite) TestDeliveryFailureDoesNotFailRegistration() {
	s.sender.err = errors.New("smtp down")

	user, err := s.svc.Register(s.ctx, "frank", "frank@x.com")
	s.Require().NoError(err)
	s.NotNil(user.VerificationToken)
}

func (s *RegistrationSuite) TestRegisterGeneratorFailure() {
	s.gen.err = errors.New("entropy exhausted")

	_, err := s.svc.Register(s.ctx, "grace", "grace@x.com")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *RegistrationSuite) TestRegisterWithRealGenerator() {
	svc, err := service.New(s.store, token.NewCryptoGenerator())
	s.Require().NoError(err)

	user, err := svc.Register(s.ctx, "heidi", "heidi@x.com")
	s.Require().NoError(err)
	s.Require().NotNil(user.VerificationToken)
	s.GreaterOrEqual(len(*user.VerificationToken), 43, "256 bits base64url encoded")
}

func (s *RegistrationSuite) TestAvailabilityChecks() {
	_, err := s.svc.Register(s.ctx, "ivan", "ivan@x.com")
	s.Require().NoError(err)

	ok, err := s.svc.CheckUsernameAvailable(s.ctx, "ivan")
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.svc.CheckUsernameAvailable(s.ctx, "IVAN")
	s.Require().NoError(err)
	s.False(ok, "availability check is case-insensitive")

	ok, err = s.svc.CheckUsernameAvailable(s.ctx, "judy")
	s.Require().NoError(err)
	s.True(ok)

	_, err = s.svc.CheckUsernameAvailable(s.ctx, "x")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	ok, err = s.svc.CheckEmailAvailable(s.ctx, "IVAN@x.com")
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.svc.CheckEmailAvailable(s.ctx, "judy@x.com")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *RegistrationSuite) TestCount() {
	for i := 0; i < 3; i++ {
		_, err := s.svc.Register(s.ctx, fmt.Sprintf("user_%d", i), fmt.Sprintf("u%d@x.com", i))
		s.Require().NoError(err)
	}
	count, err := s.svc.Count(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(3, count)
}
