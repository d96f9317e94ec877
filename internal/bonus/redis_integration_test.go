//go:build integration

package bonus_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"signup/internal/bonus"
	id "signup/pkg/domain"
	"signup/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bonus.Redis
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = bonus.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestGrantAndBalance() {
	ctx := context.Background()
	userID := id.NewUserID()

	balance, err := s.store.Grant(ctx, userID, 100)
	s.Require().NoError(err)
	s.EqualValues(100, balance)

	balance, err = s.store.Grant(ctx, userID, 150)
	s.Require().NoError(err)
	s.EqualValues(250, balance)

	balance, err = s.store.Balance(ctx, userID)
	s.Require().NoError(err)
	s.EqualValues(250, balance)
}

func (s *RedisStoreSuite) TestBalanceUnknownUser() {
	balance, err := s.store.Balance(context.Background(), id.NewUserID())
	s.Require().NoError(err)
	s.Zero(balance)
}

func (s *RedisStoreSuite) TestConcurrentGrantsDoNotLoseIncrements() {
	ctx := context.Background()
	userID := id.NewUserID()

	const goroutines = 20
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Grant(ctx, userID, 10)
			s.NoError(err)
		}()
	}
	wg.Wait()

	balance, err := s.store.Balance(ctx, userID)
	s.Require().NoError(err)
	s.EqualValues(goroutines*10, balance)
}
