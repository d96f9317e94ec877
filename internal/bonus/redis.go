package bonus

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	id "signup/pkg/domain"
)

const balanceKeyPrefix = "bonus:balance:"

// Redis is the shared Store for multi-instance deployments. Grants use
// INCRBY, so concurrent listeners never lose an increment.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Grant(ctx context.Context, userID id.UserID, points int64) (int64, error) {
	balance, err := r.client.IncrBy(ctx, balanceKey(userID), points).Result()
	if err != nil {
		return 0, fmt.Errorf("incr bonus balance: %w", err)
	}
	return balance, nil
}

// Balance returns the current balance, zero for unknown identities.
func (r *Redis) Balance(ctx context.Context, userID id.UserID) (int64, error) {
	balance, err := r.client.Get(ctx, balanceKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get bonus balance: %w", err)
	}
	return balance, nil
}

func balanceKey(userID id.UserID) string {
	return balanceKeyPrefix + userID.String()
}
