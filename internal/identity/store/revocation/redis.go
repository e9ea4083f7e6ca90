package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	id "givetrack/pkg/domain"
)

const revokedSessionKeyPrefix = "revoked:session:"

// Redis shares revocations across instances. Keys expire with the token.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Revoke(ctx context.Context, sessionID id.SessionID, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	return r.client.Set(ctx, revokedSessionKeyPrefix+sessionID.String(), "1", ttl).Err()
}

func (r *Redis) IsRevoked(ctx context.Context, sessionID id.SessionID) (bool, error) {
	err := r.client.Get(ctx, revokedSessionKeyPrefix+sessionID.String()).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
