package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"givetrack/internal/location/models"
	id "givetrack/pkg/domain"
	"givetrack/pkg/platform/sentinel"
)

const keyPrefix = "locations:"

func locationKey(partner id.UserID) string {
	return keyPrefix + partner.String()
}

func updatesChannel(partner id.UserID) string {
	return keyPrefix + partner.String() + ":updates"
}

// Redis stores each live location as a JSON string with a TTL and publishes
// every change on the partner's channel. The TTL expires records of partners
// whose device went silent without an explicit stop.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

type RedisOption func(*Redis)

func WithKeyTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

func WithLogger(logger *slog.Logger) RedisOption {
	return func(r *Redis) {
		r.logger = logger
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		ttl:    30 * time.Minute,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Put(ctx context.Context, loc *models.LiveLocation) error {
	record, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("marshal live location: %w", err)
	}
	update, err := json.Marshal(models.PositionUpdate(loc))
	if err != nil {
		return fmt.Errorf("marshal location update: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, locationKey(loc.PartnerID), record, r.ttl)
		pipe.Publish(ctx, updatesChannel(loc.PartnerID), update)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write live location: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, partner id.UserID) (*models.LiveLocation, error) {
	raw, err := r.client.Get(ctx, locationKey(partner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read live location: %w", err)
	}
	var loc models.LiveLocation
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil, fmt.Errorf("decode live location: %w", err)
	}
	return &loc, nil
}

func (r *Redis) Delete(ctx context.Context, partner id.UserID) error {
	update, err := json.Marshal(models.OfflineUpdate())
	if err != nil {
		return fmt.Errorf("marshal location update: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, locationKey(partner))
		pipe.Publish(ctx, updatesChannel(partner), update)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete live location: %w", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed, then delivers the
// current record followed by published changes.
func (r *Redis) Subscribe(ctx context.Context, partner id.UserID) (Subscriber, error) {
	pubsub := r.client.Subscribe(ctx, updatesChannel(partner))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to live location: %w", err)
	}

	sub := &redisSubscriber{
		pubsub:  pubsub,
		updates: make(chan models.Update, updateBuffer),
	}
	current, err := r.Get(ctx, partner)
	switch {
	case err == nil:
		sub.updates <- models.PositionUpdate(current)
	case !errors.Is(err, sentinel.ErrNotFound):
		_ = pubsub.Close()
		return nil, err
	}

	go sub.pump(r.logger, partner)
	return sub, nil
}

type redisSubscriber struct {
	pubsub  *redis.PubSub
	updates chan models.Update
	once    sync.Once
	err     error
}

func (s *redisSubscriber) Updates() <-chan models.Update {
	return s.updates
}

func (s *redisSubscriber) Close() error {
	s.once.Do(func() { s.err = s.pubsub.Close() })
	return s.err
}

// pump runs until the pubsub channel closes, which happens on Close.
func (s *redisSubscriber) pump(logger *slog.Logger, partner id.UserID) {
	defer close(s.updates)
	for msg := range s.pubsub.Channel() {
		var u models.Update
		if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
			logger.Warn("dropping malformed location update",
				"partner_id", partner,
				"error", err,
			)
			continue
		}
		offer(s.updates, u)
	}
}
