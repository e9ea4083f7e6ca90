// Package redis connects the live-location store and the session revocation
// list to a shared Redis instance.
package redis

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"givetrack/internal/platform/config"
)

type Client struct {
	*redis.Client
}

// New connects and pings. It returns nil, nil when no URL is configured.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// RegisterPoolMetrics exposes connection pool gauges. Each location
// subscription holds one pooled connection.
func (c *Client) RegisterPoolMetrics(reg prometheus.Registerer) error {
	gauges := map[string]func(*redis.PoolStats) uint32{
		"givetrack_redis_pool_total_connections": func(s *redis.PoolStats) uint32 { return s.TotalConns },
		"givetrack_redis_pool_idle_connections":  func(s *redis.PoolStats) uint32 { return s.IdleConns },
		"givetrack_redis_pool_timeouts_total":     func(s *redis.PoolStats) uint32 { return s.Timeouts },
	}
	for name, read := range gauges {
		g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: name,
			Help: "Redis connection pool statistic.",
		}, func() float64 { return float64(read(c.PoolStats())) })
		if err := reg.Register(g); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}
	return nil
}
