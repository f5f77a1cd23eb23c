package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ticketing/internal/pkg/logger"
)

// Client wraps a go-redis universal client (single node or cluster, depending on the address count).
type Client struct {
	client goredis.UniversalClient
}

// NewClient dials addrs and verifies the connection with a PING.
func NewClient(ctx context.Context, addrs []string, password string, db int) (*Client, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("redis: no addresses configured")
	}
	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:        addrs,
		Password:     password,
		DB:           db,
		PoolSize:     100,
		MinIdleConns: 10,
		MaxRetries:   3,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis %v: %w", addrs, err)
	}

	logger.L().Info().Strs("addrs", addrs).Msg("connected to redis")
	return &Client{client: client}, nil
}

// NewFromUniversal wraps an existing client, e.g. a redismock client in tests.
func NewFromUniversal(client goredis.UniversalClient) *Client {
	return &Client{client: client}
}

func (c *Client) GetClient() goredis.UniversalClient {
	return c.client
}

// Ping reports whether Redis answers within two seconds.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
