package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options configures the Redis connection. Zero pool and timeout fields
// take the defaults below.
type Options struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

func (o *Options) setDefaults() {
	if o.PoolSize <= 0 {
		o.PoolSize = 4
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 2 * time.Second
	}
}

// Client is the Redis connection used by the task mirror.
type Client struct {
	*redis.Client
	log *zap.Logger
}

// NewClient connects to Redis. An unreachable server is only logged: task
// snapshots are mirrored best effort and the registry stays authoritative.
func NewClient(log *zap.Logger, o Options) *Client {
	o.setDefaults()
	c := &Client{
		Client: redis.NewClient(&redis.Options{
			Addr:         o.Addr,
			Password:     o.Password,
			DB:           o.DB,
			PoolSize:     o.PoolSize,
			DialTimeout:  o.DialTimeout,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			MaxRetries:   1,
		}),
		log: log.Named("redis").With(zap.String("addr", o.Addr), zap.Int("db", o.DB)),
	}
	c.Check(context.Background())
	return c
}

// Check pings the server and logs the round trip. It reports whether the
// server answered.
func (c *Client) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := c.Ping(ctx).Err(); err != nil {
		c.log.Warn("redis unreachable, task mirror will retry on publish",
			zap.Error(err), zap.Duration("rtt", time.Since(start)))
		return false
	}
	c.log.Info("redis connected", zap.Duration("rtt", time.Since(start)))
	return true
}
