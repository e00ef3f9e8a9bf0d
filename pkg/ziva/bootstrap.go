package ziva

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/ziva-sdk/internal/cache"
	"github.com/Checker-Finance/ziva-sdk/internal/events"
	"github.com/Checker-Finance/ziva-sdk/internal/httpclient"
	"github.com/Checker-Finance/ziva-sdk/pkg/config"
	"github.com/Checker-Finance/ziva-sdk/pkg/secrets"
)

const secretsTTL = 15 * time.Minute

// NewFromConfig wires a client from configuration: cache backend, retry policy,
// rate limit, optional NATS notifications and optional credential seeding from
// AWS Secrets Manager.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := cache.Open(ctx, cache.Options{
		Backend:     cfg.CacheBackend,
		Path:        cfg.CachePath,
		Key:         cfg.CacheKey,
		RedisAddr:   cfg.RedisAddr,
		RedisPass:   cfg.RedisPass,
		RedisDB:     cfg.RedisDB,
		DatabaseURL: cfg.DatabaseURL,
	}, logger)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithLogger(logger),
		WithCache(store),
		WithDemoMode(cfg.DemoMode),
		WithWorkers(cfg.Workers),
		WithPolicy(httpclient.Policy{
			Timeout:           cfg.RequestTimeout,
			MaxRetries:        cfg.MaxRetries,
			BackoffMultiplier: cfg.BackoffMultiplier,
		}),
	}
	if cfg.RateLimitRPS > 0 {
		opts = append(opts, WithRateLimit(float64(cfg.RateLimitRPS), cfg.RateLimitBurst))
	}
	if closer, ok := store.(io.Closer); ok {
		opts = append(opts, withCloser(closer.Close))
	}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
		if err != nil {
			if closer, ok := store.(io.Closer); ok {
				_ = closer.Close()
			}
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		logger.Info("nats.connected", zap.String("url", nc.ConnectedUrlRedacted()))
		opts = append(opts,
			WithNotifier(events.NewNATSNotifier(nc, cfg.EventsSubject, cfg.ServiceName, logger)),
			withNATS(nc),
			withCloser(func() error { return nc.Drain() }),
		)
	}

	client := New(cfg.APIURL, cfg.ManagementURL, opts...)

	if cfg.CredentialsSecret != "" {
		provider, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		if err := client.SeedFromSecrets(ctx, secrets.NewCachedProvider(provider, secretsTTL), cfg.CredentialsSecret); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return client, nil
}
