package session

import (
	"context"
	"fmt"

	"github.com/14tweny/Gottwood-Review-sub000/internal/config"
	"github.com/14tweny/Gottwood-Review-sub000/internal/pgstore"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/remote"
)

// Dial connects to the remote store selected by cfg and verifies it answers.
func Dial(ctx context.Context, cfg *config.Config) (remote.Store, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		store, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return store, nil

	case config.BackendRedis, "":
		url := cfg.RedisURL
		if url == "" {
			url = config.DefaultRedisURL
		}
		store, err := remote.NewRedisStoreFromURL(url)
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", url, err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown backend '%s'", cfg.Backend)
}

// OptionsFromConfig builds session options for a scope from cfg.
func OptionsFromConfig(cfg *config.Config, org, period, dept string) (Options, error) {
	o, err := cfg.Organization(org)
	if err != nil {
		return Options{}, err
	}
	if period == "" {
		period = cfg.CurrentPeriod
	}
	opts := Options{
		Org:           o,
		Period:        period,
		Dept:          dept,
		CurrentPeriod: cfg.CurrentPeriod,
	}
	if cfg.Sync != nil {
		opts.Writer = cfg.WriterConfig()
		opts.PollInterval = cfg.Sync.PollInterval
	}
	return opts, nil
}
