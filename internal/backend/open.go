// Package backend opens the configured document store.
package backend

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"taskapi/internal/backend/firestore"
	"taskapi/internal/backend/memory"
	"taskapi/internal/backend/postgres"
	"taskapi/internal/backend/redis"
	"taskapi/internal/config"
	"taskapi/internal/store"
)

// ErrCredentials marks a failure caused by a missing or invalid credential file.
var ErrCredentials = errors.New("credentials error")

// Opener creates a store from configuration.
type Opener func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error)

var openers = map[string]Opener{
	config.BackendFirestore: openFirestore,
	config.BackendRedis:     openRedis,
	config.BackendPostgres:  openPostgres,
	config.BackendMemory:    openMemory,
}

// Open creates the store named by cfg.Store.Backend. It is called once per process.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	open, ok := openers[cfg.Store.Backend]
	if !ok {
		return nil, fmt.Errorf("unsupported store backend: %q", cfg.Store.Backend)
	}
	s, err := open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Store opened", zap.String("backend", cfg.Store.Backend))
	return s, nil
}

func openFirestore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	fc := cfg.Store.Firestore
	if !cfg.HasCredentials() {
		return nil, fmt.Errorf("%w: %s not found", ErrCredentials, fc.CredentialsFile)
	}
	logger.Info("Initializing Firestore client",
		zap.String("credentials_file", fc.CredentialsFile),
		zap.String("project_id", fc.ProjectID),
	)
	c, err := firestore.New(ctx, fc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentials, err)
	}
	return c, nil
}

func openRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	logger.Info("Initializing Redis client",
		zap.String("addr", cfg.Store.Redis.Addr),
		zap.Int("db", cfg.Store.Redis.DB),
		zap.String("key_prefix", cfg.Store.Redis.KeyPrefix),
	)
	return redis.New(ctx, cfg.Store.Redis)
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.Store.Postgres.URL == "" {
		return nil, errors.New("postgres backend needs DATABASE_URL or store.postgres.url")
	}
	return postgres.New(ctx, cfg.Store.Postgres, logger)
}

func openMemory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	logger.Warn("Using in-memory store; data is lost on exit")
	return memory.New(), nil
}
