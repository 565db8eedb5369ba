// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package commands

import (
	"context"
	"fmt"

	bridge_api "github.com/rapidaai/live-bridge/api/bridge-api/api"
	internal_callcontext "github.com/rapidaai/live-bridge/internal/callcontext"
	"github.com/rapidaai/live-bridge/config"
	"github.com/rapidaai/live-bridge/pkg/commons"
	"github.com/rapidaai/live-bridge/pkg/connectors"
)

type callStore struct {
	internal_callcontext.Store
	dependencies []bridge_api.Dependency
	close        func()
}

// newCallStore connects the configured call store backend.
func newCallStore(ctx context.Context, cfg *config.AppConfig, logger commons.Logger) (*callStore, error) {
	switch cfg.CallStoreConfig.Type {
	case config.CallStoreRedis:
		redis := connectors.NewRedisConnector(cfg.RedisConfig, logger)
		if err := redis.Connect(ctx); err != nil {
			return nil, err
		}
		return &callStore{
			Store:        internal_callcontext.NewRedisStore(redis, cfg.RedisConfig.TTL, logger),
			dependencies: []bridge_api.Dependency{redis},
			close:        func() { redis.Disconnect(context.Background()) },
		}, nil

	case config.CallStorePostgres, config.CallStoreSqlite:
		var db connectors.PostgresConnector
		if cfg.CallStoreConfig.Type == config.CallStorePostgres {
			db = connectors.NewPostgresConnector(cfg.PostgresConfig, logger)
		} else {
			db = connectors.NewSqliteConnector(cfg.SqliteConfig, logger)
		}
		if err := db.Connect(ctx); err != nil {
			return nil, err
		}
		if err := internal_callcontext.Migrate(ctx, db); err != nil {
			db.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to migrate call records: %w", err)
		}
		return &callStore{
			Store:        internal_callcontext.NewPostgresStore(db, logger),
			dependencies: []bridge_api.Dependency{db},
			close:        func() { db.Disconnect(context.Background()) },
		}, nil

	default:
		return &callStore{
			Store: internal_callcontext.NewMemoryStore(logger, cfg.CallStoreConfig.Retention),
			close: func() {},
		}, nil
	}
}
