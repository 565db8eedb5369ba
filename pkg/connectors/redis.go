// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package connectors

import (
	"context"
	"fmt"

	"github.com/rapidaai/live-bridge/config"
	"github.com/rapidaai/live-bridge/pkg/commons"
	"github.com/redis/go-redis/v9"
)

type RedisConnector interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected(ctx context.Context) bool
	Name() string
	GetConnection() redis.UniversalClient
}

type redisConnector struct {
	cfg    *config.RedisConfig
	logger commons.Logger
	client redis.UniversalClient
}

func NewRedisConnector(cfg *config.RedisConfig, logger commons.Logger) RedisConnector {
	return &redisConnector{cfg: cfg, logger: logger}
}

// NewRedisConnectorWithClient wraps an existing client; used by tests with redismock.
func NewRedisConnectorWithClient(client redis.UniversalClient, logger commons.Logger) RedisConnector {
	return &redisConnector{client: client, logger: logger}
}

func (r *redisConnector) Name() string {
	if r.cfg == nil {
		return "REDIS"
	}
	return fmt.Sprintf("REDIS %s:%d", r.cfg.Host, r.cfg.Port)
}

func (r *redisConnector) Connect(ctx context.Context) error {
	if r.client == nil {
		r.client = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", r.cfg.Host, r.cfg.Port),
			Password: r.cfg.Password,
			DB:       r.cfg.DB,
		})
	}
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", r.Name(), err)
	}
	r.logger.Infof("connected to %s", r.Name())
	return nil
}

func (r *redisConnector) IsConnected(ctx context.Context) bool {
	if r.client == nil {
		return false
	}
	return r.client.Ping(ctx).Err() == nil
}

func (r *redisConnector) Disconnect(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	r.logger.Debugf("disconnecting %s", r.Name())
	return r.client.Close()
}

func (r *redisConnector) GetConnection() redis.UniversalClient {
	return r.client
}
