// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package bridge_api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rapidaai/live-bridge/config"
	"github.com/rapidaai/live-bridge/pkg/commons"
)

// Dependency is a backing service checked by the readiness check.
type Dependency interface {
	Name() string
	IsConnected(ctx context.Context) bool
}

type HealthCheckApi struct {
	cfg          *config.AppConfig
	logger       commons.Logger
	manager      CallManager
	dependencies []Dependency
}

func NewHealthCheckApi(cfg *config.AppConfig, logger commons.Logger, manager CallManager, dependencies ...Dependency) *HealthCheckApi {
	return &HealthCheckApi{cfg: cfg, logger: logger, manager: manager, dependencies: dependencies}
}

func (api *HealthCheckApi) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": api.cfg.Version})
}

// Readiness fails while any configured store is unreachable.
func (api *HealthCheckApi) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true
	for _, dep := range api.dependencies {
		ok := dep.IsConnected(ctx)
		checks[dep.Name()] = ok
		if !ok {
			ready = false
			api.logger.Warnf("readiness check failed for %s", dep.Name())
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"ready":       ready,
		"activeCalls": api.manager.Active(),
		"checks":      checks,
	})
}
