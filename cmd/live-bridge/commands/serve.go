// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	bridge_api "github.com/rapidaai/live-bridge/api/bridge-api/api"
	internal_bridge "github.com/rapidaai/live-bridge/internal/bridge"
	internal_dialogue_gemini "github.com/rapidaai/live-bridge/internal/dialogue/gemini"
	internal_roomservice_fishjam "github.com/rapidaai/live-bridge/internal/roomservice/fishjam"
	internal_type "github.com/rapidaai/live-bridge/internal/type"
	bridge_routers "github.com/rapidaai/live-bridge/api/bridge-api/router"
	"github.com/rapidaai/live-bridge/config"
	"github.com/rapidaai/live-bridge/pkg/commons"
	"github.com/rapidaai/live-bridge/pkg/utils"
	"github.com/spf13/cobra"
)

// notifierMaxBackoff caps the delay between notification reconnects.
const notifierMaxBackoff = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	v, err := config.InitConfig()
	if err != nil {
		return err
	}
	cfg, err := config.GetApplicationConfig(v)
	if err != nil {
		return err
	}

	logger, err := commons.NewApplicationLogger(
		commons.Name(cfg.Name),
		commons.Level(cfg.LogLevel),
		commons.EnableFile(cfg.LogFile),
		commons.EnableJSON(cfg.IsProduction()),
	)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newCallStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	fishjamCfg := internal_roomservice_fishjam.Config{
		ID:              cfg.FishjamID,
		URL:             cfg.FishjamURL,
		ManagementToken: cfg.FishjamManagementToken,
		Timeout:         cfg.RequestTimeout,
		BufferSize:      cfg.RelayConfig.ChannelSize,
		RoomType:        cfg.FishjamRoomType,
	}
	rooms := internal_roomservice_fishjam.NewClient(fishjamCfg, logger)

	connector, err := internal_dialogue_gemini.NewConnector(ctx, cfg.GoogleApiKey, cfg.RelayConfig.ChannelSize, logger)
	if err != nil {
		return err
	}

	manager := internal_bridge.NewManager(logger, rooms, connector, store.Store, internal_bridge.ManagerConfig{
		Dialogue: internal_type.DialogueConfig{
			Model:              cfg.GeminiModel,
			ResponseModalities: []string{internal_type.ModalityAudio},
			SystemInstruction:  cfg.GeminiSystemInstruction,
			Voice:              cfg.GeminiVoice,
		},
		RollbackTimeout: cfg.RollbackTimeout,
	})

	// Calls still end on agent or dialogue disconnect while notifications
	// are down.
	policy := backoff.NewExponentialBackOff()
	policy.MaxInterval = notifierMaxBackoff
	policy.MaxElapsedTime = 0
	utils.Go(ctx, func() {
		manager.FollowNotifications(ctx, func(ctx context.Context) (internal_type.RoomNotifier, error) {
			return internal_roomservice_fishjam.NewNotifier(ctx, fishjamCfg, logger)
		}, policy)
	}, utils.LogPanic(logger))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), cors.New(corsConfig(cfg)))
	bridge_routers.BridgeRoutes(cfg, engine, logger, manager)
	bridge_routers.HealthCheckRoutes(cfg, engine, logger, manager, store.dependencies...)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: engine,
	}
	serveErr := make(chan error, 1)
	utils.Go(ctx, func() {
		logger.Infof("%s %s listening on %s", cfg.Name, cfg.Version, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}, utils.LogPanic(logger))

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Infof("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("http server shutdown failed", "error", err)
	}
	return manager.Shutdown(shutdownCtx)
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	for _, origin := range cfg.CorsAllowOrigins {
		if origin == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = cfg.CorsAllowOrigins
	return c
}

var _ bridge_api.CallManager = (*internal_bridge.Manager)(nil)
