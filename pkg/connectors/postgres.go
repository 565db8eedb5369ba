// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/rapidaai/live-bridge/config"
	"github.com/rapidaai/live-bridge/pkg/commons"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// PostgresConnector hands out a context-bound *gorm.DB. The sqlite dialect is
// served by the same connector for single-node deployments.
type PostgresConnector interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected(ctx context.Context) bool
	Name() string
	DB(ctx context.Context) *gorm.DB
}

type gormConnector struct {
	name      string
	dialector gorm.Dialector
	maxOpen   int
	maxIdle   int
	logger    commons.Logger
	db        *gorm.DB
}

func NewPostgresConnector(cfg *config.PostgresConfig, logger commons.Logger) PostgresConnector {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SslMode)
	return &gormConnector{
		name:      fmt.Sprintf("POSTGRES %s:%d/%s", cfg.Host, cfg.Port, cfg.DBName),
		dialector: postgres.Open(dsn),
		maxOpen:   cfg.MaxOpenConnection,
		maxIdle:   cfg.MaxIdealConnection,
		logger:    logger,
	}
}

func NewSqliteConnector(cfg *config.SqliteConfig, logger commons.Logger) PostgresConnector {
	return &gormConnector{
		name:      fmt.Sprintf("SQLITE %s", cfg.Path),
		dialector: sqlite.Open(cfg.Path),
		maxOpen:   1,
		maxIdle:   1,
		logger:    logger,
	}
}

// NewConnectorWithDialector is used by tests to plug in go-sqlmock.
func NewConnectorWithDialector(name string, dialector gorm.Dialector, logger commons.Logger) PostgresConnector {
	return &gormConnector{name: name, dialector: dialector, logger: logger}
}

func (g *gormConnector) Name() string {
	return g.name
}

func (g *gormConnector) Connect(ctx context.Context) error {
	db, err := gorm.Open(g.dialector, &gorm.Config{
		Logger:                 gorm_logger.Default.LogMode(gorm_logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", g.name, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db for %s: %w", g.name, err)
	}
	if g.maxOpen > 0 {
		sqlDB.SetMaxOpenConns(g.maxOpen)
	}
	if g.maxIdle > 0 {
		sqlDB.SetMaxIdleConns(g.maxIdle)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	g.db = db
	g.logger.Infof("connected to %s", g.name)
	return nil
}

func (g *gormConnector) IsConnected(ctx context.Context) bool {
	if g.db == nil {
		return false
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}

func (g *gormConnector) Disconnect(ctx context.Context) error {
	if g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	g.logger.Debugf("disconnecting %s", g.name)
	return sqlDB.Close()
}

func (g *gormConnector) DB(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx)
}
