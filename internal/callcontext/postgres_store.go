// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_callcontext

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rapidaai/live-bridge/pkg/commons"
	"github.com/rapidaai/live-bridge/pkg/connectors"
	"gorm.io/gorm"
)

var terminalStatuses = []string{string(StateClosed), string(StateFailed)}

type postgresStore struct {
	postgres connectors.PostgresConnector
	logger   commons.Logger
}

// NewPostgresStore keeps the call ledger in a SQL database through gorm.
// Rows are never deleted during a call; they only move through statuses.
func NewPostgresStore(postgres connectors.PostgresConnector, logger commons.Logger) Store {
	return &postgresStore{
		postgres: postgres,
		logger:   logger,
	}
}

// Migrate creates or updates the call_records table, including the partial
// unique index that allows one live call per room.
func Migrate(ctx context.Context, postgres connectors.PostgresConnector) error {
	return postgres.DB(ctx).AutoMigrate(&Record{})
}

// Claim inserts the record. The partial unique index on live rows of a room
// makes the insert itself the guard, so concurrent claims from any number
// of processes cannot both succeed.
func (s *postgresStore) Claim(ctx context.Context, rec *Record) error {
	db := s.postgres.DB(ctx)
	if err := db.Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = ErrCallExists
		}
		return fmt.Errorf("failed to claim room %s: %w", rec.RoomID, err)
	}

	s.logger.Infof("claimed room: room=%s, call=%s, peer=%s", rec.RoomID, rec.CallID, rec.PeerName)
	return nil
}

func (s *postgresStore) Transition(ctx context.Context, roomID string, status State, reason string) error {
	db := s.postgres.DB(ctx)
	result := db.Model(&Record{}).
		Where("room_id = ? AND status NOT IN ?", roomID, terminalStatuses).
		Updates(map[string]interface{}{
			"status":       string(status),
			"reason":       reason,
			"updated_date": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to transition room %s: %w", roomID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to transition room %s: %w", roomID, ErrCallNotFound)
	}

	s.logger.Debugf("transitioned room: room=%s, status=%s, reason=%s", roomID, status, reason)
	return nil
}

func (s *postgresStore) Get(ctx context.Context, roomID string) (*Record, error) {
	db := s.postgres.DB(ctx)
	var rec Record
	if err := db.Where("room_id = ?", roomID).Order("id desc").First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("room %s: %w", roomID, ErrCallNotFound)
		}
		return nil, fmt.Errorf("failed to get call record for room %s: %w", roomID, err)
	}
	return &rec, nil
}

func (s *postgresStore) Delete(ctx context.Context, roomID string) error {
	db := s.postgres.DB(ctx)
	if err := db.Where("room_id = ?", roomID).Delete(&Record{}).Error; err != nil {
		return fmt.Errorf("failed to delete call records for room %s: %w", roomID, err)
	}
	s.logger.Debugf("deleted call records: room=%s", roomID)
	return nil
}
