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
	"strconv"
	"time"

	"github.com/rapidaai/live-bridge/pkg/commons"
	"github.com/rapidaai/live-bridge/pkg/connectors"
	"github.com/redis/go-redis/v9"
)

const (
	redisClaimPrefix  = "live-bridge:claim:"
	redisRecordPrefix = "live-bridge:call:"
)

type redisStore struct {
	redis  connectors.RedisConnector
	ttl    time.Duration
	logger commons.Logger
	now    func() time.Time
}

// NewRedisStore shares room claims across bridge instances. The claim key is
// set with SETNX and expires after ttl so a crashed instance cannot pin a
// room forever.
func NewRedisStore(redis connectors.RedisConnector, ttl time.Duration, logger commons.Logger) Store {
	return &redisStore{
		redis:  redis,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func claimKey(roomID string) string  { return redisClaimPrefix + roomID }
func recordKey(roomID string) string { return redisRecordPrefix + roomID }

func (s *redisStore) Claim(ctx context.Context, rec *Record) error {
	client := s.redis.GetConnection()

	won, err := client.SetNX(ctx, claimKey(rec.RoomID), rec.CallID, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to claim room %s: %w", rec.RoomID, err)
	}
	if !won {
		return fmt.Errorf("failed to claim room %s: %w", rec.RoomID, ErrCallExists)
	}

	if rec.CreatedDate.IsZero() {
		rec.CreatedDate = s.now()
	}
	if err := client.HSet(ctx, recordKey(rec.RoomID),
		"call_id", rec.CallID,
		"room_id", rec.RoomID,
		"peer_name", rec.PeerName,
		"status", string(rec.Status),
		"reason", rec.Reason,
		"created_date", strconv.FormatInt(rec.CreatedDate.UnixMilli(), 10),
	).Err(); err != nil {
		client.Del(ctx, claimKey(rec.RoomID))
		return fmt.Errorf("failed to save call record for room %s: %w", rec.RoomID, err)
	}
	if err := client.Expire(ctx, recordKey(rec.RoomID), s.ttl).Err(); err != nil {
		s.logger.Warnw("failed to set call record expiry", "room", rec.RoomID, "error", err)
	}

	s.logger.Debugf("claimed room: room=%s, call=%s, status=%s", rec.RoomID, rec.CallID, rec.Status)
	return nil
}

func (s *redisStore) Transition(ctx context.Context, roomID string, status State, reason string) error {
	client := s.redis.GetConnection()

	exists, err := client.Exists(ctx, claimKey(roomID)).Result()
	if err != nil {
		return fmt.Errorf("failed to transition room %s: %w", roomID, err)
	}
	if exists == 0 {
		return fmt.Errorf("failed to transition room %s: %w", roomID, ErrCallNotFound)
	}

	if err := client.HSet(ctx, recordKey(roomID),
		"status", string(status),
		"reason", reason,
		"updated_date", strconv.FormatInt(s.now().UnixMilli(), 10),
	).Err(); err != nil {
		return fmt.Errorf("failed to transition room %s: %w", roomID, err)
	}

	if status.IsTerminal() {
		if err := client.Del(ctx, claimKey(roomID)).Err(); err != nil {
			return fmt.Errorf("failed to release claim on room %s: %w", roomID, err)
		}
	}

	s.logger.Debugf("transitioned room: room=%s, status=%s, reason=%s", roomID, status, reason)
	return nil
}

func (s *redisStore) Get(ctx context.Context, roomID string) (*Record, error) {
	values, err := s.redis.GetConnection().HGetAll(ctx, recordKey(roomID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get call record for room %s: %w", roomID, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("room %s: %w", roomID, ErrCallNotFound)
	}

	rec := &Record{
		CallID:   values["call_id"],
		RoomID:   values["room_id"],
		PeerName: values["peer_name"],
		Status:   State(values["status"]),
		Reason:   values["reason"],
	}
	if ms, err := strconv.ParseInt(values["created_date"], 10, 64); err == nil {
		rec.CreatedDate = time.UnixMilli(ms)
	}
	if ms, err := strconv.ParseInt(values["updated_date"], 10, 64); err == nil {
		rec.UpdatedDate = time.UnixMilli(ms)
	}
	return rec, nil
}

func (s *redisStore) Delete(ctx context.Context, roomID string) error {
	if err := s.redis.GetConnection().Del(ctx, claimKey(roomID), recordKey(roomID)).Err(); err != nil {
		return fmt.Errorf("failed to delete call record for room %s: %w", roomID, err)
	}
	return nil
}
