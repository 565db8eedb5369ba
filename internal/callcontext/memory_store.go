// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_callcontext

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rapidaai/live-bridge/pkg/commons"
)

const defaultRetention = time.Hour

type memoryStore struct {
	mu        sync.Mutex
	records   map[string]*Record
	retention time.Duration
	now       func() time.Time
	logger    commons.Logger
}

// NewMemoryStore keeps records in process memory. Suitable for a single
// instance; records are lost on restart. Ended calls are kept for retention
// and evicted on the next store operation after that.
func NewMemoryStore(logger commons.Logger, retention time.Duration) Store {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &memoryStore{
		records:   make(map[string]*Record),
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

// evictLocked drops ended calls older than the retention window.
func (s *memoryStore) evictLocked() {
	cutoff := s.now().Add(-s.retention)
	for roomID, rec := range s.records {
		if rec.Status.IsTerminal() && rec.UpdatedDate.Before(cutoff) {
			delete(s.records, roomID)
			s.logger.Debugf("evicted ended call: room=%s, call=%s", roomID, rec.CallID)
		}
	}
}

func (s *memoryStore) Claim(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()

	if existing, ok := s.records[rec.RoomID]; ok && !existing.Status.IsTerminal() {
		return fmt.Errorf("failed to claim room %s: %w", rec.RoomID, ErrCallExists)
	}
	if rec.CreatedDate.IsZero() {
		rec.CreatedDate = s.now()
	}
	cp := *rec
	s.records[rec.RoomID] = &cp

	s.logger.Debugf("claimed room: room=%s, call=%s, status=%s", rec.RoomID, rec.CallID, rec.Status)
	return nil
}

func (s *memoryStore) Transition(ctx context.Context, roomID string, status State, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()

	rec, ok := s.records[roomID]
	if !ok || rec.Status.IsTerminal() {
		return fmt.Errorf("failed to transition room %s: %w", roomID, ErrCallNotFound)
	}
	rec.Status = status
	rec.Reason = reason
	rec.UpdatedDate = s.now()

	s.logger.Debugf("transitioned room: room=%s, status=%s, reason=%s", roomID, status, reason)
	return nil
}

func (s *memoryStore) Get(ctx context.Context, roomID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()

	rec, ok := s.records[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, ErrCallNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (s *memoryStore) Delete(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, roomID)
	return nil
}
