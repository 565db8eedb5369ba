// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_callcontext

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrCallExists is returned when a room already has a live call.
	ErrCallExists = errors.New("a live call already exists for this room")
	// ErrCallNotFound is returned when no record exists for a room.
	ErrCallNotFound = errors.New("call record not found")
)

// Record is the ledger entry of a call. No audio or transcript is kept.
type Record struct {
	Id          uint64    `json:"id" gorm:"type:bigint;primaryKey;autoIncrement;<-:create"`
	CallID      string    `json:"callId" gorm:"column:call_id;type:varchar(36);not null;uniqueIndex"`
	RoomID      string    `json:"roomId" gorm:"column:room_id;type:varchar(200);not null;index;uniqueIndex:idx_call_records_live_room,where:status <> 'closed' AND status <> 'failed'"`
	PeerName    string    `json:"peerName" gorm:"column:peer_name;type:varchar(200);not null;default:''"`
	Status      State     `json:"status" gorm:"column:status;type:varchar(20);not null"`
	Reason      string    `json:"reason" gorm:"column:reason;type:varchar(200);not null;default:''"`
	CreatedDate time.Time `json:"createdDate" gorm:"type:timestamp;not null;<-:create"`
	UpdatedDate time.Time `json:"updatedDate" gorm:"type:timestamp;default:null"`
}

func (Record) TableName() string {
	return "call_records"
}

func (r *Record) BeforeCreate(tx *gorm.DB) (err error) {
	if r.CreatedDate.IsZero() {
		r.CreatedDate = time.Now()
	}
	return nil
}

// Store keeps one record per room for the lifetime of its call.
//
// Claim is the single-agent-per-room guard: it succeeds only when the room
// has no record in a non-terminal state, so two bridges can never be active
// on the same room even across processes sharing a store.
type Store interface {
	// Claim records a new live call for rec.RoomID.
	// Returns ErrCallExists if the room already has one.
	Claim(ctx context.Context, rec *Record) error

	// Transition moves the live call of a room to a new status. Moving to a
	// terminal status releases the room's claim.
	Transition(ctx context.Context, roomID string, status State, reason string) error

	// Get returns the latest record for a room regardless of status.
	Get(ctx context.Context, roomID string) (*Record, error)

	// Delete removes every record of a room.
	Delete(ctx context.Context, roomID string) error
}
