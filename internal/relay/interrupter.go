// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_relay

import (
	"context"
	"sync/atomic"

	internal_type "github.com/rapidaai/live-bridge/internal/type"
	"github.com/rapidaai/live-bridge/pkg/commons"
)

// Interrupter flushes audio queued on the agent output track when the
// model is cut off by the user.
type Interrupter struct {
	logger  commons.Logger
	agent   internal_type.Agent
	trackID string

	interrupted atomic.Uint64
	failed      atomic.Uint64
}

func NewInterrupter(logger commons.Logger, agent internal_type.Agent, trackID string) *Interrupter {
	return &Interrupter{logger: logger, agent: agent, trackID: trackID}
}

// Interrupt issues exactly one flush request. A failed request is logged
// and otherwise ignored; the next interruption tries again.
func (i *Interrupter) Interrupt(ctx context.Context) {
	if err := i.agent.InterruptTrack(ctx, i.trackID); err != nil {
		i.failed.Add(1)
		ierr := &InterruptionError{TrackID: i.trackID, Cause: err}
		i.logger.Warnw("interruption not applied", "kind", "interruption_handling", "track", i.trackID, "error", ierr)
		return
	}
	i.interrupted.Add(1)
	i.logger.Debugf("agent track interrupted: track=%s", i.trackID)
}

// Interrupted returns how many flushes the room service accepted.
func (i *Interrupter) Interrupted() uint64 {
	return i.interrupted.Load()
}

// Failed returns how many flushes were rejected.
func (i *Interrupter) Failed() uint64 {
	return i.failed.Load()
}
