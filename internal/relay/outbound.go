// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_relay

import (
	"context"

	internal_audio "github.com/rapidaai/live-bridge/internal/audio"
	internal_type "github.com/rapidaai/live-bridge/internal/type"
	"github.com/rapidaai/live-bridge/pkg/commons"
)

// Outbound forwards room audio received by the agent to the dialogue
// session, one realtime input per track data event, in arrival order.
type Outbound struct {
	logger   commons.Logger
	agent    internal_type.Agent
	session  internal_type.DialogueSession
	counters counters
}

func NewOutbound(logger commons.Logger, agent internal_type.Agent, session internal_type.DialogueSession) *Outbound {
	return &Outbound{logger: logger, agent: agent, session: session}
}

// Run consumes agent track data until the agent disconnects or ctx is
// cancelled.
func (r *Outbound) Run(ctx context.Context) error {
	trackData := r.agent.TrackData()
	for {
		select {
		case <-ctx.Done():
			return nil
		case td, ok := <-trackData:
			if !ok {
				r.logger.Debugf("outbound relay finished: agent=%s, stats=%+v", r.agent.ID(), r.Stats())
				return nil
			}
			r.forward(ctx, td)
		}
	}
}

func (r *Outbound) forward(ctx context.Context, td internal_type.TrackData) {
	chunk, err := internal_audio.NewChunk(td.Data, internal_audio.DialogueInputFormat)
	if err != nil {
		r.drop(td, &DeliveryError{Direction: DirectionOutbound, Stage: "encode", Cause: err})
		return
	}
	blob := internal_audio.Encode(chunk)
	if err := r.session.SendRealtimeInput(ctx, internal_type.RealtimeInput{Audio: &blob}); err != nil {
		r.drop(td, &DeliveryError{Direction: DirectionOutbound, Stage: "send", Cause: err})
		return
	}
	r.counters.forward(chunk.Duration())
}

func (r *Outbound) drop(td internal_type.TrackData, err *DeliveryError) {
	r.counters.drop()
	r.logger.Warnw("dropping room audio", "kind", "relay_delivery", "peer", td.PeerID, "track", td.TrackID, "error", err)
}

func (r *Outbound) Stats() Stats {
	return r.counters.snapshot()
}
