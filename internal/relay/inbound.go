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

// Inbound forwards model speech from the dialogue session to the agent
// output track, one SendData per audio payload, in arrival order.
type Inbound struct {
	logger      commons.Logger
	session     internal_type.DialogueSession
	agent       internal_type.Agent
	trackID     string
	interrupter *Interrupter
	counters    counters
}

func NewInbound(logger commons.Logger, session internal_type.DialogueSession, agent internal_type.Agent, trackID string, interrupter *Interrupter) *Inbound {
	return &Inbound{
		logger:      logger,
		session:     session,
		agent:       agent,
		trackID:     trackID,
		interrupter: interrupter,
	}
}

// Run consumes session messages until the session ends or ctx is
// cancelled. Delivery failures never stop the loop.
func (r *Inbound) Run(ctx context.Context) error {
	messages := r.session.Messages()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				r.logger.Debugf("inbound relay finished: track=%s, stats=%+v", r.trackID, r.Stats())
				return nil
			}
			r.handle(ctx, msg)
		}
	}
}

// handle applies an interruption before any audio carried by the same
// message, so the new audio is not flushed with the stale queue.
func (r *Inbound) handle(ctx context.Context, msg internal_type.DialogueMessage) {
	if msg.Interrupted() {
		r.interrupter.Interrupt(ctx)
	}
	if msg.HasAudio() {
		r.forward(ctx, msg)
	}
	if msg.TurnComplete() {
		r.logger.Debugf("model turn complete: track=%s", r.trackID)
	}
	if msg.GoAway {
		r.logger.Warnw("dialogue session is going away", "track", r.trackID)
	}
}

func (r *Inbound) forward(ctx context.Context, msg internal_type.DialogueMessage) {
	var chunk internal_audio.Chunk
	var err error
	if len(msg.Audio) > 0 {
		chunk, err = internal_audio.NewChunk(msg.Audio, internal_audio.DialogueOutputFormat)
	} else {
		chunk, err = internal_audio.DecodeBase64(msg.Data, internal_audio.DialogueOutputFormat)
	}
	if err != nil {
		r.drop(&DeliveryError{Direction: DirectionInbound, Stage: "decode", Cause: err})
		return
	}
	if err := r.agent.SendData(ctx, r.trackID, chunk.Data()); err != nil {
		r.drop(&DeliveryError{Direction: DirectionInbound, Stage: "send", Cause: err})
		return
	}
	r.counters.forward(chunk.Duration())
}

func (r *Inbound) drop(err *DeliveryError) {
	r.counters.drop()
	r.logger.Warnw("dropping model audio", "kind", "relay_delivery", "track", r.trackID, "error", err)
}

func (r *Inbound) Stats() Stats {
	return r.counters.snapshot()
}
