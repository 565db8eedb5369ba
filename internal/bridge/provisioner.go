// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_bridge

import (
	"context"
	"time"

	internal_audio "github.com/rapidaai/live-bridge/internal/audio"
	internal_callcontext "github.com/rapidaai/live-bridge/internal/callcontext"
	internal_type "github.com/rapidaai/live-bridge/internal/type"
	"github.com/rapidaai/live-bridge/pkg/commons"
)

// Provisioner creates the room side of a call: room, human peer, agent and
// the agent's output track, strictly in that order.
type Provisioner struct {
	logger commons.Logger
	rooms  internal_type.RoomService
}

func NewProvisioner(logger commons.Logger, rooms internal_type.RoomService) *Provisioner {
	return &Provisioner{logger: logger, rooms: rooms}
}

// Provision always returns the context built so far. On error it is partial
// and the caller must release it.
func (p *Provisioner) Provision(ctx context.Context, peerName string) (*internal_callcontext.CallContext, error) {
	start := time.Now()
	cc := internal_callcontext.NewCallContext(peerName)

	room, err := p.rooms.CreateRoom(ctx)
	if err != nil {
		return cc, &ProvisioningError{Stage: StageRoom, Cause: err}
	}
	cc.RoomID = room.ID

	peer, err := p.rooms.CreatePeer(ctx, cc.RoomID, internal_type.PeerOptions{
		Metadata: map[string]interface{}{"name": peerName},
	})
	if err != nil {
		return cc, &ProvisioningError{Stage: StagePeer, Cause: err}
	}
	cc.PeerID = peer.ID
	cc.PeerToken = peer.Token

	agent, err := p.rooms.CreateAgent(ctx, cc.RoomID, internal_type.AgentOptions{
		SubscribeMode: internal_type.SubscribeModeAuto,
		Output:        internal_audio.DialogueInputFormat,
	})
	if err != nil {
		return cc, &ProvisioningError{Stage: StageAgent, Cause: err}
	}
	cc.Agent = agent

	track, err := agent.CreateTrack(ctx, internal_type.TrackOptions{
		Format: internal_audio.DialogueOutputFormat,
	})
	if err != nil {
		return cc, &ProvisioningError{Stage: StageTrack, Cause: err}
	}
	cc.Track = track

	p.logger.Benchmark("Provisioner.Provision", time.Since(start))
	p.logger.Infof("call provisioned: call=%s, room=%s, peer=%s, agent=%s, track=%s",
		cc.ID, cc.RoomID, cc.PeerID, agent.ID(), track.ID)
	return cc, nil
}
