// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_roomservice_fishjam

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	internal_type "github.com/rapidaai/live-bridge/internal/type"
	"github.com/rapidaai/live-bridge/pkg/commons"
	"github.com/rapidaai/live-bridge/pkg/utils"
)

const agentSocketPath = "/socket/agent/websocket"

type agent struct {
	*socket
	id     string
	roomID string

	trackData chan internal_type.TrackData
}

// connectAgent opens the agent socket with the peer token returned when the
// agent peer was created and starts delivering subscribed audio.
func connectAgent(ctx context.Context, wsURL, roomID, peerID, token string, bufferSize int, logger commons.Logger) (*agent, error) {
	s, err := dialSocket(ctx, wsURL, token, agentWire, logger)
	if err != nil {
		return nil, err
	}
	a := &agent{
		socket:    s,
		id:        peerID,
		roomID:    roomID,
		trackData: make(chan internal_type.TrackData, bufferSize),
	}
	utils.Go(context.Background(), a.readLoop, utils.LogPanic(logger))
	return a, nil
}

func (a *agent) ID() string {
	return a.id
}

func (a *agent) TrackData() <-chan internal_type.TrackData {
	return a.trackData
}

// CreateTrack publishes an audio output track in the room. Track ids are
// chosen by the agent.
func (a *agent) CreateTrack(ctx context.Context, opts internal_type.TrackOptions) (*internal_type.Track, error) {
	if err := opts.Format.Validate(); err != nil {
		return nil, err
	}
	track := &internal_type.Track{
		ID:     uuid.New().String(),
		Format: opts.Format,
	}
	if err := a.write(ctx, frame{
		Type: frameAddTrack,
		Track: &trackInfo{
			ID:       track.ID,
			Type:     trackTypeAudio,
			Metadata: opts.Metadata,
		},
		CodecParameters: &codecParameters{
			Encoding:   string(opts.Format.Encoding),
			SampleRate: opts.Format.SampleRate,
			Channels:   opts.Format.Channels,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to create agent track: %w", err)
	}
	a.logger.Debugf("agent track created: room=%s, agent=%s, track=%s, format=%s", a.roomID, a.id, track.ID, track.Format)
	return track, nil
}

func (a *agent) RemoveTrack(ctx context.Context, trackID string) error {
	if err := a.write(ctx, frame{Type: frameRemoveTrack, TrackID: trackID}); err != nil {
		return fmt.Errorf("failed to remove agent track %s: %w", trackID, err)
	}
	return nil
}

func (a *agent) SendData(ctx context.Context, trackID string, data []byte) error {
	return a.write(ctx, frame{Type: frameTrackData, TrackID: trackID, Data: data})
}

// InterruptTrack discards audio queued on the track but not yet played.
func (a *agent) InterruptTrack(ctx context.Context, trackID string) error {
	return a.write(ctx, frame{Type: frameInterruptTrack, TrackID: trackID})
}

func (a *agent) readLoop() {
	var err error
	defer func() {
		close(a.trackData)
		a.finish(err)
	}()

	for {
		var f frame
		f, err = a.read()
		if err != nil {
			if !a.isClosed() {
				a.logger.Warnw("agent socket closed", "room", a.roomID, "agent", a.id, "error", err)
			}
			return
		}

		switch f.Type {
		case frameTrackData:
			td := internal_type.TrackData{PeerID: f.PeerID, Data: f.Data}
			if f.Track != nil {
				td.TrackID = f.Track.ID
			}
			select {
			case a.trackData <- td:
			case <-a.closed:
				return
			}
		default:
			a.logger.Debugf("ignoring agent frame: type=%s", f.Type)
		}
	}
}
