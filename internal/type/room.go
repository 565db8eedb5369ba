// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import (
	"context"

	internal_audio "github.com/rapidaai/live-bridge/internal/audio"
)

type SubscribeMode string

const (
	// SubscribeModeAuto makes the agent receive every track published in the
	// room without per-peer subscription calls.
	SubscribeModeAuto   SubscribeMode = "auto"
	SubscribeModeManual SubscribeMode = "manual"
)

type Room struct {
	ID string
}

type Peer struct {
	ID    string
	Token string
}

type PeerOptions struct {
	Metadata map[string]interface{}
}

type AgentOptions struct {
	SubscribeMode SubscribeMode
	// Output is the format in which the room delivers subscribed audio to the agent.
	Output internal_audio.Format
}

type TrackOptions struct {
	Format   internal_audio.Format
	Metadata map[string]interface{}
}

type Track struct {
	ID     string
	Format internal_audio.Format
}

// TrackData is one chunk of audio routed to the agent from a subscribed track.
type TrackData struct {
	PeerID  string
	TrackID string
	Data    []byte
}

// RoomService is the management surface of the media-routing backend.
type RoomService interface {
	CreateRoom(ctx context.Context) (*Room, error)
	CreatePeer(ctx context.Context, roomID string, opts PeerOptions) (*Peer, error)
	CreateAgent(ctx context.Context, roomID string, opts AgentOptions) (Agent, error)
	DeletePeer(ctx context.Context, roomID, peerID string) error
	DeleteRoom(ctx context.Context, roomID string) error
}

// Agent is a live connection of the synthetic participant to its room.
//
// TrackData delivers received audio in arrival order and is closed when the
// connection ends; Done is closed at the same time and Err reports why.
type Agent interface {
	ID() string
	CreateTrack(ctx context.Context, opts TrackOptions) (*Track, error)
	RemoveTrack(ctx context.Context, trackID string) error
	SendData(ctx context.Context, trackID string, data []byte) error
	InterruptTrack(ctx context.Context, trackID string) error
	TrackData() <-chan TrackData
	Done() <-chan struct{}
	Err() error
	Close() error
}

type NotificationType string

const (
	NotificationRoomDeleted      NotificationType = "room_deleted"
	NotificationRoomCrashed      NotificationType = "room_crashed"
	NotificationPeerDisconnected NotificationType = "peer_disconnected"
	NotificationPeerCrashed      NotificationType = "peer_crashed"
)

// Notification is a server-side room event used to detect call termination.
type Notification struct {
	Type   NotificationType
	RoomID string
	PeerID string
}

// RoomNotifier streams server notifications for every room of the account.
type RoomNotifier interface {
	Notifications() <-chan Notification
	Done() <-chan struct{}
	Err() error
	Close() error
}
