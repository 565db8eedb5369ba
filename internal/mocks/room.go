// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_mocks

import (
	"context"
	"fmt"
	"sync"

	internal_type "github.com/rapidaai/live-bridge/internal/type"
)

// RoomService hands out sequential ids: room-1, peer-1, agent-1, track-1.
type RoomService struct {
	rec *Recorder

	mu     sync.Mutex
	seq    int
	agents []*Agent
}

func NewRoomService(rec *Recorder) *RoomService {
	return &RoomService{rec: rec}
}

func (s *RoomService) next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

func (s *RoomService) CreateRoom(ctx context.Context) (*internal_type.Room, error) {
	if err := s.rec.record(OpCreateRoom); err != nil {
		return nil, err
	}
	return &internal_type.Room{ID: fmt.Sprintf("room-%d", s.next())}, nil
}

func (s *RoomService) CreatePeer(ctx context.Context, roomID string, opts internal_type.PeerOptions) (*internal_type.Peer, error) {
	if err := s.rec.record(OpCreatePeer, roomID, opts); err != nil {
		return nil, err
	}
	n := s.next()
	return &internal_type.Peer{ID: fmt.Sprintf("peer-%d", n), Token: fmt.Sprintf("peer-token-%d", n)}, nil
}

func (s *RoomService) CreateAgent(ctx context.Context, roomID string, opts internal_type.AgentOptions) (internal_type.Agent, error) {
	if err := s.rec.record(OpCreateAgent, roomID, opts); err != nil {
		return nil, err
	}
	a := NewAgent(s.rec, fmt.Sprintf("agent-%d", s.next()))
	s.mu.Lock()
	s.agents = append(s.agents, a)
	s.mu.Unlock()
	return a, nil
}

func (s *RoomService) DeletePeer(ctx context.Context, roomID, peerID string) error {
	return s.rec.record(OpDeletePeer, roomID, peerID)
}

func (s *RoomService) DeleteRoom(ctx context.Context, roomID string) error {
	return s.rec.record(OpDeleteRoom, roomID)
}

// LastAgent returns the most recently created agent, or nil.
func (s *RoomService) LastAgent() *Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.agents) == 0 {
		return nil
	}
	return s.agents[len(s.agents)-1]
}

// Agent delivers whatever is pushed with Push on TrackData.
type Agent struct {
	rec *Recorder
	id  string

	trackData chan internal_type.TrackData
	pushMu    sync.Mutex
	ended     bool

	once sync.Once
	done chan struct{}
	err  error
}

func NewAgent(rec *Recorder, id string) *Agent {
	return &Agent{
		rec:       rec,
		id:        id,
		trackData: make(chan internal_type.TrackData, 64),
		done:      make(chan struct{}),
	}
}

func (a *Agent) ID() string {
	return a.id
}

func (a *Agent) CreateTrack(ctx context.Context, opts internal_type.TrackOptions) (*internal_type.Track, error) {
	if err := a.rec.record(OpCreateTrack, opts); err != nil {
		return nil, err
	}
	return &internal_type.Track{ID: "track-" + a.id, Format: opts.Format}, nil
}

func (a *Agent) RemoveTrack(ctx context.Context, trackID string) error {
	return a.rec.record(OpRemoveTrack, trackID)
}

func (a *Agent) SendData(ctx context.Context, trackID string, data []byte) error {
	return a.rec.record(OpSendData, trackID, append([]byte(nil), data...))
}

func (a *Agent) InterruptTrack(ctx context.Context, trackID string) error {
	return a.rec.record(OpInterruptTrack, trackID)
}

func (a *Agent) TrackData() <-chan internal_type.TrackData {
	return a.trackData
}

// Push delivers one chunk of subscribed audio as if a peer spoke.
func (a *Agent) Push(td internal_type.TrackData) {
	a.pushMu.Lock()
	defer a.pushMu.Unlock()
	if a.ended {
		return
	}
	a.trackData <- td
}

// End simulates the room service dropping the agent connection.
func (a *Agent) End(err error) {
	a.finish(err)
}

func (a *Agent) finish(err error) {
	a.once.Do(func() {
		a.pushMu.Lock()
		a.ended = true
		close(a.trackData)
		a.pushMu.Unlock()
		a.err = err
		close(a.done)
	})
}

func (a *Agent) Done() <-chan struct{} {
	return a.done
}

func (a *Agent) Err() error {
	select {
	case <-a.done:
		return a.err
	default:
		return nil
	}
}

func (a *Agent) Close() error {
	err := a.rec.record(OpCloseAgent, a.id)
	a.finish(nil)
	return err
}

// Notifier delivers whatever is pushed with Push.
type Notifier struct {
	notifications chan internal_type.Notification
	once          sync.Once
	done          chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{
		notifications: make(chan internal_type.Notification, 16),
		done:          make(chan struct{}),
	}
}

func (n *Notifier) Push(notification internal_type.Notification) {
	n.notifications <- notification
}

func (n *Notifier) Notifications() <-chan internal_type.Notification {
	return n.notifications
}

func (n *Notifier) Done() <-chan struct{} {
	return n.done
}

func (n *Notifier) Err() error {
	return nil
}

func (n *Notifier) Close() error {
	n.once.Do(func() {
		close(n.notifications)
		close(n.done)
	})
	return nil
}
