// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	internal_callcontext "github.com/rapidaai/live-bridge/internal/callcontext"
	internal_relay "github.com/rapidaai/live-bridge/internal/relay"
	internal_type "github.com/rapidaai/live-bridge/internal/type"
	"github.com/rapidaai/live-bridge/pkg/commons"
	"github.com/rapidaai/live-bridge/pkg/utils"
	"golang.org/x/sync/errgroup"
)

const defaultRollbackTimeout = 10 * time.Second

type ManagerConfig struct {
	Dialogue internal_type.DialogueConfig
	// RollbackTimeout bounds resource release after a failed setup or
	// when a call ends.
	RollbackTimeout time.Duration
}

// JoinResult is everything a client receives about its call.
type JoinResult struct {
	RoomID    string `json:"roomId"`
	PeerToken string `json:"peerToken"`
}

// CallStatus describes a live or finished call.
type CallStatus struct {
	CallID    string                     `json:"callId"`
	RoomID    string                     `json:"roomId"`
	PeerName  string                     `json:"peerName"`
	State     internal_callcontext.State `json:"state"`
	Reason    string                     `json:"reason,omitempty"`
	CreatedAt time.Time                  `json:"createdAt"`
}

// Manager runs every call of the process: setup, relays, termination and
// release. At most one call exists per room.
type Manager struct {
	logger      commons.Logger
	rooms       internal_type.RoomService
	provisioner *Provisioner
	dialogue    *DialogueConnector
	store       internal_callcontext.Store
	cfg         ManagerConfig

	mu      sync.Mutex
	calls   map[string]*Call
	closing bool
	// wg counts registered calls until they are released.
	wg sync.WaitGroup
}

func NewManager(
	logger commons.Logger,
	rooms internal_type.RoomService,
	connector internal_type.DialogueConnector,
	store internal_callcontext.Store,
	cfg ManagerConfig,
) *Manager {
	if cfg.RollbackTimeout <= 0 {
		cfg.RollbackTimeout = defaultRollbackTimeout
	}
	return &Manager{
		logger:      logger,
		rooms:       rooms,
		provisioner: NewProvisioner(logger, rooms),
		dialogue:    NewDialogueConnector(logger, connector, cfg.Dialogue),
		store:       store,
		cfg:         cfg,
		calls:       make(map[string]*Call),
	}
}

// Join provisions a room for peerName, connects the dialogue session and
// starts both relays. On any failure everything created so far is released
// before the error is returned.
func (m *Manager) Join(ctx context.Context, peerName string) (*JoinResult, error) {
	if m.isClosing() {
		return nil, ErrShuttingDown
	}
	start := time.Now()
	call := newCall(nil)
	if err := call.transition(internal_callcontext.StateProvisioning); err != nil {
		return nil, err
	}

	cc, err := m.provisioner.Provision(ctx, peerName)
	call.cc = cc
	if err != nil {
		return nil, m.abort(ctx, call, err, setupProvisioned)
	}

	if err := m.register(call); err != nil {
		return nil, m.abort(ctx, call, err, setupProvisioned)
	}
	if err := m.store.Claim(ctx, &internal_callcontext.Record{
		CallID:   cc.ID,
		RoomID:   cc.RoomID,
		PeerName: cc.PeerName,
		Status:   internal_callcontext.StateConnecting,
	}); err != nil {
		return nil, m.abort(ctx, call, fmt.Errorf("failed to register call: %w", err), setupRegistered)
	}

	if err := call.transition(internal_callcontext.StateConnecting); err != nil {
		return nil, m.abort(ctx, call, err, setupClaimed)
	}
	if _, err := m.dialogue.Connect(ctx, cc); err != nil {
		return nil, m.abort(ctx, call, err, setupClaimed)
	}
	if !cc.Ready() {
		return nil, m.abort(ctx, call, errCallIncomplete, setupClaimed)
	}

	if err := call.transition(internal_callcontext.StateActive); err != nil {
		return nil, m.abort(ctx, call, err, setupClaimed)
	}
	if err := m.store.Transition(ctx, cc.RoomID, internal_callcontext.StateActive, ""); err != nil {
		m.logger.Warnw("failed to record active call", "room", cc.RoomID, "error", err)
	}
	m.start(call)

	m.logger.Benchmark("Manager.Join", time.Since(start))
	m.logger.Infof("call active: call=%s, room=%s, peer=%s", cc.ID, cc.RoomID, cc.PeerName)
	return &JoinResult{RoomID: cc.RoomID, PeerToken: cc.PeerToken}, nil
}

// setupProgress is how far Join got before failing.
type setupProgress int

const (
	setupProvisioned setupProgress = iota // remote resources may exist
	setupRegistered                       // also in the registry
	setupClaimed                          // also claimed in the store
)

// abort releases a failed setup on a context detached from the request so a
// disconnected client still gets its resources cleaned up.
func (m *Manager) abort(ctx context.Context, call *Call, cause error, progress setupProgress) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.RollbackTimeout)
	defer cancel()

	if err := m.release(rctx, call.cc); err != nil {
		m.logger.Errorw("rollback incomplete", "call", call.ID(), "room", call.RoomID(), "error", err)
	}
	call.transition(internal_callcontext.StateFailed)
	call.requestStop(cause.Error())
	if progress >= setupClaimed {
		if err := m.store.Transition(rctx, call.RoomID(), internal_callcontext.StateFailed, cause.Error()); err != nil {
			m.logger.Warnw("failed to record failed call", "room", call.RoomID(), "error", err)
		}
	}
	if progress >= setupRegistered {
		m.unregister(call)
		m.wg.Done()
	}
	close(call.done)

	m.logger.Errorw("call setup failed", "call", call.ID(), "room", call.RoomID(), "error", cause)
	return cause
}

// release frees whatever part of cc exists, newest first: dialogue session,
// agent track, agent, human peer, room. Every step is attempted.
func (m *Manager) release(ctx context.Context, cc *internal_callcontext.CallContext) error {
	var errs []error
	if cc.Dialogue != nil {
		if err := cc.Dialogue.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dialogue session: %w", err))
		}
	}
	if cc.Agent != nil {
		if cc.Track != nil {
			if err := cc.Agent.RemoveTrack(ctx, cc.Track.ID); err != nil {
				errs = append(errs, fmt.Errorf("remove agent track: %w", err))
			}
		}
		if err := cc.Agent.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close agent: %w", err))
		}
		if err := m.rooms.DeletePeer(ctx, cc.RoomID, cc.Agent.ID()); err != nil {
			errs = append(errs, fmt.Errorf("delete agent peer: %w", err))
		}
	}
	if cc.PeerID != "" {
		if err := m.rooms.DeletePeer(ctx, cc.RoomID, cc.PeerID); err != nil {
			errs = append(errs, fmt.Errorf("delete peer: %w", err))
		}
	}
	if cc.RoomID != "" {
		if err := m.rooms.DeleteRoom(ctx, cc.RoomID); err != nil {
			errs = append(errs, fmt.Errorf("delete room: %w", err))
		}
	}
	return errors.Join(errs...)
}

// register adds the call to the registry. Every registered call is waited
// for by Shutdown until it is released.
func (m *Manager) register(call *Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing {
		return ErrShuttingDown
	}
	if _, ok := m.calls[call.RoomID()]; ok {
		return fmt.Errorf("room %s: %w", call.RoomID(), internal_callcontext.ErrCallExists)
	}
	m.calls[call.RoomID()] = call
	m.wg.Add(1)
	return nil
}

func (m *Manager) isClosing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closing
}

func (m *Manager) unregister(call *Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls[call.RoomID()] == call {
		delete(m.calls, call.RoomID())
	}
}

// start runs the relays and the termination watcher of an active call.
func (m *Manager) start(call *Call) {
	cc := call.cc
	interrupter := internal_relay.NewInterrupter(m.logger, cc.Agent, cc.Track.ID)
	inbound := internal_relay.NewInbound(m.logger, cc.Dialogue, cc.Agent, cc.Track.ID, interrupter)
	outbound := internal_relay.NewOutbound(m.logger, cc.Agent, cc.Dialogue)

	call.mu.Lock()
	call.interrupter = interrupter
	call.inbound = inbound
	call.outbound = outbound
	call.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.Background())
	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error { return inbound.Run(gCtx) })
	g.Go(func() error { return outbound.Run(gCtx) })
	g.Go(func() error {
		defer cancel()
		m.watch(gCtx, call)
		return nil
	})

	utils.Go(context.Background(), func() {
		defer m.wg.Done()
		if err := g.Wait(); err != nil {
			m.logger.Errorw("call task failed", "call", call.ID(), "room", call.RoomID(), "error", err)
		}
		cancel()
		m.finish(call)
	}, utils.LogPanic(m.logger))
}

// watch blocks until any termination trigger fires.
func (m *Manager) watch(ctx context.Context, call *Call) {
	cc := call.cc
	select {
	case <-cc.Dialogue.Done():
		if err := cc.Dialogue.Err(); err != nil {
			m.logger.Warnw("dialogue session ended", "room", cc.RoomID, "error", err)
		}
		call.requestStop(ReasonDialogueClosed)
	case <-cc.Agent.Done():
		if err := cc.Agent.Err(); err != nil {
			m.logger.Warnw("agent disconnected", "room", cc.RoomID, "error", err)
		}
		call.requestStop(ReasonAgentDisconnected)
	case <-call.stop:
	case <-ctx.Done():
		call.requestStop(ReasonRequested)
	}
}

// finish tears down a call whose tasks have all returned.
func (m *Manager) finish(call *Call) {
	if err := call.transition(internal_callcontext.StateTerminating); err != nil {
		m.logger.Errorw("unexpected call state at termination", "call", call.ID(), "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.RollbackTimeout)
	defer cancel()

	if err := m.release(ctx, call.cc); err != nil {
		m.logger.Warnw("call release incomplete", "call", call.ID(), "room", call.RoomID(), "error", err)
	}
	call.transition(internal_callcontext.StateClosed)
	if err := m.store.Transition(ctx, call.RoomID(), internal_callcontext.StateClosed, call.Reason()); err != nil {
		m.logger.Warnw("failed to record closed call", "room", call.RoomID(), "error", err)
	}
	m.unregister(call)
	close(call.done)

	in, out := call.Stats()
	m.logger.Infof("call closed: call=%s, room=%s, reason=%s, to_room=%+v, to_ai=%+v",
		call.ID(), call.RoomID(), call.Reason(), in, out)
}

// Terminate ends the live call of a room. It returns false when the room has
// no live call. Safe to call repeatedly.
func (m *Manager) Terminate(roomID, reason string) bool {
	m.mu.Lock()
	call, ok := m.calls[roomID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	if call.requestStop(reason) {
		m.logger.Infof("terminating call: room=%s, reason=%s", roomID, reason)
	}
	return true
}

// Lookup returns the live call of a room.
func (m *Manager) Lookup(roomID string) (*Call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	call, ok := m.calls[roomID]
	return call, ok
}

// Status reports a live call from memory and a finished one from the store.
func (m *Manager) Status(ctx context.Context, roomID string) (*CallStatus, error) {
	if call, ok := m.Lookup(roomID); ok {
		return &CallStatus{
			CallID:    call.ID(),
			RoomID:    call.RoomID(),
			PeerName:  call.cc.PeerName,
			State:     call.State(),
			Reason:    call.Reason(),
			CreatedAt: call.CreatedAt(),
		}, nil
	}
	rec, err := m.store.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &CallStatus{
		CallID:    rec.CallID,
		RoomID:    rec.RoomID,
		PeerName:  rec.PeerName,
		State:     rec.Status,
		Reason:    rec.Reason,
		CreatedAt: rec.CreatedDate,
	}, nil
}

// Active returns the number of live calls.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// HandleNotification maps a room service event to a call termination.
func (m *Manager) HandleNotification(n internal_type.Notification) {
	call, ok := m.Lookup(n.RoomID)
	if !ok {
		return
	}
	switch n.Type {
	case internal_type.NotificationRoomDeleted:
		m.Terminate(n.RoomID, ReasonRoomDeleted)
	case internal_type.NotificationRoomCrashed:
		m.Terminate(n.RoomID, ReasonRoomCrashed)
	case internal_type.NotificationPeerDisconnected, internal_type.NotificationPeerCrashed:
		if n.PeerID != call.PeerID() && n.PeerID != call.AgentID() {
			return
		}
		reason := ReasonPeerDisconnected
		if n.Type == internal_type.NotificationPeerCrashed {
			reason = ReasonPeerCrashed
		}
		m.Terminate(n.RoomID, reason)
	}
}

// WatchNotifications routes notifications until the notifier stops or ctx
// is cancelled.
func (m *Manager) WatchNotifications(ctx context.Context, notifier internal_type.RoomNotifier) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifier.Notifications():
			if !ok {
				return notifier.Err()
			}
			m.HandleNotification(n)
		}
	}
}

// NotifierDialer opens a room notification subscription.
type NotifierDialer func(ctx context.Context) (internal_type.RoomNotifier, error)

// FollowNotifications keeps a subscription open until ctx is cancelled,
// redialing after policy's delay whenever it drops or cannot be opened.
// A successful dial resets policy.
func (m *Manager) FollowNotifications(ctx context.Context, dial NotifierDialer, policy backoff.BackOff) {
	policy = backoff.WithContext(policy, ctx)
	for {
		notifier, err := dial(ctx)
		if err != nil {
			m.logger.Warnw("room notifications unavailable", "error", err)
		} else {
			policy.Reset()
			err = m.WatchNotifications(ctx, notifier)
			notifier.Close()
			if ctx.Err() == nil {
				m.logger.Warnw("room notifications interrupted", "error", err)
			}
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			if ctx.Err() == nil {
				m.logger.Errorw("giving up on room notifications")
			}
			return
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Shutdown stops accepting calls, terminates every live one and waits until
// all are released or ctx expires. Calls still being set up are ended as
// soon as they become active.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closing = true
	rooms := make([]string, 0, len(m.calls))
	for roomID := range m.calls {
		rooms = append(rooms, roomID)
	}
	m.mu.Unlock()

	for _, roomID := range rooms {
		m.Terminate(roomID, ReasonShutdown)
	}

	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		m.logger.Infof("all calls closed: count=%d", len(rooms))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown with calls still open: %w", ctx.Err())
	}
}
