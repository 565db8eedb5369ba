// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_bridge

import (
	"context"
	"encoding/base64"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	internal_callcontext "github.com/rapidaai/live-bridge/internal/callcontext"
	internal_mocks "github.com/rapidaai/live-bridge/internal/mocks"
	internal_type "github.com/rapidaai/live-bridge/internal/type"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type managerFixture struct {
	rec       *internal_mocks.Recorder
	rooms     *internal_mocks.RoomService
	connector *internal_mocks.DialogueConnector
	store     internal_callcontext.Store
	manager   *Manager
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	logger := newTestLogger(t)
	rec := internal_mocks.NewRecorder()
	f := &managerFixture{
		rec:       rec,
		rooms:     internal_mocks.NewRoomService(rec),
		connector: internal_mocks.NewDialogueConnector(rec),
		store:     internal_callcontext.NewMemoryStore(logger, time.Hour),
	}
	f.manager = NewManager(logger, f.rooms, f.connector, f.store, ManagerConfig{
		Dialogue:        internal_type.DialogueConfig{Model: "gemini-test"},
		RollbackTimeout: time.Second,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		f.manager.Shutdown(ctx)
	})
	return f
}

func (f *managerFixture) join(t *testing.T, peerName string) (*JoinResult, *Call) {
	t.Helper()
	res, err := f.manager.Join(context.Background(), peerName)
	require.NoError(t, err)
	call, ok := f.manager.Lookup(res.RoomID)
	require.True(t, ok)
	return res, call
}

func waitClosed(t *testing.T, call *Call) {
	t.Helper()
	select {
	case <-call.Done():
	case <-time.After(waitFor):
		t.Fatalf("call %s was not released", call.RoomID())
	}
}

// opsAfter returns the operations recorded after the first n.
func opsAfter(rec *internal_mocks.Recorder, n int) []string {
	return rec.Ops()[n:]
}

var releaseOps = []string{
	internal_mocks.OpCloseSession,
	internal_mocks.OpRemoveTrack,
	internal_mocks.OpCloseAgent,
	internal_mocks.OpDeletePeer,
	internal_mocks.OpDeletePeer,
	internal_mocks.OpDeleteRoom,
}

func TestManager_JoinAlice(t *testing.T) {
	f := newManagerFixture(t)

	res, call := f.join(t, "alice")
	assert.Equal(t, "room-1", res.RoomID)
	assert.Equal(t, "peer-token-2", res.PeerToken)
	assert.Equal(t, internal_callcontext.StateActive, call.State())

	// every room resource exists before the dialogue session is opened
	assert.Equal(t, []string{
		internal_mocks.OpCreateRoom,
		internal_mocks.OpCreatePeer,
		internal_mocks.OpCreateAgent,
		internal_mocks.OpCreateTrack,
		internal_mocks.OpConnect,
	}, f.rec.Ops())

	rec, err := f.store.Get(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, internal_callcontext.StateActive, rec.Status)
	assert.Equal(t, "alice", rec.PeerName)

	session := f.connector.LastSession()
	agent := f.rooms.LastAgent()
	session.Push(internal_type.DialogueMessage{Data: base64.StdEncoding.EncodeToString([]byte{1, 0, 2, 0})})
	agent.Push(internal_type.TrackData{PeerID: "peer-2", TrackID: "mic", Data: []byte{3, 0, 4, 0}})

	require.Eventually(t, func() bool {
		return f.rec.Count(internal_mocks.OpSendData) == 1 && f.rec.Count(internal_mocks.OpSendRealtimeInput) == 1
	}, waitFor, 5*time.Millisecond)

	sent := f.rec.CallsOf(internal_mocks.OpSendData)[0]
	assert.Equal(t, "track-agent-3", sent.Args[0])
	assert.Equal(t, []byte{1, 0, 2, 0}, sent.Args[1])

	input := f.rec.CallsOf(internal_mocks.OpSendRealtimeInput)[0].Args[0].(internal_type.RealtimeInput)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{3, 0, 4, 0}), input.Audio.Data)
	assert.Equal(t, "audio/pcm;rate=16000", input.Audio.MIMEType)
}

func TestManager_JoinRollsBackEveryStage(t *testing.T) {
	tests := []struct {
		name    string
		failOn  string
		stage   Stage
		release []string
	}{
		{
			name:    "room",
			failOn:  internal_mocks.OpCreateRoom,
			stage:   StageRoom,
			release: nil,
		},
		{
			name:    "peer",
			failOn:  internal_mocks.OpCreatePeer,
			stage:   StagePeer,
			release: []string{internal_mocks.OpDeleteRoom},
		},
		{
			name:    "agent",
			failOn:  internal_mocks.OpCreateAgent,
			stage:   StageAgent,
			release: []string{internal_mocks.OpDeletePeer, internal_mocks.OpDeleteRoom},
		},
		{
			name:   "track",
			failOn: internal_mocks.OpCreateTrack,
			stage:  StageTrack,
			release: []string{
				internal_mocks.OpCloseAgent,
				internal_mocks.OpDeletePeer,
				internal_mocks.OpDeletePeer,
				internal_mocks.OpDeleteRoom,
			},
		},
		{
			name:   "dialogue",
			failOn: internal_mocks.OpConnect,
			stage:  StageDialogue,
			release: []string{
				internal_mocks.OpRemoveTrack,
				internal_mocks.OpCloseAgent,
				internal_mocks.OpDeletePeer,
				internal_mocks.OpDeletePeer,
				internal_mocks.OpDeleteRoom,
			},
		},
	}

	setup := []string{
		internal_mocks.OpCreateRoom,
		internal_mocks.OpCreatePeer,
		internal_mocks.OpCreateAgent,
		internal_mocks.OpCreateTrack,
		internal_mocks.OpConnect,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newManagerFixture(t)
			f.rec.FailOn(tt.failOn, errors.New("upstream unavailable"))

			res, err := f.manager.Join(context.Background(), "alice")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Contains(t, err.Error(), "upstream unavailable")

			if tt.stage == StageDialogue {
				var cerr *ConnectionError
				assert.True(t, errors.As(err, &cerr))
			} else {
				var perr *ProvisioningError
				require.True(t, errors.As(err, &perr))
				assert.Equal(t, tt.stage, perr.Stage)
			}

			attempted := 0
			for i, op := range setup {
				if op == tt.failOn {
					attempted = i + 1
				}
			}
			assert.Equal(t, setup[:attempted], f.rec.Ops()[:attempted])
			assert.Equal(t, tt.release, nilIfEmpty(opsAfter(f.rec, attempted)))
			assert.Zero(t, f.manager.Active())
		})
	}
}

func nilIfEmpty(ops []string) []string {
	if len(ops) == 0 {
		return nil
	}
	return ops
}

func TestManager_DialogueFailureIsRecorded(t *testing.T) {
	f := newManagerFixture(t)
	f.rec.FailOn(internal_mocks.OpConnect, errors.New("quota exceeded"))

	_, err := f.manager.Join(context.Background(), "alice")
	require.Error(t, err)

	status, err := f.manager.Status(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, internal_callcontext.StateFailed, status.State)
	assert.Contains(t, status.Reason, "quota exceeded")
}

func TestManager_CancelledRequestStillRollsBack(t *testing.T) {
	f := newManagerFixture(t)
	f.rec.FailOn(internal_mocks.OpCreateTrack, context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.manager.Join(ctx, "alice")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.rec.Count(internal_mocks.OpDeleteRoom))
}

func TestManager_RejectsClaimedRoom(t *testing.T) {
	f := newManagerFixture(t)
	require.NoError(t, f.store.Claim(context.Background(), &internal_callcontext.Record{
		CallID: "other", RoomID: "room-1", Status: internal_callcontext.StateActive,
	}))

	_, err := f.manager.Join(context.Background(), "alice")
	assert.ErrorIs(t, err, internal_callcontext.ErrCallExists)
	assert.Zero(t, f.rec.Count(internal_mocks.OpConnect))
	assert.Equal(t, 1, f.rec.Count(internal_mocks.OpDeleteRoom))

	rec, err := f.store.Get(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, "other", rec.CallID, "the existing claim is untouched")
}

func TestManager_TerminationTriggers(t *testing.T) {
	tests := []struct {
		name    string
		trigger func(t *testing.T, f *managerFixture, call *Call)
		reason  string
	}{
		{
			name: "dialogue session ends",
			trigger: func(t *testing.T, f *managerFixture, call *Call) {
				f.connector.LastSession().End(errors.New("session expired"))
			},
			reason: ReasonDialogueClosed,
		},
		{
			name: "agent disconnects",
			trigger: func(t *testing.T, f *managerFixture, call *Call) {
				f.rooms.LastAgent().End(errors.New("socket reset"))
			},
			reason: ReasonAgentDisconnected,
		},
		{
			name: "room deleted",
			trigger: func(t *testing.T, f *managerFixture, call *Call) {
				f.manager.HandleNotification(internal_type.Notification{
					Type: internal_type.NotificationRoomDeleted, RoomID: call.RoomID(),
				})
			},
			reason: ReasonRoomDeleted,
		},
		{
			name: "room crashed",
			trigger: func(t *testing.T, f *managerFixture, call *Call) {
				f.manager.HandleNotification(internal_type.Notification{
					Type: internal_type.NotificationRoomCrashed, RoomID: call.RoomID(),
				})
			},
			reason: ReasonRoomCrashed,
		},
		{
			name: "human peer disconnects",
			trigger: func(t *testing.T, f *managerFixture, call *Call) {
				f.manager.HandleNotification(internal_type.Notification{
					Type: internal_type.NotificationPeerDisconnected, RoomID: call.RoomID(), PeerID: call.PeerID(),
				})
			},
			reason: ReasonPeerDisconnected,
		},
		{
			name: "terminate requested",
			trigger: func(t *testing.T, f *managerFixture, call *Call) {
				assert.True(t, f.manager.Terminate(call.RoomID(), ReasonRequested))
				assert.True(t, f.manager.Terminate(call.RoomID(), ReasonShutdown))
			},
			reason: ReasonRequested,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newManagerFixture(t)
			_, call := f.join(t, "alice")
			before := len(f.rec.Ops())

			tt.trigger(t, f, call)
			waitClosed(t, call)

			assert.Equal(t, internal_callcontext.StateClosed, call.State())
			assert.Equal(t, tt.reason, call.Reason())
			assert.Equal(t, releaseOps, opsAfter(f.rec, before), "everything is released exactly once")
			assert.Zero(t, f.manager.Active())

			status, err := f.manager.Status(context.Background(), call.RoomID())
			require.NoError(t, err)
			assert.Equal(t, internal_callcontext.StateClosed, status.State)
			assert.Equal(t, tt.reason, status.Reason)

			assert.False(t, f.manager.Terminate(call.RoomID(), ReasonRequested))
		})
	}
}

func TestManager_IgnoresUnrelatedNotifications(t *testing.T) {
	f := newManagerFixture(t)
	_, call := f.join(t, "alice")

	f.manager.HandleNotification(internal_type.Notification{
		Type: internal_type.NotificationPeerDisconnected, RoomID: call.RoomID(), PeerID: "someone-else",
	})
	f.manager.HandleNotification(internal_type.Notification{
		Type: internal_type.NotificationRoomDeleted, RoomID: "another-room",
	})

	select {
	case <-call.Done():
		t.Fatal("call ended on an unrelated notification")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, internal_callcontext.StateActive, call.State())
}

func TestManager_WatchNotifications(t *testing.T) {
	f := newManagerFixture(t)
	_, call := f.join(t, "alice")

	notifier := internal_mocks.NewNotifier()
	done := make(chan error, 1)
	go func() { done <- f.manager.WatchNotifications(context.Background(), notifier) }()

	notifier.Push(internal_type.Notification{Type: internal_type.NotificationRoomDeleted, RoomID: call.RoomID()})
	waitClosed(t, call)

	notifier.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("watcher did not stop with the notifier")
	}
}

func TestManager_FollowNotificationsRedials(t *testing.T) {
	f := newManagerFixture(t)
	_, call := f.join(t, "alice")

	dropped := internal_mocks.NewNotifier()
	dropped.Close()
	live := internal_mocks.NewNotifier()
	var dials atomic.Int32
	dial := func(ctx context.Context) (internal_type.RoomNotifier, error) {
		switch dials.Add(1) {
		case 1:
			return nil, errors.New("connection refused")
		case 2:
			return dropped, nil
		default:
			return live, nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.manager.FollowNotifications(ctx, dial, backoff.NewConstantBackOff(time.Millisecond))
	}()

	live.Push(internal_type.Notification{Type: internal_type.NotificationRoomDeleted, RoomID: call.RoomID()})
	waitClosed(t, call)
	assert.Equal(t, ReasonRoomDeleted, call.Reason())
	assert.Equal(t, int32(3), dials.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("follower did not stop with its context")
	}
}

func TestManager_FollowNotificationsStopsWhenPolicyGivesUp(t *testing.T) {
	f := newManagerFixture(t)
	var dials atomic.Int32
	dial := func(ctx context.Context) (internal_type.RoomNotifier, error) {
		dials.Add(1)
		return nil, errors.New("connection refused")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.manager.FollowNotifications(context.Background(), dial, &backoff.StopBackOff{})
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("follower kept dialing after the policy stopped")
	}
	assert.Equal(t, int32(1), dials.Load())
}

// sessionlessConnector reports success without opening a session.
type sessionlessConnector struct{}

func (sessionlessConnector) Connect(ctx context.Context, cfg internal_type.DialogueConfig) (internal_type.DialogueSession, error) {
	return nil, nil
}

func TestManager_IncompleteCallIsRolledBack(t *testing.T) {
	logger := newTestLogger(t)
	rec := internal_mocks.NewRecorder()
	store := internal_callcontext.NewMemoryStore(logger, time.Hour)
	manager := NewManager(logger, internal_mocks.NewRoomService(rec), sessionlessConnector{}, store, ManagerConfig{
		RollbackTimeout: time.Second,
	})

	res, err := manager.Join(context.Background(), "alice")
	require.ErrorIs(t, err, errCallIncomplete)
	assert.Nil(t, res)
	assert.Zero(t, manager.Active())
	assert.Equal(t, []string{
		internal_mocks.OpRemoveTrack,
		internal_mocks.OpCloseAgent,
		internal_mocks.OpDeletePeer,
		internal_mocks.OpDeletePeer,
		internal_mocks.OpDeleteRoom,
	}, opsAfter(rec, 4))

	status, err := manager.Status(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, internal_callcontext.StateFailed, status.State)
}

func TestManager_JoinAfterShutdown(t *testing.T) {
	f := newManagerFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, f.manager.Shutdown(ctx))

	res, err := f.manager.Join(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrShuttingDown)
	assert.Nil(t, res)
	assert.Zero(t, f.rec.Count(internal_mocks.OpCreateRoom))
}

func TestManager_Shutdown(t *testing.T) {
	f := newManagerFixture(t)
	_, first := f.join(t, "alice")
	_, second := f.join(t, "bob")
	require.Equal(t, 2, f.manager.Active())

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, f.manager.Shutdown(ctx))

	assert.Zero(t, f.manager.Active())
	assert.Equal(t, ReasonShutdown, first.Reason())
	assert.Equal(t, ReasonShutdown, second.Reason())
	assert.Equal(t, 2, f.rec.Count(internal_mocks.OpDeleteRoom))
}

func TestManager_StatusUnknownRoom(t *testing.T) {
	f := newManagerFixture(t)
	_, err := f.manager.Status(context.Background(), "nowhere")
	assert.ErrorIs(t, err, internal_callcontext.ErrCallNotFound)
}
