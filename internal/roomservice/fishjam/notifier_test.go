// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_roomservice_fishjam

import (
	"context"
	"testing"
	"time"

	internal_type "github.com/rapidaai/live-bridge/internal/type"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_DeliversKnownNotifications(t *testing.T) {
	fj := newFakeFishjam(t)
	n, err := NewNotifier(context.Background(), fj.config(), newTestLogger(t))
	require.NoError(t, err)
	defer n.Close()

	conn := <-fj.serverConns
	notify(t, conn, frame{Type: frameRoomCreated, RoomID: "room-1"})
	notify(t, conn, frame{Type: framePeerDisconnected, RoomID: "room-1", PeerID: "peer-1"})
	notify(t, conn, frame{Type: framePeerCrashed, RoomID: "room-1", PeerID: "agent-1", Reason: "timeout"})
	notify(t, conn, frame{Type: frameRoomDeleted, RoomID: "room-1"})

	expected := []internal_type.Notification{
		{Type: internal_type.NotificationPeerDisconnected, RoomID: "room-1", PeerID: "peer-1"},
		{Type: internal_type.NotificationPeerCrashed, RoomID: "room-1", PeerID: "agent-1"},
		{Type: internal_type.NotificationRoomDeleted, RoomID: "room-1"},
	}
	for _, want := range expected {
		select {
		case got := <-n.Notifications():
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want.Type)
		}
	}
}

func TestNotifier_RejectedToken(t *testing.T) {
	fj := newFakeFishjam(t)
	cfg := fj.config()
	cfg.ManagementToken = "wrong"

	_, err := NewNotifier(context.Background(), cfg, newTestLogger(t))
	assert.Error(t, err)
}

func TestNotifier_Close(t *testing.T) {
	fj := newFakeFishjam(t)
	n, err := NewNotifier(context.Background(), fj.config(), newTestLogger(t))
	require.NoError(t, err)
	<-fj.serverConns

	require.NoError(t, n.Close())
	select {
	case <-n.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("notifier did not finish after close")
	}
	assert.NoError(t, n.Err())
}
