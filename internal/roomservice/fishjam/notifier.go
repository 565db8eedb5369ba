// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_roomservice_fishjam

import (
	"context"

	internal_type "github.com/rapidaai/live-bridge/internal/type"
	"github.com/rapidaai/live-bridge/pkg/commons"
	"github.com/rapidaai/live-bridge/pkg/utils"
)

const serverSocketPath = "/socket/server/websocket"

var notificationTypes = map[frameType]internal_type.NotificationType{
	frameRoomDeleted:      internal_type.NotificationRoomDeleted,
	frameRoomCrashed:      internal_type.NotificationRoomCrashed,
	framePeerDisconnected: internal_type.NotificationPeerDisconnected,
	framePeerCrashed:      internal_type.NotificationPeerCrashed,
}

type notifier struct {
	*socket
	notifications chan internal_type.Notification
}

// NewNotifier subscribes to server notifications of every room owned by the
// management token. Notifications a bridge does not act on are discarded.
func NewNotifier(ctx context.Context, cfg Config, logger commons.Logger) (internal_type.RoomNotifier, error) {
	wsURL, err := socketURL(cfg.baseURL(), serverSocketPath)
	if err != nil {
		return nil, err
	}
	s, err := dialSocket(ctx, wsURL, cfg.ManagementToken, serverWire, logger)
	if err != nil {
		return nil, err
	}
	if err := s.write(ctx, frame{Type: frameSubscribeRequest, EventType: eventServerNotifications}); err != nil {
		s.Close()
		return nil, err
	}

	n := &notifier{
		socket:        s,
		notifications: make(chan internal_type.Notification, cfg.bufferSize()),
	}
	utils.Go(context.Background(), n.readLoop, utils.LogPanic(logger))
	logger.Infof("subscribed to room notifications: url=%s", wsURL)
	return n, nil
}

func (n *notifier) Notifications() <-chan internal_type.Notification {
	return n.notifications
}

func (n *notifier) readLoop() {
	var err error
	defer func() {
		close(n.notifications)
		n.finish(err)
	}()

	for {
		var f frame
		f, err = n.read()
		if err != nil {
			if !n.isClosed() {
				n.logger.Errorw("notifier socket closed", "error", err)
			}
			return
		}

		kind, ok := notificationTypes[f.Type]
		if !ok {
			n.logger.Debugf("ignoring server notification: type=%s, room=%s", f.Type, f.RoomID)
			continue
		}
		select {
		case n.notifications <- internal_type.Notification{Type: kind, RoomID: f.RoomID, PeerID: f.PeerID}:
		case <-n.closed:
			return
		}
	}
}
