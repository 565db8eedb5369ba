// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_roomservice_fishjam

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rapidaai/live-bridge/pkg/commons"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	handshakeTimeout = 10 * time.Second
	// writeTimeout bounds a single frame write when the caller's context
	// has no earlier deadline.
	writeTimeout = 5 * time.Second
	closeTimeout = time.Second
	maxFrameSize = 10 * 1024 * 1024
)

var errSocketClosed = errors.New("socket closed")

// wire names the envelope messages a socket writes and reads.
type wire struct {
	out protoreflect.MessageDescriptor
	in  protoreflect.MessageDescriptor
}

var (
	agentWire  = wire{out: agentRequestDesc, in: agentResponseDesc}
	serverWire = wire{out: serverMessageDesc, in: serverMessageDesc}
)

// socket is an authenticated protobuf websocket shared by the agent and the
// server notifier. The owner runs its own read loop and calls finish when
// the loop exits.
type socket struct {
	conn    *websocket.Conn
	wire    wire
	logger  commons.Logger
	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}

	doneOnce sync.Once
	done     chan struct{}
	errMu    sync.Mutex
	err      error
}

// socketURL turns the REST base url into the websocket url of path.
func socketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse fishjam url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String(), nil
}

// dialSocket connects, sends an auth request with token and waits for the
// authenticated frame.
func dialSocket(ctx context.Context, wsURL, token string, w wire, logger commons.Logger) (*socket, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to websocket: %w", err)
	}
	conn.SetReadLimit(maxFrameSize)

	s := &socket{
		conn:   conn,
		wire:   w,
		logger: logger,
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}

	if err := s.write(ctx, frame{Type: frameAuthRequest, Token: token}); err != nil {
		conn.Close()
		return nil, err
	}

	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)
	reply, err := s.read()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to authenticate websocket: %w", err)
	}
	if reply.Type != frameAuthenticated {
		conn.Close()
		return nil, fmt.Errorf("failed to authenticate websocket: unexpected %q frame", reply.Type)
	}
	conn.SetReadDeadline(time.Time{})
	return s, nil
}

// write sends one frame. Writes are serialized; each is bounded by the
// context deadline or writeTimeout, whichever comes first, so a peer that
// stops reading cannot hold the socket forever. Close interrupts a pending
// write.
func (s *socket) write(ctx context.Context, f frame) error {
	select {
	case <-s.closed:
		return errSocketClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := marshalFrame(s.wire.out, f)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.isClosed() {
		return errSocketClosed
	}
	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	s.conn.SetWriteDeadline(deadline)
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		if s.isClosed() {
			return errSocketClosed
		}
		return fmt.Errorf("failed to write %s frame: %w", f.Type, err)
	}
	return nil
}

// read blocks for the next frame. Messages that do not decode are skipped.
func (s *socket) read() (frame, error) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return frame{}, err
		}
		f, err := unmarshalFrame(s.wire.in, data)
		if err != nil {
			s.logger.Warnw("dropping malformed websocket frame", "error", err)
			continue
		}
		return f, nil
	}
}

// finish records why the read loop stopped and closes Done. A read error
// caused by Close is not reported.
func (s *socket) finish(err error) {
	s.doneOnce.Do(func() {
		select {
		case <-s.closed:
			err = nil
		default:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = nil
			}
		}
		s.errMu.Lock()
		s.err = err
		s.errMu.Unlock()
		close(s.done)
	})
}

func (s *socket) Done() <-chan struct{} {
	return s.done
}

func (s *socket) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *socket) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Close is safe to call more than once and from any goroutine. It does not
// wait for writers: gorilla allows WriteControl and Close concurrently with
// a pending write, and closing the connection fails that write.
func (s *socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeTimeout))
		err = s.conn.Close()
	})
	return err
}
