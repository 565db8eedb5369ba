// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_roomservice_fishjam

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rapidaai/live-bridge/pkg/commons"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	testManagementToken = "management-token"
	testAgentToken      = "agent-token"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]interface{}
}

// fakeFishjam serves the management API and both sockets on one httptest
// server. Frames sent by the agent socket are pushed to agentFrames.
type fakeFishjam struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest

	rejectAgent bool
	// stallAgent makes the agent socket stop reading after authentication.
	stallAgent  bool
	agentFrames chan frame
	agentConns  chan *websocket.Conn
	serverConns chan *websocket.Conn
}

func newFakeFishjam(t *testing.T) *fakeFishjam {
	t.Helper()
	f := &fakeFishjam{
		t:           t,
		agentFrames: make(chan frame, 64),
		agentConns:  make(chan *websocket.Conn, 1),
		serverConns: make(chan *websocket.Conn, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /room", f.handleCreateRoom)
	mux.HandleFunc("POST /room/{roomId}/peer", f.handleCreatePeer)
	mux.HandleFunc("DELETE /room/{roomId}", f.handleDelete)
	mux.HandleFunc("DELETE /room/{roomId}/peer/{peerId}", f.handleDelete)
	mux.HandleFunc("/socket/agent/websocket", f.handleAgentSocket)
	mux.HandleFunc("/socket/server/websocket", f.handleServerSocket)

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeFishjam) config() Config {
	return Config{URL: f.srv.URL, ManagementToken: testManagementToken, Timeout: 5 * time.Second, BufferSize: 8}
}

func (f *fakeFishjam) record(r *http.Request) recordedRequest {
	rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
	if body, _ := io.ReadAll(r.Body); len(body) > 0 {
		json.Unmarshal(body, &rec.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	return rec
}

func (f *fakeFishjam) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeFishjam) authorized(w http.ResponseWriter, rec recordedRequest) bool {
	if rec.Auth != "Bearer "+testManagementToken {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"errors": "invalid token"})
		return false
	}
	return true
}

func (f *fakeFishjam) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	rec := f.record(r)
	if !f.authorized(w, rec) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]interface{}{"room": map[string]interface{}{"id": "room-1"}},
	})
}

func (f *fakeFishjam) handleCreatePeer(w http.ResponseWriter, r *http.Request) {
	rec := f.record(r)
	if !f.authorized(w, rec) {
		return
	}
	if r.PathValue("roomId") != "room-1" {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"errors": "room not found"})
		return
	}
	id, token := "peer-1", "peer-token"
	if rec.Body["type"] == peerTypeAgent {
		id, token = "agent-1", testAgentToken
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]interface{}{"peer": map[string]interface{}{"id": id}, "token": token},
	})
}

func (f *fakeFishjam) handleDelete(w http.ResponseWriter, r *http.Request) {
	rec := f.record(r)
	if !f.authorized(w, rec) {
		return
	}
	if r.PathValue("roomId") != "room-1" {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"errors": "room not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{}

func readFrame(conn *websocket.Conn, envelope protoreflect.MessageDescriptor) (frame, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return frame{}, err
	}
	return unmarshalFrame(envelope, data)
}

func writeFrame(conn *websocket.Conn, envelope protoreflect.MessageDescriptor, f frame) error {
	data, err := marshalFrame(envelope, f)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

// accept upgrades the request and runs the auth handshake as seen from the
// server side of w.
func (f *fakeFishjam) accept(w http.ResponseWriter, r *http.Request, sw wire, token string, reject bool) *websocket.Conn {
	conn, err := upgrader.Upgrade(w, r, nil)
	require.NoError(f.t, err)

	auth, err := readFrame(conn, sw.out)
	require.NoError(f.t, err)
	if auth.Type != frameAuthRequest || auth.Token != token || reject {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"),
			time.Now().Add(time.Second))
		conn.Close()
		return nil
	}
	require.NoError(f.t, writeFrame(conn, sw.in, frame{Type: frameAuthenticated}))
	return conn
}

func (f *fakeFishjam) handleAgentSocket(w http.ResponseWriter, r *http.Request) {
	conn := f.accept(w, r, agentWire, testAgentToken, f.rejectAgent)
	if conn == nil {
		return
	}
	f.agentConns <- conn
	if f.stallAgent {
		return
	}
	for {
		fr, err := readFrame(conn, agentRequestDesc)
		if err != nil {
			return
		}
		f.agentFrames <- fr
	}
}

func (f *fakeFishjam) handleServerSocket(w http.ResponseWriter, r *http.Request) {
	conn := f.accept(w, r, serverWire, testManagementToken, false)
	if conn == nil {
		return
	}
	sub, err := readFrame(conn, serverMessageDesc)
	if err != nil || sub.Type != frameSubscribeRequest || sub.EventType != eventServerNotifications {
		conn.Close()
		return
	}
	writeFrame(conn, serverMessageDesc, frame{Type: frameSubscribeResponse, EventType: eventServerNotifications})
	f.serverConns <- conn
}

// sendToAgent writes an AgentResponse frame to a connected agent.
func sendToAgent(t *testing.T, conn *websocket.Conn, fr frame) {
	t.Helper()
	require.NoError(t, writeFrame(conn, agentResponseDesc, fr))
}

// notify writes a server notification to a subscribed notifier.
func notify(t *testing.T, conn *websocket.Conn, fr frame) {
	t.Helper()
	require.NoError(t, writeFrame(conn, serverMessageDesc, fr))
}

func (f *fakeFishjam) nextAgentFrame(t *testing.T) frame {
	t.Helper()
	select {
	case fr := <-f.agentFrames:
		return fr
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for agent frame")
		return frame{}
	}
}

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(commons.Level("error"))
	require.NoError(t, err)
	return logger
}
