// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package bridge_routers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	internal_bridge "github.com/rapidaai/live-bridge/internal/bridge"
	internal_callcontext "github.com/rapidaai/live-bridge/internal/callcontext"
	internal_mocks "github.com/rapidaai/live-bridge/internal/mocks"
	internal_type "github.com/rapidaai/live-bridge/internal/type"
	"github.com/rapidaai/live-bridge/config"
	"github.com/rapidaai/live-bridge/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	engine  *gin.Engine
	rec     *internal_mocks.Recorder
	manager *internal_bridge.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, err := commons.NewApplicationLogger(commons.Level("error"))
	require.NoError(t, err)

	rec := internal_mocks.NewRecorder()
	manager := internal_bridge.NewManager(logger,
		internal_mocks.NewRoomService(rec),
		internal_mocks.NewDialogueConnector(rec),
		internal_callcontext.NewMemoryStore(logger, time.Hour),
		internal_bridge.ManagerConfig{
			Dialogue:        internal_type.DialogueConfig{Model: config.DefaultGeminiModel},
			RollbackTimeout: time.Second,
		})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		manager.Shutdown(ctx)
	})

	cfg := &config.AppConfig{Version: "test", RequestTimeout: 5 * time.Second}
	engine := gin.New()
	BridgeRoutes(cfg, engine, logger, manager)
	HealthCheckRoutes(cfg, engine, logger, manager)
	return &testServer{engine: engine, rec: rec, manager: manager}
}

func (s *testServer) do(method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var out map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestJoinRoom_Alice(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(http.MethodPost, "/join-room", `{"peerName":"alice"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"roomId": "room-1", "peerToken": "peer-token-2"}, body,
		"only the room id and peer token leave the server")
	assert.Equal(t, 1, s.manager.Active())

	w, body = s.do(http.MethodGet, "/rooms/room-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "active", body["state"])
	assert.Equal(t, "alice", body["peerName"])
}

func TestJoinRoom_BadRequest(t *testing.T) {
	s := newTestServer(t)

	for _, payload := range []string{``, `{`, `{}`, `{"peerName":""}`} {
		w, body := s.do(http.MethodPost, "/join-room", payload)
		assert.Equal(t, http.StatusBadRequest, w.Code, payload)
		assert.NotEmpty(t, body["error"])
	}
	assert.Empty(t, s.rec.Ops(), "nothing is provisioned for an invalid request")
}

func TestJoinRoom_AgentTrackFailure(t *testing.T) {
	s := newTestServer(t)
	s.rec.FailOn(internal_mocks.OpCreateTrack, errors.New("track limit reached"))

	w, body := s.do(http.MethodPost, "/join-room", `{"peerName":"alice"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to create track: track limit reached", body["error"])

	assert.Zero(t, s.rec.Count(internal_mocks.OpConnect))
	assert.Equal(t, 1, s.rec.Count(internal_mocks.OpCloseAgent))
	assert.Equal(t, 2, s.rec.Count(internal_mocks.OpDeletePeer))
	assert.Equal(t, 1, s.rec.Count(internal_mocks.OpDeleteRoom))
	assert.Zero(t, s.manager.Active())
}

func TestGetRoom_Unknown(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(http.MethodGet, "/rooms/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthRoutes(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(http.MethodGet, "/healthz/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	w, body = s.do(http.MethodGet, "/readiness/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ready"])
	assert.Equal(t, float64(0), body["activeCalls"])
}
