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
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	internal_type "github.com/rapidaai/live-bridge/internal/type"
	"github.com/rapidaai/live-bridge/pkg/commons"
)

const (
	defaultCloudURL   = "https://fishjam.io/api/v1/connect/"
	defaultBufferSize = 256

	peerTypeWebRTC = "webrtc"
	peerTypeAgent  = "agent"
)

type Config struct {
	// ID selects the hosted instance. Ignored when URL is set.
	ID              string
	URL             string
	ManagementToken string
	// RoomType is sent on room creation when set; empty leaves the choice
	// to the room service, which allows video tracks.
	RoomType string
	Timeout  time.Duration
	// BufferSize bounds the agent and notifier event channels.
	BufferSize int
}

func (c Config) baseURL() string {
	if c.URL != "" {
		return strings.TrimSuffix(c.URL, "/")
	}
	return defaultCloudURL + c.ID
}

func (c Config) bufferSize() int {
	if c.BufferSize > 0 {
		return c.BufferSize
	}
	return defaultBufferSize
}

// APIError is a non-2xx answer from the management API.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fishjam %s failed with status %d: %s", e.Operation, e.StatusCode, e.Message)
}

func apiError(operation string, resp *resty.Response) error {
	msg := strings.TrimSpace(resp.String())
	if body, ok := resp.Error().(*errorBody); ok && body != nil && body.Errors != nil {
		msg = fmt.Sprint(body.Errors)
	}
	return &APIError{Operation: operation, StatusCode: resp.StatusCode(), Message: msg}
}

// IsNotFound reports whether err is a 404 from the management API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type client struct {
	cfg    Config
	rest   *resty.Client
	logger commons.Logger
}

// NewClient returns a RoomService backed by the Fishjam management API.
func NewClient(cfg Config, logger commons.Logger) internal_type.RoomService {
	rest := resty.New().
		SetBaseURL(cfg.baseURL()).
		SetAuthToken(cfg.ManagementToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		rest.SetTimeout(cfg.Timeout)
	}
	return &client{cfg: cfg, rest: rest, logger: logger}
}

func (c *client) CreateRoom(ctx context.Context) (*internal_type.Room, error) {
	start := time.Now()
	var out envelope[roomData]
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(roomConfig{RoomType: c.cfg.RoomType}).
		SetResult(&out).
		SetError(&errorBody{}).
		Post("/room")
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("create room", resp)
	}
	if out.Data.Room.ID == "" {
		return nil, errors.New("failed to create room: empty room id in response")
	}

	c.logger.Benchmark("fishjam.CreateRoom", time.Since(start))
	c.logger.Infof("room created: room=%s", out.Data.Room.ID)
	return &internal_type.Room{ID: out.Data.Room.ID}, nil
}

func (c *client) createPeer(ctx context.Context, roomID string, req peerRequest) (*peerData, error) {
	var out envelope[peerData]
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("roomId", roomID).
		SetBody(req).
		SetResult(&out).
		SetError(&errorBody{}).
		Post("/room/{roomId}/peer")
	if err != nil {
		return nil, fmt.Errorf("failed to create %s peer: %w", req.Type, err)
	}
	if resp.IsError() {
		return nil, apiError("create "+req.Type+" peer", resp)
	}
	if out.Data.Peer.ID == "" || out.Data.Token == "" {
		return nil, fmt.Errorf("failed to create %s peer: incomplete response", req.Type)
	}
	return &out.Data, nil
}

func (c *client) CreatePeer(ctx context.Context, roomID string, opts internal_type.PeerOptions) (*internal_type.Peer, error) {
	start := time.Now()
	out, err := c.createPeer(ctx, roomID, peerRequest{
		Type:    peerTypeWebRTC,
		Options: webrtcPeerOptions{Metadata: opts.Metadata},
	})
	if err != nil {
		return nil, err
	}
	c.logger.Benchmark("fishjam.CreatePeer", time.Since(start))
	c.logger.Infof("peer created: room=%s, peer=%s", roomID, out.Peer.ID)
	return &internal_type.Peer{ID: out.Peer.ID, Token: out.Token}, nil
}

// CreateAgent creates the agent peer and connects its socket. If the socket
// cannot be opened the agent peer is deleted before returning.
func (c *client) CreateAgent(ctx context.Context, roomID string, opts internal_type.AgentOptions) (internal_type.Agent, error) {
	start := time.Now()
	if err := opts.Output.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	subscribeMode := opts.SubscribeMode
	if subscribeMode == "" {
		subscribeMode = internal_type.SubscribeModeAuto
	}
	out, err := c.createPeer(ctx, roomID, peerRequest{
		Type: peerTypeAgent,
		Options: agentPeerOptions{
			Output: agentOutput{
				AudioFormat:     string(opts.Output.Encoding),
				AudioSampleRate: opts.Output.SampleRate,
			},
			SubscribeMode: string(subscribeMode),
		},
	})
	if err != nil {
		return nil, err
	}

	wsURL, err := socketURL(c.cfg.baseURL(), agentSocketPath)
	if err == nil {
		var a *agent
		a, err = connectAgent(ctx, wsURL, roomID, out.Peer.ID, out.Token, c.cfg.bufferSize(), c.logger)
		if err == nil {
			c.logger.Benchmark("fishjam.CreateAgent", time.Since(start))
			c.logger.Infof("agent connected: room=%s, agent=%s, subscribe=%s", roomID, a.ID(), subscribeMode)
			return a, nil
		}
	}

	if derr := c.DeletePeer(context.WithoutCancel(ctx), roomID, out.Peer.ID); derr != nil {
		c.logger.Warnw("failed to delete agent peer after socket failure", "room", roomID, "agent", out.Peer.ID, "error", derr)
	}
	return nil, fmt.Errorf("failed to connect agent: %w", err)
}

// DeletePeer treats an already removed peer as deleted.
func (c *client) DeletePeer(ctx context.Context, roomID, peerID string) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"roomId": roomID, "peerId": peerID}).
		SetError(&errorBody{}).
		Delete("/room/{roomId}/peer/{peerId}")
	if err != nil {
		return fmt.Errorf("failed to delete peer %s: %w", peerID, err)
	}
	if resp.IsError() {
		if err := apiError("delete peer", resp); !IsNotFound(err) {
			return err
		}
	}
	c.logger.Debugf("peer deleted: room=%s, peer=%s", roomID, peerID)
	return nil
}

// DeleteRoom treats an already removed room as deleted.
func (c *client) DeleteRoom(ctx context.Context, roomID string) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("roomId", roomID).
		SetError(&errorBody{}).
		Delete("/room/{roomId}")
	if err != nil {
		return fmt.Errorf("failed to delete room %s: %w", roomID, err)
	}
	if resp.IsError() {
		if err := apiError("delete room", resp); !IsNotFound(err) {
			return err
		}
	}
	c.logger.Infof("room deleted: room=%s", roomID)
	return nil
}
