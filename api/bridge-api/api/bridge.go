// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package bridge_api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	internal_bridge "github.com/rapidaai/live-bridge/internal/bridge"
	internal_callcontext "github.com/rapidaai/live-bridge/internal/callcontext"
	"github.com/rapidaai/live-bridge/config"
	"github.com/rapidaai/live-bridge/pkg/commons"
	"github.com/rapidaai/live-bridge/pkg/utils"
)

// CallManager is the part of the bridge manager the HTTP surface needs.
type CallManager interface {
	Join(ctx context.Context, peerName string) (*internal_bridge.JoinResult, error)
	Status(ctx context.Context, roomID string) (*internal_bridge.CallStatus, error)
	Active() int
}

type BridgeApi struct {
	cfg     *config.AppConfig
	logger  commons.Logger
	manager CallManager
}

func NewBridgeApi(cfg *config.AppConfig, logger commons.Logger, manager CallManager) *BridgeApi {
	return &BridgeApi{cfg: cfg, logger: logger, manager: manager}
}

type joinRoomRequest struct {
	PeerName string `json:"peerName" binding:"required"`
}

// JoinRoom creates a room with an AI agent and returns the token the caller
// uses to join it.
//
// @Router /join-room [post]
// @Summary Create a room bridged to the dialogue model
// @Accept json
// @Produce json
// @Param body body joinRoomRequest true "Peer to create"
// @Success 200 {object} internal_bridge.JoinResult
// @Failure 400 {object} gin.H
// @Failure 500 {object} gin.H
func (api *BridgeApi) JoinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil || utils.IsEmpty(req.PeerName) {
		api.logger.Debugf("invalid join request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "peerName is required"})
		return
	}

	ctx := c.Request.Context()
	if api.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, api.cfg.RequestTimeout)
		defer cancel()
	}

	result, err := api.manager.Join(ctx, req.PeerName)
	if err != nil {
		api.logger.Errorf("join room failed for peer %s: %v", req.PeerName, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetRoom reports the state of the call bridged into a room.
//
// @Router /rooms/:roomId [get]
// @Summary Call status of a room
// @Produce json
// @Param roomId path string true "Room ID"
// @Success 200 {object} internal_bridge.CallStatus
// @Failure 404 {object} gin.H
func (api *BridgeApi) GetRoom(c *gin.Context) {
	roomID := c.Param("roomId")
	status, err := api.manager.Status(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, internal_callcontext.ErrCallNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no call for room " + roomID})
			return
		}
		api.logger.Errorf("call status failed for room %s: %v", roomID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}
