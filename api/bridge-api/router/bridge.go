// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package bridge_routers

import (
	"github.com/gin-gonic/gin"
	bridgeApi "github.com/rapidaai/live-bridge/api/bridge-api/api"
	"github.com/rapidaai/live-bridge/config"
	"github.com/rapidaai/live-bridge/pkg/commons"
)

func BridgeRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, manager bridgeApi.CallManager) {
	logger.Info("Bridge routes added to engine.")
	apiv1 := engine.Group("")
	bApi := bridgeApi.NewBridgeApi(cfg, logger, manager)
	{
		apiv1.POST("/join-room", bApi.JoinRoom)
		apiv1.GET("/rooms/:roomId", bApi.GetRoom)
	}
}
