// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_bridge

import (
	"context"
	"errors"

	internal_callcontext "github.com/rapidaai/live-bridge/internal/callcontext"
	internal_type "github.com/rapidaai/live-bridge/internal/type"
	"github.com/rapidaai/live-bridge/pkg/commons"
)

var (
	errNotProvisioned   = errors.New("call is not provisioned")
	errAlreadyConnected = errors.New("call already has a dialogue session")
)

// DialogueConnector opens the one dialogue session of a provisioned call.
type DialogueConnector struct {
	logger    commons.Logger
	connector internal_type.DialogueConnector
	config    internal_type.DialogueConfig
}

func NewDialogueConnector(logger commons.Logger, connector internal_type.DialogueConnector, config internal_type.DialogueConfig) *DialogueConnector {
	if len(config.ResponseModalities) == 0 {
		config.ResponseModalities = []string{internal_type.ModalityAudio}
	}
	return &DialogueConnector{logger: logger, connector: connector, config: config}
}

// Connect opens the session and stores it on cc. Errors are
// *ConnectionError.
func (d *DialogueConnector) Connect(ctx context.Context, cc *internal_callcontext.CallContext) (internal_type.DialogueSession, error) {
	if !cc.Provisioned() {
		return nil, &ConnectionError{Cause: errNotProvisioned}
	}
	if cc.Dialogue != nil {
		return nil, &ConnectionError{Cause: errAlreadyConnected}
	}

	session, err := d.connector.Connect(ctx, d.config)
	if err != nil {
		return nil, &ConnectionError{Cause: err}
	}
	cc.Dialogue = session
	d.logger.Infof("dialogue connected: call=%s, room=%s, model=%s", cc.ID, cc.RoomID, d.config.Model)
	return session, nil
}
