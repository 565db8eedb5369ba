// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrShuttingDown is returned by Join once Shutdown has started.
	ErrShuttingDown = errors.New("bridge is shutting down")

	errCallIncomplete = errors.New("call context is incomplete")
)

// Stage names the setup step that failed.
type Stage string

const (
	StageRoom     Stage = "room"
	StagePeer     Stage = "peer"
	StageAgent    Stage = "agent"
	StageTrack    Stage = "track"
	StageDialogue Stage = "dialogue"
)

// ProvisioningError is a failed room service call during setup.
type ProvisioningError struct {
	Stage Stage
	Cause error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("failed to create %s: %v", e.Stage, e.Cause)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Cause
}

// ConnectionError is a dialogue session that could not be opened.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect dialogue session: %v", e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}
