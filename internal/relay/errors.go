// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_relay

import "fmt"

type Direction string

const (
	DirectionInbound  Direction = "ai_to_room"
	DirectionOutbound Direction = "room_to_ai"
)

// DeliveryError is one chunk that could not be forwarded. The chunk is
// dropped and the call continues.
type DeliveryError struct {
	Direction Direction
	Stage     string // "decode", "encode" or "send"
	Cause     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("relay %s %s failed: %v", e.Direction, e.Stage, e.Cause)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// InterruptionError is a failed request to flush the agent track.
type InterruptionError struct {
	TrackID string
	Cause   error
}

func (e *InterruptionError) Error() string {
	return fmt.Sprintf("interrupt track %s failed: %v", e.TrackID, e.Cause)
}

func (e *InterruptionError) Unwrap() error {
	return e.Cause
}
