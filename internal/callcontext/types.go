// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_callcontext

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	internal_type "github.com/rapidaai/live-bridge/internal/type"
)

// State is the lifecycle state of one bridged call.
type State string

const (
	StateIdle         State = "idle"
	StateProvisioning State = "provisioning" // room, peer, agent and track being created
	StateConnecting   State = "connecting"   // dialogue session being opened
	StateActive       State = "active"       // both relays running
	StateTerminating  State = "terminating"  // releasing remote resources
	StateClosed       State = "closed"       // call ended normally
	StateFailed       State = "failed"       // setup failed and was rolled back
)

var transitions = map[State][]State{
	StateIdle:         {StateProvisioning},
	StateProvisioning: {StateConnecting, StateFailed},
	StateConnecting:   {StateActive, StateFailed},
	StateActive:       {StateTerminating},
	StateTerminating:  {StateClosed},
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal returns true for states a call never leaves.
func (s State) IsTerminal() bool {
	return s == StateClosed || s == StateFailed
}

func (s State) String() string {
	return string(s)
}

// Transition validates a lifecycle move.
func Transition(from, to State) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("illegal call state transition %s -> %s", from, to)
	}
	return nil
}

// CallContext holds every handle one bridged call needs. It is built during
// provisioning, owned by that call alone, and read-only once the call is
// active. Only RoomID and PeerToken are ever handed to the client.
type CallContext struct {
	ID        string
	RoomID    string
	PeerID    string
	PeerName  string
	PeerToken string

	Agent    internal_type.Agent
	Track    *internal_type.Track
	Dialogue internal_type.DialogueSession

	CreatedAt time.Time
}

func NewCallContext(peerName string) *CallContext {
	return &CallContext{
		ID:        uuid.New().String(),
		PeerName:  peerName,
		CreatedAt: time.Now(),
	}
}

// Provisioned returns true once all room service resources exist.
func (cc *CallContext) Provisioned() bool {
	return cc.RoomID != "" && cc.PeerToken != "" && cc.Agent != nil && cc.Track != nil
}

// Ready returns true once the context is complete and may be activated.
func (cc *CallContext) Ready() bool {
	return cc.Provisioned() && cc.Dialogue != nil
}
