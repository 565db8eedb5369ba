// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package utils

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rapidaai/live-bridge/pkg/commons"
)

// PanicHandler receives a recovered panic from a goroutine started by Go.
type PanicHandler func(ctx context.Context, recovered interface{}, stack []byte)

// Go runs fn on a new goroutine and recovers any panic so a single
// misbehaving task cannot take the process down.
func Go(ctx context.Context, fn func(), handlers ...PanicHandler) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				if len(handlers) == 0 {
					fmt.Fprintf(os.Stderr, "recovered panic in goroutine: %v\n%s\n", r, stack)
					return
				}
				for _, h := range handlers {
					h(ctx, r, stack)
				}
			}
		}()
		fn()
	}()
}

// LogPanic reports a recovered panic through logger.
func LogPanic(logger commons.Logger) PanicHandler {
	return func(ctx context.Context, recovered interface{}, stack []byte) {
		logger.Errorw("recovered panic in goroutine", "panic", recovered, "stack", string(stack))
	}
}
