// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Command live-bridge puts a live AI voice agent into a media room.
//
// Usage:
//
//	live-bridge serve
//
// Configuration is read from the environment and an optional .env file
// (see ENV_PATH).
package main

import (
	"fmt"
	"os"

	"github.com/rapidaai/live-bridge/cmd/live-bridge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
