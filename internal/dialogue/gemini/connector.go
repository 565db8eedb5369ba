// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_dialogue_gemini

import (
	"context"
	"fmt"
	"time"

	internal_type "github.com/rapidaai/live-bridge/internal/type"
	"github.com/rapidaai/live-bridge/pkg/commons"
	"google.golang.org/genai"
)

const defaultBufferSize = 256

// liveSession is the part of *genai.Session the bridge uses.
type liveSession interface {
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	Receive() (*genai.LiveServerMessage, error)
	Close() error
}

type connectFunc func(ctx context.Context, model string, config *genai.LiveConnectConfig) (liveSession, error)

type connector struct {
	logger     commons.Logger
	connect    connectFunc
	bufferSize int
}

// NewConnector opens live sessions against the Gemini API with apiKey.
func NewConnector(ctx context.Context, apiKey string, bufferSize int, logger commons.Logger) (internal_type.DialogueConnector, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newConnector(func(ctx context.Context, model string, config *genai.LiveConnectConfig) (liveSession, error) {
		live, err := client.Live.Connect(ctx, model, config)
		if err != nil {
			return nil, err
		}
		return live, nil
	}, bufferSize, logger), nil
}

func newConnector(connect connectFunc, bufferSize int, logger commons.Logger) *connector {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &connector{logger: logger, connect: connect, bufferSize: bufferSize}
}

func (c *connector) Connect(ctx context.Context, cfg internal_type.DialogueConfig) (internal_type.DialogueSession, error) {
	start := time.Now()
	live, err := c.connect(ctx, cfg.Model, liveConnectConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open live session with %s: %w", cfg.Model, err)
	}
	s := newSession(live, c.bufferSize, c.logger)
	c.logger.Benchmark("gemini.Connect", time.Since(start))
	c.logger.Infof("live session opened: model=%s, modalities=%v", cfg.Model, cfg.ResponseModalities)
	return s, nil
}

func liveConnectConfig(cfg internal_type.DialogueConfig) *genai.LiveConnectConfig {
	config := &genai.LiveConnectConfig{}
	for _, m := range cfg.ResponseModalities {
		config.ResponseModalities = append(config.ResponseModalities, genai.Modality(m))
	}
	if len(config.ResponseModalities) == 0 {
		config.ResponseModalities = []genai.Modality{genai.ModalityAudio}
	}
	if cfg.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: cfg.SystemInstruction}},
		}
	}
	if cfg.Voice != "" {
		config.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	return config
}
