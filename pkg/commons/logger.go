// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package commons

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging contract shared by every package in the service.
// It mirrors zap's SugaredLogger so that callers can use printf-style and
// key/value style interchangeably.
type Logger interface {
	Level() zapcore.Level
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	DPanic(args ...interface{})
	DPanicf(template string, args ...interface{})
	Panic(args ...interface{})
	Panicf(template string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})

	// Benchmark logs how long a named operation took.
	Benchmark(functionName string, duration time.Duration)
	Tracef(ctx context.Context, format string, args ...interface{})
	Sync() error
}

type applicationLogger struct {
	*zap.SugaredLogger
	level zap.AtomicLevel
}

type loggerOption struct {
	name     string
	level    string
	fileName string
	json     bool
}

// LoggerOption configures NewApplicationLogger.
type LoggerOption func(*loggerOption)

// Name sets the logger name attached to every entry.
func Name(name string) LoggerOption {
	return func(o *loggerOption) { o.name = name }
}

// Level sets the minimum level ("debug", "info", "warn", "error").
func Level(level string) LoggerOption {
	return func(o *loggerOption) { o.level = level }
}

// EnableFile writes logs to a rotating file in addition to stdout.
func EnableFile(fileName string) LoggerOption {
	return func(o *loggerOption) { o.fileName = fileName }
}

// EnableJSON switches the stdout encoder from console to JSON.
func EnableJSON(enable bool) LoggerOption {
	return func(o *loggerOption) { o.json = enable }
}

// NewApplicationLogger builds the zap-backed Logger used across the service.
// With no options it logs at debug level to stdout with a console encoder.
func NewApplicationLogger(opts ...LoggerOption) (Logger, error) {
	o := &loggerOption{name: "live-bridge", level: "debug"}
	for _, opt := range opts {
		opt(o)
	}

	level := zap.NewAtomicLevelAt(parseLevel(o.level))
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var stdoutEncoder zapcore.Encoder
	if o.json {
		stdoutEncoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		stdoutEncoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(stdoutEncoder, zapcore.AddSync(os.Stdout), level),
	}
	if o.fileName != "" {
		rotating := &lumberjack.Logger{
			Filename:   o.fileName,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotating), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Named(o.name)
	return &applicationLogger{SugaredLogger: logger.Sugar(), level: level}, nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.DebugLevel
	}
}

func (l *applicationLogger) Level() zapcore.Level {
	return l.level.Level()
}

func (l *applicationLogger) Benchmark(functionName string, duration time.Duration) {
	l.SugaredLogger.Debugw("benchmark", "function", functionName, "took", duration.String())
}

func (l *applicationLogger) Tracef(ctx context.Context, format string, args ...interface{}) {
	l.SugaredLogger.Debugf(format, args...)
}
