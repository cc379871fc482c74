// Copyright 2023 OrcaDB
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig is the logging section of the configuration file.
type LogConfig struct {
	// Level is one of debug/info/warn/error/fatal
	Level string `toml:"level"`
	// Format is console or json
	Format string `toml:"format"`
	// Filename; empty logs to stderr
	Filename string `toml:"filename"`
	// MaxSize is the max size in MB of a log file before rotation
	MaxSize int `toml:"max-size"`
	// MaxDays is the max days a rotated file is retained
	MaxDays int `toml:"max-days"`
	// MaxBackups is the max count of rotated files retained
	MaxBackups int `toml:"max-backups"`
}

var globalLogger atomic.Pointer[zap.Logger]

func init() {
	SetupGlobalLogger(LogConfig{Level: "info", Format: "console"})
}

// SetupGlobalLogger replaces the global logger according to cfg.
func SetupGlobalLogger(cfg LogConfig) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if cfg.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	var ws zapcore.WriteSyncer
	if cfg.Filename != "" {
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxDays,
			MaxBackups: cfg.MaxBackups,
		})
	} else {
		ws = zapcore.AddSync(os.Stderr)
	}

	logger := zap.New(zapcore.NewCore(enc, ws, level), zap.AddCaller())
	globalLogger.Store(logger)
}

func GetGlobalLogger() *zap.Logger {
	return globalLogger.Load()
}

func Adjust(logger *zap.Logger) *zap.Logger {
	if logger != nil {
		return logger
	}
	return GetGlobalLogger()
}

func Debug(msg string, fields ...zap.Field) {
	GetGlobalLogger().WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	GetGlobalLogger().WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetGlobalLogger().WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	GetGlobalLogger().WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	GetGlobalLogger().WithOptions(zap.AddCallerSkip(1)).Fatal(msg, fields...)
}

// Debugf only use in develop mode
func Debugf(msg string, args ...any) {
	GetGlobalLogger().WithOptions(zap.AddCallerSkip(1)).Sugar().Debugf(msg, args...)
}

// Infof only use in develop mode
func Infof(msg string, args ...any) {
	GetGlobalLogger().WithOptions(zap.AddCallerSkip(1)).Sugar().Infof(msg, args...)
}

func Warnf(msg string, args ...any) {
	GetGlobalLogger().WithOptions(zap.AddCallerSkip(1)).Sugar().Warnf(msg, args...)
}

func Errorf(msg string, args ...any) {
	GetGlobalLogger().WithOptions(zap.AddCallerSkip(1)).Sugar().Errorf(msg, args...)
}

// QueryIdField returns the standard field carrying a query id.
func QueryIdField(id string) zap.Field {
	return zap.String("query_id", id)
}
