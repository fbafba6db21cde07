// Package logging builds loggers of fairtrace processes.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level parses a log level name: debug|info|warn|error|off.
//
// Empty is info.
func Level(name string) (zapcore.Level, bool, error) {
	switch strings.ToLower(name) {
	case "debug":
		return zapcore.DebugLevel, true, nil
	case "info", "":
		return zapcore.InfoLevel, true, nil
	case "warn":
		return zapcore.WarnLevel, true, nil
	case "error":
		return zapcore.ErrorLevel, true, nil
	case "off":
		return zapcore.InfoLevel, false, nil
	default:
		return zapcore.InfoLevel, false, fmt.Errorf("unknown log level: %s", name)
	}
}

// New creates a JSON logger writing to stderr at the level.
func New(level string) (*zap.Logger, error) {
	lv, enabled, err := Level(level)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return zap.NewNop(), nil
	}

	conf := zap.NewProductionConfig()
	conf.Level = zap.NewAtomicLevelAt(lv)
	conf.EncoderConfig.TimeKey = "time"
	conf.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	return conf.Build()
}
