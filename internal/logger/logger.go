package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every log entry.
const ServiceName = "catalog-admin"

func encoderConfig(env string) zapcore.EncoderConfig {
	if env == "production" {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "timestamp"
		cfg.MessageKey = "message"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

func newLogger(env string, out zapcore.WriteSyncer) *zap.Logger {
	var encoder zapcore.Encoder
	level := zapcore.DebugLevel

	// structured JSON in production, readable console output elsewhere
	if env == "production" {
		encoder = zapcore.NewJSONEncoder(encoderConfig(env))
		level = zapcore.InfoLevel
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig(env))
	}

	core := zapcore.NewCore(encoder, out, level)
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
		zap.Fields(zap.String("service", ServiceName)),
	)
}

// New creates the process logger. Output always goes to stdout for
// container log collection.
func New(env string) *zap.Logger {
	return newLogger(env, zapcore.Lock(os.Stdout))
}
