package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// service is stamped on every line the controller writes.
const service = "computer-agent"

// Logger is the process root logger. Components take named children of it.
type Logger struct {
	*zap.Logger
}

// Config selects the level, encoding and sinks of the root logger.
type Config struct {
	Level       string
	Development bool
	// OutputPaths are zap sink URLs. Empty means stdout.
	OutputPaths []string
}

// New builds the root logger. Production writes unsampled JSON with
// ISO8601 timestamps. Development writes coloured console lines with
// stack traces on warnings.
func New(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zcfg.Sampling = nil
		zcfg.DisableStacktrace = true
		zcfg.EncoderConfig.TimeKey = "timestamp"
		zcfg.EncoderConfig.MessageKey = "message"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.OutputPaths) > 0 {
		zcfg.OutputPaths = cfg.OutputPaths
	}

	base, err := zcfg.Build(zap.Fields(zap.String("service", service)))
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: base}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Component returns a child logger named after a subsystem.
func (l *Logger) Component(name string) *zap.Logger {
	return l.Named(name)
}

// ParseLevel converts a level name such as "debug" or "warn". Empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}
