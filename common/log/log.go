package log

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface used across dlproof. Structured variants
// (the *w methods) take a message followed by key-value pairs.
type Logger interface {
	Info(keyvals ...interface{})
	Debug(keyvals ...interface{})
	Warn(keyvals ...interface{})
	Error(keyvals ...interface{})
	Fatal(keyvals ...interface{})
	Infow(msg string, keyvals ...interface{})
	Debugw(msg string, keyvals ...interface{})
	Warnw(msg string, keyvals ...interface{})
	Errorw(msg string, keyvals ...interface{})
	With(args ...interface{}) Logger
	Named(s string) Logger
}

type log struct {
	*zap.SugaredLogger
}

func (l *log) With(args ...interface{}) Logger {
	return &log{l.SugaredLogger.With(args...)}
}

func (l *log) Named(s string) Logger {
	return &log{l.SugaredLogger.Named(s)}
}

const (
	DebugLevel = int(zapcore.DebugLevel)
	InfoLevel  = int(zapcore.InfoLevel)
	WarnLevel  = int(zapcore.WarnLevel)
	ErrorLevel = int(zapcore.ErrorLevel)
	FatalLevel = int(zapcore.FatalLevel)
)

// DefaultLevel is the level of the logger returned by DefaultLogger.
var DefaultLevel = InfoLevel

func init() {
	debugEnv, isDebug := os.LookupEnv("DLPROOF_TEST_LOGS")
	if isDebug && debugEnv == "DEBUG" {
		DefaultLevel = DebugLevel
	}
}

// ParseLevel maps a level name ("debug", "info", "warn", "error") to its
// numeric value.
func ParseLevel(s string) (int, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return int(lvl), nil
}

var defaultOnce sync.Once

// DefaultLogger returns the process wide logger. It writes JSON to stderr so
// that command output on stdout stays machine readable.
func DefaultLogger() Logger {
	defaultOnce.Do(func() {
		zap.ReplaceGlobals(newZapLogger(nil, jsonEncoder(), DefaultLevel))
	})
	return &log{zap.S()}
}

// ConfigureDefaultLogger replaces the process wide logger.
func ConfigureDefaultLogger(output zapcore.WriteSyncer, level int, isJSON bool) {
	defaultOnce.Do(func() {})
	zap.ReplaceGlobals(newZapLogger(output, encoder(isJSON), level))
}

// New returns a logger that prints statements at the given level or above to
// output, stderr if output is nil.
func New(output zapcore.WriteSyncer, level int, isJSON bool) Logger {
	return &log{newZapLogger(output, encoder(isJSON), level).Sugar()}
}

func newZapLogger(output zapcore.WriteSyncer, enc zapcore.Encoder, level int) *zap.Logger {
	if output == nil {
		output = zapcore.Lock(os.Stderr)
	}
	core := zapcore.NewCore(enc, output, zapcore.Level(level))
	return zap.New(core, zap.WithCaller(true))
}

func encoder(isJSON bool) zapcore.Encoder {
	if isJSON {
		return jsonEncoder()
	}
	cfg := encoderConfig()
	return zapcore.NewConsoleEncoder(cfg)
}

func jsonEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(encoderConfig())
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}
