package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger is the concrete Logger backend. It wraps a *zap.SugaredLogger so
// call sites keep the plain key-value calling convention rather than zap's
// typed Field constructors.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a Logger at the given minimum level, writing timestamped,
// leveled, caller-annotated records to stderr.
func New(level string) Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Infrastructure failure per the error-handling categories: cannot
		// build the logging façade at all, which is fatal to the process.
		fmt.Fprintf(os.Stderr, "fatal: cannot initialize logger: %v\n", err)
		os.Exit(-1)
	}
	return &zapLogger{sugar: zl.Sugar()}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *zapLogger) Debug(msg string, kv ...any) { l.sugar.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.sugar.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...any)  { l.sugar.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...any) { l.sugar.Errorw(msg, kv...) }

// Fatal logs then terminates the process; zap's Fatal level does this after
// flushing, matching the "Fatal terminates the process after emission"
// contract.
func (l *zapLogger) Fatal(msg string, kv ...any) { l.sugar.Fatalw(msg, kv...) }

func (l *zapLogger) WithStack() Logger {
	return &zapLogger{sugar: l.sugar.Desugar().WithOptions(zap.AddStacktrace(zapcore.ErrorLevel)).Sugar()}
}
