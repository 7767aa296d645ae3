package logsvc

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jgfoster/PrairieLearn/core"
)

// NewZapLogger writes JSON lines to a rotated file and human readable lines to stdout.
func NewZapLogger(conf *core.Config) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	level := parseLevel(conf.Log.Level)
	if conf.Debug {
		level = zapcore.DebugLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level),
	}
	if conf.Log.FilePath != "" && !conf.TestMode {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   conf.Log.FilePath,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWriter, level))
	}

	return zap.New(zapcore.NewTee(cores...), options()...).
		With(zap.String("app", conf.AppName), zap.String("env", conf.Env))
}

// options reports the caller of the RollbarLogger method, not the method itself.
func options() []zap.Option {
	return []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel)}
}

func parseLevel(lvl string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(lvl))); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// fields converts logger args into zap fields.
func fields(args []interface{}) []zap.Field {
	fs := make([]zap.Field, 0, len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			fs = append(fs, zap.Error(a))
		case map[string]interface{}:
			for k, v := range a {
				fs = append(fs, zap.Any(k, v))
			}
		case Person:
			fs = append(fs, zap.String("user_id", a.ID))
		default:
			fs = append(fs, zap.Any("arg", a))
		}
	}
	return fs
}
