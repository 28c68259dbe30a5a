package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger represents a logger instance
type Logger struct {
	*zap.SugaredLogger
}

var (
	globalLogger *Logger
	once         sync.Once
)

// Init initializes the global logger instance. Only the first call has an effect.
func Init(level string, env string) {
	once.Do(func() {
		encoderConfig := zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}

		var encoder zapcore.Encoder
		if env == "production" {
			encoder = zapcore.NewJSONEncoder(encoderConfig)
		} else {
			encoder = zapcore.NewConsoleEncoder(encoderConfig)
		}

		logLevel, err := zapcore.ParseLevel(level)
		if err != nil {
			logLevel = zapcore.InfoLevel
		}

		core := zapcore.NewCore(
			encoder,
			zapcore.AddSync(os.Stdout),
			zap.NewAtomicLevelAt(logLevel),
		)

		globalLogger = &Logger{zap.New(core, zap.AddCaller()).Sugar()}
	})
}

// GetLogger returns a logger instance with the given name
func GetLogger(name string) *Logger {
	Init("info", "development")

	return &Logger{
		globalLogger.Named(name),
	}
}

// With returns a logger with additional structured context
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{
		l.SugaredLogger.With(args...),
	}
}

// WithField returns a logger with a single field added to the context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		l.SugaredLogger.With(key, value),
	}
}

// Sync ensures all buffered logs are written
func (l *Logger) Sync() error {
	return l.SugaredLogger.Sync()
}
