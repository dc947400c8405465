package logger

import (
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Rotation limits of the build log.
const (
	buildLogMaxSizeMB  = 50
	buildLogMaxBackups = 5
	buildLogMaxAgeDays = 30
)

var (
	global    *zap.Logger
	verbosity = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	setup     sync.Once
)

// Init sets up the process logger writing to stderr. Stdout is left to the
// query and inspect output.
func Init(debug bool) {
	setup.Do(func() {
		global = newLogger(debug, "")
	})
}

// InitWithFile additionally appends JSON records to the build log at path.
// The build log is rotated by size and age.
func InitWithFile(debug bool, path string) {
	setup.Do(func() {
		global = newLogger(debug, path)
	})
}

func newLogger(debug bool, path string) *zap.Logger {
	console := zap.NewProductionEncoderConfig()
	if debug {
		verbosity.SetLevel(zapcore.DebugLevel)
		console = zap.NewDevelopmentEncoderConfig()
	}
	console.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(console), zapcore.Lock(os.Stderr), verbosity),
	}
	if path != "" {
		cores = append(cores, buildLogCore(path))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.ErrorLevel))
}

// buildLogCore writes JSON records tagged with the program name and pid.
func buildLogCore(path string) zapcore.Core {
	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    buildLogMaxSizeMB,
		MaxBackups: buildLogMaxBackups,
		MaxAge:     buildLogMaxAgeDays,
		LocalTime:  true,
	})

	// "level" is taken by the index level fields
	encoder := zap.NewProductionEncoderConfig()
	encoder.LevelKey = "severity"
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapcore.NewCore(zapcore.NewJSONEncoder(encoder), sink, verbosity).
		With([]zapcore.Field{
			zap.String("app", "waterindex"),
			zap.Int("pid", os.Getpid()),
		})
}

// Get returns the process logger, setting up a console logger on first use.
func Get() *zap.Logger {
	if global == nil {
		Init(false)
	}
	return global
}

// Sync flushes buffered records. Errors syncing a terminal are ignored.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}
