// Package logger holds the process-wide zap logger.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a no-op until Initialize is called, so packages can log from
// tests without setup.
var Logger = nopLogger()

func nopLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// Options controls Initialize.
type Options struct {
	// Debug lowers the level to debug.
	Debug bool
	// JSON switches the console encoder to JSON.
	JSON bool
	// File is an extra log file, appended to. Empty disables it.
	File string
}

var closeFile = func() {}

// Initialize builds the global logger: console on stderr, plus File when set.
// The file always receives JSON lines.
func Initialize(opts Options) error {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if opts.Debug {
		level.SetLevel(zap.DebugLevel)
	}

	var consoleEnc zapcore.Encoder
	if opts.JSON {
		consoleEnc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEnc = zapcore.NewConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), level),
	}

	if opts.File != "" {
		sink, closer, err := zap.Open(opts.File)
		if err != nil {
			return err
		}
		fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEnc, sink, level))
		closeFile = closer
	}

	Logger = zap.New(zapcore.NewTee(cores...)).Sugar()
	return nil
}

// Sync flushes buffered entries and closes the log file.
func Sync() {
	_ = Logger.Sync()
	closeFile()
	closeFile = func() {}
}
