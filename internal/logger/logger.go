package logger

import (
	"log"

	"go.uber.org/zap"
)

// Log is the process-wide logger. Init must run before anything logs.
var Log *zap.Logger

func Init(environment string) {
	var err error
	if environment == "production" {
		Log, err = zap.NewProduction()
	} else {
		Log, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
}

// L returns the process logger, falling back to a no-op logger when Init
// has not run (tests exercise handlers without wiring logging).
func L() *zap.Logger {
	if Log == nil {
		return zap.NewNop()
	}
	return Log
}

// Sync flushes buffered log entries, for use on shutdown.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
