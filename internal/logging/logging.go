package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger is the process-wide sugared logger instance.
var logger *zap.SugaredLogger

// logFile backs the optional file core.
var logFile *os.File

// Init initialises the global logger. It is safe to call multiple times; the
// first successful call wins.
//
// Log lines go to stderr and, best-effort, to an append-only log file so
// operators can review history even when stderr is ephemeral (for example in
// CI runners). The file path can be overridden via FKSCTL_LOG_FILE and the
// minimum level via FKSCTL_LOG_LEVEL.
func Init() error {
	if logger != nil {
		return nil
	}

	lvl := parseLevel(os.Getenv("FKSCTL_LOG_LEVEL"))

	logPath := strings.TrimSpace(os.Getenv("FKSCTL_LOG_FILE"))
	if logPath == "" {
		logPath = "fksctl.log"
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	enc := zapcore.NewConsoleEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl),
	}

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		// The logger is not usable yet, so emit a best-effort warning directly
		// to stderr and continue with stderr-only logging.
		ts := time.Now().UTC().Format(time.RFC3339)
		fmt.Fprintf(os.Stderr, "[%s] - [WARN] - failed to open log file %s: %v\n", ts, logPath, err)
	} else {
		logFile = file
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(file)), lvl))
	}

	logger = zap.New(zapcore.NewTee(cores...)).Sugar()
	return nil
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// L returns the process-wide logger, initialising it on first use if needed.
func L() *zap.SugaredLogger {
	if logger == nil {
		_ = Init()
	}
	return logger
}

// Sync flushes buffered log entries and closes the log file if one is open.
func Sync() {
	if logger == nil {
		return
	}

	_ = logger.Sync()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}
