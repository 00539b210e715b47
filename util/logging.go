package util

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel returns the level selected by the -log flag: debug, info or,
// by default, error.
func LogLevel(mode string) log.Level {
	switch mode {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	default:
		return log.ErrorLevel
	}
}

// LogOutput returns the rotated file named by LOG_FILE_PATH, or stdout
// when it is unset.
func LogOutput() io.Writer {
	logFile := os.Getenv("LOG_FILE_PATH")
	if logFile == "" {
		return os.Stdout
	}
	return &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100,
		MaxAge:     14,
		MaxBackups: 10,
	}
}

// SetupLogging configures the standard logger for the given mode.
func SetupLogging(mode string) {
	log.SetReportCaller(true)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:          true,
		TimestampFormat:        "2006/01/02 15:04:05",
		DisableLevelTruncation: true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			filename := path.Base(f.File)
			return "", fmt.Sprintf(" %s:%d", filename, f.Line)
		},
	})
	log.SetOutput(LogOutput())
	log.SetLevel(LogLevel(mode))
}
