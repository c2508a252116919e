package utils

import (
	"io" // Writer composition
	"os" // Standard output

	"github.com/natefinch/lumberjack" // Rotating log files
	"github.com/sirupsen/logrus"      // Logrus for structured logging
)

// LogOptions configures the global logger
type LogOptions struct {
	Level      string // Logrus level name
	JSON       bool   // JSON output, used in production
	File       string // Optional rotating file, teed with stdout
	MaxSizeMB  int    // Rotate after this many megabytes
	MaxBackups int    // Rotated files to keep
	MaxAgeDays int    // Days to keep rotated files
}

// SetupLogger configures the global logrus logger
func SetupLogger(opts LogOptions) error {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	if opts.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	var out io.Writer = os.Stdout
	if opts.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		})
	}
	logrus.SetOutput(out)
	return nil
}
