package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// L returns the shared logger used across the application.
func L() *logrus.Logger {
	return log
}

// Configure applies the logging section of the config file. Output goes
// to both the log file and stderr so interactive runs still show what
// happened. An unparsable level falls back to info.
func Configure(level, file string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		log.SetOutput(io.MultiWriter(f, os.Stderr))
	}
	return nil
}
