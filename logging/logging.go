// Package logging configures the process wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/erikbos/wavesync/config"
)

// Setup configures level, formatter and output of the standard logger.
// The returned closer releases the logfile, if any.
func Setup(c config.Log) (io.Closer, error) {
	return setup(logrus.StandardLogger(), c)
}

func setup(l *logrus.Logger, c config.Log) (io.Closer, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch c.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Format)
	}

	var closer io.Closer = io.NopCloser(nil)
	switch c.Output {
	case "none":
		l.SetOutput(io.Discard)
	case "", "stdout":
		l.SetOutput(os.Stdout)
	default:
		f, err := os.OpenFile(c.Output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("open logfile: %w", err)
		}
		l.SetOutput(f)
		closer = f
	}
	return closer, nil
}
