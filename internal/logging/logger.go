package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// New builds a logrus logger writing to out (stderr when nil).
// format is "text" or "json"; level is any logrus level name.
func New(level, format string, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "time",
				logrus.FieldKeyMsg:  "msg",
			},
		})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(lvl)
	return logger, nil
}
