// Package logging configures the global logrus logger.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Setup sets the level and formatter of the standard logger. Format is
// "text" or "json".
func Setup(level, format string, out io.Writer) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	var formatter log.Formatter
	switch strings.ToLower(format) {
	case "", "text":
		formatter = &log.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339}
	case "json":
		formatter = &log.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	default:
		return fmt.Errorf("log format must be text or json, got %q", format)
	}

	log.SetLevel(lvl)
	log.SetFormatter(formatter)
	if out != nil {
		log.SetOutput(out)
	}
	return nil
}
