// internal/logging/logging.go
package logging

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger.
func Setup(level string, json bool) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	if json {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
