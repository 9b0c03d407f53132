package config

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// InitLogging routes logrus to a file in the data directory. TANDEM_DEBUG
// enables debug level and mirrors output to stderr.
func InitLogging(dataDir string) error {
	logPath := filepath.Join(dataDir, "tandem.log")

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	debug := os.Getenv("TANDEM_DEBUG")
	if debug == "true" || debug == "1" {
		log.SetLevel(log.DebugLevel)
		log.SetOutput(io.MultiWriter(f, os.Stderr))
	} else {
		log.SetLevel(log.InfoLevel)
		log.SetOutput(f)
	}

	return nil
}
