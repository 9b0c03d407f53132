// Package telemetry records per-request usage: an append-only NDJSON ledger
// for external tooling plus a sqlite store for aggregate queries. All writes
// are best effort; a telemetry failure never fails the turn that produced it.
package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Entry is one completed model invocation.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	InTokens  int       `json:"in"`
	OutTokens int       `json:"out"`
	Total     int       `json:"total"`
	LatencyMS int64     `json:"latency"`
	SessionID string    `json:"session,omitempty"`
	Estimated bool      `json:"est,omitempty"`
}

// Ledger appends entries to an NDJSON file, one object per line.
type Ledger struct {
	mu   sync.Mutex
	path string
}

func NewLedger(dataDir string) (*Ledger, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, err
	}
	return &Ledger{path: filepath.Join(dataDir, "usage.ndjson")}, nil
}

// Record appends one entry. Failures are logged and swallowed.
func (l *Ledger) Record(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line, err := json.Marshal(e)
	if err != nil {
		log.WithError(err).Warn("usage ledger: marshal failed")
		return
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		log.WithError(err).Warn("usage ledger: open failed")
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		log.WithError(err).Warn("usage ledger: write failed")
	}
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}
