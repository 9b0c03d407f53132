package session

import (
	"sort"

	"tandem/budget"
	"tandem/history"
	"tandem/storage"
)

// Snapshot converts the live session into its persisted form.
func (s *Session) Snapshot(name, modelName string) *storage.Session {
	snap := &storage.Session{
		ID:           s.ID,
		Name:         name,
		Model:        modelName,
		History:      s.History.Clone(),
		SystemPrompt: s.System,
	}
	if s.Budget != nil {
		for h := range s.Budget.Compacted {
			snap.CompactedHashes = append(snap.CompactedHashes, h)
		}
		sort.Strings(snap.CompactedHashes)
	}
	return snap
}

// Restore rebuilds a session from its persisted form. The caller re-attaches
// the orchestrator, ledger, and store.
func Restore(snap *storage.Session) *Session {
	s := New(snap.SystemPrompt, nil)
	s.ID = snap.ID
	s.History = snap.History.Clone()

	compacted := history.NewHashSet()
	for _, h := range snap.CompactedHashes {
		compacted[h] = struct{}{}
	}
	s.Budget = &budget.Controller{
		Strategy:  budget.StrategySlidingWindow,
		Compacted: compacted,
	}
	return s
}
