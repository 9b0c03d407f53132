package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"tandem/model"
)

// Hash computes a stable content hash of a message: kind plus a canonical
// rendering of every part's kind, tool identifiers, and content. Timestamps
// and thought signatures are excluded, so a message re-emitted by a retried
// call hashes identically to its original. The compaction hash set depends on
// this to recognize already-summarized content.
func Hash(m model.Message) string {
	var b strings.Builder
	b.WriteString(string(m.Kind))
	for _, p := range m.Parts {
		b.WriteByte(0)
		b.WriteString(string(p.Kind))
		b.WriteByte(0x1f)
		b.WriteString(p.ToolCallID)
		b.WriteByte(0x1f)
		b.WriteString(p.ToolName)
		b.WriteByte(0x1f)
		b.WriteString(p.Text)
		b.WriteByte(0x1f)
		b.WriteString(p.Result)
		if len(p.ToolArgs) > 0 {
			// json.Marshal sorts map keys, giving a canonical encoding.
			if raw, err := json.Marshal(p.ToolArgs); err == nil {
				b.WriteByte(0x1f)
				b.Write(raw)
			}
		}
		if len(p.Data) > 0 {
			b.WriteByte(0x1f)
			b.Write(p.Data)
		}
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// HashSet tracks the hashes of messages that have been folded into a summary,
// so a later history merge never resurrects them.
type HashSet map[string]struct{}

func NewHashSet() HashSet { return make(HashSet) }

// Add records a message as compacted.
func (s HashSet) Add(m model.Message) { s[Hash(m)] = struct{}{} }

// Contains reports whether the message's content has already been compacted.
func (s HashSet) Contains(m model.Message) bool {
	_, ok := s[Hash(m)]
	return ok
}

// Filter returns the history with already-compacted messages removed.
func (s HashSet) Filter(h model.History) model.History {
	if len(s) == 0 {
		return h
	}
	out := make(model.History, 0, len(h))
	for _, m := range h {
		if s.Contains(m) {
			continue
		}
		out = append(out, m)
	}
	return out
}
