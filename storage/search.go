package storage

import (
	"strings"

	"tandem/model"
)

// MessageMatch is one search hit inside a session.
type MessageMatch struct {
	SessionID    string
	SessionName  string
	MessageIndex int
	Snippet      string
}

// SearchHistory finds case-insensitive substring matches in a history's
// text content.
func SearchHistory(h model.History, query string) []int {
	if query == "" {
		return nil
	}
	needle := strings.ToLower(query)

	var matches []int
	for i, m := range h {
		if strings.Contains(strings.ToLower(m.Text()), needle) {
			matches = append(matches, i)
		}
	}
	return matches
}

// SearchAllSessions scans every stored session for the query. Sessions that
// fail to load are skipped.
func (s *SessionStorage) SearchAllSessions(query string) ([]MessageMatch, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}

	var results []MessageMatch
	for _, meta := range metas {
		session, err := s.Load(meta.ID)
		if err != nil {
			continue
		}
		for _, idx := range SearchHistory(session.History, query) {
			results = append(results, MessageMatch{
				SessionID:    session.ID,
				SessionName:  session.Name,
				MessageIndex: idx,
				Snippet:      snippet(session.History[idx].Text(), query),
			})
		}
	}
	return results, nil
}

// snippet returns a short window of text around the first match.
func snippet(text, query string) string {
	const window = 40
	idx := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if idx < 0 {
		idx = 0
	}
	start := idx - window
	if start < 0 {
		start = 0
	}
	end := idx + len(query) + window
	if end > len(text) {
		end = len(text)
	}
	out := strings.TrimSpace(text[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}
