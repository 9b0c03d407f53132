package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"
	"time"
)

func TestLedgerRecord(t *testing.T) {
	ledger, err := NewLedger(t.TempDir())
	if err != nil {
		t.Fatalf("NewLedger() error = %v", err)
	}

	ledger.Record(Entry{
		Timestamp: time.Now(),
		Provider:  "cerebras",
		Model:     "qwen-3-coder-480b",
		InTokens:  100,
		OutTokens: 50,
		Total:     150,
		LatencyMS: 1200,
	})
	ledger.Record(Entry{
		Timestamp: time.Now(),
		Provider:  "gemini",
		Model:     "gemini-3-flash",
		InTokens:  70,
		OutTokens: 30,
		Total:     100,
		LatencyMS: 800,
		Estimated: true,
	})

	f, err := os.Open(ledger.Path())
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		entries = append(entries, e)
	}

	if len(entries) != 2 {
		t.Fatalf("ledger holds %d entries, want 2", len(entries))
	}
	if entries[0].Provider != "cerebras" || entries[0].Total != 150 {
		t.Errorf("first entry = %+v", entries[0])
	}
	if !entries[1].Estimated {
		t.Error("second entry should be marked estimated")
	}
}

func TestStoreSaveAndTotals(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()

	base := time.Now().Add(-time.Hour)
	entries := []Entry{
		{Timestamp: base, Provider: "cerebras", Model: "qwen-3-coder-480b", InTokens: 100, OutTokens: 50, LatencyMS: 900},
		{Timestamp: base.Add(time.Minute), Provider: "cerebras", Model: "gpt-oss-120b", InTokens: 200, OutTokens: 100, LatencyMS: 700},
		{Timestamp: base.Add(2 * time.Minute), Provider: "gemini", Model: "gemini-3-flash", InTokens: 50, OutTokens: 25, LatencyMS: 400},
	}
	for _, e := range entries {
		if err := store.Save(e); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	totals, err := store.TotalsSince(base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("TotalsSince() error = %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("TotalsSince() returned %d providers, want 2", len(totals))
	}

	// Ordered by provider name: cerebras then gemini.
	if totals[0].Provider != "cerebras" || totals[0].Requests != 2 || totals[0].InTokens != 300 {
		t.Errorf("cerebras totals = %+v", totals[0])
	}
	if totals[1].Provider != "gemini" || totals[1].OutTokens != 25 {
		t.Errorf("gemini totals = %+v", totals[1])
	}
}

func TestStoreRecentEntries(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		e := Entry{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Provider:  "cerebras",
			Model:     "qwen-3-coder-480b",
			InTokens:  i * 10,
			OutTokens: i,
			SessionID: "s1",
		}
		if err := store.Save(e); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	recent, err := store.RecentEntries(3)
	if err != nil {
		t.Fatalf("RecentEntries() error = %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("RecentEntries(3) returned %d entries", len(recent))
	}
	// Newest first.
	if recent[0].InTokens != 40 {
		t.Errorf("newest entry InTokens = %d, want 40", recent[0].InTokens)
	}
	if recent[0].SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1", recent[0].SessionID)
	}
}
