package notification

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func event(t EventType, ts time.Time) Event {
	return Event{ID: uuid.New(), Type: t, Timestamp: ts}
}

func TestRank(t *testing.T) {
	if Rank(TypeReportReady) != 0 {
		t.Errorf("report_ready rank = %d, want 0", Rank(TypeReportReady))
	}
	if Rank(TypeCreditLow) != 7 {
		t.Errorf("credit_low rank = %d, want 7", Rank(TypeCreditLow))
	}
	if Rank(EventType("mystery")) != 9 {
		t.Errorf("unknown type rank = %d, want 9", Rank(EventType("mystery")))
	}
}

func TestMergePriorityBeatsRecency(t *testing.T) {
	now := time.Now()
	older := event(TypeReportReady, now.Add(-time.Hour))
	newer := event(TypeLeadCaptured, now)

	merged := Merge(nil, []Event{newer, older})
	if len(merged) != 2 {
		t.Fatalf("expected 2 events, got %d", len(merged))
	}
	if merged[0].Type != TypeReportReady {
		t.Errorf("report_ready must outrank lead_captured regardless of age, got %s first", merged[0].Type)
	}
}

func TestMergeRecencyWithinSameRank(t *testing.T) {
	now := time.Now()
	older := event(TypeQuestComplete, now.Add(-time.Hour))
	newer := event(TypeQuestComplete, now)

	merged := Merge([]Event{older}, []Event{newer})
	if merged[0].ID != newer.ID {
		t.Error("newer event of equal rank should come first")
	}
}

func TestMergeDedupByID(t *testing.T) {
	e := event(TypeLevelUp, time.Now())
	read := e
	read.IsRead = true

	merged := Merge([]Event{read}, []Event{e})
	if len(merged) != 1 {
		t.Fatalf("expected 1 event after dedup, got %d", len(merged))
	}
	if !merged[0].IsRead {
		t.Error("existing entry should win the dedup")
	}
}

func TestMergeCap(t *testing.T) {
	now := time.Now()
	var existing []Event
	for i := 0; i < StoredCap; i++ {
		existing = append(existing, event(TypeQuestComplete, now.Add(-time.Duration(i)*time.Minute)))
	}

	urgent := event(TypeReportReady, now.Add(-24*time.Hour))
	merged := Merge(existing, []Event{urgent})

	if len(merged) != StoredCap {
		t.Fatalf("expected cap of %d, got %d", StoredCap, len(merged))
	}
	if merged[0].ID != urgent.ID {
		t.Error("urgent event should survive the cap at the front")
	}
}

func TestMergeUnknownTypeSortsLast(t *testing.T) {
	now := time.Now()
	known := event(TypeCreditLow, now.Add(-time.Hour))
	unknown := event(EventType("mystery"), now)

	merged := Merge(nil, []Event{unknown, known})
	if merged[len(merged)-1].ID != unknown.ID {
		t.Error("unknown type should sort after all known types")
	}
}
