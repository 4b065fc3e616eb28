package notification

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// StoredCap bounds how many events are kept per account; the oldest
// are dropped. There is no other expiry policy.
const StoredCap = 25

type EventType string

const (
	TypeReportReady     EventType = "report_ready"
	TypePaymentReceived EventType = "payment_received"
	TypeLeadCaptured    EventType = "lead_captured"
	TypeStreakRisk      EventType = "streak_risk"
	TypeLevelUp         EventType = "level_up"
	TypeStreakBonus     EventType = "streak_bonus"
	TypeQuestComplete   EventType = "quest_complete"
	TypeCreditLow       EventType = "credit_low"
)

// priorityRanks maps event types to display urgency. Lower rank shows
// first. Unknown types fall back to defaultRank.
var priorityRanks = map[EventType]int{
	TypeReportReady:     0,
	TypePaymentReceived: 1,
	TypeLeadCaptured:    2,
	TypeStreakRisk:      3,
	TypeLevelUp:         4,
	TypeStreakBonus:     5,
	TypeQuestComplete:   6,
	TypeCreditLow:       7,
}

const defaultRank = 9

// Rank returns the priority rank for an event type.
func Rank(t EventType) int {
	if r, ok := priorityRanks[t]; ok {
		return r
	}
	return defaultRank
}

// Event is one display notification.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Type      EventType         `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	IsRead    bool              `json:"is_read"`
	Data      map[string]string `json:"data,omitempty"`
}

// Merge folds incoming events into an existing list: dedup by ID,
// order by (rank ascending, timestamp descending) with a stable sort,
// then cap. The oldest lowest-priority entries fall off the end.
func Merge(existing, incoming []Event) []Event {
	merged := make([]Event, 0, len(existing)+len(incoming))
	seen := make(map[uuid.UUID]bool, len(existing)+len(incoming))
	for _, e := range append(existing, incoming...) {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		merged = append(merged, e)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		ri, rj := Rank(merged[i].Type), Rank(merged[j].Type)
		if ri != rj {
			return ri < rj
		}
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})

	if len(merged) > StoredCap {
		merged = merged[:StoredCap]
	}
	return merged
}
