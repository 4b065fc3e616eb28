package quest

import (
	"errors"
	"fmt"

	"roofRewardsAPI/utils"
)

var (
	ErrUnknownTask    = errors.New("task is not part of today's rotation")
	ErrWaveIncomplete = errors.New("current wave still has open tasks")
)

// Task is one daily quest.
type Task struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Points           int    `json:"points"`
	RequiresPurchase bool   `json:"requires_purchase"`
	MinLevel         int    `json:"min_level"`
}

// Rotation is the active daily task set for one account.
// It is recomputed, never trusted from storage, whenever the stored
// date key no longer matches today.
type Rotation struct {
	DateKey string `json:"date_key"`
	Wave    int    `json:"wave"`
	Tasks   []Task `json:"tasks"`
}

// premiumTask gates a task on how many leads the account has redeemed.
type premiumTask struct {
	Task
	MinRedeemed int
}

// basePool is level-gated. At least two tasks carry MinLevel 1 so a
// fresh account always gets a full base pick.
var basePool = []Task{
	{ID: "scan_roof", Title: "Run a roof scan", Points: 40, MinLevel: 1},
	{ID: "log_lead", Title: "Log a new lead", Points: 50, MinLevel: 1},
	{ID: "follow_up_sms", Title: "Send 3 follow-up texts", Points: 30, MinLevel: 1},
	{ID: "update_pipeline", Title: "Update your pipeline stages", Points: 25, MinLevel: 1},
	{ID: "call_homeowner", Title: "Call 2 homeowners", Points: 35, MinLevel: 2},
	{ID: "send_estimate", Title: "Send an estimate", Points: 60, MinLevel: 3},
	{ID: "share_report", Title: "Share a roof report", Points: 45, MinLevel: 4},
	{ID: "book_inspection", Title: "Book an inspection", Points: 70, MinLevel: 5},
}

var premiumPool = []premiumTask{
	{Task: Task{ID: "close_redeemed_lead", Title: "Close a redeemed lead", Points: 100, MinLevel: 1}, MinRedeemed: 1},
	{Task: Task{ID: "storm_zone_blast", Title: "Text-blast a storm zone", Points: 80, RequiresPurchase: true, MinLevel: 2}, MinRedeemed: 3},
	{Task: Task{ID: "five_scans", Title: "Run 5 scans in one day", Points: 120, RequiresPurchase: true, MinLevel: 3}, MinRedeemed: 5},
	{Task: Task{ID: "double_inspection", Title: "Book 2 inspections from redeemed leads", Points: 150, MinLevel: 4}, MinRedeemed: 10},
}

// BuildRotation deterministically selects two base tasks and at most
// one premium task for the given inputs. The same
// (dateKey, wave, level, redeemedLeads) tuple always yields the same
// task list; on a reload the user sees the same quests. This is a
// low-entropy rotation meant to vary content day to day, not to
// prevent prediction, so the index math stays as-is.
func BuildRotation(dateKey string, wave, level, redeemedLeads int) Rotation {
	dayOfMonth, dayOfWeek := dayParts(dateKey)

	eligible := make([]Task, 0, len(basePool))
	for _, t := range basePool {
		if t.MinLevel <= level {
			eligible = append(eligible, t)
		}
	}

	tasks := make([]Task, 0, 3)
	n := len(eligible)
	first := (dayOfMonth + wave) % n
	second := (dayOfMonth + wave + dayOfWeek + 1) % n
	if second == first {
		second = (second + 1) % n
	}
	tasks = append(tasks, eligible[first], eligible[second])

	unlocked := make([]Task, 0, len(premiumPool))
	for _, p := range premiumPool {
		if p.MinRedeemed <= redeemedLeads && p.MinLevel <= level {
			unlocked = append(unlocked, p.Task)
		}
	}
	if len(unlocked) > 0 {
		tasks = append(tasks, unlocked[(dayOfWeek+wave)%len(unlocked)])
	}

	return Rotation{DateKey: dateKey, Wave: wave, Tasks: tasks}
}

// Find returns the task with the given ID from the rotation.
func (r Rotation) Find(taskID string) (Task, bool) {
	for _, t := range r.Tasks {
		if t.ID == taskID {
			return t, true
		}
	}
	return Task{}, false
}

// CompletionKey is the idempotency key marking a task complete within
// a specific date and wave. Keys for past dates are garbage-collected
// when a new day's rotation is computed.
func CompletionKey(dateKey string, wave int, taskID string) string {
	return fmt.Sprintf("daily:%s:wave%d:%s", dateKey, wave, taskID)
}

// StreakBonusKey guards the weekly streak bonus so it pays out once
// per day at most. It shares the daily: prefix so stale entries age
// out with quest keys.
func StreakBonusKey(dateKey string) string {
	return fmt.Sprintf("daily:%s:streak-bonus", dateKey)
}

// DailyPrefix is the shared prefix of all per-day idempotency keys.
func DailyPrefix(dateKey string) string {
	return fmt.Sprintf("daily:%s:", dateKey)
}

func dayParts(dateKey string) (dayOfMonth, dayOfWeek int) {
	t, err := utils.ParseDateKey(dateKey)
	if err != nil {
		// A malformed key still has to produce a stable rotation.
		return 1, 1
	}
	return t.Day(), int(t.Weekday())
}
