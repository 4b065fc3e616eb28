package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"roofRewardsAPI/internal/bus"
	"roofRewardsAPI/internal/quest"
	"roofRewardsAPI/internal/storage"
	"roofRewardsAPI/utils"
)

// QuestService manages the daily quest rotation and its wave counter.
type QuestService struct {
	kv      storage.KV
	bus     *bus.Bus
	locks   *AccountLocks
	rewards *RewardsService
}

func NewQuestService(kv storage.KV, b *bus.Bus, locks *AccountLocks, rewards *RewardsService) *QuestService {
	return &QuestService{kv: kv, bus: b, locks: locks, rewards: rewards}
}

func questKey(accountID string) string {
	return "quests:" + accountID
}

// storedRotation is the persisted (date, wave) pair. The task list is
// never trusted from storage, it is recomputed from the pair.
type storedRotation struct {
	DateKey string `json:"date_key"`
	Wave    int    `json:"wave"`
}

// RotationView is today's rotation plus the account's completion map.
type RotationView struct {
	quest.Rotation
	Completed   map[string]bool `json:"completed"`
	AllComplete bool            `json:"all_complete"`
}

func (s *QuestService) loadStored(ctx context.Context, accountID string) storedRotation {
	var stored storedRotation
	raw, ok, err := s.kv.Get(ctx, questKey(accountID))
	if err != nil {
		log.Printf("quest state read failed for %s: %v", accountID, err)
		return stored
	}
	if !ok {
		return stored
	}
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Printf("quest state for %s is corrupted, resetting: %v", accountID, err)
		return storedRotation{}
	}
	return stored
}

func (s *QuestService) saveStored(ctx context.Context, accountID string, stored storedRotation) error {
	raw, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, questKey(accountID), string(raw)); err != nil {
		return fmt.Errorf("failed to save quest state: %w", err)
	}
	return nil
}

// todayLocked rebuilds the active rotation. A stale stored date resets
// the wave to 0 and garbage-collects the prior days' idempotency keys.
func (s *QuestService) todayLocked(ctx context.Context, accountID string) (*RotationView, error) {
	state, err := s.rewards.loadState(ctx, accountID)
	if err != nil {
		return nil, err
	}

	today := utils.TodayKey()
	stored := s.loadStored(ctx, accountID)
	if stored.DateKey != today {
		stored = storedRotation{DateKey: today, Wave: 0}
		if err := s.saveStored(ctx, accountID, stored); err != nil {
			return nil, err
		}
		if err := s.gcStaleLocked(ctx, accountID, today); err != nil {
			return nil, err
		}
	}

	rotation := quest.BuildRotation(today, stored.Wave, state.Level, state.RedeemedLeads)
	set := loadCompletedSet(ctx, s.kv, accountID)

	view := &RotationView{
		Rotation:    rotation,
		Completed:   make(map[string]bool, len(rotation.Tasks)),
		AllComplete: true,
	}
	for _, t := range rotation.Tasks {
		done := set[quest.CompletionKey(today, stored.Wave, t.ID)]
		view.Completed[t.ID] = done
		if !done {
			view.AllComplete = false
		}
	}
	return view, nil
}

// gcStaleLocked drops daily idempotency keys for any date but today.
func (s *QuestService) gcStaleLocked(ctx context.Context, accountID, today string) error {
	set := loadCompletedSet(ctx, s.kv, accountID)
	keep := quest.DailyPrefix(today)
	changed := false
	for k := range set {
		if strings.HasPrefix(k, "daily:") && !strings.HasPrefix(k, keep) {
			delete(set, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return saveCompletedSet(ctx, s.kv, accountID, set)
}

// Today returns the active rotation for the account.
func (s *QuestService) Today(ctx context.Context, accountID string) (*RotationView, error) {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()
	return s.todayLocked(ctx, accountID)
}

// Complete marks a task done and pays out its points. Completing the
// same task twice in a wave is a no-op.
func (s *QuestService) Complete(ctx context.Context, accountID, taskID string) (*RotationView, error) {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()

	view, err := s.todayLocked(ctx, accountID)
	if err != nil {
		return nil, err
	}
	task, ok := view.Find(taskID)
	if !ok {
		return nil, quest.ErrUnknownTask
	}
	if view.Completed[taskID] {
		return view, nil
	}

	set := loadCompletedSet(ctx, s.kv, accountID)
	set[quest.CompletionKey(view.DateKey, view.Wave, taskID)] = true
	if err := saveCompletedSet(ctx, s.kv, accountID, set); err != nil {
		return nil, err
	}

	state, err := s.rewards.loadState(ctx, accountID)
	if err != nil {
		return nil, err
	}
	reason := "quest: " + task.Title
	if _, err := s.rewards.applyLocked(ctx, accountID, state, task.Points, reason, map[string]string{"task_id": task.ID}); err != nil {
		return nil, err
	}

	questCompletionsTotal.WithLabelValues(task.ID).Inc()
	s.bus.Publish(bus.Event{
		Type:      bus.EventQuestComplete,
		AccountID: accountID,
		Data:      map[string]string{"task_id": task.ID, "title": task.Title},
	})

	view.Completed[taskID] = true
	view.AllComplete = true
	for _, t := range view.Tasks {
		if !view.Completed[t.ID] {
			view.AllComplete = false
			break
		}
	}
	return view, nil
}

// Refresh advances the wave once every task in the current wave is
// complete, producing a fresh task list for the same date. Multiple
// reward cycles per day are intended.
func (s *QuestService) Refresh(ctx context.Context, accountID string) (*RotationView, error) {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()

	view, err := s.todayLocked(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !view.AllComplete {
		return nil, quest.ErrWaveIncomplete
	}

	stored := storedRotation{DateKey: view.DateKey, Wave: view.Wave + 1}
	if err := s.saveStored(ctx, accountID, stored); err != nil {
		return nil, err
	}
	return s.todayLocked(ctx, accountID)
}

// GCStale is the maintenance entry point for pruning old daily keys of
// accounts that have not been active today.
func (s *QuestService) GCStale(ctx context.Context, accountID string) error {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()
	return s.gcStaleLocked(ctx, accountID, utils.TodayKey())
}
