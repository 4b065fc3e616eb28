package services

import (
	"context"
	"testing"
	"time"

	"roofRewardsAPI/internal/bus"
	"roofRewardsAPI/internal/notification"
	"roofRewardsAPI/internal/progression"
	"roofRewardsAPI/internal/quest"
	"roofRewardsAPI/internal/storage"
	"roofRewardsAPI/utils"
)

func newTestMaintenance() (*MaintenanceService, *RewardsService, *NotificationService, *storage.MemoryKV) {
	kv := storage.NewMemoryKV()
	b := bus.New()
	locks := NewAccountLocks()
	rewards := NewRewardsService(kv, b, locks)
	quests := NewQuestService(kv, b, locks, rewards)
	notifs := NewNotificationService(kv, locks)
	return NewMaintenanceService(kv, rewards, quests, notifs), rewards, notifs, kv
}

func TestPruneStaleKeysSweep(t *testing.T) {
	svc, _, _, kv := newTestMaintenance()
	ctx := context.Background()

	stale := quest.CompletionKey("2020-01-01", 0, "scan_roof")
	fresh := quest.StreakBonusKey(utils.TodayKey())
	for _, id := range []string{"acc-1", "acc-2"} {
		if err := saveCompletedSet(ctx, kv, id, map[string]bool{stale: true, fresh: true}); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	svc.pruneStaleKeys()

	for _, id := range []string{"acc-1", "acc-2"} {
		set := loadCompletedSet(ctx, kv, id)
		if set[stale] {
			t.Errorf("%s: stale key survived sweep", id)
		}
		if !set[fresh] {
			t.Errorf("%s: fresh key dropped by sweep", id)
		}
	}
}

func TestStreakRiskNudges(t *testing.T) {
	svc, _, notifs, kv := newTestMaintenance()
	ctx := context.Background()
	today := utils.TodayKey()
	yesterday := utils.DateKey(time.Now().AddDate(0, 0, -1))

	// At risk: long streak, last check-in yesterday.
	seedRewards(t, kv, "at-risk", &progression.State{Level: 1, StreakDays: 5, LastCheckIn: yesterday})
	// Safe: already checked in today.
	seedRewards(t, kv, "safe", &progression.State{Level: 1, StreakDays: 5, LastCheckIn: today})
	// Short streak: below the nudge threshold.
	seedRewards(t, kv, "short", &progression.State{Level: 1, StreakDays: 2, LastCheckIn: yesterday})
	// Broken: streak already lost, nothing to protect.
	twoDaysAgo := utils.DateKey(time.Now().AddDate(0, 0, -2))
	seedRewards(t, kv, "broken", &progression.State{Level: 1, StreakDays: 8, LastCheckIn: twoDaysAgo})

	svc.sendStreakRiskNudges()

	if !notifs.HasToday(ctx, "at-risk", notification.TypeStreakRisk, today) {
		t.Error("at-risk account did not get a nudge")
	}
	for _, id := range []string{"safe", "short", "broken"} {
		if notifs.HasToday(ctx, id, notification.TypeStreakRisk, today) {
			t.Errorf("%s account was nudged", id)
		}
	}

	// Running the sweep again must not double-nudge.
	svc.sendStreakRiskNudges()
	events, _ := notifs.List(ctx, "at-risk")
	if len(events) != 1 {
		t.Errorf("expected 1 nudge after repeat sweep, got %d", len(events))
	}
}
