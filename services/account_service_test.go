package services

import (
	"context"
	"testing"

	"roofRewardsAPI/internal/bus"
	"roofRewardsAPI/internal/storage"
)

func TestSeedIsIdempotent(t *testing.T) {
	kv := storage.NewMemoryKV()
	b := bus.New()
	locks := NewAccountLocks()
	rewards := NewRewardsService(kv, b, locks)
	accounts := NewAccountService(kv, locks)
	ctx := context.Background()

	if err := accounts.Seed(ctx, "acc-1"); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	state, err := rewards.Get(ctx, "acc-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state.Points != 0 || state.Level != 1 {
		t.Errorf("unexpected seeded state: %+v", state)
	}

	// A replayed webhook must not wipe earned points.
	if _, err := rewards.Award(ctx, "acc-1", 300, "grant", nil); err != nil {
		t.Fatalf("Award failed: %v", err)
	}
	if err := accounts.Seed(ctx, "acc-1"); err != nil {
		t.Fatalf("replayed Seed failed: %v", err)
	}
	state, _ = rewards.Get(ctx, "acc-1")
	if state.Points != 300 {
		t.Errorf("replayed seed reset points: %d", state.Points)
	}
}

func TestRemoveWipesAllKeys(t *testing.T) {
	kv := storage.NewMemoryKV()
	b := bus.New()
	locks := NewAccountLocks()
	rewards := NewRewardsService(kv, b, locks)
	quests := NewQuestService(kv, b, locks, rewards)
	notifs := NewNotificationService(kv, locks)
	accounts := NewAccountService(kv, locks)
	ctx := context.Background()

	rewards.Award(ctx, "acc-1", 100, "grant", nil)
	quests.Today(ctx, "acc-1")
	notifs.RegisterDevice(ctx, "acc-1", "tok-1", "ios")

	if err := accounts.Remove(ctx, "acc-1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	keys, err := kv.Keys(ctx, "")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("keys left behind after Remove: %v", keys)
	}
}
