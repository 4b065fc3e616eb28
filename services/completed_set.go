package services

import (
	"context"
	"encoding/json"
	"log"
	"sort"

	"roofRewardsAPI/internal/storage"
)

// The completed set holds the daily idempotency keys (quest
// completions plus the streak-bonus guard). It is shared between the
// rewards and quest services; both only touch it while holding the
// account lock.

func completedKey(accountID string) string {
	return "completed:" + accountID
}

func loadCompletedSet(ctx context.Context, kv storage.KV, accountID string) map[string]bool {
	set := make(map[string]bool)
	raw, ok, err := kv.Get(ctx, completedKey(accountID))
	if err != nil {
		log.Printf("completed set read failed for %s: %v", accountID, err)
		return set
	}
	if !ok {
		return set
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		// Corrupted state is replaced by defaults, never fatal.
		log.Printf("completed set for %s is corrupted, resetting: %v", accountID, err)
		return set
	}
	for _, k := range keys {
		set[k] = true
	}
	return set
}

func saveCompletedSet(ctx context.Context, kv storage.KV, accountID string, set map[string]bool) error {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	raw, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	return kv.Set(ctx, completedKey(accountID), string(raw))
}
