package services

import (
	"context"
	"encoding/json"
	"fmt"

	"roofRewardsAPI/internal/progression"
	"roofRewardsAPI/internal/storage"
	"roofRewardsAPI/internal/wallet"
)

// AccountService handles account lifecycle events coming from the auth
// provider: seeding default state on signup and wiping it on deletion.
type AccountService struct {
	kv    storage.KV
	locks *AccountLocks
}

func NewAccountService(kv storage.KV, locks *AccountLocks) *AccountService {
	return &AccountService{kv: kv, locks: locks}
}

// Seed writes default progression and wallet state for a new account.
// Existing state is left untouched so replayed webhooks are harmless.
func (s *AccountService) Seed(ctx context.Context, accountID string) error {
	mu := s.locks.lock(accountID)
	mu.Lock()
	defer mu.Unlock()

	if _, ok, err := s.kv.Get(ctx, rewardsKey(accountID)); err != nil {
		return fmt.Errorf("failed to check rewards state: %w", err)
	} else if !ok {
		raw, err := json.Marshal(progression.NewState())
		if err != nil {
			return fmt.Errorf("failed to marshal rewards state: %w", err)
		}
		if err := s.kv.Set(ctx, rewardsKey(accountID), string(raw)); err != nil {
			return fmt.Errorf("failed to seed rewards state: %w", err)
		}
	}

	if _, ok, err := s.kv.Get(ctx, walletKey(accountID)); err != nil {
		return fmt.Errorf("failed to check wallet state: %w", err)
	} else if !ok {
		raw, err := json.Marshal(wallet.NewState())
		if err != nil {
			return fmt.Errorf("failed to marshal wallet state: %w", err)
		}
		if err := s.kv.Set(ctx, walletKey(accountID), string(raw)); err != nil {
			return fmt.Errorf("failed to seed wallet state: %w", err)
		}
	}

	return nil
}

// Remove deletes every key tied to the account.
func (s *AccountService) Remove(ctx context.Context, accountID string) error {
	mu := s.locks.lock(accountID)
	mu.Lock()
	defer mu.Unlock()

	keys := []string{
		rewardsKey(accountID),
		walletKey(accountID),
		questKey(accountID),
		completedKey(accountID),
		notificationsKey(accountID),
		devicesKey(accountID),
	}
	for _, key := range keys {
		if err := s.kv.Remove(ctx, key); err != nil {
			return fmt.Errorf("failed to remove %s: %w", key, err)
		}
	}
	return nil
}
