package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"roofRewardsAPI/internal/bus"
	"roofRewardsAPI/internal/progression"
	"roofRewardsAPI/internal/storage"
	"roofRewardsAPI/internal/wallet"
)

// BillingClient is the external payment collaborator. It hands back a
// hosted checkout URL; the wallet is only credited later, by webhook.
type BillingClient interface {
	CreateCheckout(ctx context.Context, accountID string, amountCents int64) (string, error)
}

// WalletService owns the dollar balance and per-channel credit
// buckets. All mutations are synchronous single-writer operations;
// there is deliberately no cross-key transaction.
type WalletService struct {
	kv      storage.KV
	bus     *bus.Bus
	locks   *AccountLocks
	rewards *RewardsService
	billing BillingClient
}

func NewWalletService(kv storage.KV, b *bus.Bus, locks *AccountLocks, rewards *RewardsService, billing BillingClient) *WalletService {
	return &WalletService{kv: kv, bus: b, locks: locks, rewards: rewards, billing: billing}
}

func walletKey(accountID string) string {
	return "wallet:" + accountID
}

func (s *WalletService) loadWallet(ctx context.Context, accountID string) (*wallet.State, error) {
	raw, ok, err := s.kv.Get(ctx, walletKey(accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	if !ok {
		return wallet.NewState(), nil
	}

	state := wallet.NewState()
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		log.Printf("wallet for %s is corrupted, resetting: %v", accountID, err)
		return wallet.NewState(), nil
	}
	state.Normalize()
	return state, nil
}

func (s *WalletService) saveWallet(ctx context.Context, accountID string, state *wallet.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %w", err)
	}
	if err := s.kv.Set(ctx, walletKey(accountID), string(raw)); err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	return nil
}

func (s *WalletService) publishChanged(accountID string) {
	s.bus.Publish(bus.Event{Type: bus.EventWalletChanged, AccountID: accountID})
}

// Get returns the account's wallet.
func (s *WalletService) Get(ctx context.Context, accountID string) (*wallet.State, error) {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()
	return s.loadWallet(ctx, accountID)
}

// Allocate buys channel units from the dollar balance.
func (s *WalletService) Allocate(ctx context.Context, accountID string, ch wallet.Channel, units int) (*wallet.State, error) {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()

	state, err := s.loadWallet(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := state.Allocate(ch, units); err != nil {
		walletOperationsTotal.WithLabelValues("allocate", "rejected").Inc()
		return nil, err
	}
	if err := s.saveWallet(ctx, accountID, state); err != nil {
		return nil, err
	}
	walletOperationsTotal.WithLabelValues("allocate", "ok").Inc()
	s.publishChanged(accountID)
	return state, nil
}

// Exchange converts reward points into channel units at
// ceil(unitCost * pointsPerDollar * units). Points and bucket move
// together under the account lock; on any failure nothing changes.
func (s *WalletService) Exchange(ctx context.Context, accountID string, ch wallet.Channel, units int) (*wallet.State, error) {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()

	required, err := wallet.RequiredPoints(ch, units)
	if err != nil {
		return nil, err
	}

	state, err := s.loadWallet(ctx, accountID)
	if err != nil {
		return nil, err
	}
	rewards, err := s.rewards.loadState(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if rewards.Points < required {
		walletOperationsTotal.WithLabelValues("exchange", "rejected").Inc()
		return nil, progression.ErrInsufficientPoints
	}

	reason := fmt.Sprintf("credit exchange: %d %s units", units, ch)
	if _, err := s.rewards.applyLocked(ctx, accountID, rewards, -required, reason, map[string]string{"channel": string(ch)}); err != nil {
		return nil, err
	}
	if err := state.CreditBucket(ch, units); err != nil {
		return nil, err
	}
	if err := s.saveWallet(ctx, accountID, state); err != nil {
		return nil, err
	}
	walletOperationsTotal.WithLabelValues("exchange", "ok").Inc()
	s.publishChanged(accountID)
	return state, nil
}

// Spend consumes channel units, bucket first, wallet shortfall only
// when auto-spend is on.
func (s *WalletService) Spend(ctx context.Context, accountID string, ch wallet.Channel, units int) (*wallet.State, error) {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()

	state, err := s.loadWallet(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if _, _, err := state.Spend(ch, units); err != nil {
		walletOperationsTotal.WithLabelValues("spend", "rejected").Inc()
		return nil, err
	}
	if err := s.saveWallet(ctx, accountID, state); err != nil {
		return nil, err
	}
	walletOperationsTotal.WithLabelValues("spend", "ok").Inc()
	s.publishChanged(accountID)
	return state, nil
}

// SetAutoSpend flips the per-channel auto-spend rule.
func (s *WalletService) SetAutoSpend(ctx context.Context, accountID string, ch wallet.Channel, enabled bool) (*wallet.State, error) {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()

	state, err := s.loadWallet(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := state.SetAutoSpend(ch, enabled); err != nil {
		return nil, err
	}
	if err := s.saveWallet(ctx, accountID, state); err != nil {
		return nil, err
	}
	s.publishChanged(accountID)
	return state, nil
}

// TopUp starts a hosted checkout for a wallet deposit. Nothing is
// credited here; the Stripe webhook calls Credit on completion.
func (s *WalletService) TopUp(ctx context.Context, accountID string, amountCents int64) (string, error) {
	if amountCents <= 0 {
		return "", wallet.ErrInvalidAmount
	}
	url, err := s.billing.CreateCheckout(ctx, accountID, amountCents)
	if err != nil {
		walletOperationsTotal.WithLabelValues("topup", "rejected").Inc()
		return "", fmt.Errorf("billing checkout failed: %w", err)
	}
	walletOperationsTotal.WithLabelValues("topup", "ok").Inc()
	return url, nil
}

// Credit deposits cents into the wallet (webhook path) and announces
// that billing data changed elsewhere so clients reload.
func (s *WalletService) Credit(ctx context.Context, accountID string, amountCents int64) (*wallet.State, error) {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()

	state, err := s.loadWallet(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := state.Deposit(amountCents); err != nil {
		return nil, err
	}
	if err := s.saveWallet(ctx, accountID, state); err != nil {
		return nil, err
	}

	s.publishChanged(accountID)
	s.bus.Publish(bus.Event{
		Type:      bus.EventBillingUpdated,
		AccountID: accountID,
		Data:      map[string]string{"amount_cents": strconv.FormatInt(amountCents, 10)},
	})
	return state, nil
}
