package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"roofRewardsAPI/internal/bus"
	"roofRewardsAPI/internal/progression"
	"roofRewardsAPI/internal/storage"
	"roofRewardsAPI/internal/wallet"
)

type fakeBilling struct {
	fail bool
}

func (f *fakeBilling) CreateCheckout(ctx context.Context, accountID string, amountCents int64) (string, error) {
	if f.fail {
		return "", errors.New("stripe is down")
	}
	return fmt.Sprintf("https://checkout.test/%s/%d", accountID, amountCents), nil
}

func newTestWallet() (*WalletService, *RewardsService, *bus.Bus) {
	kv := storage.NewMemoryKV()
	b := bus.New()
	locks := NewAccountLocks()
	rewards := NewRewardsService(kv, b, locks)
	return NewWalletService(kv, b, locks, rewards, &fakeBilling{}), rewards, b
}

func TestWalletCreditAndAllocate(t *testing.T) {
	svc, _, _ := newTestWallet()
	ctx := context.Background()

	state, err := svc.Credit(ctx, "acc-1", 1000)
	if err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if state.BalanceCents != 1000 {
		t.Errorf("balance = %d, want 1000", state.BalanceCents)
	}

	// $10 cannot buy 200 sms ($16); the wallet must be untouched.
	if _, err := svc.Allocate(ctx, "acc-1", wallet.ChannelSMS, 200); !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	state, _ = svc.Get(ctx, "acc-1")
	if state.BalanceCents != 1000 || state.CreditBuckets[wallet.ChannelSMS] != 0 {
		t.Errorf("failed allocate mutated wallet: %+v", state)
	}

	state, err = svc.Allocate(ctx, "acc-1", wallet.ChannelSMS, 100)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if state.BalanceCents != 200 || state.CreditBuckets[wallet.ChannelSMS] != 100 {
		t.Errorf("unexpected wallet: %+v", state)
	}
}

func TestExchangeSpendsPoints(t *testing.T) {
	svc, rewards, _ := newTestWallet()
	ctx := context.Background()

	if _, err := svc.Exchange(ctx, "acc-1", wallet.ChannelVoice, 5); !errors.Is(err, progression.ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}

	if _, err := rewards.Award(ctx, "acc-1", 25, "grant", nil); err != nil {
		t.Fatalf("Award failed: %v", err)
	}

	// 5 voice minutes at 20 cents each is a dollar: 25 points.
	state, err := svc.Exchange(ctx, "acc-1", wallet.ChannelVoice, 5)
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if state.CreditBuckets[wallet.ChannelVoice] != 5 {
		t.Errorf("bucket = %d, want 5", state.CreditBuckets[wallet.ChannelVoice])
	}
	if state.BalanceCents != 0 {
		t.Errorf("exchange touched the dollar balance: %d", state.BalanceCents)
	}

	rw, _ := rewards.Get(ctx, "acc-1")
	if rw.Points != 0 {
		t.Errorf("points = %d, want 0", rw.Points)
	}
	if len(rw.Ledger) == 0 || rw.Ledger[0].Amount != -25 {
		t.Errorf("missing negative ledger entry: %+v", rw.Ledger)
	}
}

func TestSpendViaService(t *testing.T) {
	svc, _, _ := newTestWallet()
	ctx := context.Background()

	if _, err := svc.Credit(ctx, "acc-1", 500); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if _, err := svc.Allocate(ctx, "acc-1", wallet.ChannelScans, 2); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	// Bucket holds 2; spending 4 without auto-spend is rejected.
	if _, err := svc.Spend(ctx, "acc-1", wallet.ChannelScans, 4); !errors.Is(err, wallet.ErrAutoSpendDisabled) {
		t.Fatalf("expected ErrAutoSpendDisabled, got %v", err)
	}

	if _, err := svc.SetAutoSpend(ctx, "acc-1", wallet.ChannelScans, true); err != nil {
		t.Fatalf("SetAutoSpend failed: %v", err)
	}
	state, err := svc.Spend(ctx, "acc-1", wallet.ChannelScans, 4)
	if err != nil {
		t.Fatalf("Spend failed: %v", err)
	}
	// 2 from the bucket, 2 auto-debited at 50 cents each.
	if state.CreditBuckets[wallet.ChannelScans] != 0 {
		t.Errorf("bucket = %d, want 0", state.CreditBuckets[wallet.ChannelScans])
	}
	if state.BalanceCents != 300 {
		t.Errorf("balance = %d, want 300", state.BalanceCents)
	}
}

func TestTopUp(t *testing.T) {
	svc, _, _ := newTestWallet()
	ctx := context.Background()

	url, err := svc.TopUp(ctx, "acc-1", 2500)
	if err != nil {
		t.Fatalf("TopUp failed: %v", err)
	}
	if url != "https://checkout.test/acc-1/2500" {
		t.Errorf("checkout url = %q", url)
	}

	if _, err := svc.TopUp(ctx, "acc-1", 0); !errors.Is(err, wallet.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}

	// TopUp must not touch the balance; credit happens by webhook.
	state, _ := svc.Get(ctx, "acc-1")
	if state.BalanceCents != 0 {
		t.Errorf("TopUp credited the wallet: %d", state.BalanceCents)
	}
}

func TestTopUpBillingFailure(t *testing.T) {
	kv := storage.NewMemoryKV()
	b := bus.New()
	locks := NewAccountLocks()
	rewards := NewRewardsService(kv, b, locks)
	svc := NewWalletService(kv, b, locks, rewards, &fakeBilling{fail: true})

	if _, err := svc.TopUp(context.Background(), "acc-1", 2500); err == nil {
		t.Fatal("expected billing error")
	}
}

func TestCreditPublishesBillingEvent(t *testing.T) {
	svc, _, b := newTestWallet()

	var billingEvents int
	b.Subscribe(func(e bus.Event) {
		if e.Type == bus.EventBillingUpdated {
			billingEvents++
		}
	})

	if _, err := svc.Credit(context.Background(), "acc-1", 700); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if billingEvents != 1 {
		t.Errorf("billing events = %d, want 1", billingEvents)
	}
}
