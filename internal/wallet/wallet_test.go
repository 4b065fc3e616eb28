package wallet

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestRequiredPoints(t *testing.T) {
	// One voice minute at 20 cents costs 5 points at 25 points/dollar.
	got, err := RequiredPoints(ChannelVoice, 1)
	if err != nil {
		t.Fatalf("RequiredPoints failed: %v", err)
	}
	if got != 5 {
		t.Errorf("voice minute = %d points, want 5", got)
	}

	// 5 voice minutes: a dollar even, 25 points.
	got, _ = RequiredPoints(ChannelVoice, 5)
	if got != 25 {
		t.Errorf("5 voice minutes = %d points, want 25", got)
	}

	// Fractional dollars round up: one sms at 8 cents is 2 points.
	got, _ = RequiredPoints(ChannelSMS, 1)
	if got != 2 {
		t.Errorf("1 sms = %d points, want 2", got)
	}

	// One lead at $20 costs 500 points.
	got, _ = RequiredPoints(ChannelLeads, 1)
	if got != 500 {
		t.Errorf("1 lead = %d points, want 500", got)
	}

	if _, err := RequiredPoints(Channel("fax"), 1); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("expected ErrUnknownChannel, got %v", err)
	}
	if _, err := RequiredPoints(ChannelSMS, 0); !errors.Is(err, ErrInvalidUnits) {
		t.Errorf("expected ErrInvalidUnits, got %v", err)
	}
}

func TestAllocate(t *testing.T) {
	s := NewState()
	s.BalanceCents = 1000

	// $10 does not cover 200 sms at 8 cents each ($16).
	if err := s.Allocate(ChannelSMS, 200); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if s.BalanceCents != 1000 || s.CreditBuckets[ChannelSMS] != 0 {
		t.Errorf("failed allocate must not mutate: %+v", s)
	}

	// 100 sms at 8 cents is $8.
	if err := s.Allocate(ChannelSMS, 100); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if s.BalanceCents != 200 {
		t.Errorf("balance = %d, want 200", s.BalanceCents)
	}
	if s.CreditBuckets[ChannelSMS] != 100 {
		t.Errorf("bucket = %d, want 100", s.CreditBuckets[ChannelSMS])
	}

	if err := s.Allocate(ChannelSMS, -5); !errors.Is(err, ErrInvalidUnits) {
		t.Errorf("expected ErrInvalidUnits, got %v", err)
	}
	if err := s.Allocate(Channel("fax"), 1); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("expected ErrUnknownChannel, got %v", err)
	}
}

func TestSpendFromBucket(t *testing.T) {
	s := NewState()
	s.CreditBuckets[ChannelScans] = 5

	fromBucket, debited, err := s.Spend(ChannelScans, 3)
	if err != nil {
		t.Fatalf("Spend failed: %v", err)
	}
	if fromBucket != 3 || debited != 0 {
		t.Errorf("fromBucket=%d debited=%d, want 3/0", fromBucket, debited)
	}
	if s.CreditBuckets[ChannelScans] != 2 {
		t.Errorf("bucket = %d, want 2", s.CreditBuckets[ChannelScans])
	}
}

func TestSpendShortfallWithAutoSpend(t *testing.T) {
	s := NewState()
	s.BalanceCents = 500
	s.CreditBuckets[ChannelScans] = 2
	s.AutoSpend[ChannelScans] = true

	// 4 scans: 2 from bucket, 2 auto-debited at 50 cents each.
	fromBucket, debited, err := s.Spend(ChannelScans, 4)
	if err != nil {
		t.Fatalf("Spend failed: %v", err)
	}
	if fromBucket != 2 || debited != 100 {
		t.Errorf("fromBucket=%d debited=%d, want 2/100", fromBucket, debited)
	}
	if s.BalanceCents != 400 || s.CreditBuckets[ChannelScans] != 0 {
		t.Errorf("unexpected state: %+v", s)
	}
}

func TestSpendShortfallWithoutAutoSpend(t *testing.T) {
	s := NewState()
	s.BalanceCents = 500
	s.CreditBuckets[ChannelScans] = 2

	_, _, err := s.Spend(ChannelScans, 4)
	if !errors.Is(err, ErrAutoSpendDisabled) {
		t.Fatalf("expected ErrAutoSpendDisabled, got %v", err)
	}
	if s.BalanceCents != 500 || s.CreditBuckets[ChannelScans] != 2 {
		t.Errorf("failed spend must not mutate: %+v", s)
	}
}

func TestSpendNeverOverdrafts(t *testing.T) {
	s := NewState()
	s.BalanceCents = 40
	s.AutoSpend[ChannelScans] = true

	_, _, err := s.Spend(ChannelScans, 1)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if s.BalanceCents != 40 {
		t.Errorf("balance mutated on failed spend: %d", s.BalanceCents)
	}
}

func TestDeposit(t *testing.T) {
	s := NewState()
	if err := s.Deposit(2500); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if s.BalanceCents != 2500 {
		t.Errorf("balance = %d, want 2500", s.BalanceCents)
	}
	if err := s.Deposit(0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if err := s.Deposit(-100); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestSetAutoSpend(t *testing.T) {
	s := NewState()
	if err := s.SetAutoSpend(ChannelEmail, true); err != nil {
		t.Fatalf("SetAutoSpend failed: %v", err)
	}
	if !s.AutoSpend[ChannelEmail] {
		t.Error("auto-spend not enabled")
	}
	if err := s.SetAutoSpend(Channel("fax"), true); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("expected ErrUnknownChannel, got %v", err)
	}
}

func TestNormalizeHealsLoadedState(t *testing.T) {
	var s State
	if err := json.Unmarshal([]byte(`{"balance_cents": -300}`), &s); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	s.Normalize()
	if s.BalanceCents != 0 {
		t.Errorf("negative balance not clamped: %d", s.BalanceCents)
	}
	if s.CreditBuckets == nil || s.AutoSpend == nil {
		t.Error("nil maps not initialized")
	}

	s.CreditBuckets[ChannelVoice] = -4
	s.Normalize()
	if s.CreditBuckets[ChannelVoice] != 0 {
		t.Errorf("negative bucket not clamped: %d", s.CreditBuckets[ChannelVoice])
	}
}
