package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"roofRewardsAPI/internal/bus"
	"roofRewardsAPI/internal/progression"
	"roofRewardsAPI/internal/quest"
	"roofRewardsAPI/internal/storage"
	"roofRewardsAPI/internal/streak"
	"roofRewardsAPI/utils"
)

// RewardsService owns the point ledger, level and streak state.
type RewardsService struct {
	kv    storage.KV
	bus   *bus.Bus
	locks *AccountLocks
}

func NewRewardsService(kv storage.KV, b *bus.Bus, locks *AccountLocks) *RewardsService {
	return &RewardsService{kv: kv, bus: b, locks: locks}
}

func rewardsKey(accountID string) string {
	return "rewards:" + accountID
}

// loadState reads an account's rewards record, defaulting it lazily on
// first read. Corrupted JSON is replaced by defaults and logged, never
// surfaced; the session must not crash over bad persisted state.
func (s *RewardsService) loadState(ctx context.Context, accountID string) (*progression.State, error) {
	raw, ok, err := s.kv.Get(ctx, rewardsKey(accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to load rewards state: %w", err)
	}
	if !ok {
		return progression.NewState(), nil
	}

	state := progression.NewState()
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		log.Printf("rewards state for %s is corrupted, resetting: %v", accountID, err)
		return progression.NewState(), nil
	}
	state.Normalize()
	return state, nil
}

func (s *RewardsService) saveState(ctx context.Context, accountID string, state *progression.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal rewards state: %w", err)
	}
	if err := s.kv.Set(ctx, rewardsKey(accountID), string(raw)); err != nil {
		return fmt.Errorf("failed to save rewards state: %w", err)
	}
	return nil
}

// applyLocked mutates a loaded state with one ledger entry, persists
// it and publishes the resulting events. Callers hold the account
// lock; the quest and wallet services reuse this while composing their
// own mutations.
func (s *RewardsService) applyLocked(ctx context.Context, accountID string, state *progression.State, amount int, reason string, meta map[string]string) (progression.LedgerEntry, error) {
	entry, leveledUp, err := state.Apply(amount, reason, meta, time.Now())
	if err != nil {
		return progression.LedgerEntry{}, err
	}
	if err := s.saveState(ctx, accountID, state); err != nil {
		return progression.LedgerEntry{}, err
	}

	if amount > 0 {
		pointsAwardedTotal.WithLabelValues(reason).Add(float64(amount))
	}
	s.bus.Publish(bus.Event{
		Type:      bus.EventPointsAwarded,
		AccountID: accountID,
		Data:      map[string]string{"amount": strconv.Itoa(amount), "reason": reason},
	})
	if leveledUp {
		s.bus.Publish(bus.Event{
			Type:      bus.EventLevelUp,
			AccountID: accountID,
			Data:      map[string]string{"level": strconv.Itoa(state.Level)},
		})
	}
	return entry, nil
}

// Get returns the account's rewards record.
func (s *RewardsService) Get(ctx context.Context, accountID string) (*progression.State, error) {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()
	return s.loadState(ctx, accountID)
}

// Award appends a point delta for the given reason.
func (s *RewardsService) Award(ctx context.Context, accountID string, amount int, reason string, meta map[string]string) (*progression.State, error) {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()

	state, err := s.loadState(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if _, err := s.applyLocked(ctx, accountID, state, amount, reason, meta); err != nil {
		return nil, err
	}
	return state, nil
}

// Redeem converts PointsPerLead points into one redeemed lead.
// Fails soft with ErrInsufficientPoints, leaving state untouched.
func (s *RewardsService) Redeem(ctx context.Context, accountID string) (*progression.State, error) {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()

	state, err := s.loadState(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if _, err := s.applyLocked(ctx, accountID, state, -progression.PointsPerLead, "lead redemption", nil); err != nil {
		return nil, err
	}

	state.RedeemedLeads++
	if err := s.saveState(ctx, accountID, state); err != nil {
		return nil, err
	}
	leadRedemptionsTotal.Inc()
	return state, nil
}

// CheckInResult reports what a daily check-in did.
type CheckInResult struct {
	State            *progression.State `json:"state"`
	AlreadyCheckedIn bool               `json:"already_checked_in"`
	StreakExtended   bool               `json:"streak_extended"`
	WeeklyBonus      bool               `json:"weekly_bonus"`
}

// CheckIn runs the once-a-day streak transition: one elapsed calendar
// day extends the streak, a skipped day resets it to 1, a repeat
// check-in the same day is a no-op. Every counted day earns the daily
// points; each 7-day multiple earns the weekly bonus exactly once,
// guarded by a per-date idempotency key.
func (s *RewardsService) CheckIn(ctx context.Context, accountID string) (*CheckInResult, error) {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()

	state, err := s.loadState(ctx, accountID)
	if err != nil {
		return nil, err
	}

	today := utils.TodayKey()
	newStreak, outcome := streak.Advance(state.LastCheckIn, today, state.StreakDays)
	if outcome == streak.AlreadyCounted {
		return &CheckInResult{State: state, AlreadyCheckedIn: true}, nil
	}

	state.StreakDays = newStreak
	state.LastCheckIn = today
	if _, err := s.applyLocked(ctx, accountID, state, progression.DailyCheckInPoints, "daily login", nil); err != nil {
		return nil, err
	}

	result := &CheckInResult{State: state, StreakExtended: outcome == streak.Extended}
	if streak.BonusDue(state.StreakDays, progression.WeeklyBonusEvery) {
		set := loadCompletedSet(ctx, s.kv, accountID)
		guard := quest.StreakBonusKey(today)
		if !set[guard] {
			set[guard] = true
			if err := saveCompletedSet(ctx, s.kv, accountID, set); err != nil {
				return nil, err
			}
			bonusReason := fmt.Sprintf("streak bonus - day %d", state.StreakDays)
			if _, err := s.applyLocked(ctx, accountID, state, progression.WeeklyBonusPoints, bonusReason, nil); err != nil {
				return nil, err
			}
			s.bus.Publish(bus.Event{
				Type:      bus.EventStreakBonus,
				AccountID: accountID,
				Data:      map[string]string{"days": strconv.Itoa(state.StreakDays)},
			})
			result.WeeklyBonus = true
		}
	}
	return result, nil
}
