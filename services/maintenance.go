package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"roofRewardsAPI/internal/notification"
	"roofRewardsAPI/internal/storage"
	"roofRewardsAPI/utils"
)

// MaintenanceService runs the scheduled background sweeps: pruning
// stale daily idempotency keys shortly after midnight and nudging
// accounts whose streak is about to break in the evening. Both go
// through the regular services, so they respect the account locks.
type MaintenanceService struct {
	lister  storage.Lister
	rewards *RewardsService
	quests  *QuestService
	notifs  *NotificationService
	cron    *cron.Cron
}

func NewMaintenanceService(lister storage.Lister, rewards *RewardsService, quests *QuestService, notifs *NotificationService) *MaintenanceService {
	return &MaintenanceService{
		lister:  lister,
		rewards: rewards,
		quests:  quests,
		notifs:  notifs,
		cron:    cron.New(),
	}
}

// Start registers the jobs and starts the scheduler. Times are local,
// matching the local-day semantics of streaks and rotations.
func (s *MaintenanceService) Start() error {
	if _, err := s.cron.AddFunc("15 0 * * *", s.pruneStaleKeys); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 18 * * *", s.sendStreakRiskNudges); err != nil {
		return err
	}
	s.cron.Start()
	log.Println("Maintenance scheduler started")
	return nil
}

func (s *MaintenanceService) Stop() {
	s.cron.Stop()
}

func (s *MaintenanceService) accountIDs(ctx context.Context, prefix string) []string {
	keys, err := s.lister.Keys(ctx, prefix)
	if err != nil {
		log.Printf("maintenance: failed to list %s keys: %v", prefix, err)
		return nil
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, prefix))
	}
	return ids
}

func (s *MaintenanceService) pruneStaleKeys() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pruned := 0
	for _, id := range s.accountIDs(ctx, "completed:") {
		if err := s.quests.GCStale(ctx, id); err != nil {
			log.Printf("maintenance: prune failed for %s: %v", id, err)
			continue
		}
		pruned++
	}
	log.Printf("Maintenance: pruned stale daily keys for %d accounts", pruned)
}

// sendStreakRiskNudges notifies accounts holding a streak of 3+ days
// that have not checked in today. One nudge per account per day.
func (s *MaintenanceService) sendStreakRiskNudges() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	today := utils.TodayKey()
	sent := 0
	for _, id := range s.accountIDs(ctx, "rewards:") {
		state, err := s.rewards.Get(ctx, id)
		if err != nil {
			continue
		}
		if state.StreakDays < 3 || state.LastCheckIn == today {
			continue
		}
		if utils.DaysBetween(state.LastCheckIn, today) != 1 {
			// Streak is already broken; nothing left to protect.
			continue
		}
		if s.notifs.HasToday(ctx, id, notification.TypeStreakRisk, today) {
			continue
		}

		message := "Your " + utils.PluralDays(state.StreakDays) + " streak ends at midnight. Check in to keep it."
		if _, err := s.notifs.Record(ctx, id, notification.TypeStreakRisk, "Streak at risk", message, map[string]string{"date": today}); err != nil {
			log.Printf("maintenance: streak nudge failed for %s: %v", id, err)
			continue
		}
		sent++
	}
	log.Printf("Maintenance: sent %d streak-risk nudges", sent)
}
