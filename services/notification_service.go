package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"roofRewardsAPI/internal/notification"
	"roofRewardsAPI/internal/storage"
)

// NotificationService keeps each account's aggregated display list
// and registered push devices.
type NotificationService struct {
	kv    storage.KV
	locks *AccountLocks
}

func NewNotificationService(kv storage.KV, locks *AccountLocks) *NotificationService {
	return &NotificationService{kv: kv, locks: locks}
}

func notificationsKey(accountID string) string {
	return "notifications:" + accountID
}

func devicesKey(accountID string) string {
	return "devices:" + accountID
}

func (s *NotificationService) loadEvents(ctx context.Context, accountID string) []notification.Event {
	raw, ok, err := s.kv.Get(ctx, notificationsKey(accountID))
	if err != nil {
		log.Printf("notifications read failed for %s: %v", accountID, err)
		return nil
	}
	if !ok {
		return nil
	}
	var events []notification.Event
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		log.Printf("notifications for %s are corrupted, resetting: %v", accountID, err)
		return nil
	}
	return events
}

func (s *NotificationService) saveEvents(ctx context.Context, accountID string, events []notification.Event) error {
	raw, err := json.Marshal(events)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, notificationsKey(accountID), string(raw))
}

// Record merges one event into the account's display list.
func (s *NotificationService) Record(ctx context.Context, accountID string, evType notification.EventType, title, message string, data map[string]string) (*notification.Event, error) {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()

	event := notification.Event{
		ID:        uuid.New(),
		Type:      evType,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
		Data:      data,
	}
	merged := notification.Merge(s.loadEvents(ctx, accountID), []notification.Event{event})
	if err := s.saveEvents(ctx, accountID, merged); err != nil {
		return nil, fmt.Errorf("failed to save notifications: %w", err)
	}
	return &event, nil
}

// List returns the priority-ordered display list.
func (s *NotificationService) List(ctx context.Context, accountID string) ([]notification.Event, error) {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()

	events := s.loadEvents(ctx, accountID)
	if events == nil {
		events = []notification.Event{}
	}
	return events, nil
}

// MarkAllRead flags every stored event as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, accountID string) error {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()

	events := s.loadEvents(ctx, accountID)
	for i := range events {
		events[i].IsRead = true
	}
	return s.saveEvents(ctx, accountID, events)
}

// HasToday reports whether an event of the given type was already
// recorded under today's date key (used to de-duplicate daily nudges).
func (s *NotificationService) HasToday(ctx context.Context, accountID string, evType notification.EventType, dateKey string) bool {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()

	for _, e := range s.loadEvents(ctx, accountID) {
		if e.Type == evType && e.Data["date"] == dateKey {
			return true
		}
	}
	return false
}

// RegisterDevice stores a push token for the account. Re-registering
// the same token updates its platform.
func (s *NotificationService) RegisterDevice(ctx context.Context, accountID, token, platform string) error {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()

	devices, _ := s.devicesLocked(ctx, accountID)
	for i, d := range devices {
		if d.Token == token {
			devices[i].Platform = platform
			return s.saveDevices(ctx, accountID, devices)
		}
	}
	devices = append(devices, notification.DeviceToken{Token: token, Platform: platform})
	return s.saveDevices(ctx, accountID, devices)
}

// Devices returns the account's registered push targets.
func (s *NotificationService) Devices(ctx context.Context, accountID string) ([]notification.DeviceToken, error) {
	l := s.locks.lock(accountID)
	l.Lock()
	defer l.Unlock()
	return s.devicesLocked(ctx, accountID)
}

func (s *NotificationService) devicesLocked(ctx context.Context, accountID string) ([]notification.DeviceToken, error) {
	raw, ok, err := s.kv.Get(ctx, devicesKey(accountID))
	if err != nil || !ok {
		return nil, err
	}
	var devices []notification.DeviceToken
	if err := json.Unmarshal([]byte(raw), &devices); err != nil {
		log.Printf("device tokens for %s are corrupted, resetting: %v", accountID, err)
		return nil, nil
	}
	return devices, nil
}

func (s *NotificationService) saveDevices(ctx context.Context, accountID string, devices []notification.DeviceToken) error {
	raw, err := json.Marshal(devices)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, devicesKey(accountID), string(raw))
}
