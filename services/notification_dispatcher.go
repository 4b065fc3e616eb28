package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"roofRewardsAPI/internal/bus"
	"roofRewardsAPI/internal/notification"
)

// PushProvider abstracts the FCM client so the dispatcher can run
// without push configured (and tests can fake it).
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]string) error
}

// NotificationDispatcher turns bus events into stored notifications
// and push messages. Bus delivery is synchronous, so the dispatcher
// only enqueues there and does the real work on a worker goroutine.
type NotificationDispatcher struct {
	service      *NotificationService
	pushProvider PushProvider
	jobQueue     chan bus.Event
	stopChan     chan struct{}
}

func NewNotificationDispatcher(service *NotificationService, b *bus.Bus) *NotificationDispatcher {
	d := &NotificationDispatcher{
		service:  service,
		jobQueue: make(chan bus.Event, 100),
		stopChan: make(chan struct{}),
	}
	b.Subscribe(d.enqueue)
	go d.worker()
	return d
}

// SetPushProvider injects the real FCM provider from main.go
func (d *NotificationDispatcher) SetPushProvider(provider PushProvider) {
	d.pushProvider = provider
}

func (d *NotificationDispatcher) Stop() {
	close(d.stopChan)
}

func (d *NotificationDispatcher) enqueue(e bus.Event) {
	select {
	case d.jobQueue <- e:
	default:
		log.Printf("notification queue full, dropping %s for %s", e.Type, e.AccountID)
	}
}

func (d *NotificationDispatcher) worker() {
	for {
		select {
		case e := <-d.jobQueue:
			d.process(e)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) process(e bus.Event) {
	evType, title, message, ok := describe(e)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := d.service.Record(ctx, e.AccountID, evType, title, message, e.Data); err != nil {
		log.Printf("failed to record %s notification for %s: %v", evType, e.AccountID, err)
		return
	}

	if d.pushProvider == nil {
		return
	}
	tokens, err := d.service.Devices(ctx, e.AccountID)
	if err != nil || len(tokens) == 0 {
		return
	}
	if err := d.pushProvider.SendPush(ctx, tokens, title, message, e.Data); err != nil {
		log.Printf("push failed for %s: %v", e.AccountID, err)
	}
}

// describe maps a bus event to user-facing copy. Events without copy
// (raw points/wallet ticks) never become notifications.
func describe(e bus.Event) (notification.EventType, string, string, bool) {
	switch e.Type {
	case bus.EventLevelUp:
		return notification.TypeLevelUp, "Level up!",
			fmt.Sprintf("You reached level %s. New quests are waiting.", e.Data["level"]), true
	case bus.EventStreakBonus:
		return notification.TypeStreakBonus, "Streak bonus",
			fmt.Sprintf("%s days in a row! Bonus points added.", e.Data["days"]), true
	case bus.EventQuestComplete:
		return notification.TypeQuestComplete, "Quest complete",
			fmt.Sprintf("%q is done. Points are in your ledger.", e.Data["title"]), true
	case bus.EventBillingUpdated:
		return notification.TypePaymentReceived, "Payment received",
			"Your wallet balance was updated.", true
	default:
		return "", "", "", false
	}
}
