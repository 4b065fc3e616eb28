package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"roofRewardsAPI/internal/notification"
	"roofRewardsAPI/internal/storage"
	"roofRewardsAPI/services"
)

func newNotificationHandler() (*NotificationHandler, *services.NotificationService) {
	svc := services.NewNotificationService(storage.NewMemoryKV(), services.NewAccountLocks())
	return NewNotificationHandler(svc), svc
}

func TestListWithUnreadCount(t *testing.T) {
	h, svc := newNotificationHandler()
	ctx := context.Background()

	svc.Record(ctx, "acc-1", notification.TypeLevelUp, "Level up!", "level 2", nil)
	svc.Record(ctx, "acc-1", notification.TypeQuestComplete, "Quest complete", "done", nil)
	svc.MarkAllRead(ctx, "acc-1")
	svc.Record(ctx, "acc-1", notification.TypeReportReady, "Report ready", "view it", nil)

	w := httptest.NewRecorder()
	h.List(w, authedRequest(http.MethodGet, "/api/v1/notifications", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Notifications []notification.Event `json:"notifications"`
		UnreadCount   int                  `json:"unread_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(resp.Notifications) != 3 {
		t.Errorf("expected 3 notifications, got %d", len(resp.Notifications))
	}
	if resp.UnreadCount != 1 {
		t.Errorf("unread_count = %d, want 1", resp.UnreadCount)
	}
}

func TestListEmptyAccount(t *testing.T) {
	h, _ := newNotificationHandler()

	w := httptest.NewRecorder()
	h.List(w, authedRequest(http.MethodGet, "/api/v1/notifications", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Notifications []notification.Event `json:"notifications"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Notifications == nil {
		t.Error("notifications should be an empty array, not null")
	}
}

func TestMarkAllReadEndpoint(t *testing.T) {
	h, svc := newNotificationHandler()
	ctx := context.Background()

	svc.Record(ctx, "acc-1", notification.TypeLevelUp, "Level up!", "level 2", nil)

	w := httptest.NewRecorder()
	h.MarkAllRead(w, authedRequest(http.MethodPut, "/api/v1/notifications/read-all", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	events, _ := svc.List(ctx, "acc-1")
	for _, e := range events {
		if !e.IsRead {
			t.Error("event still unread after read-all")
		}
	}
}

func TestRegisterDeviceValidation(t *testing.T) {
	h, _ := newNotificationHandler()

	cases := []struct {
		name string
		body map[string]string
		code int
	}{
		{"valid", map[string]string{"token": "tok-1", "platform": "ios"}, http.StatusOK},
		{"missing token", map[string]string{"platform": "ios"}, http.StatusBadRequest},
		{"bad platform", map[string]string{"token": "tok-1", "platform": "windows"}, http.StatusBadRequest},
	}
	for _, c := range cases {
		body, _ := json.Marshal(c.body)
		w := httptest.NewRecorder()
		h.RegisterDevice(w, authedRequest(http.MethodPost, "/api/v1/notifications/register-device", body))
		if w.Code != c.code {
			t.Errorf("%s: status = %d, want %d", c.name, w.Code, c.code)
		}
	}
}
