package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"roofRewardsAPI/middleware"
	"roofRewardsAPI/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	accountID, ok := middleware.GetAccountID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	events, err := h.notificationService.List(ctx, accountID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not load notifications")
		return
	}

	unread := 0
	for _, e := range events {
		if !e.IsRead {
			unread++
		}
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"notifications": events,
		"unread_count":  unread,
	})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	accountID, ok := middleware.GetAccountID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if err := h.notificationService.MarkAllRead(ctx, accountID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not update notifications")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type registerDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	accountID, ok := middleware.GetAccountID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Token == "" {
		respondWithError(w, http.StatusBadRequest, "Token is required")
		return
	}
	switch req.Platform {
	case "ios", "android", "web":
	default:
		respondWithError(w, http.StatusBadRequest, "Platform must be one of ios, android, web")
		return
	}

	if err := h.notificationService.RegisterDevice(ctx, accountID, req.Token, req.Platform); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not register device")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
