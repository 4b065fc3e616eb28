package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"roofRewardsAPI/middleware"
	"roofRewardsAPI/services"
)

type QuestsHandler struct {
	questService *services.QuestService
}

func NewQuestsHandler(questService *services.QuestService) *QuestsHandler {
	return &QuestsHandler{
		questService: questService,
	}
}

func (h *QuestsHandler) GetToday(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	accountID, ok := middleware.GetAccountID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	view, err := h.questService.Today(ctx, accountID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not load quests")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (h *QuestsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	accountID, ok := middleware.GetAccountID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	taskID := mux.Vars(r)["taskID"]
	if taskID == "" {
		respondWithError(w, http.StatusBadRequest, "Task ID is required")
		return
	}

	view, err := h.questService.Complete(ctx, accountID, taskID)
	if err != nil {
		respondWithDomainError(w, err, "Could not complete quest")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (h *QuestsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	accountID, ok := middleware.GetAccountID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	view, err := h.questService.Refresh(ctx, accountID)
	if err != nil {
		respondWithDomainError(w, err, "Could not refresh quests")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}
