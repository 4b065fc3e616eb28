package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"roofRewardsAPI/internal/progression"
	"roofRewardsAPI/internal/quest"
	"roofRewardsAPI/internal/wallet"
	"roofRewardsAPI/middleware"
	"roofRewardsAPI/services"
)

type RewardsHandler struct {
	rewardsService *services.RewardsService
}

func NewRewardsHandler(rewardsService *services.RewardsService) *RewardsHandler {
	return &RewardsHandler{
		rewardsService: rewardsService,
	}
}

func (h *RewardsHandler) GetRewards(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	accountID, ok := middleware.GetAccountID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	state, err := h.rewardsService.Get(ctx, accountID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not load rewards")
		return
	}

	respondWithJSON(w, http.StatusOK, state)
}

type awardRequest struct {
	Amount int               `json:"amount"`
	Reason string            `json:"reason"`
	Meta   map[string]string `json:"meta,omitempty"`
}

func (h *RewardsHandler) Award(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	accountID, ok := middleware.GetAccountID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req awardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Reason == "" {
		respondWithError(w, http.StatusBadRequest, "Reason is required")
		return
	}

	state, err := h.rewardsService.Award(ctx, accountID, req.Amount, req.Reason, req.Meta)
	if err != nil {
		respondWithDomainError(w, err, "Could not award points")
		return
	}

	respondWithJSON(w, http.StatusOK, state)
}

func (h *RewardsHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	accountID, ok := middleware.GetAccountID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	state, err := h.rewardsService.Redeem(ctx, accountID)
	if err != nil {
		respondWithDomainError(w, err, "Could not redeem lead")
		return
	}

	respondWithJSON(w, http.StatusOK, state)
}

func (h *RewardsHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	accountID, ok := middleware.GetAccountID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	result, err := h.rewardsService.CheckIn(ctx, accountID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not check in")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithDomainError maps the fail-soft domain errors to 4xx with
// the error's own message (the UI shows it as a toast); everything
// else stays a generic 500.
func respondWithDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, progression.ErrInsufficientPoints),
		errors.Is(err, wallet.ErrInsufficientFunds),
		errors.Is(err, wallet.ErrAutoSpendDisabled):
		respondWithError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, progression.ErrInvalidAmount),
		errors.Is(err, wallet.ErrInvalidUnits),
		errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, wallet.ErrUnknownChannel),
		errors.Is(err, quest.ErrUnknownTask),
		errors.Is(err, quest.ErrWaveIncomplete):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}
