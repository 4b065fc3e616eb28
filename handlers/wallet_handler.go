package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"roofRewardsAPI/internal/wallet"
	"roofRewardsAPI/middleware"
	"roofRewardsAPI/services"
)

type WalletHandler struct {
	walletService *services.WalletService
}

func NewWalletHandler(walletService *services.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	accountID, ok := middleware.GetAccountID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	state, err := h.walletService.Get(ctx, accountID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not load wallet")
		return
	}

	respondWithJSON(w, http.StatusOK, struct {
		*wallet.State
		Rates map[wallet.Channel]wallet.Rate `json:"rates"`
	}{state, wallet.Rates})
}

type channelUnitsRequest struct {
	Channel wallet.Channel `json:"channel"`
	Units   int            `json:"units"`
}

func (h *WalletHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	h.channelOp(w, r, h.walletService.Allocate)
}

func (h *WalletHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	h.channelOp(w, r, h.walletService.Exchange)
}

func (h *WalletHandler) Spend(w http.ResponseWriter, r *http.Request) {
	h.channelOp(w, r, h.walletService.Spend)
}

// channelOp is the shared body for the three bucket operations; they
// differ only in which service call runs.
func (h *WalletHandler) channelOp(w http.ResponseWriter, r *http.Request, op func(context.Context, string, wallet.Channel, int) (*wallet.State, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	accountID, ok := middleware.GetAccountID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req channelUnitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := op(ctx, accountID, req.Channel, req.Units)
	if err != nil {
		respondWithDomainError(w, err, "Wallet operation failed")
		return
	}

	respondWithJSON(w, http.StatusOK, state)
}

type autoSpendRequest struct {
	Channel wallet.Channel `json:"channel"`
	Enabled bool           `json:"enabled"`
}

func (h *WalletHandler) SetAutoSpend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	accountID, ok := middleware.GetAccountID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req autoSpendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := h.walletService.SetAutoSpend(ctx, accountID, req.Channel, req.Enabled)
	if err != nil {
		respondWithDomainError(w, err, "Could not update auto-spend")
		return
	}

	respondWithJSON(w, http.StatusOK, state)
}

type topUpRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	// Checkout creation calls out to Stripe, give it longer than the
	// local KV handlers.
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	accountID, ok := middleware.GetAccountID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	url, err := h.walletService.TopUp(ctx, accountID, req.AmountCents)
	if err != nil {
		respondWithDomainError(w, err, "Could not start checkout")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"checkoutUrl": url})
}
