package wallet

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gurman-sys/rentbuddy/internal/auth"
	"github.com/gurman-sys/rentbuddy/internal/server"
	"github.com/gurman-sys/rentbuddy/pkg/models"
	"go.uber.org/zap"
)

// TopUpRequest is the body of POST /wallet/topup. Amount may be a JSON number
// or a numeric string.
type TopUpRequest struct {
	Amount any `json:"amount"`
}

// TransactionResponse returns a committed transaction with the new wallet state.
type TransactionResponse struct {
	Transaction models.Transaction `json:"transaction"`
	Wallet      models.Wallet      `json:"wallet"`
}

// handleGetWallet returns the caller's balance.
//
//	@Summary		Get wallet
//	@Tags			wallet
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200 {object} models.Wallet
//	@Router			/wallet [get]
func (m *Module) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	wallet, err := m.svc.Wallet(r.Context(), userID)
	if err != nil {
		m.internalError(w, r, "failed to load wallet", err)
		return
	}
	server.WriteJSON(w, http.StatusOK, wallet)
}

func (m *Module) handleTransactions(w http.ResponseWriter, r *http.Request) {
	opts, err := server.ListOptions(r)
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	res, err := m.svc.Transactions(r.Context(), auth.UserID(r.Context()), opts)
	if err != nil {
		m.internalError(w, r, "failed to list transactions", err)
		return
	}
	server.WriteJSON(w, http.StatusOK, res)
}

// handleTopUp adds money to a verified wallet.
//
//	@Summary		Top up wallet
//	@Tags			wallet
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request body TopUpRequest true "Amount between 10 and 10000"
//	@Success		200 {object} TransactionResponse
//	@Failure		400 {object} server.Problem
//	@Failure		403 {object} server.Problem
//	@Router			/wallet/topup [post]
func (m *Module) handleTopUp(w http.ResponseWriter, r *http.Request) {
	var req TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	userID := auth.UserID(r.Context())
	t, err := m.svc.TopUp(r.Context(), userID, req.Amount)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeTransaction(w, r, userID, t)
}

func (m *Module) handleVerify(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	t, err := m.svc.Verify(r.Context(), userID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeTransaction(w, r, userID, t)
}

func (m *Module) handleWelcomeBonus(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	t, err := m.svc.ClaimWelcomeBonus(r.Context(), userID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeTransaction(w, r, userID, t)
}

func (m *Module) handleCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := m.svc.Coupons(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		m.internalError(w, r, "failed to list coupons", err)
		return
	}
	server.WriteJSON(w, http.StatusOK, coupons)
}

func (m *Module) writeTransaction(w http.ResponseWriter, r *http.Request, userID string, t models.Transaction) {
	wallet, err := m.svc.Wallet(r.Context(), userID)
	if err != nil {
		m.internalError(w, r, "failed to load wallet", err)
		return
	}
	server.WriteJSON(w, http.StatusOK, TransactionResponse{Transaction: t, Wallet: wallet})
}

// writeError maps wallet errors onto problem responses.
func (m *Module) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ib *InsufficientBalanceError
	switch {
	case errors.As(err, &ib):
		rejectedTotal.WithLabelValues("insufficient_balance").Inc()
		server.PaymentRequired(w, ib.Error(), r.URL.Path, ib.Shortfall())
	case errors.Is(err, ErrInvalidAmount):
		rejectedTotal.WithLabelValues("invalid_amount").Inc()
		server.BadRequest(w, err.Error(), r.URL.Path)
	case errors.Is(err, ErrNotVerified):
		rejectedTotal.WithLabelValues("not_verified").Inc()
		server.WriteProblem(w, server.Problem{
			Type:     server.ProblemTypeForbidden,
			Title:    "Forbidden",
			Status:   http.StatusForbidden,
			Detail:   "verify your account first to add money",
			Instance: r.URL.Path,
		})
	case errors.Is(err, ErrAlreadyVerified), errors.Is(err, ErrBonusClaimed):
		server.Conflict(w, err.Error(), r.URL.Path)
	default:
		m.internalError(w, r, "wallet operation failed", err)
	}
}

func (m *Module) internalError(w http.ResponseWriter, r *http.Request, detail string, err error) {
	m.logger.Error(detail, zap.String("path", r.URL.Path), zap.Error(err))
	server.InternalError(w, detail, r.URL.Path)
}
