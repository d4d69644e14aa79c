package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gurman-sys/rentbuddy/internal/auth"
	"github.com/gurman-sys/rentbuddy/internal/server"
	"github.com/gurman-sys/rentbuddy/internal/services"
	"github.com/gurman-sys/rentbuddy/internal/wallet"
	"github.com/gurman-sys/rentbuddy/pkg/models"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Module exposes booking requests over HTTP.
type Module struct {
	svc    *Service
	logger *zap.Logger
}

// New creates the booking module.
func New(svc *Service) *Module {
	return &Module{svc: svc, logger: zap.NewNop()}
}

func (m *Module) Name() string    { return "booking" }
func (m *Module) Version() string { return "0.1.0" }

// Init loads the time zone used for dates sent without one and for the
// calendar day that bookings may start on.
func (m *Module) Init(config *viper.Viper, logger *zap.Logger) error {
	m.logger = logger
	if config != nil && config.IsSet("timezone") {
		loc, err := time.LoadLocation(config.GetString("timezone"))
		if err != nil {
			return fmt.Errorf("booking timezone: %w", err)
		}
		m.svc.SetLocation(loc)
	}
	return nil
}

func (m *Module) Start(_ context.Context) error { return nil }

func (m *Module) Stop() error { return nil }

func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/quote", Handler: m.handleQuote},
		{Method: "POST", Path: "/requests", Handler: m.handleCreate},
		{Method: "GET", Path: "/requests", Handler: m.handleList},
		{Method: "GET", Path: "/requests/{id}", Handler: m.handleGet},
		{Method: "POST", Path: "/requests/{id}/pay", Handler: m.handlePay},
		{Method: "POST", Path: "/requests/{id}/status", Handler: m.handleStatus},
	}
}

// CreateBody is the body of POST /booking/requests.
type CreateBody struct {
	ItemID  string `json:"item_id"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Message string `json:"message"`
}

// PayBody is the optional body of POST /booking/requests/{id}/pay.
type PayBody struct {
	CouponID string `json:"coupon_id"`
}

// StatusBody is the body of POST /booking/requests/{id}/status.
type StatusBody struct {
	Status models.BookingStatus `json:"status"`
}

// handleQuote prices a prospective booking.
//
//	@Summary		Quote a booking
//	@Tags			booking
//	@Produce		json
//	@Param			item_id query string true "Item ID"
//	@Param			start query string true "Start date, any common format"
//	@Param			end query string true "End date, any common format"
//	@Success		200 {object} Quote
//	@Failure		400 {object} server.Problem
//	@Failure		404 {object} server.Problem
//	@Router			/booking/quote [get]
func (m *Module) handleQuote(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	rng, err := ParseRange(v.Get("start"), v.Get("end"), m.svc.Location())
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	q, err := m.svc.Quote(v.Get("item_id"), rng)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, q)
}

func (m *Module) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body CreateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	rng, err := ParseRange(body.Start, body.End, m.svc.Location())
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	b, err := m.svc.Create(r.Context(), auth.UserID(r.Context()), CreateRequest{
		ItemID:  body.ItemID,
		Range:   rng,
		Message: body.Message,
	})
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, b)
}

func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	opts, err := server.ListOptions(r)
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	res, err := m.svc.List(r.Context(), auth.UserID(r.Context()), models.BookingStatus(r.URL.Query().Get("status")), opts)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, res)
}

func (m *Module) handleGet(w http.ResponseWriter, r *http.Request) {
	b, err := m.svc.Get(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, b)
}

// handlePay charges the booking to the caller's wallet.
//
//	@Summary		Pay a booking
//	@Tags			booking
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id path string true "Booking request ID"
//	@Param			request body PayBody false "Optional coupon"
//	@Success		200 {object} PayResult
//	@Failure		402 {object} server.Problem
//	@Failure		409 {object} server.Problem
//	@Router			/booking/requests/{id}/pay [post]
func (m *Module) handlePay(w http.ResponseWriter, r *http.Request) {
	var body PayBody
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			server.BadRequest(w, "invalid request body", r.URL.Path)
			return
		}
	}
	res, err := m.svc.Pay(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), body.CouponID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, res)
}

func (m *Module) handleStatus(w http.ResponseWriter, r *http.Request) {
	var body StatusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	b, err := m.svc.SetStatus(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), body.Status)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, b)
}

func (m *Module) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ib *wallet.InsufficientBalanceError
	switch {
	case errors.As(err, &ib):
		server.PaymentRequired(w, ib.Error(), r.URL.Path, ib.Shortfall())
	case errors.Is(err, ErrInvalidRange), errors.Is(err, wallet.ErrInvalidAmount):
		server.BadRequest(w, err.Error(), r.URL.Path)
	case errors.Is(err, ErrItemNotFound), errors.Is(err, services.ErrNotFound):
		server.NotFound(w, err.Error(), r.URL.Path)
	case errors.Is(err, ErrItemUnavailable), errors.Is(err, ErrAlreadyPaid),
		errors.Is(err, ErrNotPayable), errors.Is(err, ErrInvalidTransition),
		errors.Is(err, wallet.ErrCouponUnavailable):
		server.Conflict(w, err.Error(), r.URL.Path)
	default:
		m.logger.Error("booking operation failed", zap.String("path", r.URL.Path), zap.Error(err))
		server.InternalError(w, "booking operation failed", r.URL.Path)
	}
}
