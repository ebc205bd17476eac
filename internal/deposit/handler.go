package deposit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/wallet-payments/internal"
	gatewaytypes "github.com/frahmantamala/wallet-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/wallet-payments/internal/paymentgateway"
	"github.com/frahmantamala/wallet-payments/internal/transport"
)

type ServiceAPI interface {
	Start(ctx context.Context, gatewayID gatewaytypes.GatewayID, amount decimal.Decimal) paymentgateway.InitiateResult
	Pending(ctx context.Context, gatewayID gatewaytypes.GatewayID) (*PaymentOrder, error)
	Resume(ctx context.Context, gatewayID gatewaytypes.GatewayID) (*Outcome, error)
	Dismiss(ctx context.Context, gatewayID gatewaytypes.GatewayID) error
}

type Handler struct {
	transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: *transport.NewBaseHandler(logger),
		Service:     service,
	}
}

func (h *Handler) gatewayParam(w http.ResponseWriter, r *http.Request) (gatewaytypes.GatewayID, bool) {
	gatewayID, ok := gatewaytypes.ParseGatewayID(chi.URLParam(r, "gateway"))
	if !ok {
		h.HandleError(w, internal.ErrInvalidGateway)
	}
	return gatewayID, ok
}

// StartDeposit handles POST /api/v1/deposits/{gateway}. With ?redirect=true a successful
// initiation answers 303 to the payment page instead of JSON.
func (h *Handler) StartDeposit(w http.ResponseWriter, r *http.Request) {
	gatewayID, ok := h.gatewayParam(w, r)
	if !ok {
		return
	}

	var req StartDepositRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		h.Logger.Warn("StartDeposit: failed to parse request body", "error", err)
		h.HandleError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	amount, err := req.Validate()
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result := h.Service.Start(r.Context(), gatewayID, amount)
	if !result.Success {
		h.WriteJSON(w, http.StatusUnprocessableEntity, result)
		return
	}

	if r.URL.Query().Get("redirect") == "true" {
		http.Redirect(w, r, result.PaymentURL, http.StatusSeeOther)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// ReturnFromGateway handles GET /api/v1/deposits/{gateway}/return, where the gateway sends the user back.
func (h *Handler) ReturnFromGateway(w http.ResponseWriter, r *http.Request) {
	gatewayID, ok := h.gatewayParam(w, r)
	if !ok {
		return
	}

	outcome, err := h.Service.Resume(r.Context(), gatewayID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if outcome == nil {
		h.HandleError(w, internal.ErrPendingNotFound)
		return
	}
	h.WriteJSON(w, http.StatusOK, NewOutcomeResponse(outcome))
}

// GetPending handles GET /api/v1/deposits/{gateway}/pending
func (h *Handler) GetPending(w http.ResponseWriter, r *http.Request) {
	gatewayID, ok := h.gatewayParam(w, r)
	if !ok {
		return
	}

	order, err := h.Service.Pending(r.Context(), gatewayID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if order == nil {
		h.HandleError(w, internal.ErrPendingNotFound)
		return
	}
	h.WriteJSON(w, http.StatusOK, NewPendingOrderResponse(order))
}

// DismissPending handles DELETE /api/v1/deposits/{gateway}/pending
func (h *Handler) DismissPending(w http.ResponseWriter, r *http.Request) {
	gatewayID, ok := h.gatewayParam(w, r)
	if !ok {
		return
	}

	if err := h.Service.Dismiss(r.Context(), gatewayID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Routes mounts the deposit endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/{gateway}", h.StartDeposit)
	r.Get("/{gateway}/return", h.ReturnFromGateway)
	r.Get("/{gateway}/pending", h.GetPending)
	r.Delete("/{gateway}/pending", h.DismissPending)
}
