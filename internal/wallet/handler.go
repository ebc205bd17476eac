package wallet

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/wallet-payments/internal"
	"github.com/frahmantamala/wallet-payments/internal/transport"
)

type DispatcherAPI interface {
	Dispatch(ctx context.Context, action Action) ActionResult
}

type Handler struct {
	transport.BaseHandler
	Dispatcher DispatcherAPI
}

func NewHandler(dispatcher DispatcherAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: *transport.NewBaseHandler(logger),
		Dispatcher:  dispatcher,
	}
}

// DispatchAction handles POST /api/v1/wallet/actions
func (h *Handler) DispatchAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warn("DispatchAction: failed to parse request body", "error", err)
		h.HandleError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	action, appErr := req.ToAction()
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	result := h.Dispatcher.Dispatch(r.Context(), action)
	if !result.OK {
		h.WriteJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}
