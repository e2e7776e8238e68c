package notification

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"civreg/internal/auth"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/httputil"
	"civreg/pkg/requestcontext"
)

// Handler exposes the fan-out over HTTP for operational tooling.
type Handler struct {
	verifier *auth.Verifier
	service  *Service
	logger   *slog.Logger
}

func NewHandler(verifier *auth.Verifier, service *Service, logger *slog.Logger) *Handler {
	return &Handler{verifier: verifier, service: service, logger: logger}
}

// Register mounts notification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/email/all-users", h.HandleSendToAllUsers)
}

type sendRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Locale  string `json:"locale"`
}

// HandleSendToAllUsers handles POST /email/all-users. Only system admins may
// broadcast.
func (h *Handler) HandleSendToAllUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sendRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Subject == "" || req.Body == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "subject and body are required"))
		return
	}

	token, err := auth.TokenFromHeader(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claims, err := h.verifier.Verify(token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !auth.HasScope(claims.Scope, auth.ScopeSysAdmin) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "broadcast requires the sysadmin scope"))
		return
	}

	if err := h.service.SendEmailToAllUsers(ctx, req.Subject, req.Body, req.Locale, token); err != nil {
		h.logger.ErrorContext(ctx, "all-users fan-out failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
