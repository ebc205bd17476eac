package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/wallet-payments/internal"
	"github.com/frahmantamala/wallet-payments/internal/transport"
	"github.com/frahmantamala/wallet-payments/pkg/logger"
)

type Middleware struct {
	transport.BaseHandler
	verifier *TokenVerifier
	required bool
}

// NewMiddleware builds the bearer-token middleware. When required is false a missing token is
// let through anonymously; a token that is present must still be valid.
func NewMiddleware(verifier *TokenVerifier, required bool, lg *slog.Logger) *Middleware {
	return &Middleware{
		BaseHandler: *transport.NewBaseHandler(lg),
		verifier:    verifier,
		required:    required,
	}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.ExtractTokenFromHeader(r)
		if token == "" {
			if m.required {
				m.HandleError(w, internal.NewUnauthorizedError("missing authorization token", internal.ErrCodeInvalidToken))
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		claims, appErr := m.verifier.ValidateToken(token)
		if appErr != nil {
			m.Logger.Warn("token validation failed", "error", appErr)
			m.HandleError(w, appErr)
			return
		}

		userID := claims.subject()
		ctx := internal.ContextWithUserID(r.Context(), userID)
		ctx = internal.ContextWithBearerToken(ctx, token)
		ctx = logger.With(ctx, "user_id", userID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
