package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/orderdesk-backend/api/responses"
	"github.com/angelmondragon/orderdesk-backend/pkg/auth"
	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

// AuthOptions selects which bearer formats Auth accepts.
type AuthOptions struct {
	JWT              config.JWTConfig
	AllowDummyTokens bool
}

// Auth validates a bearer token and seeds the request context with the caller.
func Auth(opts AuthOptions, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing or invalid token"))
				return
			}

			principal, err := resolvePrincipal(opts, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "missing or invalid token"))
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			if logg != nil {
				ctx = logg.WithUserID(ctx, principal.UserID)
				ctx = logg.WithActorRole(ctx, string(principal.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) < 7 || !strings.EqualFold(raw[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(raw[7:])
	return token, token != ""
}

func resolvePrincipal(opts AuthOptions, token string) (auth.Principal, error) {
	if opts.AllowDummyTokens && auth.IsDummyToken(token) {
		return auth.ParseDummyToken(token)
	}
	claims, err := auth.ParseAccessToken(opts.JWT, token)
	if err != nil {
		return auth.Principal{}, err
	}
	return claims.Principal(), nil
}
