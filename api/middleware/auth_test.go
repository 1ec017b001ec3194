package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdesk-backend/pkg/auth"
	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
)

var testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "orderdesk", ExpirationMinutes: 5}

func principalEcho(t *testing.T, got *auth.Principal) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		*got = p
		w.WriteHeader(http.StatusNoContent)
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestAuthAcceptsSignedToken(t *testing.T) {
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.Principal{UserID: "u-1", Role: enums.RoleSales})
	require.NoError(t, err)

	var got auth.Principal
	handler := Auth(AuthOptions{JWT: testJWT}, nil)(principalEcho(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, auth.Principal{UserID: "u-1", Role: enums.RoleSales}, got)
}

func TestAuthDummyTokens(t *testing.T) {
	var got auth.Principal
	enabled := Auth(AuthOptions{JWT: testJWT, AllowDummyTokens: true}, nil)(principalEcho(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer dummy.ADMIN.ops-7")
	rec := httptest.NewRecorder()
	enabled.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, enums.RoleAdmin, got.Role)
	require.Equal(t, "ops-7", got.UserID)

	disabled := Auth(AuthOptions{JWT: testJWT}, nil)(principalEcho(t, &got))
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsMissingOrBadTokens(t *testing.T) {
	handler := Auth(AuthOptions{JWT: testJWT, AllowDummyTokens: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer not-a-jwt", "Bearer dummy.guest.u1", "Bearer dummy.sales"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code, header)
		require.Equal(t, string(pkgerrors.CodeUnauthorized), errorCode(t, rec))
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := RequireRole(nil, enums.RoleAdmin)(ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	sales := req.WithContext(WithPrincipal(req.Context(), auth.Principal{UserID: "u", Role: enums.RoleSales}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, sales)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, string(pkgerrors.CodeForbidden), errorCode(t, rec))

	admin := req.WithContext(WithPrincipal(req.Context(), auth.Principal{UserID: "u", Role: enums.RoleAdmin}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, admin)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestContextAccessors(t *testing.T) {
	ctx := WithPrincipal(context.Background(), auth.Principal{UserID: "u-9", Role: enums.RoleAdmin})
	require.Equal(t, "u-9", UserIDFromContext(ctx))
	require.Equal(t, enums.RoleAdmin, RoleFromContext(ctx))

	_, ok := PrincipalFromContext(context.Background())
	require.False(t, ok)
	require.Empty(t, UserIDFromContext(context.Background()))
	require.Empty(t, RoleFromContext(context.Background()))
}
