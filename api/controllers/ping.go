package controllers

import (
	"net/http"

	"github.com/angelmondragon/orderdesk-backend/api/middleware"
	"github.com/angelmondragon/orderdesk-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]bool{"pong": true})
	}
}

// PrivatePing echoes the authenticated caller.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := middleware.PrincipalFromContext(r.Context())
		responses.WriteSuccess(w, map[string]any{
			"pong":   true,
			"userId": p.UserID,
			"role":   p.Role,
		})
	}
}
