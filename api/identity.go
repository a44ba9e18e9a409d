/*
identity.go - Acting identity extraction

PURPOSE:
  Resolves the vacation.Actor for each request from trusted headers set by
  the gateway in front of this service:

    X-Actor-Id:    employee id (required)
    X-Actor-Roles: comma-separated roles (employee, manager, hr, admin)

  The engine authorizes against the Actor; this layer only carries it.
  Requests without an identity are rejected with 401 before reaching a
  handler.

SECURITY NOTE:
  This service trusts the headers. Authentication (sessions, tokens) lives
  in the gateway; deploy this service behind it, never on a public edge.
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/nimbus-hr/vacation-engine/vacation"
)

type contextKey string

const actorKey contextKey = "actor"

// WithIdentity extracts the acting identity headers into the request
// context, rejecting requests that carry none.
func WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Actor-Id"))
		if id == "" {
			writeError(w, http.StatusUnauthorized, "Missing X-Actor-Id header", nil)
			return
		}

		actor := vacation.Actor{ID: vacation.EmployeeID(id)}
		for _, raw := range strings.Split(r.Header.Get("X-Actor-Roles"), ",") {
			role := strings.TrimSpace(strings.ToLower(raw))
			if role != "" {
				actor.Roles = append(actor.Roles, vacation.Role(role))
			}
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// actorFrom returns the identity placed by WithIdentity. The zero Actor
// only appears when a handler is mounted without the middleware.
func actorFrom(r *http.Request) vacation.Actor {
	actor, _ := r.Context().Value(actorKey).(vacation.Actor)
	return actor
}
