// Package httpapi exposes the trigger store over HTTP. Routing and error
// mapping live here; all behavior is delegated to the services layer.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/lastword/internal/common"
	"github.com/dmitrijs2005/lastword/internal/logging"
	"github.com/dmitrijs2005/lastword/internal/server/services"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the HTTP handler serving the trigger API.
//
// Routes:
//
//	GET    /api/triggers                     → list the caller's triggers
//	POST   /api/triggers                     → create a trigger
//	PUT    /api/triggers/{triggerID}         → update a trigger
//	DELETE /api/triggers/{triggerID}         → delete a trigger
//	GET    /api/triggers/claim/{triggerID}   → claim an overdue payload (anonymous)
//	POST   /api/triggers/checkin/{token}     → redeem a check-in token (anonymous)
func NewRouter(service *services.TriggerService, auth Authenticator, logger logging.Logger) http.Handler {
	h := &TriggerHandler{service: service, logger: logger}

	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)

	r.Route("/api/triggers", func(r chi.Router) {
		// Anonymous endpoints: claims and token redemption carry their own
		// credentials (the unguessable identifier itself).
		r.Get("/claim/{triggerID}", h.Claim)
		r.Post("/checkin/{token}", h.Checkin)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(auth))
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Put("/{triggerID}", h.Update)
			r.Delete("/{triggerID}", h.Delete)
		})
	})

	return r
}

// requireAuth rejects requests without an established identity and stores
// the user in the request context for handlers.
func requireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.UserFromRequest(r)
			if err != nil {
				writeError(w, common.ErrorUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels onto HTTP statuses. Unknown errors are a
// generic 500 with no detail leaked to the client.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorInvalidRequest):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: "invalid request"})
	case errors.Is(err, common.ErrorNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "not found"})
	case errors.Is(err, common.ErrorUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "requires authentication"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "unknown error"})
	}
}

type errorResponse struct {
	Message string `json:"message"`
}
