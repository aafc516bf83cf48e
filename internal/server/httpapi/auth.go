package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/lastword/internal/common"
	"github.com/dmitrijs2005/lastword/internal/server/models"
)

// Authenticator resolves the authenticated user for a request. Session and
// magic-link handling live outside this service; implementations only map an
// already-established identity onto the request.
type Authenticator interface {
	UserFromRequest(r *http.Request) (*models.User, error)
}

// HeaderAuthenticator trusts identity headers set by an authenticating
// reverse proxy in front of the service.
type HeaderAuthenticator struct {
	IDHeader    string
	EmailHeader string
}

// NewHeaderAuthenticator returns an authenticator reading the default
// X-Auth-User-Id / X-Auth-User-Email headers.
func NewHeaderAuthenticator() *HeaderAuthenticator {
	return &HeaderAuthenticator{
		IDHeader:    "X-Auth-User-Id",
		EmailHeader: "X-Auth-User-Email",
	}
}

func (a *HeaderAuthenticator) UserFromRequest(r *http.Request) (*models.User, error) {
	id := r.Header.Get(a.IDHeader)
	if id == "" {
		return nil, common.ErrorUnauthorized
	}
	return &models.User{ID: id, Email: r.Header.Get(a.EmailHeader)}, nil
}

type contextKey struct{}

var userContextKey contextKey

// withUser attaches the authenticated user to the request context.
func withUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// userFromContext returns the authenticated user, or nil.
func userFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}
