package contexthelpers

import (
	"context"
	"net/http"

	"github.com/myrjola/coachreports/internal/training"
)

func AuthenticateContext(r *http.Request, user training.User) *http.Request {
	ctx := context.WithValue(r.Context(), AuthenticatedUserContextKey, user)
	return r.WithContext(ctx)
}

func SetCurrentPath(r *http.Request, currentPath string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, CurrentPathContextKey, currentPath)
	return r.WithContext(ctx)
}

func SetCSPNonce(r *http.Request, cspNonce string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, CspNonceContextKey, cspNonce)
	return r.WithContext(ctx)
}
