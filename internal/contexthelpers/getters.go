package contexthelpers

import (
	"context"

	"github.com/myrjola/coachreports/internal/training"
)

// AuthenticatedUser returns the user authenticated for the request, if any.
func AuthenticatedUser(ctx context.Context) (training.User, bool) {
	user, ok := ctx.Value(AuthenticatedUserContextKey).(training.User)
	return user, ok
}

func IsAuthenticated(ctx context.Context) bool {
	_, ok := AuthenticatedUser(ctx)
	return ok
}

func AuthenticatedUserID(ctx context.Context) int {
	user, ok := AuthenticatedUser(ctx)
	if !ok {
		return 0
	}

	return user.ID
}

// IsStaff reports whether the authenticated user is a trainer or an admin.
func IsStaff(ctx context.Context) bool {
	user, ok := AuthenticatedUser(ctx)
	return ok && user.IsStaff()
}

func IsAdmin(ctx context.Context) bool {
	user, ok := AuthenticatedUser(ctx)
	return ok && user.Role == training.RoleAdmin
}

func CurrentPath(ctx context.Context) string {
	currentPath, ok := ctx.Value(CurrentPathContextKey).(string)
	if !ok {
		return ""
	}

	return currentPath
}

func CSPNonce(ctx context.Context) string {
	cspNonce, ok := ctx.Value(CspNonceContextKey).(string)
	if !ok {
		return ""
	}

	return cspNonce
}
