package contexthelpers

type contextKey string

const AuthenticatedUserContextKey = contextKey("authenticatedUser")
const CurrentPathContextKey = contextKey("currentPath")
const CspNonceContextKey = contextKey("cspNonce")
