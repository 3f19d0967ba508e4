package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	KeyUserContext = "USER_CONTEXT"
	KeyCredential  = "credential"
	// SessionAuthToken is the session key the login route stores the signed
	// credential under.
	SessionAuthToken = "auth_token"
)
