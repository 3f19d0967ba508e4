package constants

// Static route constants
const (
	LoginRoute = "/login"
	AdminRoute = "/admin"
	APIRoute   = "/api"
	// Path of the accept page linked from invitation emails
	InvitationAcceptRoute = "/invitations/accept"
)
