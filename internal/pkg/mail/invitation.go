package mail

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/constants"
	"github.com/ManuelReschke/ChurchDesk/views/mail_views"
)

// InvitationNotifier emails the accept link of an invitation.
type InvitationNotifier struct {
	sender  Sender
	baseURL string
}

func NewInvitationNotifier(sender Sender, baseURL string) *InvitationNotifier {
	return &InvitationNotifier{sender: sender, baseURL: strings.TrimRight(baseURL, "/")}
}

// AcceptURL is the link the invitee follows to redeem the token.
func (n *InvitationNotifier) AcceptURL(inv *models.Invitation) string {
	return fmt.Sprintf("%s%s?token=%s", n.baseURL, constants.InvitationAcceptRoute, url.QueryEscape(inv.Token))
}

func (n *InvitationNotifier) NotifyInvitation(ctx context.Context, inv *models.Invitation) error {
	var body bytes.Buffer
	email := mail_views.InvitationEmail(
		string(inv.Role),
		n.AcceptURL(inv),
		inv.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"),
	)
	if err := email.Render(ctx, &body); err != nil {
		return fmt.Errorf("render invitation email: %w", err)
	}
	return n.sender.Send(ctx, inv.Email, "Your ChurchDesk invitation", body.String())
}
