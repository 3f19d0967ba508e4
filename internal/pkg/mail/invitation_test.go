package mail

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ChurchDesk/app/models"
)

type sent struct {
	to, subject, body string
}

type recordingSender struct {
	msgs []sent
}

func (r *recordingSender) Send(_ context.Context, to, subject, body string) error {
	r.msgs = append(r.msgs, sent{to, subject, body})
	return nil
}

func TestNotifyInvitation(t *testing.T) {
	rec := &recordingSender{}
	n := NewInvitationNotifier(rec, "https://app.example.org/")

	inv := &models.Invitation{
		Email:     "new@example.org",
		Role:      models.RoleAdmin,
		Token:     "abc123",
		ExpiresAt: time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, n.NotifyInvitation(context.Background(), inv))

	require.Len(t, rec.msgs, 1)
	assert.Equal(t, "new@example.org", rec.msgs[0].to)
	assert.Contains(t, rec.msgs[0].body, "https://app.example.org/invitations/accept?token=abc123")
	assert.Contains(t, rec.msgs[0].body, "ADMIN")
	assert.Contains(t, rec.msgs[0].body, "2026-03-08 12:00 UTC")
}

func TestSMTPMailerSkipsWithoutHost(t *testing.T) {
	m := NewSMTPMailer(Config{Sender: "no-reply@localhost"})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called without a host")
		return nil
	}
	assert.NoError(t, m.Send(context.Background(), "a@example.org", "hi", "body"))
}

func TestSMTPMailerBuildsMessage(t *testing.T) {
	var gotAddr string
	var gotMsg []byte
	m := NewSMTPMailer(Config{Host: "smtp.example.org", Port: "587", Sender: "no-reply@example.org"})
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		assert.Equal(t, "no-reply@example.org", from)
		assert.Equal(t, []string{"a@example.org"}, to)
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "a@example.org", "Hello", "<p>hi</p>"))
	assert.Equal(t, "smtp.example.org:587", gotAddr)
	assert.Contains(t, string(gotMsg), "Subject: Hello\r\n")
	assert.Contains(t, string(gotMsg), "Content-Type: text/html; charset=UTF-8")
}

func TestSMTPMailerReturnsSendError(t *testing.T) {
	m := NewSMTPMailer(Config{Host: "smtp.example.org", Port: "25"})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	assert.EqualError(t, m.Send(context.Background(), "a@example.org", "s", "b"), "connection refused")
}
