package mail

import (
	"context"
	"errors"
	"io"
	"net/smtp"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSenderBuildsMessage(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Username: "bot@example.com", Password: "secret"})

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotBody string
		gotAuth smtp.Auth
	)
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotBody = addr, a, from, to, string(msg)
		return nil
	}

	err := s.Send(context.Background(), Message{To: "ada@example.com", Subject: "Hi", HTML: "<p>hello</p>"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "bot@example.com", gotFrom)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.NotNil(t, gotAuth)
	assert.Contains(t, gotBody, "Subject: Hi\r\n")
	assert.Contains(t, gotBody, "Content-Type: text/html")
	assert.Contains(t, gotBody, "<p>hello</p>")
}

func TestSMTPSenderRejectsHeaderInjection(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com"})
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}
	err := s.Send(context.Background(), Message{To: "a@example.com\r\nBcc: x@example.com", Subject: "s"})
	assert.Error(t, err)
}

func TestSMTPSenderHonoursCancelledContext(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: "a@example.com"}), context.Canceled)
}

func TestInvitationMessageEscapesValues(t *testing.T) {
	msg, err := InvitationMessage(Invitation{
		To:      "bob@example.com",
		Name:    "Bob",
		Inviter: "Ada",
		Project: "<script>x</script>",
		Role:    "viewer",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", msg.To)
	assert.Contains(t, msg.HTML, "Ada added you")
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.Subject, "<script>x</script>")
}

type failingSender struct{ calls int }

func (f *failingSender) Send(context.Context, Message) error {
	f.calls++
	return errors.New("connection refused")
}

func TestBreakerSenderOpensAfterConsecutiveFailures(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	next := &failingSender{}
	b := NewBreakerSender(next, logger)

	for i := 0; i < 4; i++ {
		assert.Error(t, b.Send(context.Background(), Message{}))
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := b.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 4, next.calls)
}

func TestNopSender(t *testing.T) {
	assert.NoError(t, NopSender{}.Send(context.Background(), Message{To: "x"}))
}
