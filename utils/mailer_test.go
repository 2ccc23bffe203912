package utils

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"recruitreach/testutil"
)

type sentMessage struct {
	from string
	to   []string
	raw  string
}

type fakeDialer struct {
	dialErr error
	sendErr error
	sent    []sentMessage
	closed  int
}

func (d *fakeDialer) Dial() (gomail.SendCloser, error) {
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return &fakeConn{d: d}, nil
}

type fakeConn struct {
	d *fakeDialer
}

func (c *fakeConn) Send(from string, to []string, msg io.WriterTo) error {
	if c.d.sendErr != nil {
		return c.d.sendErr
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return err
	}
	c.d.sent = append(c.d.sent, sentMessage{from: from, to: to, raw: buf.String()})
	return nil
}

func (c *fakeConn) Close() error {
	c.d.closed++
	return nil
}

var testSettings = SMTPSettings{
	Host:     "smtp.example.com",
	Port:     587,
	Username: "recruiting@example.com",
	Password: "secret",
	FromName: "Recruiting Team",
}

func newTestMailer(settings SMTPSettings, d *fakeDialer) *SMTPMailer {
	return &SMTPMailer{settings: settings, dialer: d, log: testutil.Logger()}
}

func TestSMTPMailerTestConnection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	d := &fakeDialer{}
	assert.True(t, newTestMailer(testSettings, d).TestConnection(ctx))
	assert.Equal(t, 1, d.closed)

	missing := testSettings
	missing.Password = ""
	assert.False(t, newTestMailer(missing, &fakeDialer{}).TestConnection(ctx))

	refused := &fakeDialer{dialErr: errors.New("connection refused")}
	assert.False(t, newTestMailer(testSettings, refused).TestConnection(ctx))
}

func TestSMTPMailerSendSubstitutesVars(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{}
	m := newTestMailer(testSettings, d)

	ok := m.Send(context.Background(), "ada@example.com", "Hello {first_name}", "<p>Hi {first_name} in {location}</p>",
		map[string]string{"first_name": "Ada", "location": "London"})
	require.True(t, ok)
	require.Len(t, d.sent, 1)

	sent := d.sent[0]
	assert.Equal(t, "recruiting@example.com", sent.from)
	assert.Equal(t, []string{"ada@example.com"}, sent.to)
	assert.Contains(t, sent.raw, "Subject: Hello Ada")
	assert.Contains(t, sent.raw, "Hi Ada in London")
	assert.Contains(t, sent.raw, "text/html")
	assert.Contains(t, sent.raw, `"Recruiting Team" <recruiting@example.com>`)
}

func TestSMTPMailerSendFailuresReturnFalse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	assert.False(t, newTestMailer(testSettings, &fakeDialer{sendErr: errors.New("550 mailbox unavailable")}).
		Send(ctx, "ada@example.com", "s", "b", nil))
	assert.False(t, newTestMailer(testSettings, &fakeDialer{dialErr: errors.New("timeout")}).
		Send(ctx, "ada@example.com", "s", "b", nil))
	assert.False(t, newTestMailer(SMTPSettings{}, &fakeDialer{}).
		Send(ctx, "ada@example.com", "s", "b", nil))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, newTestMailer(testSettings, &fakeDialer{}).Send(cancelled, "ada@example.com", "s", "b", nil))
}
