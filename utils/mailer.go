package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// ErrSMTPNotConfigured is reported when host or credentials are missing.
var ErrSMTPNotConfigured = errors.New("smtp host, username and password are required")

// SMTPSettings describes the outbound mail account.
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
}

// Configured reports whether the settings are complete enough to dial.
func (s SMTPSettings) Configured() bool {
	return s.Host != "" && s.Username != "" && s.Password != ""
}

// smtpDialer is satisfied by *gomail.Dialer.
type smtpDialer interface {
	Dial() (gomail.SendCloser, error)
}

// SMTPMailer delivers HTML email through a single SMTP account.
type SMTPMailer struct {
	settings SMTPSettings
	dialer   smtpDialer
	log      *logrus.Entry
}

func NewSMTPMailer(settings SMTPSettings, log *logrus.Entry) *SMTPMailer {
	d := gomail.NewDialer(settings.Host, settings.Port, settings.Username, settings.Password)
	return &SMTPMailer{
		settings: settings,
		dialer:   d,
		log:      log.WithField("component", "smtp_mailer"),
	}
}

// TestConnection checks that the account is configured and the server
// accepts a connection and authentication.
func (m *SMTPMailer) TestConnection(ctx context.Context) bool {
	logContext := map[string]interface{}{
		"smtp_host": m.settings.Host,
		"smtp_port": m.settings.Port,
		"username":  m.settings.Username,
	}

	if !m.settings.Configured() {
		LogError("smtp_configuration", ErrSMTPNotConfigured, logContext)
		return false
	}
	if err := ctx.Err(); err != nil {
		return false
	}

	conn, err := m.dialer.Dial()
	if err != nil {
		LogError("smtp_connection", err, logContext)
		return false
	}
	if err := conn.Close(); err != nil {
		m.log.WithError(err).Warn("Failed to close SMTP test connection")
	}
	return true
}

// Send substitutes vars into subject and body and delivers the message.
// It never returns an error; failures are logged and reported as false.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string, vars map[string]string) (ok bool) {
	logContext := map[string]interface{}{
		"to":        to,
		"smtp_host": m.settings.Host,
	}

	defer func() {
		if r := recover(); r != nil {
			LogError("smtp_send_panic", fmt.Errorf("panic: %v", r), logContext)
			ok = false
		}
	}()

	if !m.settings.Configured() {
		LogError("smtp_configuration", ErrSMTPNotConfigured, logContext)
		return false
	}
	if err := ctx.Err(); err != nil {
		return false
	}

	msg := m.buildMessage(to, ApplyTemplateVars(subject, vars), ApplyTemplateVars(body, vars))

	conn, err := m.dialer.Dial()
	if err != nil {
		LogError("smtp_connection", err, logContext)
		return false
	}
	defer conn.Close()

	if err := gomail.Send(conn, msg); err != nil {
		LogError("smtp_send", err, logContext)
		return false
	}

	m.log.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("Email sent")
	return true
}

func (m *SMTPMailer) buildMessage(to, subject, body string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.settings.Username, m.settings.FromName))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetDateHeader("Date", time.Now())
	msg.SetBody("text/html", body)
	return msg
}
