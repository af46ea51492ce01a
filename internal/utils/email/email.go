package email

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/Dan9191/card-service/internal/config"
	"github.com/Dan9191/card-service/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending operator alerts via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendKeyRotationAlert tells operators that a platform's keys were regenerated.
// The message never contains key material.
func (s *Sender) SendKeyRotationAlert(platform models.PlatformView, at time.Time) error {
	subject := fmt.Sprintf("API keys regenerated for platform %s", platform.Name)
	body := fmt.Sprintf(
		"The API key and secret key of platform %q (id %s) were regenerated at %s.\n"+
			"The previous keys no longer authenticate.\n",
		platform.Name, platform.ID, at.UTC().Format("2006-01-02 15:04:05 MST"),
	)
	return s.deliver(subject, body)
}

// SendStatusChangeAlert tells operators that a platform's status changed
func (s *Sender) SendStatusChangeAlert(platform models.PlatformView, at time.Time) error {
	subject := fmt.Sprintf("Platform %s is now %s", platform.Name, platform.Status)
	body := fmt.Sprintf(
		"The status of platform %q (id %s) was set to %s at %s.\n",
		platform.Name, platform.ID, platform.Status, at.UTC().Format("2006-01-02 15:04:05 MST"),
	)
	return s.deliver(subject, body)
}

// SendStatsDigest mails a summary of card usage
func (s *Sender) SendStatsDigest(stats models.CardStats, at time.Time) error {
	subject := fmt.Sprintf("Card usage digest %s", at.UTC().Format("2006-01-02"))
	return s.deliver(subject, DigestBody(stats))
}

// DigestBody renders the plain-text digest
func DigestBody(stats models.CardStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total cards: %d\n", stats.Total)
	fmt.Fprintf(&b, "Used: %d\n", stats.Used)
	fmt.Fprintf(&b, "Available: %d\n", stats.Available)
	fmt.Fprintf(&b, "Usage rate: %.2f%%\n", stats.UsageRatePercent)
	if len(stats.ByPlatform) > 0 {
		b.WriteString("\nUsed by platform:\n")
		for _, pc := range stats.ByPlatform {
			label := pc.Platform
			if label == "" {
				label = "(none)"
			}
			fmt.Fprintf(&b, "  %s: %d\n", label, pc.Count)
		}
	}
	if len(stats.ByRecentDate) > 0 {
		b.WriteString("\nUsed in the last 7 days:\n")
		for _, dc := range stats.ByRecentDate {
			fmt.Fprintf(&b, "  %s: %d\n", dc.Date, dc.Count)
		}
	}
	b.WriteString("\nCard Service")
	return b.String()
}

func (s *Sender) deliver(subject, body string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.AlertEmail}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", s.cfg.AlertEmail, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", s.cfg.AlertEmail, e.Subject)
	return nil
}
