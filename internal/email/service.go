package email

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/medflow/medflow-api/pkg/logger"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	BaseURL  string
}

// Service sends notification email. Callers treat failures as
// non-fatal; a missed mail never fails the operation behind it.
type Service interface {
	SendAppointmentCreated(to, patientName string, start, end time.Time) error
	SendAppointmentCancelled(to, patientName string, start time.Time, reason string) error
	SendPasswordReset(to, token string) error
}

type service struct {
	cfg    Config
	dialer *gomail.Dialer
	logger *logger.Logger
}

func NewService(cfg Config, logger *logger.Logger) Service {
	return &service{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}
}

func (s *service) SendAppointmentCreated(to, patientName string, start, end time.Time) error {
	body := fmt.Sprintf(
		"Dear %s,\n\nYour appointment has been scheduled for %s to %s.\n\nMedFlow",
		patientName,
		start.Format("Mon, 2 Jan 2006 15:04"),
		end.Format("15:04"),
	)
	return s.send(to, "Appointment confirmation", body)
}

func (s *service) SendAppointmentCancelled(to, patientName string, start time.Time, reason string) error {
	body := fmt.Sprintf(
		"Dear %s,\n\nYour appointment on %s has been cancelled.\nReason: %s\n\nMedFlow",
		patientName,
		start.Format("Mon, 2 Jan 2006 15:04"),
		reason,
	)
	return s.send(to, "Appointment cancelled", body)
}

func (s *service) SendPasswordReset(to, token string) error {
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\nReset link: %s/reset-password?token=%s\n\nThe link expires in one hour. If you did not request this, ignore this mail.",
		s.cfg.BaseURL, token,
	)
	return s.send(to, "Password reset", body)
}

func (s *service) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error(err, "failed to send email", map[string]interface{}{
			"to":      to,
			"subject": subject,
		})
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
