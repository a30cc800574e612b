package notify

import (
	"github.com/example/storefront/pkg/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Mailer interface {
	Send(msg *Message) error
}

// NewMailer returns an SMTP mailer, or a logging one when no host is configured.
func NewMailer(cfg config.MailConfig, logger *zap.Logger) Mailer {
	if cfg.Host == "" {
		return &LogMailer{from: cfg.From, logger: logger}
	}
	return NewSMTPMailer(cfg)
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) compose(msg *Message) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To...)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)
	return gm
}

func (m *SMTPMailer) Send(msg *Message) error {
	return m.dialer.DialAndSend(m.compose(msg))
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	from   string
	logger *zap.Logger
}

func (m *LogMailer) Send(msg *Message) error {
	m.logger.Info("Mail not sent, no SMTP host configured",
		zap.String("kind", string(msg.Kind)),
		zap.String("from", m.from),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
