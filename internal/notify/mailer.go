package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"viagens/internal/config"
	"viagens/internal/models"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

var ErrNoRecipients = errors.New("email has no recipients")

// SMTPMailer delivers email through an SMTP relay.
type SMTPMailer struct {
	cfg    config.MailConfig
	logger *zerolog.Logger
}

func NewSMTPMailer(cfg config.MailConfig, logger *zerolog.Logger) *SMTPMailer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SMTPMailer{cfg: cfg, logger: logger}
}

func (m *SMTPMailer) Send(ctx context.Context, msg *models.EmailMessage) error {
	out, err := m.build(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info().Strs("to", msg.To).Str("subject", msg.Subject).Int("attachments", len(msg.Attachments)).Msg("email sent")
	return nil
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{mail.WithPort(m.cfg.Port)}
	if m.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

func (m *SMTPMailer) build(msg *models.EmailMessage) (*mail.Msg, error) {
	if msg == nil || len(msg.To) == 0 {
		return nil, ErrNoRecipients
	}

	out := mail.NewMsg()
	if err := out.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}
	if err := out.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipients: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Body)

	for _, a := range msg.Attachments {
		var opts []mail.FileOption
		if a.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(a.ContentType)))
		}
		if err := out.AttachReader(a.Name, bytes.NewReader(a.Data), opts...); err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", a.Name, err)
		}
	}
	return out, nil
}

// LogMailer only logs messages. Used when SMTP is not configured.
type LogMailer struct {
	logger *zerolog.Logger
}

func NewLogMailer(logger *zerolog.Logger) *LogMailer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg *models.EmailMessage) error {
	if msg == nil || len(msg.To) == 0 {
		return ErrNoRecipients
	}
	m.logger.Info().Strs("to", msg.To).Str("subject", msg.Subject).Msg("mail disabled, message not sent")
	return nil
}
