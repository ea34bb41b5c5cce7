// Package mail sends transactional email through SendGrid. Delivery is best
// effort: callers receive an explicit NotificationResult instead of a hard
// error so a failed email never rolls back the action that triggered it.
package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sethvargo/go-retry"
	"github.com/verdanthq/verdant-backend/pkg/config"
	"github.com/verdanthq/verdant-backend/pkg/logger"
	"github.com/verdanthq/verdant-backend/pkg/metrics"
)

// Message describes one outbound email.
type Message struct {
	Kind     string
	To       string
	ToName   string
	Subject  string
	PlainTxt string
	HTML     string
}

// NotificationResult reports what happened to a best-effort delivery.
type NotificationResult struct {
	Kind      string
	Recipient string
	Delivered bool
	Attempts  int
	Err       error
}

// Mailer is the outbound email surface used by services.
type Mailer interface {
	Send(ctx context.Context, msg Message) NotificationResult
}

// SendgridMailer delivers messages through the SendGrid v3 API.
type SendgridMailer struct {
	send        func(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
	from        *sgmail.Email
	maxAttempts int
	metrics     *metrics.Metrics
	logg        *logger.Logger
}

// NewSendgrid constructs a mailer from configuration. Returns an error when
// mail is not configured; callers should fall back to a NoopMailer.
func NewSendgrid(cfg config.MailConfig, m *metrics.Metrics, logg *logger.Logger) (*SendgridMailer, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("sendgrid api key is not configured")
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	client := sendgrid.NewSendClient(cfg.SendgridAPIKey)
	return &SendgridMailer{
		send:        client.SendWithContext,
		from:        sgmail.NewEmail(cfg.FromName, cfg.DefaultFrom),
		maxAttempts: attempts,
		metrics:     m,
		logg:        logg,
	}, nil
}

// Send delivers the message, retrying transient failures with backoff.
func (s *SendgridMailer) Send(ctx context.Context, msg Message) NotificationResult {
	result := NotificationResult{Kind: msg.Kind, Recipient: msg.To}
	if msg.To == "" {
		result.Err = fmt.Errorf("recipient address is required")
		s.observe(ctx, result)
		return result
	}

	email := sgmail.NewSingleEmail(s.from, msg.Subject, sgmail.NewEmail(msg.ToName, msg.To), msg.PlainTxt, msg.HTML)

	backoff := retry.WithMaxRetries(uint64(s.maxAttempts-1), retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		result.Attempts++
		resp, sendErr := s.send(ctx, email)
		if sendErr != nil {
			return retry.RetryableError(sendErr)
		}
		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("sendgrid returned %d", resp.StatusCode))
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("sendgrid rejected message with %d", resp.StatusCode)
		}
		return nil
	})

	result.Delivered = err == nil
	result.Err = err
	s.observe(ctx, result)
	return result
}

func (s *SendgridMailer) observe(ctx context.Context, result NotificationResult) {
	s.metrics.ObserveMail(result.Kind, result.Delivered)
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"kind":      result.Kind,
		"recipient": result.Recipient,
		"attempts":  result.Attempts,
	})
	if result.Delivered {
		s.logg.Info(ctx, "email delivered")
		return
	}
	s.logg.Warn(ctx, fmt.Sprintf("email delivery failed: %v", result.Err))
}

// NoopMailer is used when outbound email is not configured.
type NoopMailer struct{}

// Send records the message as skipped without contacting any provider.
func (NoopMailer) Send(_ context.Context, msg Message) NotificationResult {
	return NotificationResult{Kind: msg.Kind, Recipient: msg.To, Delivered: false, Err: nil}
}
