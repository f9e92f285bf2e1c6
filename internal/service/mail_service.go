package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

const mailAttempts = 3

// ResultMailJob is the payload of the result e-mail queue.
type ResultMailJob struct {
	ResultID string `json:"result_id"`
	Attempts int    `json:"attempts,omitempty"`
	QueuedAt int64  `json:"queued_at"`
}

// EmailSender delivers one e-mail. It is implemented by the Resend client's
// Emails service.
type EmailSender interface {
	SendWithOptions(ctx context.Context, params *resend.SendEmailRequest, options *resend.SendEmailOptions) (*resend.SendEmailResponse, error)
}

// MailService queues and sends result e-mails.
type MailService struct {
	rdb    *redis.Client
	sender EmailSender
	from   string
	log    zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewMailService creates a MailService backed by Resend.
func NewMailService(cfg *config.Config, rdb *redis.Client, log zerolog.Logger) (*MailService, error) {
	if cfg.ResendAPIKey == "" {
		return nil, errors.New("resend api key is required")
	}
	if cfg.MailFrom == "" {
		return nil, errors.New("mail from address is required")
	}
	client := resend.NewClient(cfg.ResendAPIKey)
	return newMailService(rdb, client.Emails, cfg.MailFrom, log), nil
}

func newMailService(rdb *redis.Client, sender EmailSender, from string, log zerolog.Logger) *MailService {
	return &MailService{
		rdb:    rdb,
		sender: sender,
		from:   from,
		log:    log.With().Str("component", "mail_service").Logger(),
		sleep:  sleepCtx,
	}
}

// Enqueue implements ResultMailer.
func (s *MailService) Enqueue(ctx context.Context, resultID string) error {
	data, err := json.Marshal(ResultMailJob{ResultID: resultID, QueuedAt: time.Now().Unix()})
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, config.WorkerKey.ResultMailQueue, data).Err()
}

// SendResult e-mails a result to its student. The result id is the
// idempotency key, so a requeued job never produces a second e-mail.
func (s *MailService) SendResult(ctx context.Context, res *model.ExamResult) error {
	if res.Student.Email == "" {
		return errors.New("result has no student e-mail")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{res.Student.Email},
		Subject: fmt.Sprintf("Your result for %s", res.ClassName),
		Text:    resultText(res),
		Html:    resultHTML(res),
	}
	options := &resend.SendEmailOptions{IdempotencyKey: "result-" + res.ID}

	var lastErr error
	for attempt := 0; attempt < mailAttempts; attempt++ {
		_, err := s.sender.SendWithOptions(ctx, params, options)
		if err == nil {
			s.log.Info().Str("result_id", res.ID).Msg("Result e-mail sent")
			return nil
		}
		lastErr = err

		wait, ok := retryDelay(err, attempt)
		if !ok {
			return fmt.Errorf("send result e-mail: %w", err)
		}
		if attempt == mailAttempts-1 {
			break
		}
		if err := s.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return fmt.Errorf("send result e-mail after %d attempts: %w", mailAttempts, lastErr)
}

func retryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			return time.Duration(min(seconds, 30)) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}
	return 0, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func resultText(res *model.ExamResult) string {
	status := "did not pass"
	if res.Passed {
		status = "passed"
	}
	return fmt.Sprintf(
		"Hello %s,\n\nYou scored %d out of %d (%d%%, grade %s) on %s and %s.\n\nResult ID: %s\n",
		res.Student.Name, res.Score, res.TotalQuestions, res.Percentage, res.Grade, res.ClassName, status, res.ID,
	)
}

func resultHTML(res *model.ExamResult) string {
	status := "did not pass"
	if res.Passed {
		status = "passed"
	}
	return fmt.Sprintf(
		"<p>Hello %s,</p><p>You scored <strong>%d out of %d</strong> (%d%%, grade %s) on %s and %s.</p><p>Result ID: %s</p>",
		html.EscapeString(res.Student.Name), res.Score, res.TotalQuestions, res.Percentage,
		html.EscapeString(res.Grade), html.EscapeString(res.ClassName), status, html.EscapeString(res.ID),
	)
}
