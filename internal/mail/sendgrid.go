package mail

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"dailypages/internal/config"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
	requestTimeout   = 30 * time.Second
)

// SendGridSender sends through the SendGrid v3 API. A token bucket keeps concurrent
// workers under the configured request rate.
type SendGridSender struct {
	apiKey  string
	host    string
	from    *sgmail.Email
	limiter *rate.Limiter
	client  *rest.Client
}

var _ Sender = (*SendGridSender)(nil)

// NewSendGridSender builds a sender from the mail settings.
func NewSendGridSender(cfg config.MailConfig) (*SendGridSender, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("mail from address is required")
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &SendGridSender{
		apiKey:  cfg.APIKey,
		host:    sendGridHost,
		from:    sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		limiter: rate.NewLimiter(limit, burst),
		client: &rest.Client{HTTPClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   requestTimeout,
		}},
	}, nil
}

// Send posts one message. 429 and 5xx answers are returned as plain errors so the caller may
// retry; any other non-2xx answer wraps ErrRejected.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	m := sgmail.NewSingleEmail(s.from, msg.Subject, sgmail.NewEmail("", msg.To), msg.Text, msg.HTML)
	req := sendgrid.GetRequest(s.apiKey, sendGridEndpoint, s.host)
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(m)

	resp, err := s.client.SendWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, resp.Body)
	}
}
