package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const defaultTwilioBaseURL = "https://api.twilio.com"

// TwilioConfig holds what the Messages API needs. Credentials come from the
// environment; see internal/config.
type TwilioConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string // e.g. "whatsapp:+14155238886"
	Timeout    time.Duration
	// SendsPerSecond caps outgoing messages; zero means no limit.
	SendsPerSecond float64
}

// twilioMessage is the subset of the Messages API response we log.
type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// twilioError is the error body returned by the API.
type twilioError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

// TwilioNotifier sends payloads through the Twilio Messages API.
type TwilioNotifier struct {
	client  *resty.Client
	sid     string
	from    string
	limiter *rate.Limiter
}

// NewTwilioNotifier builds a notifier from cfg. It performs no network I/O.
func NewTwilioNotifier(cfg TwilioConfig) (*TwilioNotifier, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, fmt.Errorf("twilio: account sid, auth token and sender are required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultTwilioBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetHeader("Accept", "application/json")

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.SendsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.SendsPerSecond), 1)
	}

	return &TwilioNotifier{client: client, sid: cfg.AccountSID, from: cfg.From, limiter: limiter}, nil
}

// Send posts payload to destination. Any transport error, rate-limit wait
// failure or non-2xx answer is reported as ErrDeliveryFailed.
func (n *TwilioNotifier) Send(ctx context.Context, payload, destination string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit wait: %v", ErrDeliveryFailed, err)
	}

	var msg twilioMessage
	var apiErr twilioError
	resp, err := n.client.R().
		SetContext(ctx).
		SetPathParam("sid", n.sid).
		SetFormData(map[string]string{
			"From": n.from,
			"To":   destination,
			"Body": payload,
		}).
		SetResult(&msg).
		SetError(&apiErr).
		Post("/2010-04-01/Accounts/{sid}/Messages.json")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: twilio %s: code %d: %s", ErrDeliveryFailed, resp.Status(), apiErr.Code, apiErr.Message)
	}

	slog.InfoContext(ctx, "order notification sent",
		"destination", destination,
		"message_sid", msg.SID,
		"status", msg.Status,
	)
	return nil
}
