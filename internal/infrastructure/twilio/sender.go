// Package twilio sends SMS through the Twilio Messages REST API.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-ticket-otp/internal/config"
)

const defaultBaseURL = "https://api.twilio.com/2010-04-01"

type Sender struct {
	sid       string
	authToken string
	from      string
	baseURL   string
	client    *http.Client
}

func NewSender(cfg *config.Config) (*Sender, error) {
	if cfg.TwilioSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFrom == "" {
		return nil, fmt.Errorf("twilio: TWILIO_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM are required")
	}
	return &Sender{
		sid:       cfg.TwilioSID,
		authToken: cfg.TwilioAuthToken,
		from:      cfg.TwilioFrom,
		baseURL:   defaultBaseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Sender) SendSMS(ctx context.Context, to, message string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.from)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, url.PathEscape(s.sid))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.sid, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	var ae apiError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&ae)
	return fmt.Errorf("twilio: status %d code %d: %s", resp.StatusCode, ae.Code, ae.Message)
}
