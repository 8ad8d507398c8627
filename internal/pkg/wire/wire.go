// Package wire encodes delivery jobs for the queues.
//
// Version 1 is a JSON envelope with explicit fields. Decode also accepts the
// older pipe-delimited form "recipient|name|code|task_id[|is_retry]" so that
// messages already sitting in a queue are still processed.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-ticket-otp/internal/domain"
)

// Version is the envelope version written by Encode.
const Version = 1

type envelope struct {
	V         int            `json:"v"`
	Channel   domain.Channel `json:"channel,omitempty"`
	Recipient string         `json:"recipient"`
	Name      string         `json:"name"`
	Code      string         `json:"code"`
	TaskID    string         `json:"task_id"`
	IsRetry   bool           `json:"is_retry"`
}

// Encode serializes job as a version 1 envelope.
func Encode(job domain.DeliveryJob) ([]byte, error) {
	if err := validate(job); err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		V:         Version,
		Channel:   job.Channel,
		Recipient: job.Recipient,
		Name:      job.DisplayName,
		Code:      job.Code,
		TaskID:    job.TaskID,
		IsRetry:   job.IsRetry,
	})
}

// Decode parses a queue message body. Every failure wraps domain.ErrMalformedMessage.
func Decode(body []byte) (domain.DeliveryJob, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return domain.DeliveryJob{}, fmt.Errorf("empty body: %w", domain.ErrMalformedMessage)
	}
	if trimmed[0] == '{' {
		return decodeEnvelope(trimmed)
	}
	return decodeLegacy(string(trimmed))
}

func decodeEnvelope(b []byte) (domain.DeliveryJob, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return domain.DeliveryJob{}, fmt.Errorf("decode envelope: %v: %w", err, domain.ErrMalformedMessage)
	}
	if env.V != Version {
		return domain.DeliveryJob{}, fmt.Errorf("unsupported envelope version %d: %w", env.V, domain.ErrMalformedMessage)
	}
	if env.Channel != "" && !env.Channel.Valid() {
		return domain.DeliveryJob{}, fmt.Errorf("unknown channel %q: %w", env.Channel, domain.ErrMalformedMessage)
	}
	job := domain.DeliveryJob{
		Channel:     env.Channel,
		Recipient:   env.Recipient,
		DisplayName: env.Name,
		Code:        env.Code,
		TaskID:      env.TaskID,
		IsRetry:     env.IsRetry,
	}
	return job, validate(job)
}

func decodeLegacy(s string) (domain.DeliveryJob, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 4 && len(parts) != 5 {
		return domain.DeliveryJob{}, fmt.Errorf("expected 4 or 5 fields, got %d: %w", len(parts), domain.ErrMalformedMessage)
	}
	job := domain.DeliveryJob{
		Recipient:   parts[0],
		DisplayName: parts[1],
		Code:        parts[2],
		TaskID:      parts[3],
	}
	if len(parts) == 5 {
		switch parts[4] {
		case "0", "":
		case "1":
			job.IsRetry = true
		default:
			return domain.DeliveryJob{}, fmt.Errorf("bad retry flag %q: %w", parts[4], domain.ErrMalformedMessage)
		}
	}
	return job, validate(job)
}

func validate(job domain.DeliveryJob) error {
	switch {
	case job.Recipient == "":
		return fmt.Errorf("missing recipient: %w", domain.ErrMalformedMessage)
	case job.Code == "":
		return fmt.Errorf("missing code: %w", domain.ErrMalformedMessage)
	case job.TaskID == "":
		return fmt.Errorf("missing task_id: %w", domain.ErrMalformedMessage)
	}
	return nil
}
