package s3infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-ticket-otp/internal/domain"
	"github.com/go-ticket-otp/internal/pkg/id"
)

type uploader interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// DeadLetterStore archives rejected queue messages as JSON objects.
type DeadLetterStore struct {
	up     uploader
	prefix string
}

func NewDeadLetterStore(up uploader) *DeadLetterStore {
	return &DeadLetterStore{up: up, prefix: "dead-letter"}
}

// Archive writes dl under dead-letter/<queue>/<ulid>.json.
func (d *DeadLetterStore) Archive(ctx context.Context, dl domain.DeadLetter) error {
	body, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}
	key := d.key(dl.Queue)
	url, err := d.up.Upload(ctx, key, bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	slog.Warn("message dead-lettered", "queue", dl.Queue, "reason", dl.Reason, "object", url)
	return nil
}

func (d *DeadLetterStore) key(queue string) string {
	q := strings.NewReplacer("/", "_", " ", "_").Replace(queue)
	if q == "" {
		q = "unknown"
	}
	return fmt.Sprintf("%s/%s/%s.json", d.prefix, q, id.New())
}
