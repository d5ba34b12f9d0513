package supabase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"community-hub/internal/apierror"
	"community-hub/internal/backend"
	"community-hub/internal/observability/metrics"
	"community-hub/internal/resilience/circuitbreaker"
)

// Storage uploads objects to Supabase Storage buckets.
type Storage struct {
	client  *Client
	breaker *circuitbreaker.CircuitBreaker
}

var _ backend.Storage = (*Storage)(nil)

func newStorage(c *Client) *Storage {
	cfg := circuitbreaker.StorageConfig()
	cfg.OnStateChange = recordBreakerState
	// A rejected upload (bad bucket, RLS, oversized object) is the caller's
	// problem and must not trip the breaker for everyone else.
	cfg.IsSuccessful = func(err error) bool {
		return !apierror.CountsAsFailure(err)
	}
	return &Storage{client: c, breaker: circuitbreaker.New(cfg)}
}

// Storage returns the object storage surface, guarded by its own circuit
// breaker.
func (c *Client) Storage() *Storage {
	return c.storage
}

func recordBreakerState(name string, _, to gobreaker.State) {
	metrics.RecordCircuitState(name, to.String())
}

// Upload stores body under a unique name derived from name and returns the
// object path within bucket.
func (s *Storage) Upload(ctx context.Context, bucket, name, contentType string, body io.Reader) (string, error) {
	if bucket == "" {
		return "", fmt.Errorf("upload: bucket is required")
	}
	objectPath := uuid.NewString() + "-" + cleanName(name)

	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.put(ctx, bucket, objectPath, contentType, body)
	})
	metrics.RecordStorageUpload(bucket, err == nil)
	if err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, objectPath, err)
	}
	return objectPath, nil
}

func (s *Storage) put(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) error {
	req, err := s.client.newRequest(ctx, http.MethodPost,
		"/storage/v1/object/"+url.PathEscape(bucket)+"/"+url.PathEscape(objectPath), body)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	res, err := s.client.do(req)
	if err != nil {
		return err
	}
	return res.Err()
}

// PublicURL returns the public download URL of an object in a public bucket.
func (s *Storage) PublicURL(bucket, objectPath string) string {
	return s.client.baseURL + "/storage/v1/object/public/" +
		url.PathEscape(bucket) + "/" + url.PathEscape(objectPath)
}

// cleanName keeps the base name of a client-supplied file name and replaces
// characters that are awkward in object keys.
func cleanName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
