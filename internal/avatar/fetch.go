// Package avatar loads avatar image bytes for card rendering.
package avatar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// MaxBytes caps how much of an avatar response is read.
const MaxBytes = 8 << 20

// Func loads avatar bytes.
type Func func(ctx context.Context) ([]byte, error)

// HTTPFetcher downloads avatars over HTTP.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher uses client, or a client with a 5s timeout when nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPFetcher{client: client}
}

// Fetch GETs url and returns the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build avatar request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch avatar: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch avatar: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read avatar: %w", err)
	}
	if len(data) > MaxBytes {
		return nil, fmt.Errorf("avatar exceeds %d bytes", MaxBytes)
	}
	return data, nil
}

// URL binds url to a Func. An empty url yields nil.
func (f *HTTPFetcher) URL(url string) Func {
	if url == "" {
		return nil
	}
	return func(ctx context.Context) ([]byte, error) {
		return f.Fetch(ctx, url)
	}
}

// File returns a Func reading path. An empty path yields nil.
func File(path string) Func {
	if path == "" {
		return nil
	}
	return func(context.Context) ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read avatar file: %w", err)
		}
		return data, nil
	}
}
