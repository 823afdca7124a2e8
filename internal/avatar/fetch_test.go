package avatar

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			_, _ = w.Write([]byte("png-bytes"))
		case "/huge.png":
			_, _ = w.Write(bytes.Repeat([]byte{1}, MaxBytes+10))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.Client())
	data, err := f.URL(srv.URL + "/ok.png")(context.Background())
	if err != nil || string(data) != "png-bytes" {
		t.Fatalf("fetch ok: %q %v", data, err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing.png"); err == nil || !strings.Contains(err.Error(), "unexpected status 404") {
		t.Fatalf("expected 404 error, got %v", err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/huge.png"); err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("expected size error, got %v", err)
	}
	if f.URL("") != nil {
		t.Fatalf("empty url should yield nil fetcher")
	}
}

func TestHTTPFetcherHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHTTPFetcher(nil).Fetch(ctx, srv.URL); err == nil {
		t.Fatalf("expected cancelled fetch to fail")
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	if err := os.WriteFile(path, []byte("abc"), 0o600); err != nil {
		t.Fatal(err)
	}
	data, err := File(path)(context.Background())
	if err != nil || string(data) != "abc" {
		t.Fatalf("file: %q %v", data, err)
	}
	if _, err := File(path + ".missing")(context.Background()); err == nil {
		t.Fatalf("expected missing file error")
	}
	if File("") != nil {
		t.Fatalf("empty path should yield nil")
	}
}
