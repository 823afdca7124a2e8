package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"idcard/internal/blob/blobtest"
	"idcard/internal/blob/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return s
}

func TestFilesystemStoreContract(t *testing.T) {
	blobtest.Run(t, newStore(t))
}

func TestSanitizeKey(t *testing.T) {
	for _, bad := range []string{"", "  ", "../escape", "/abs", "a/../b", "card.png.meta"} {
		if _, err := sanitizeKey(bad); err == nil {
			t.Fatalf("expected error for key %q", bad)
		}
	}
	got, err := sanitizeKey("cards//482913/./1.png")
	if err != nil || got != "cards/482913/1.png" {
		t.Fatalf("unexpected clean key %q err=%v", got, err)
	}
}

func TestFilesystemLayoutAndPresign(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.Put(ctx, "cards/482913/1.png", strings.NewReader("png"), core.PutOptions{ContentType: "image/png"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	data := filepath.Join(s.Root(), "cards", "482913", "1.png")
	if _, err := os.Stat(data); err != nil {
		t.Fatalf("data file missing: %v", err)
	}
	if _, err := os.Stat(data + ".meta"); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	url, err := s.PresignURL(ctx, "cards/482913/1.png", core.SignedURLOptions{})
	if err != nil || !strings.HasPrefix(url, "file://") || !strings.HasSuffix(url, "/cards/482913/1.png") {
		t.Fatalf("unexpected url %q err=%v", url, err)
	}
	if _, err := s.PresignURL(ctx, "cards/482913/missing.png", core.SignedURLOptions{}); err == nil {
		t.Fatalf("expected presign of missing key to fail")
	}
}

func TestFilesystemConcurrentPutSingleWinner(t *testing.T) {
	s := newStore(t)
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Put(context.Background(), "race.png", strings.NewReader("x"), core.PutOptions{}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one successful put, got %d", wins)
	}
}

func TestFilesystemListCorruptSidecar(t *testing.T) {
	s := newStore(t)
	if err := os.WriteFile(filepath.Join(s.Root(), "bad.png.meta"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.List(context.Background(), ""); err == nil {
		t.Fatalf("expected corrupt sidecar to fail list")
	}
}
