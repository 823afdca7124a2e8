package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"idcard/internal/blob/blobtest"
	"idcard/internal/blob/core"
)

func TestMemoryStoreContract(t *testing.T) {
	blobtest.Run(t, New())
}

func TestMemoryStoreIsolatesMetadata(t *testing.T) {
	s := New()
	meta := map[string]string{"k": "v"}
	if _, err := s.Put(context.Background(), "a", strings.NewReader("x"), core.PutOptions{Metadata: meta}); err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["k"] = "changed"
	info, err := s.Head(context.Background(), "a")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	info.Metadata["k"] = "mutated"
	again, _ := s.Head(context.Background(), "a")
	if again.Metadata["k"] != "v" {
		t.Fatalf("metadata aliased: %+v", again.Metadata)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestMemoryStorePutReadError(t *testing.T) {
	s := New()
	if _, err := s.Put(context.Background(), "a", failingReader{}, core.PutOptions{}); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected read error, got %v", err)
	}
	if _, err := s.PresignURL(context.Background(), "a", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
