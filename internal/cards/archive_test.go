package cards

import (
	"bytes"
	"context"
	"testing"
	"time"

	"idcard/internal/blob"
)

func TestArchiveSaveLatestPurge(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	archive := NewArchive(blob.NewMemory(), WithNow(func() time.Time { return clock }))

	if _, ok, _ := latestOK(t, archive, "482913"); ok {
		t.Fatalf("expected no card yet")
	}

	first, err := archive.Save(ctx, "482913", []byte("first"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if first.Key != "cards/482913/1773480600000.png" || first.ContentType != "image/png" {
		t.Fatalf("unexpected info %+v", first)
	}
	// Same millisecond: key is bumped rather than overwritten.
	second, err := archive.Save(ctx, "482913", []byte("second"))
	if err != nil {
		t.Fatalf("save again: %v", err)
	}
	if second.Key != "cards/482913/1773480600001.png" {
		t.Fatalf("expected bumped key, got %s", second.Key)
	}
	if _, err := archive.Save(ctx, "555555", []byte("other")); err != nil {
		t.Fatalf("save other: %v", err)
	}

	data, ok, info := latestOK(t, archive, "482913")
	if !ok || !bytes.Equal(data, []byte("second")) || info.Key != second.Key {
		t.Fatalf("latest returned %q ok=%v key=%s", data, ok, info.Key)
	}

	url, err := archive.URL(ctx, second.Key, time.Minute)
	if err != nil || url != "" {
		t.Fatalf("memory backend should yield empty url, got %q err=%v", url, err)
	}

	removed, err := archive.Purge(ctx, "482913")
	if err != nil || removed != 2 {
		t.Fatalf("purge: removed=%d err=%v", removed, err)
	}
	if _, ok, _ := latestOK(t, archive, "482913"); ok {
		t.Fatalf("purge left cards behind")
	}
	history, _ := archive.History(ctx, "555555")
	if len(history) != 1 {
		t.Fatalf("purge touched another member: %+v", history)
	}
}

func TestArchiveURLFromFilesystem(t *testing.T) {
	store, err := blob.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("fs: %v", err)
	}
	archive := NewArchive(store)
	info, err := archive.Save(context.Background(), "482913", []byte("png"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	url, err := archive.URL(context.Background(), info.Key, 0)
	if err != nil || url == "" {
		t.Fatalf("expected file url, got %q err=%v", url, err)
	}
}

func latestOK(t *testing.T, a *Archive, id string) ([]byte, bool, blob.Info) {
	t.Helper()
	data, info, ok, err := a.Latest(context.Background(), id)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	return data, ok, info
}
