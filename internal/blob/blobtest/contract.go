// Package blobtest is the behavioural contract shared by blob backends.
package blobtest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"idcard/internal/blob/core"
)

// Run exercises store. The store must start empty.
func Run(t *testing.T, store core.Store) {
	t.Helper()
	ctx := context.Background()
	payload := []byte("\x89PNG card bytes")

	info, err := store.Put(ctx, "cards/482913/1.png", bytes.NewReader(payload), core.PutOptions{
		ContentType: "image/png",
		Metadata:    map[string]string{"member-id": "482913"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "cards/482913/1.png" || info.Size != int64(len(payload)) {
		t.Fatalf("unexpected put info %+v", info)
	}

	got, rc, err := store.Get(ctx, "cards/482913/1.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil || !bytes.Equal(body, payload) {
		t.Fatalf("get body mismatch: %q err=%v", body, err)
	}
	if got.ContentType != "image/png" {
		t.Fatalf("content type lost: %+v", got)
	}
	if got.Metadata["member-id"] != "482913" {
		t.Fatalf("metadata lost: %+v", got.Metadata)
	}

	if _, err := store.Put(ctx, "cards/482913/1.png", strings.NewReader("other"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists on overwrite, got %v", err)
	}
	if _, err := store.Head(ctx, "cards/482913/1.png"); err != nil {
		t.Fatalf("head: %v", err)
	}
	if _, err := store.Head(ctx, "cards/000000/none.png"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "cards/000000/none.png"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}

	for _, key := range []string{"cards/482913/2.png", "cards/555555/1.png"} {
		if _, err := store.Put(ctx, key, bytes.NewReader(payload), core.PutOptions{ContentType: "image/png"}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "cards/482913/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "cards/482913/1.png" || list[1].Key != "cards/482913/2.png" {
		t.Fatalf("unexpected list %+v", list)
	}

	ok, err := store.Delete(ctx, "cards/482913/1.png")
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	ok, err = store.Delete(ctx, "cards/482913/1.png")
	if err != nil || ok {
		t.Fatalf("second delete: ok=%v err=%v", ok, err)
	}
	list, _ = store.List(ctx, "cards/")
	if len(list) != 2 {
		t.Fatalf("expected two remaining blobs, got %+v", list)
	}
}
