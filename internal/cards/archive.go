// Package cards keeps rendered identity cards in blob storage under
// cards/<member id>/<unix millis>.png.
package cards

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"idcard/internal/blob"
)

const (
	keyPrefix   = "cards/"
	contentType = "image/png"
	// maxKeyBumps bounds how far Save shifts the timestamp when two cards for
	// one member land in the same millisecond.
	maxKeyBumps = 16
)

// Archive stores and retrieves rendered cards.
type Archive struct {
	store blob.Store
	now   func() time.Time
}

// Option configures an Archive.
type Option func(*Archive)

// WithNow overrides the timestamp source used for keys.
func WithNow(now func() time.Time) Option {
	return func(a *Archive) {
		if now != nil {
			a.now = now
		}
	}
}

// NewArchive wraps store.
func NewArchive(store blob.Store, opts ...Option) *Archive {
	a := &Archive{store: store, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Prefix returns the key prefix holding every card of memberID.
func Prefix(memberID string) string {
	return keyPrefix + memberID + "/"
}

// Key returns the archive key for a card rendered at t.
func Key(memberID string, t time.Time) string {
	return Prefix(memberID) + strconv.FormatInt(t.UnixMilli(), 10) + ".png"
}

// Save stores png as the newest card of memberID.
func (a *Archive) Save(ctx context.Context, memberID string, png []byte) (blob.Info, error) {
	at := a.now()
	for i := 0; i < maxKeyBumps; i++ {
		key := Key(memberID, at)
		info, err := a.store.Put(ctx, key, bytes.NewReader(png), blob.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"member-id": memberID},
		})
		if err == nil {
			return info, nil
		}
		if !errors.Is(err, blob.ErrExists) {
			return blob.Info{}, fmt.Errorf("archive card for %s: %w", memberID, err)
		}
		at = at.Add(time.Millisecond)
	}
	return blob.Info{}, fmt.Errorf("archive card for %s: %w", memberID, blob.ErrExists)
}

// History lists the stored cards of memberID, oldest first.
func (a *Archive) History(ctx context.Context, memberID string) ([]blob.Info, error) {
	infos, err := a.store.List(ctx, Prefix(memberID))
	if err != nil {
		return nil, fmt.Errorf("list cards for %s: %w", memberID, err)
	}
	return infos, nil
}

// Latest returns the newest card of memberID, or ok=false when none exist.
func (a *Archive) Latest(ctx context.Context, memberID string) (data []byte, info blob.Info, ok bool, err error) {
	infos, err := a.History(ctx, memberID)
	if err != nil || len(infos) == 0 {
		return nil, blob.Info{}, false, err
	}
	newest := infos[len(infos)-1]
	info, rc, err := a.store.Get(ctx, newest.Key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, blob.Info{}, false, nil
	}
	if err != nil {
		return nil, blob.Info{}, false, fmt.Errorf("read card %s: %w", newest.Key, err)
	}
	defer func() { _ = rc.Close() }()
	data, err = io.ReadAll(rc)
	if err != nil {
		return nil, blob.Info{}, false, fmt.Errorf("read card %s: %w", newest.Key, err)
	}
	return data, info, true, nil
}

// URL returns a shareable link for key, or "" when the backend cannot sign.
func (a *Archive) URL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := a.store.PresignURL(ctx, key, blob.SignedURLOptions{Expiry: expiry})
	if errors.Is(err, blob.ErrUnsupported) {
		return "", nil
	}
	return u, err
}

// Purge deletes every card of memberID and reports how many were removed.
func (a *Archive) Purge(ctx context.Context, memberID string) (int, error) {
	infos, err := a.History(ctx, memberID)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, info := range infos {
		ok, err := a.store.Delete(ctx, info.Key)
		if err != nil {
			return removed, fmt.Errorf("delete card %s: %w", info.Key, err)
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}
