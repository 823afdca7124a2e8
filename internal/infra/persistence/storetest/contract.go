// Package storetest holds the behavioural contract every domain.MemberStore
// backend must satisfy. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"idcard/pkg/domain"
)

// Factory returns a fresh, empty store. Cleanup is registered by the factory.
type Factory func(t *testing.T) domain.MemberStore

// Fixture returns a valid member with the supplied id.
func Fixture(id string) domain.Member {
	created := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	return domain.Member{
		ID:         id,
		Name:       "Asha Rao",
		Role:       "Volunteer",
		Status:     domain.StatusActive,
		IssuedOn:   domain.IssuedOnFor(created),
		InternalID: domain.InternalIDFor(created),
	}
}

// Run executes the full contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	ctx := context.Background()

	t.Run("create then get returns identical record", func(t *testing.T) {
		store := newStore(t)
		want := Fixture("482913")
		if err := store.Create(ctx, want); err != nil {
			t.Fatalf("create: %v", err)
		}
		got, ok, err := store.Get(ctx, want.ID)
		if err != nil || !ok {
			t.Fatalf("get: ok=%v err=%v", ok, err)
		}
		if got != want {
			t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
		}
	})

	t.Run("create rejects duplicate id without overwriting", func(t *testing.T) {
		store := newStore(t)
		first := Fixture("111111")
		if err := store.Create(ctx, first); err != nil {
			t.Fatalf("create: %v", err)
		}
		second := Fixture("111111")
		second.Name = "Someone Else"
		err := store.Create(ctx, second)
		if !errors.Is(err, domain.ErrDuplicateID) {
			t.Fatalf("expected ErrDuplicateID, got %v", err)
		}
		got, _, _ := store.Get(ctx, "111111")
		if got.Name != first.Name {
			t.Fatalf("duplicate create overwrote record: %+v", got)
		}
	})

	t.Run("get missing reports not found without error", func(t *testing.T) {
		store := newStore(t)
		_, ok, err := store.Get(ctx, "999999")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if ok {
			t.Fatalf("expected not found")
		}
	})

	t.Run("update status and role", func(t *testing.T) {
		store := newStore(t)
		m := Fixture("222222")
		if err := store.Create(ctx, m); err != nil {
			t.Fatalf("create: %v", err)
		}
		if ok, err := store.UpdateStatus(ctx, m.ID, domain.StatusSuspended); err != nil || !ok {
			t.Fatalf("update status: ok=%v err=%v", ok, err)
		}
		if ok, err := store.UpdateRole(ctx, m.ID, "Coordinator"); err != nil || !ok {
			t.Fatalf("update role: ok=%v err=%v", ok, err)
		}
		got, _, err := store.Get(ctx, m.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		want := m
		want.Status = domain.StatusSuspended
		want.Role = "Coordinator"
		if got != want {
			t.Fatalf("after update:\n got %+v\nwant %+v", got, want)
		}
	})

	t.Run("mutators on missing id create nothing", func(t *testing.T) {
		store := newStore(t)
		if ok, err := store.UpdateStatus(ctx, "333333", domain.StatusRevoked); err != nil || ok {
			t.Fatalf("update status missing: ok=%v err=%v", ok, err)
		}
		if ok, err := store.UpdateRole(ctx, "333333", "Ghost"); err != nil || ok {
			t.Fatalf("update role missing: ok=%v err=%v", ok, err)
		}
		if ok, err := store.Reissue(ctx, "333333", "Ghost", "Ghost", domain.StatusActive); err != nil || ok {
			t.Fatalf("reissue missing: ok=%v err=%v", ok, err)
		}
		if ok, err := store.Delete(ctx, "333333"); err != nil || ok {
			t.Fatalf("delete missing: ok=%v err=%v", ok, err)
		}
		all, err := store.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(all) != 0 {
			t.Fatalf("expected empty store, got %d records", len(all))
		}
	})

	t.Run("delete removes record", func(t *testing.T) {
		store := newStore(t)
		m := Fixture("444444")
		if err := store.Create(ctx, m); err != nil {
			t.Fatalf("create: %v", err)
		}
		if ok, err := store.Delete(ctx, m.ID); err != nil || !ok {
			t.Fatalf("delete: ok=%v err=%v", ok, err)
		}
		if _, ok, err := store.Get(ctx, m.ID); err != nil || ok {
			t.Fatalf("get after delete: ok=%v err=%v", ok, err)
		}
	})

	t.Run("list empty and populated", func(t *testing.T) {
		store := newStore(t)
		all, err := store.List(ctx)
		if err != nil {
			t.Fatalf("list empty: %v", err)
		}
		if all == nil || len(all) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", all)
		}
		for _, id := range []string{"500001", "500002", "500003"} {
			if err := store.Create(ctx, Fixture(id)); err != nil {
				t.Fatalf("create %s: %v", id, err)
			}
		}
		all, err = store.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		ids := make([]string, 0, len(all))
		for _, m := range all {
			ids = append(ids, m.ID)
		}
		sort.Strings(ids)
		if fmt.Sprint(ids) != "[500001 500002 500003]" {
			t.Fatalf("unexpected ids %v", ids)
		}
	})

	t.Run("owner binding and reissue preserve issue data", func(t *testing.T) {
		store := newStore(t)
		m := Fixture("600600")
		m.OwnerRef = "270655486318215168"
		if err := store.Create(ctx, m); err != nil {
			t.Fatalf("create: %v", err)
		}
		found, ok, err := store.FindByOwner(ctx, m.OwnerRef)
		if err != nil || !ok || found.ID != m.ID {
			t.Fatalf("find by owner: %+v ok=%v err=%v", found, ok, err)
		}
		if ok, err := store.Reissue(ctx, m.ID, "Asha R.", "Lead", domain.StatusActive); err != nil || !ok {
			t.Fatalf("reissue: ok=%v err=%v", ok, err)
		}
		got, _, _ := store.Get(ctx, m.ID)
		if got.IssuedOn != m.IssuedOn || got.InternalID != m.InternalID || got.OwnerRef != m.OwnerRef {
			t.Fatalf("reissue touched immutable fields: %+v", got)
		}
		if got.Name != "Asha R." || got.Role != "Lead" {
			t.Fatalf("reissue did not apply: %+v", got)
		}
		if _, ok, _ := store.FindByOwner(ctx, "nobody"); ok {
			t.Fatalf("expected unknown owner to be absent")
		}
		other := Fixture("600601")
		other.OwnerRef = m.OwnerRef
		if err := store.Create(ctx, other); !errors.Is(err, domain.ErrDuplicateID) {
			t.Fatalf("expected owner collision to fail with ErrDuplicateID, got %v", err)
		}
		if _, err := store.Delete(ctx, m.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, ok, _ := store.FindByOwner(ctx, m.OwnerRef); ok {
			t.Fatalf("owner binding survived delete")
		}
	})

	t.Run("concurrent status updates leave a whole record", func(t *testing.T) {
		store := newStore(t)
		m := Fixture("700700")
		if err := store.Create(ctx, m); err != nil {
			t.Fatalf("create: %v", err)
		}
		var wg sync.WaitGroup
		statuses := domain.Statuses()
		for i := 0; i < 24; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _ = store.UpdateStatus(ctx, m.ID, statuses[i%len(statuses)])
				_, _, _ = store.Get(ctx, m.ID)
			}(i)
		}
		wg.Wait()
		got, ok, err := store.Get(ctx, m.ID)
		if err != nil || !ok {
			t.Fatalf("get: ok=%v err=%v", ok, err)
		}
		if !got.Status.Valid() {
			t.Fatalf("corrupted status %q", got.Status)
		}
		got.Status = m.Status
		if got != m {
			t.Fatalf("concurrent updates corrupted record: %+v", got)
		}
	})
}
