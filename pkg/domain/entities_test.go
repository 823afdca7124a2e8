package domain

import (
	"errors"
	"testing"
	"time"
)

func TestValidID(t *testing.T) {
	cases := map[string]bool{
		"482913":  true,
		"100000":  true,
		"999999":  true,
		"012345":  false,
		"99999":   false,
		"1000000": false,
		"12a456":  false,
		"":        false,
		" 48291":  false,
	}
	for id, want := range cases {
		if got := ValidID(id); got != want {
			t.Errorf("ValidID(%q)=%v want %v", id, got, want)
		}
	}
}

func TestParseStatusNormalizes(t *testing.T) {
	for _, raw := range []string{"active", " Active ", "ACTIVE"} {
		s, err := ParseStatus(raw)
		if err != nil || s != StatusActive {
			t.Fatalf("ParseStatus(%q)=%q,%v", raw, s, err)
		}
	}
	if s, err := ParseStatus("revoked"); err != nil || s != StatusRevoked {
		t.Fatalf("revoked: %q,%v", s, err)
	}
	_, err := ParseStatus("GONE")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "status" {
		t.Fatalf("expected status field, got %#v", err)
	}
}

func TestStatusesAreValid(t *testing.T) {
	for _, s := range Statuses() {
		if !s.Valid() {
			t.Fatalf("%s should be valid", s)
		}
	}
	if Status("active").Valid() {
		t.Fatal("statuses are stored upper case")
	}
}

func TestIssueFieldsFromCreationInstant(t *testing.T) {
	created := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	if got := InternalIDFor(created); got != "UOI-1773480600000" {
		t.Fatalf("InternalIDFor=%q", got)
	}
	if got := IssuedOnFor(created); got != "Mar 14, 2026" {
		t.Fatalf("IssuedOnFor=%q", got)
	}
}

func TestMemberValidate(t *testing.T) {
	created := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	valid := Member{
		ID:         "482913",
		Name:       "Asha Rao",
		Role:       "Volunteer",
		Status:     StatusActive,
		IssuedOn:   IssuedOnFor(created),
		InternalID: InternalIDFor(created),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid member rejected: %v", err)
	}
	cases := []struct {
		field  string
		mutate func(*Member)
	}{
		{"id", func(m *Member) { m.ID = "12" }},
		{"name", func(m *Member) { m.Name = "  " }},
		{"role", func(m *Member) { m.Role = "" }},
		{"status", func(m *Member) { m.Status = "GONE" }},
		{"issued_on", func(m *Member) { m.IssuedOn = "" }},
		{"internal_id", func(m *Member) { m.InternalID = "" }},
	}
	for _, c := range cases {
		m := valid
		c.mutate(&m)
		var ve *ValidationError
		if err := m.Validate(); !errors.As(err, &ve) || ve.Field != c.field {
			t.Errorf("%s: got %v", c.field, err)
		}
	}
}

func TestUnavailableWrapsCause(t *testing.T) {
	if Unavailable("get", nil) != nil {
		t.Fatal("nil cause should stay nil")
	}
	cause := errors.New("dial tcp: connection refused")
	err := Unavailable("get member", cause)
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("wrap lost a target: %v", err)
	}
	if err.Error() != "get member: member store unavailable: dial tcp: connection refused" {
		t.Fatalf("message %q", err.Error())
	}
}
