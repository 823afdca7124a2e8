// Package sqlstore implements domain.MemberStore over database/sql. The sqlite
// and postgres packages supply the connection and a Dialect; every operation is
// a single statement so each record write is atomic.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"idcard/pkg/domain"
)

var _ domain.MemberStore = (*Store)(nil)

// Dialect captures the syntax differences between supported SQL engines.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

// SQLite uses positional question marks.
var SQLite = Dialect{Name: "sqlite", Placeholder: func(int) string { return "?" }}

// Postgres uses numbered dollar parameters.
var Postgres = Dialect{Name: "postgres", Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) }}

// Schema is valid for both engines.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		owner_ref TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		issued_on TEXT NOT NULL,
		internal_id TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS members_owner_ref_key ON members (owner_ref) WHERE owner_ref <> ''`,
}

const memberColumns = "id, owner_ref, name, role, status, issued_on, internal_id"

// Store runs member writes against db and reads against reader.
type Store struct {
	db      *sql.DB
	reader  *sql.DB
	dialect Dialect
}

// Option configures a Store.
type Option func(*Store)

// WithReader sends reads to a separate pool. The Store closes it on Close.
func WithReader(reader *sql.DB) Option {
	return func(s *Store) {
		if reader != nil {
			s.reader = reader
		}
	}
}

// New wraps an open database. Call Migrate before first use.
func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{db: db, reader: db, dialect: dialect}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range Schema {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pools.
func (s *Store) Close() error {
	var errs []error
	if s.reader != s.db {
		errs = append(errs, s.reader.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

func (s *Store) bind(query string) string {
	if s.dialect.Placeholder == nil {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.dialect.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Create inserts m. Conflicts on id or owner_ref leave the table untouched and
// surface as ErrDuplicateID.
func (s *Store) Create(ctx context.Context, m domain.Member) error {
	if err := m.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.bind(`INSERT INTO members (`+memberColumns+`) VALUES (?,?,?,?,?,?,?) ON CONFLICT DO NOTHING`),
		m.ID, m.OwnerRef, m.Name, m.Role, string(m.Status), m.IssuedOn, m.InternalID)
	if err != nil {
		return domain.Unavailable("insert member", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Unavailable("insert member", err)
	}
	if n == 0 {
		return fmt.Errorf("member %s: %w", m.ID, domain.ErrDuplicateID)
	}
	return nil
}

// Get returns the member with id.
func (s *Store) Get(ctx context.Context, id string) (domain.Member, bool, error) {
	row := s.reader.QueryRowContext(ctx, s.bind(`SELECT `+memberColumns+` FROM members WHERE id = ?`), id)
	return scanOne(row, "select member")
}

// FindByOwner returns the member bound to ownerRef.
func (s *Store) FindByOwner(ctx context.Context, ownerRef string) (domain.Member, bool, error) {
	if ownerRef == "" {
		return domain.Member{}, false, nil
	}
	row := s.reader.QueryRowContext(ctx, s.bind(`SELECT `+memberColumns+` FROM members WHERE owner_ref = ?`), ownerRef)
	return scanOne(row, "select member by owner")
}

// UpdateStatus sets the status of an existing member.
func (s *Store) UpdateStatus(ctx context.Context, id string, status domain.Status) (bool, error) {
	return s.exec(ctx, "update status", `UPDATE members SET status = ? WHERE id = ?`, string(status), id)
}

// UpdateRole sets the role of an existing member.
func (s *Store) UpdateRole(ctx context.Context, id string, role string) (bool, error) {
	return s.exec(ctx, "update role", `UPDATE members SET role = ? WHERE id = ?`, role, id)
}

// Reissue overwrites name, role and status of an existing member.
func (s *Store) Reissue(ctx context.Context, id, name, role string, status domain.Status) (bool, error) {
	return s.exec(ctx, "reissue member", `UPDATE members SET name = ?, role = ?, status = ? WHERE id = ?`, name, role, string(status), id)
}

// Delete removes the member with id.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	return s.exec(ctx, "delete member", `DELETE FROM members WHERE id = ?`, id)
}

// List returns every member ordered by id.
func (s *Store) List(ctx context.Context) ([]domain.Member, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT `+memberColumns+` FROM members ORDER BY id`)
	if err != nil {
		return nil, domain.Unavailable("list members", err)
	}
	defer func() { _ = rows.Close() }()
	out := make([]domain.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, domain.Unavailable("scan member", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("iterate members", err)
	}
	return out, nil
}

func (s *Store) exec(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.bind(query), args...)
	if err != nil {
		return false, domain.Unavailable(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.Unavailable(op, err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (domain.Member, error) {
	var m domain.Member
	var status string
	if err := row.Scan(&m.ID, &m.OwnerRef, &m.Name, &m.Role, &status, &m.IssuedOn, &m.InternalID); err != nil {
		return domain.Member{}, err
	}
	m.Status = domain.Status(status)
	return m, nil
}

func scanOne(row *sql.Row, op string) (domain.Member, bool, error) {
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Member{}, false, nil
	}
	if err != nil {
		return domain.Member{}, false, domain.Unavailable(op, err)
	}
	return m, true, nil
}
