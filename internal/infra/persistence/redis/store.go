// Package redis stores members as Redis hashes with an id index set and an
// owner lookup key. Multi-key writes run inside WATCH transactions.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"idcard/pkg/domain"
)

var _ domain.MemberStore = (*Store)(nil)

// DefaultNamespace is used when no namespace is configured.
const DefaultNamespace = "default"

const maxTxRetries = 8

// setFieldsIfExists updates hash fields only when the hash already exists, so
// a mutation against a missing id never creates a partial record.
var setFieldsIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

// Store is a Redis-backed domain.MemberStore. It is safe for concurrent use.
type Store struct {
	rdb       *redis.Client
	namespace string
}

// New wraps an existing client. An empty namespace selects DefaultNamespace.
func New(rdb *redis.Client, namespace string) *Store {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Store{rdb: rdb, namespace: namespace}
}

// NewStore parses a redis:// URL, connects and verifies the server answers.
func NewStore(ctx context.Context, url, namespace string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, domain.Unavailable("ping redis", err)
	}
	return New(rdb, namespace), nil
}

// Namespace reports the key namespace in use.
func (s *Store) Namespace() string { return s.namespace }

// Client exposes the underlying connection so other components can share it.
func (s *Store) Client() *redis.Client { return s.rdb }

// Close closes the Redis connection.
func (s *Store) Close() error { return s.rdb.Close() }

// Create writes a new member hash, indexes it, and binds the owner reference.
// An existing id or owner binding fails with ErrDuplicateID.
func (s *Store) Create(ctx context.Context, m domain.Member) error {
	if err := m.Validate(); err != nil {
		return err
	}
	key := MemberKey(s.namespace, m.ID)
	keys := []string{key}
	var ownerKey string
	if m.OwnerRef != "" {
		ownerKey = OwnerKey(s.namespace, m.OwnerRef)
		keys = append(keys, ownerKey)
	}
	err := s.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, keys...).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("member %s: %w", m.ID, domain.ErrDuplicateID)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, MemberToHash(m))
			p.SAdd(ctx, IndexKey(s.namespace), m.ID)
			if ownerKey != "" {
				p.Set(ctx, ownerKey, m.ID, 0)
			}
			return nil
		})
		return err
	}, keys...)
	if errors.Is(err, domain.ErrDuplicateID) {
		return err
	}
	if err != nil {
		return domain.Unavailable("create member", err)
	}
	return nil
}

// Get returns the member with id.
func (s *Store) Get(ctx context.Context, id string) (domain.Member, bool, error) {
	hash, err := s.rdb.HGetAll(ctx, MemberKey(s.namespace, id)).Result()
	if err != nil {
		return domain.Member{}, false, domain.Unavailable("get member", err)
	}
	if len(hash) == 0 {
		return domain.Member{}, false, nil
	}
	m, err := HashToMember(hash)
	if err != nil {
		return domain.Member{}, false, domain.Unavailable("decode member", err)
	}
	return m, true, nil
}

// FindByOwner returns the member bound to ownerRef.
func (s *Store) FindByOwner(ctx context.Context, ownerRef string) (domain.Member, bool, error) {
	if ownerRef == "" {
		return domain.Member{}, false, nil
	}
	id, err := s.rdb.Get(ctx, OwnerKey(s.namespace, ownerRef)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Member{}, false, nil
	}
	if err != nil {
		return domain.Member{}, false, domain.Unavailable("get owner binding", err)
	}
	return s.Get(ctx, id)
}

// UpdateStatus sets the status of an existing member.
func (s *Store) UpdateStatus(ctx context.Context, id string, status domain.Status) (bool, error) {
	return s.setFields(ctx, "update status", id, "status", string(status))
}

// UpdateRole sets the role of an existing member.
func (s *Store) UpdateRole(ctx context.Context, id string, role string) (bool, error) {
	return s.setFields(ctx, "update role", id, "role", role)
}

// Reissue overwrites name, role and status of an existing member.
func (s *Store) Reissue(ctx context.Context, id, name, role string, status domain.Status) (bool, error) {
	return s.setFields(ctx, "reissue member", id, "name", name, "role", role, "status", string(status))
}

// Delete removes the member hash, its index entry and its owner binding.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	key := MemberKey(s.namespace, id)
	var deleted bool
	err := s.watch(ctx, func(tx *redis.Tx) error {
		deleted = false
		owner, err := tx.HGet(ctx, key, "owner_ref").Result()
		if errors.Is(err, redis.Nil) {
			n, err := tx.Exists(ctx, key).Result()
			if err != nil || n == 0 {
				return err
			}
			owner = ""
		} else if err != nil {
			return err
		}
		var ownerKey string
		if owner != "" {
			ownerKey = OwnerKey(s.namespace, owner)
			bound, err := tx.Get(ctx, ownerKey).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if bound != id {
				ownerKey = ""
			}
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			p.SRem(ctx, IndexKey(s.namespace), id)
			if ownerKey != "" {
				p.Del(ctx, ownerKey)
			}
			return nil
		})
		if err == nil {
			deleted = true
		}
		return err
	}, key)
	if err != nil {
		return false, domain.Unavailable("delete member", err)
	}
	return deleted, nil
}

// List returns every indexed member ordered by id. Index entries whose hash
// has disappeared are skipped.
func (s *Store) List(ctx context.Context) ([]domain.Member, error) {
	ids, err := s.rdb.SMembers(ctx, IndexKey(s.namespace)).Result()
	if err != nil {
		return nil, domain.Unavailable("list member ids", err)
	}
	sort.Strings(ids)
	out := make([]domain.Member, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, MemberKey(s.namespace, id))
		}
		return nil
	})
	if err != nil {
		return nil, domain.Unavailable("list members", err)
	}
	for _, cmd := range cmds {
		hash := cmd.Val()
		if len(hash) == 0 {
			continue
		}
		m, err := HashToMember(hash)
		if err != nil {
			return nil, domain.Unavailable("decode member", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) setFields(ctx context.Context, op, id string, pairs ...any) (bool, error) {
	n, err := setFieldsIfExists.Run(ctx, s.rdb, []string{MemberKey(s.namespace, id)}, pairs...).Int()
	if err != nil {
		return false, domain.Unavailable(op, err)
	}
	return n == 1, nil
}

// watch runs fn in an optimistic transaction, retrying when a watched key
// changes underneath it.
func (s *Store) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("transaction on %v: %w", keys, redis.TxFailedErr)
}
