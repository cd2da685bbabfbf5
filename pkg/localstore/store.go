package localstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// schemaVersion is bumped on incompatible keyspace layout changes. Opening a
// keyspace written by a newer version fails rather than corrupting it.
const schemaVersion = 1

// Options configures a Store instance.
type Options struct {
	// KeyPrefix namespaces every key the store touches.
	KeyPrefix string
	// District and State are the fixed deployment values stamped on
	// incident records that do not carry their own.
	District string
	State    string
}

// Store persists Incident and UserReport records in a Redis keyspace.
// Records are JSON values with membership and secondary-index sets maintained
// alongside them. A Store is constructed once at startup and handed to every
// consumer; it must be opened with Open before any other call.
type Store struct {
	client   *redis.Client
	prefix   string
	district string
	state    string
	open     bool
}

func New(client *redis.Client, opts Options) *Store {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "trafficwatch:"
	}
	return &Store{
		client:   client,
		prefix:   prefix,
		district: opts.District,
		state:    opts.State,
	}
}

// Open verifies the storage engine is reachable and provisions the schema
// marker on first use. It is idempotent: reopening an existing keyspace
// leaves it unchanged. Opening a keyspace written by a newer schema version
// fails with ErrInitialization.
func (s *Store) Open(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInitialization, err)
	}

	key := s.prefix + "schema"
	raw, err := s.client.Get(ctx, key).Result()
	switch {
	case err == redis.Nil:
		if err := s.client.Set(ctx, key, schemaVersion, 0).Err(); err != nil {
			return fmt.Errorf("%w: provisioning schema: %v", ErrInitialization, err)
		}
	case err != nil:
		return fmt.Errorf("%w: reading schema: %v", ErrInitialization, err)
	default:
		version, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return fmt.Errorf("%w: unreadable schema marker %q", ErrInitialization, raw)
		}
		if version > schemaVersion {
			return fmt.Errorf("%w: keyspace schema v%d is newer than supported v%d", ErrInitialization, version, schemaVersion)
		}
	}

	s.open = true
	return nil
}

// Clear irreversibly deletes both collections and all their records,
// including sequence counters. Only the incidents and reports key families
// are touched: the schema marker and any other keyspace sharing the prefix
// (the zone read-cache does) survive. Intended for tests and operator
// resets only.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}

	var keys []string
	for _, pattern := range []string{s.key("incidents") + ":*", s.key("reports") + ":*"} {
		matched, err := s.client.Keys(ctx, pattern).Result()
		if err != nil {
			return storageErr("clear", err)
		}
		keys = append(keys, matched...)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return storageErr("clear", err)
	}
	return nil
}

func (s *Store) ready() error {
	if !s.open {
		return ErrNotInitialized
	}
	return nil
}

func (s *Store) key(parts ...string) string {
	out := s.prefix
	for i, p := range parts {
		if i > 0 {
			out += ":"
		}
		out += p
	}
	return out
}
