package store

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	errs "github.com/matzehuels/flowdiagram/pkg/errors"
	"github.com/matzehuels/flowdiagram/pkg/flow"
)

// DefaultRedisPrefix namespaces flow keys.
const DefaultRedisPrefix = "flowdiagram:flow:"

// RedisStore keeps each flow as a JSON string under prefix+name.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps client. An empty prefix uses [DefaultRedisPrefix].
// Close closes the client.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, name string) (*flow.Document, error) {
	data, err := s.client.Get(ctx, s.prefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStore, err, "redis get %s", name)
	}
	doc, err := flow.Unmarshal(data)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidDocument, err, "decode flow %s", name)
	}
	return doc, nil
}

func (s *RedisStore) Put(ctx context.Context, doc *flow.Document) error {
	if err := ValidateName(doc.Name); err != nil {
		return err
	}
	data, err := flow.Marshal(doc)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInvalidDocument, err, "encode flow %s", doc.Name)
	}
	if err := s.client.Set(ctx, s.prefix+doc.Name, data, 0).Err(); err != nil {
		return errs.Wrap(errs.ErrCodeStore, err, "redis set %s", doc.Name)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, s.prefix+name).Err(); err != nil {
		return errs.Wrap(errs.ErrCodeStore, err, "redis del %s", name)
	}
	return nil
}

// List scans the key space for the prefix.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	var names []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeStore, err, "redis scan")
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)
