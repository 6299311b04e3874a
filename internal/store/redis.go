package store

import (
	"context"
	"errors"
	"slices"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/restgate/internal/errors"
)

// createScript inserts a record only when its id is free and appends the id to
// the collection's order index. KEYS: records hash, order zset, sequence counter.
var createScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 0 then
  return 0
end
local seq = redis.call('INCR', KEYS[3])
redis.call('ZADD', KEYS[2], seq, ARGV[1])
return 1
`)

// maxWatchRetries bounds optimistic update retries under contention.
const maxWatchRetries = 16

// RedisStore keeps each collection in a hash of id to JSON document, plus a
// sorted set that preserves insertion order.
//
// Keys:
//
//	<prefix>:collections   set of collection names
//	<prefix>:c:<name>      hash id -> record JSON
//	<prefix>:o:<name>      zset id scored by insertion sequence
//	<prefix>:seq           insertion sequence counter
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store on an existing client.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) collectionsKey() string { return r.prefix + ":collections" }

func (r *RedisStore) recordsKey(collection string) string { return r.prefix + ":c:" + collection }

func (r *RedisStore) orderKey(collection string) string { return r.prefix + ":o:" + collection }

func (r *RedisStore) sequenceKey() string { return r.prefix + ":seq" }

// Collections returns every collection name, sorted.
func (r *RedisStore) Collections(ctx context.Context) ([]string, error) {
	names, err := r.client.SMembers(ctx, r.collectionsKey()).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list collections")
	}
	slices.Sort(names)
	return names, nil
}

// HasCollection reports whether the collection exists.
func (r *RedisStore) HasCollection(ctx context.Context, collection string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.collectionsKey(), collection).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check collection")
	}
	return ok, nil
}

// EnsureCollection creates the collection when it is missing.
func (r *RedisStore) EnsureCollection(ctx context.Context, collection string) error {
	if err := r.client.SAdd(ctx, r.collectionsKey(), collection).Err(); err != nil {
		return apperrors.Wrap(err, "failed to create collection")
	}
	return nil
}

// List returns the collection's records in insertion order.
func (r *RedisStore) List(ctx context.Context, collection string) ([]Record, error) {
	if err := r.requireCollection(ctx, collection); err != nil {
		return nil, err
	}

	ids, err := r.client.ZRange(ctx, r.orderKey(collection), 0, -1).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list record ids")
	}

	records := make([]Record, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	values, err := r.client.HMGet(ctx, r.recordsKey(collection), ids...).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list records")
	}
	for _, value := range values {
		data, ok := value.(string)
		if !ok {
			continue
		}
		rec, err := decodeRecord([]byte(data))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Get returns a record by id.
func (r *RedisStore) Get(ctx context.Context, collection, id string) (Record, error) {
	data, err := r.client.HGet(ctx, r.recordsKey(collection), id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			if err := r.requireCollection(ctx, collection); err != nil {
				return nil, err
			}
			return nil, ErrRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get record")
	}
	return decodeRecord([]byte(data))
}

// Create stores a new record atomically; an existing id is a conflict.
func (r *RedisStore) Create(ctx context.Context, collection string, record Record) (Record, error) {
	if err := r.requireCollection(ctx, collection); err != nil {
		return nil, err
	}

	rec, id, err := prepareCreate(record)
	if err != nil {
		return nil, err
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return nil, err
	}

	keys := []string{r.recordsKey(collection), r.orderKey(collection), r.sequenceKey()}
	created, err := createScript.Run(ctx, r.client, keys, id, data).Int()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create record")
	}
	if created == 0 {
		return nil, ErrRecordExists
	}
	return rec, nil
}

// Replace overwrites an existing record, keeping its id.
func (r *RedisStore) Replace(ctx context.Context, collection, id string, record Record) (Record, error) {
	return r.update(ctx, collection, id, func(existing Record) Record {
		return prepareReplace(existing, record)
	})
}

// Patch merges fields into an existing record.
func (r *RedisStore) Patch(ctx context.Context, collection, id string, patch Record) (Record, error) {
	return r.update(ctx, collection, id, func(existing Record) Record {
		return applyPatch(existing, patch)
	})
}

// Delete removes a record and its order entry.
func (r *RedisStore) Delete(ctx context.Context, collection, id string) error {
	var removed *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(ctx, r.recordsKey(collection), id)
		pipe.ZRem(ctx, r.orderKey(collection), id)
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to delete record")
	}
	if removed.Val() == 0 {
		if err := r.requireCollection(ctx, collection); err != nil {
			return err
		}
		return ErrRecordNotFound
	}
	return nil
}

// Ping checks the redis connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// update performs an optimistic read-modify-write guarded by WATCH.
func (r *RedisStore) update(
	ctx context.Context,
	collection, id string,
	build func(existing Record) Record,
) (Record, error) {
	key := r.recordsKey(collection)
	var out Record

	txf := func(tx *redis.Tx) error {
		data, err := tx.HGet(ctx, key, id).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrRecordNotFound
			}
			return err
		}
		existing, err := decodeRecord([]byte(data))
		if err != nil {
			return err
		}

		out = build(existing)
		encoded, err := encodeRecord(out)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, id, encoded)
			return nil
		})
		return err
	}

	for range maxWatchRetries {
		err := r.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return out, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, ErrRecordNotFound):
			if err := r.requireCollection(ctx, collection); err != nil {
				return nil, err
			}
			return nil, ErrRecordNotFound
		case apperrors.Is(err, apperrors.ErrInvalidInput):
			return nil, err
		default:
			return nil, apperrors.Wrap(err, "failed to update record")
		}
	}
	return nil, apperrors.Wrap(apperrors.ErrConflict, "record changed concurrently")
}

func (r *RedisStore) requireCollection(ctx context.Context, collection string) error {
	exists, err := r.HasCollection(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return ErrCollectionNotFound
	}
	return nil
}
