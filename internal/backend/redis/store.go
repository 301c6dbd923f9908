// Package redis implements store.Store on Redis.
//
// Each document is a JSON string at <prefix>:<collection>:<id>, and each
// collection keeps the set of its ids at <prefix>:<collection>.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/redis/go-redis/v9"

	"taskapi/internal/config"
	"taskapi/internal/store"
)

// maxUpdateRetries bounds optimistic-lock retries when a watched key changes.
const maxUpdateRetries = 10

// Store implements store.Store using a Redis client.
type Store struct {
	rdb    *redis.Client
	prefix string
}

// New connects to Redis and checks the connection.
func New(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewWithClient(rdb, cfg.KeyPrefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) setKey(collection string) string {
	return s.prefix + ":" + collection
}

func (s *Store) docKey(collection, id string) string {
	return s.prefix + ":" + collection + ":" + id
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	if err := store.CheckID(id); err != nil {
		return store.Document{}, err
	}

	raw, err := s.rdb.Get(ctx, s.docKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return store.Document{}, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return store.Document{}, err
	}

	data, err := decode(raw)
	if err != nil {
		return store.Document{}, fmt.Errorf("%s/%s: %w", collection, id, err)
	}
	return store.Document{ID: id, Data: data}, nil
}

// Set implements store.Store.
func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	enc, err := encode(data)
	if err != nil {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(collection, id), enc, 0)
		pipe.SAdd(ctx, s.setKey(collection), id)
		return nil
	})
	return err
}

// Update implements store.Store. The read-merge-write runs under WATCH and is
// retried if the document changes concurrently.
func (s *Store) Update(ctx context.Context, collection, id string, data map[string]any) error {
	if err := store.CheckUpdate(id, data); err != nil {
		return err
	}
	key := s.docKey(collection, id)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("no document to update: %s/%s: %w", collection, id, store.ErrNotFound)
		}
		if err != nil {
			return err
		}

		doc, err := decode(raw)
		if err != nil {
			return fmt.Errorf("%s/%s: %w", collection, id, err)
		}
		for k, v := range data {
			doc[k] = v
		}
		enc, err := encode(doc)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, enc, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update %s/%s: gave up after %d conflicting writes", collection, id, maxUpdateRetries)
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.docKey(collection, id))
		pipe.SRem(ctx, s.setKey(collection), id)
		return nil
	})
	return err
}

// Where implements store.Store. The collection is scanned and filtered in
// process; results are ordered by id.
func (s *Store) Where(ctx context.Context, collection, field string, value any) ([]store.Document, error) {
	want, err := normalize(value)
	if err != nil {
		return nil, err
	}

	ids, err := s.rdb.SMembers(ctx, s.setKey(collection)).Result()
	if err != nil {
		return nil, err
	}
	docs := make([]store.Document, 0)
	if len(ids) == 0 {
		return docs, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(collection, id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Removed between SMEMBERS and MGET.
			continue
		}
		data, err := decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", collection, ids[i], err)
		}
		got, ok := data[field]
		if ok && reflect.DeepEqual(got, want) {
			docs = append(docs, store.Document{ID: ids[i], Data: data})
		}
	}
	return docs, nil
}

// Commit implements store.Store. All writes run in one MULTI/EXEC.
func (s *Store) Commit(ctx context.Context, b *store.Batch) error {
	if err := b.Validate(); err != nil {
		return err
	}

	encoded := make([][]byte, len(b.Writes()))
	for i, w := range b.Writes() {
		if w.Kind != store.WriteSet {
			continue
		}
		enc, err := encode(w.Data)
		if err != nil {
			return fmt.Errorf("write %d (%s): %w", i, w.Kind, err)
		}
		encoded[i] = enc
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, w := range b.Writes() {
			switch w.Kind {
			case store.WriteSet:
				pipe.Set(ctx, s.docKey(w.Collection, w.ID), encoded[i], 0)
				pipe.SAdd(ctx, s.setKey(w.Collection), w.ID)
			case store.WriteDelete:
				pipe.Del(ctx, s.docKey(w.Collection, w.ID))
				pipe.SRem(ctx, s.setKey(w.Collection), w.ID)
			}
		}
		return nil
	})
	return err
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func encode(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return b, nil
}

func decode(raw []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// normalize gives value the shape it would have after a JSON round trip, so
// it compares equal to decoded fields.
func normalize(value any) (any, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query value: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}
