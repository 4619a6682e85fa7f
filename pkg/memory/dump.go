package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DumpEntry is one serialised key, preserving its type and TTL.
type DumpEntry struct {
	Key    string            `json:"key"`
	Type   string            `json:"type"` // string, list, hash
	TTLSec int64             `json:"ttl_sec"` // -1 means no expiry
	Value  string            `json:"value,omitempty"`
	List   []string          `json:"list,omitempty"`
	Hash   map[string]string `json:"hash,omitempty"`
}

// Dump scans every key and serialises strings, lists and hashes with
// their TTLs. Other types are skipped.
func (s *Service) Dump(ctx context.Context) ([]DumpEntry, error) {
	var entries []DumpEntry
	var cursor uint64

	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, "*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory store: %w", err)
		}

		for _, key := range keys {
			entry, err := s.dumpKey(ctx, key)
			if err != nil {
				return nil, err
			}
			if entry != nil {
				entries = append(entries, *entry)
			}
		}

		if next == 0 {
			return entries, nil
		}
		cursor = next
	}
}

func (s *Service) dumpKey(ctx context.Context, key string) (*DumpEntry, error) {
	keyType, err := s.rdb.Type(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read type of %s: %w", key, err)
	}

	ttl, err := s.rdb.TTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read TTL of %s: %w", key, err)
	}
	ttlSec := int64(-1)
	if ttl > 0 {
		ttlSec = int64(ttl.Seconds())
	}

	entry := DumpEntry{Key: key, Type: keyType, TTLSec: ttlSec}

	switch keyType {
	case "string":
		v, err := s.rdb.Get(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to dump %s: %w", key, err)
		}
		entry.Value = v
	case "list":
		v, err := s.rdb.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to dump %s: %w", key, err)
		}
		entry.List = v
	case "hash":
		v, err := s.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to dump %s: %w", key, err)
		}
		entry.Hash = v
	default:
		return nil, nil
	}

	return &entry, nil
}

// Restore re-applies dumped entries. Keys are replaced, TTLs restored.
func (s *Service) Restore(ctx context.Context, entries []DumpEntry) error {
	for _, e := range entries {
		pipe := s.rdb.Pipeline()
		pipe.Del(ctx, e.Key)

		switch e.Type {
		case "string":
			pipe.Set(ctx, e.Key, e.Value, 0)
		case "list":
			if len(e.List) > 0 {
				vals := make([]any, len(e.List))
				for i, v := range e.List {
					vals[i] = v
				}
				pipe.RPush(ctx, e.Key, vals...)
			}
		case "hash":
			if len(e.Hash) > 0 {
				flat := make([]any, 0, len(e.Hash)*2)
				for k, v := range e.Hash {
					flat = append(flat, k, v)
				}
				pipe.HSet(ctx, e.Key, flat...)
			}
		default:
			continue
		}

		if e.TTLSec > 0 {
			pipe.Expire(ctx, e.Key, time.Duration(e.TTLSec)*time.Second)
		}

		if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
			return fmt.Errorf("failed to restore %s: %w", e.Key, err)
		}
	}
	return nil
}
