package detect

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

const cacheBucket = "recognizer_cache"

// SpanCache memoizes recognizer output across runs, keyed by the SHA-256 of
// the document text. Recognizer inference dominates detection cost, and the
// same document is commonly re-obscured after small pipeline changes, so a
// content-addressed cache hits often. Rule-battery spans are cheap and are
// never cached.
type SpanCache struct {
	db *bolt.DB
}

// OpenSpanCache opens (or creates) the bbolt database at path and ensures
// the bucket exists.
func OpenSpanCache(path string) (*SpanCache, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open span cache %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(cacheBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create span cache bucket: %w", err)
	}
	return &SpanCache{db: db}, nil
}

// Get returns the cached recognizer candidates for text, if present.
// A corrupt entry is treated as a miss.
func (c *SpanCache) Get(text string) ([]Labeled, bool) {
	var raw []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cacheBucket))
		if b == nil {
			return nil
		}
		if v := b.Get(cacheKey(text)); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if err != nil || raw == nil {
		return nil, false
	}
	var out []Labeled
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

// Put stores the recognizer candidates for text. Errors are dropped; the
// cache is purely an accelerator.
func (c *SpanCache) Put(text string, candidates []Labeled) {
	raw, err := json.Marshal(candidates)
	if err != nil {
		return
	}
	_ = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cacheBucket))
		if b == nil {
			return fmt.Errorf("bucket %q not found", cacheBucket)
		}
		return b.Put(cacheKey(text), raw)
	})
}

func (c *SpanCache) Close() error {
	return c.db.Close()
}

func cacheKey(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return []byte(hex.EncodeToString(sum[:]))
}
