// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists per-document extraction results in a bbolt file so
// unchanged PDFs are not parsed again on the next run.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pdiddy/persona-digest/internal/collection"
	"github.com/pdiddy/persona-digest/pkg/types"
)

var bucketName = []byte("extractions")

// openTimeout bounds the wait for the file lock held by another process.
const openTimeout = 2 * time.Second

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("cache closed")

// Store is a bbolt-backed extraction cache. It is safe for concurrent use.
type Store struct {
	db *bolt.DB
}

var _ collection.Cache = (*Store)(nil)

// Open opens or creates the cache file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the extraction stored under key.
func (s *Store) Get(key string) (types.DocumentExtraction, bool, error) {
	var e types.DocumentExtraction
	var found bool
	err := s.view(func(b *bolt.Bucket) error {
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &e)
	})
	if err != nil {
		return types.DocumentExtraction{}, false, fmt.Errorf("reading cache entry: %w", err)
	}
	return e, found, nil
}

// Put stores e under key, replacing any previous entry.
func (s *Store) Put(key string, e types.DocumentExtraction) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	return s.update(func(b *bolt.Bucket) error {
		return b.Put([]byte(key), data)
	})
}

// Len returns the number of cached documents.
func (s *Store) Len() (int, error) {
	var n int
	err := s.view(func(b *bolt.Bucket) error {
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}

// Clear removes every entry.
func (s *Store) Clear() error {
	if s.db == nil {
		return ErrClosed
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketName); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketName)
		return err
	})
}

// Close releases the cache file.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) view(fn func(*bolt.Bucket) error) error {
	if s.db == nil {
		return ErrClosed
	}
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(bucketName))
	})
}

func (s *Store) update(fn func(*bolt.Bucket) error) error {
	if s.db == nil {
		return ErrClosed
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(bucketName))
	})
}
