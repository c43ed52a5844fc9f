package ecod

import (
	"encoding/binary"
	"fmt"
	"strings"

	"go.etcd.io/bbolt"
)

var (
	bucketMapping = []byte("f2x")
	bucketMeta    = []byte("meta")
	keyRelease    = []byte("release")
	keyCount      = []byte("count")
)

// BoltStore is a compiled mapping database. "dotate mapping import" writes
// it once; annotation runs open it read-only and load the whole table.
type BoltStore struct {
	db *bbolt.DB
}

// Open opens (or creates) a mapping database for writing.
func Open(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening mapping db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketMapping, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("creating bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// OpenReadOnly opens an existing mapping database without taking the write
// lock, so concurrent annotation runs can share it.
func OpenReadOnly(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("opening mapping db: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Import replaces the stored mapping with entries and records the release
// name. It returns the number of entries written.
func (s *BoltStore) Import(entries map[string]string, release string) (int, error) {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketMapping); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket(bucketMapping)
		if err != nil {
			return err
		}
		for name, fid := range entries {
			if err := b.Put([]byte(name), []byte(fid)); err != nil {
				return err
			}
		}

		meta := tx.Bucket(bucketMeta)
		if err := meta.Put(keyRelease, []byte(release)); err != nil {
			return err
		}
		var count [8]byte
		binary.BigEndian.PutUint64(count[:], uint64(len(entries)))
		return meta.Put(keyCount, count[:])
	})
	if err != nil {
		return 0, fmt.Errorf("importing mapping: %w", err)
	}
	return len(entries), nil
}

// Load reads the full mapping into an in-memory Table.
func (s *BoltStore) Load() (*Table, error) {
	entries := make(map[string]string)
	var release string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMapping)
		if b == nil {
			return fmt.Errorf("mapping bucket missing (not a mapping db?)")
		}
		if meta := tx.Bucket(bucketMeta); meta != nil {
			release = string(meta.Get(keyRelease))
		}
		return b.ForEach(func(k, v []byte) error {
			entries[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("loading mapping: %w", err)
	}
	return NewTable(entries, release), nil
}

// Lookup resolves a single name directly against the database, including
// the dot-prefix fallback. Used by "dotate mapping lookup".
func (s *BoltStore) Lookup(name string) (fid string, ok bool, err error) {
	fid = name
	err = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMapping)
		if b == nil {
			return fmt.Errorf("mapping bucket missing (not a mapping db?)")
		}
		probe := name
		for {
			if v := b.Get([]byte(probe)); v != nil {
				fid, ok = string(v), true
				return nil
			}
			i := strings.LastIndexByte(probe, '.')
			if i < 0 {
				return nil
			}
			probe = probe[:i]
		}
	})
	return fid, ok, err
}

// Stats returns the recorded release and entry count.
func (s *BoltStore) Stats() (release string, count int, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil {
			return fmt.Errorf("meta bucket missing (not a mapping db?)")
		}
		release = string(meta.Get(keyRelease))
		if v := meta.Get(keyCount); len(v) == 8 {
			count = int(binary.BigEndian.Uint64(v))
			return nil
		}
		b := tx.Bucket(bucketMapping)
		if b != nil {
			count = b.Stats().KeyN
		}
		return nil
	})
	return release, count, err
}
