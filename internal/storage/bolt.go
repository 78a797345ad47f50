package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	publishedBucket = []byte("published")       // seq -> link, insertion order
	linkIndexBucket = []byte("published_links") // link -> seq
)

// BoltStore keeps links in a bbolt database file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if needed) the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt state %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(publishedBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(linkIndexBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize bolt buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Load(_ context.Context) ([]string, error) {
	var links []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(publishedBucket)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			links = append(links, string(v))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read bolt state: %w", err)
	}
	return links, nil
}

// Save replaces the stored list in one transaction.
func (b *BoltStore) Save(_ context.Context, links []string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{publishedBucket, linkIndexBucket} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		for _, link := range links {
			if err := appendLink(tx, link); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save bolt state: %w", err)
	}
	return nil
}

// Append adds link unless it is already stored.
func (b *BoltStore) Append(_ context.Context, link string) error {
	if err := b.db.Update(func(tx *bolt.Tx) error { return appendLink(tx, link) }); err != nil {
		return fmt.Errorf("failed to append bolt state: %w", err)
	}
	return nil
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}

func appendLink(tx *bolt.Tx, link string) error {
	index := tx.Bucket(linkIndexBucket)
	if index.Get([]byte(link)) != nil {
		return nil
	}

	published := tx.Bucket(publishedBucket)
	seq, err := published.NextSequence()
	if err != nil {
		return err
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)

	if err := published.Put(key, []byte(link)); err != nil {
		return err
	}
	return index.Put([]byte(link), key)
}
