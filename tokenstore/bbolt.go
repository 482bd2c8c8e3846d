package tokenstore

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/chinkauchenna2021/bankauth/internal/util"
)

var (
	sessionBucket = []byte("session")
	sessionKey    = []byte("current")
)

// BoltBackend persists the session blob in a BBolt database, under a
// single bucket and key.
type BoltBackend struct {
	db *bbolt.DB
}

var _ Backend = (*BoltBackend)(nil)

// NewBoltBackend returns a Backend backed by the given BBolt database.
func NewBoltBackend(db *bbolt.DB) *BoltBackend {
	return &BoltBackend{db: db}
}

// NewBoltBackendFromFile opens a BBolt database at the given path and
// returns a new BoltBackend.
func NewBoltBackendFromFile(path string, options *bbolt.Options) (*BoltBackend, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewBoltBackend(db), nil
}

// Close closes the underlying BBolt database.
func (b *BoltBackend) Close() error {
	return b.db.Close()
}

func (b *BoltBackend) Load(ctx context.Context) ([]byte, error) {
	var blob []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sessionBucket)
		if bucket == nil {
			return ErrNoSession
		}
		data := bucket.Get(sessionKey)
		if data == nil {
			return ErrNoSession
		}
		// The slice is only valid inside the transaction.
		blob = util.CopyBytes(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blob, nil
}

func (b *BoltBackend) Save(ctx context.Context, blob []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(sessionBucket)
		if err != nil {
			return err
		}
		return bucket.Put(sessionKey, blob)
	})
}

func (b *BoltBackend) Delete(ctx context.Context) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sessionBucket)
		if bucket == nil {
			return nil
		}
		return bucket.Delete(sessionKey)
	})
}
