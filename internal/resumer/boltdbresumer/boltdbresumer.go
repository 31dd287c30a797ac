// Package boltdbresumer provides a Resumer implementation that uses a Bolt database file as storage.
package boltdbresumer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/counter/internal/resumer"
	bolt "go.etcd.io/bbolt"
)

// Keys for the persistent storage.
var Keys = struct {
	Value     []byte
	Revision  []byte
	UpdatedAt []byte
}{
	Value:     []byte("value"),
	Revision:  []byte("revision"),
	UpdatedAt: []byte("updated_at"),
}

// Resumer contains methods for saving/loading counter state to a BoltDB database.
type Resumer struct {
	db     *bolt.DB
	bucket []byte
}

var _ resumer.Resumer = (*Resumer)(nil)

// New returns a new Resumer.
func New(db *bolt.DB, bucket []byte) (*Resumer, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err2 := tx.CreateBucketIfNotExists(bucket)
		return err2
	})
	if err != nil {
		return nil, err
	}
	return &Resumer{
		db:     db,
		bucket: bucket,
	}, nil
}

// Write the counter state. All keys are written in a single transaction.
func (r *Resumer) Write(s resumer.State) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if err := b.Put(Keys.Value, []byte(strconv.FormatInt(s.Value, 10))); err != nil {
			return err
		}
		if err := b.Put(Keys.Revision, []byte(strconv.FormatUint(s.Revision, 10))); err != nil {
			return err
		}
		return b.Put(Keys.UpdatedAt, []byte(s.UpdatedAt.UTC().Format(time.RFC3339Nano)))
	})
}

// Read the counter state. Returns nil if the bucket is empty.
func (r *Resumer) Read() (*resumer.State, error) {
	var s *resumer.State
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(r.bucket)

		value := b.Get(Keys.Value)
		if value == nil {
			return nil
		}

		s = new(resumer.State)
		var err error
		s.Value, err = strconv.ParseInt(string(value), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", Keys.Value, err)
		}

		value = b.Get(Keys.Revision)
		if value == nil {
			return fmt.Errorf("key not found: %q", string(Keys.Revision))
		}
		s.Revision, err = strconv.ParseUint(string(value), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", Keys.Revision, err)
		}

		value = b.Get(Keys.UpdatedAt)
		if value != nil {
			s.UpdatedAt, err = time.Parse(time.RFC3339Nano, string(value))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
