package boltdbresumer

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("counter")

// ErrLocked is returned from Open when another process holds the database.
var ErrLocked = errors.New("resume database is locked by another process")

// DB is a Resumer that owns its database file.
type DB struct {
	db *bolt.DB
	*Resumer
}

// Open the database at path, creating parent directories as needed.
func Open(path string) (*DB, error) {
	err := os.MkdirAll(filepath.Dir(path), 0750)
	if err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0640, &bolt.Options{Timeout: time.Second})
	if err == bolt.ErrTimeout {
		return nil, ErrLocked
	} else if err != nil {
		return nil, err
	}
	r, err := New(db, bucketName)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DB{
		db:      db,
		Resumer: r,
	}, nil
}

// Close the underlying database.
func (r *DB) Close() error {
	return r.db.Close()
}
