// Package store implements the on-disk cache of compilation results, backed
// by a bolt database. The check command uses it to skip recompiling sources
// that have not changed.
package store

import (
	"time"

	bolt "go.etcd.io/bbolt"
)

// initDB contains the declarations of buckets. Each file in this package that
// owns a bucket adds its initialization here from an init func.
var initDB = map[string]func(*bolt.Tx) error{}

// DBStore is the interface of the compile cache.
type DBStore interface {
	Store
	Close() error
}

// Store is the interface of the compile cache, minus lifecycle management.
type Store interface {
	CheckResult(hash string) (CheckResult, error)
	PutCheckResult(hash string, r CheckResult) error
	DelCheckResult(hash string) error
	CheckResults(f func(hash string, r CheckResult)) error
}

type dbStore struct {
	db *bolt.DB
}

// NewStore opens (creating if needed) the database at dbname and makes sure
// all buckets exist.
func NewStore(dbname string) (DBStore, error) {
	db, err := bolt.Open(dbname, 0o644, &bolt.Options{
		Timeout: time.Second,
	})
	if err != nil {
		return nil, err
	}
	st := &dbStore{db}
	err = db.Update(func(tx *bolt.Tx) error {
		for name, fn := range initDB {
			if err := fn(tx); err != nil {
				return &initError{name, err}
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

type initError struct {
	name string
	err  error
}

func (e *initError) Error() string { return "failed to " + e.name + ": " + e.err.Error() }

func (e *initError) Unwrap() error { return e.err }

func (s *dbStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
