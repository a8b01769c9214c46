package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	bolt "go.etcd.io/bbolt"
)

const bucketCheck = "check"

// ErrNoCheckResult is returned by CheckResult when the hash has no cached
// entry.
var ErrNoCheckResult = errors.New("no cached check result")

func init() {
	initDB["initialize check result table"] = func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketCheck))
		return err
	}
}

// CheckResult is the cached outcome of checking one source file.
type CheckResult struct {
	// Path of the source when it was checked, for display only; the cache key
	// is the content hash.
	Path string `json:"path"`
	// Diagnostics rendered to plain strings, errors and warnings both.
	Diagnostics []string `json:"diagnostics,omitempty"`
	// HasError is true if any diagnostic is an error.
	HasError bool `json:"hasError"`
	// Components lists the exported components the source compiled to.
	Components []string `json:"components,omitempty"`
}

// HashSource returns the cache key for a source text.
func HashSource(code []byte) string {
	sum := sha256.Sum256(code)
	return hex.EncodeToString(sum[:])
}

// CheckResult returns the cached result for a source hash.
func (s *dbStore) CheckResult(hash string) (CheckResult, error) {
	var r CheckResult
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCheck))
		v := b.Get([]byte(hash))
		if v == nil {
			return ErrNoCheckResult
		}
		return json.Unmarshal(v, &r)
	})
	return r, err
}

// PutCheckResult stores the result for a source hash, replacing any previous
// entry.
func (s *dbStore) PutCheckResult(hash string, r CheckResult) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCheck))
		v, err := json.Marshal(r)
		if err != nil {
			return err
		}
		return b.Put([]byte(hash), v)
	})
}

// DelCheckResult removes the cached result for a source hash. Removing a
// missing entry is not an error.
func (s *dbStore) DelCheckResult(hash string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCheck))
		return b.Delete([]byte(hash))
	})
}

// CheckResults calls f with every cached entry, in hash order.
func (s *dbStore) CheckResults(f func(hash string, r CheckResult)) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCheck))
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var r CheckResult
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			f(string(k), r)
		}
		return nil
	})
}
