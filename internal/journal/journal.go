// Package journal keeps a history of node exchanges in a bolt database.
//
// The journal is observability only. Nothing reads it back into the
// coordinator, so protocol state still starts fresh on every run.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/boltdb/bolt"

	"github.com/radio-control/nodepoll/internal/poll"
)

var bucketExchanges = []byte("exchanges")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("journal closed")

// Journal implements poll.ExchangeRecorder.
type Journal struct {
	path string

	mu sync.RWMutex // guards db against Close
	db *bolt.DB
}

var _ poll.ExchangeRecorder = (*Journal)(nil)

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketExchanges)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}

	return &Journal{path: path, db: db}, nil
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.path
}

// Record appends ex under the next sequence number.
func (j *Journal) Record(ex poll.Exchange) error {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.db == nil {
		return ErrClosed
	}

	value, err := json.Marshal(ex)
	if err != nil {
		return err
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketExchanges)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(itob(seq), value)
	})
}

// Recent returns up to n exchanges, newest first.
func (j *Journal) Recent(n int) ([]poll.Exchange, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.db == nil {
		return nil, ErrClosed
	}

	out := make([]poll.Exchange, 0, n)
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketExchanges).Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var ex poll.Exchange
			if err := json.Unmarshal(v, &ex); err != nil {
				return fmt.Errorf("corrupt journal entry %d: %w", btoi(k), err)
			}
			out = append(out, ex)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of recorded exchanges.
func (j *Journal) Count() (int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.db == nil {
		return 0, ErrClosed
	}

	var n int
	err := j.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketExchanges).Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// itob encodes a sequence number big-endian so keys sort numerically.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
