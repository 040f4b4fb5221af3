// Package spool keeps audit entries on local disk while the primary audit store is
// unreachable, and hands them back for replay once it recovers.
package spool

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	bolt "go.etcd.io/bbolt"
)

const bucketAudit = "audit_entries"

// BoltSpool is a bbolt backed AuditSpool. Keys are bucket sequence numbers, so
// iteration order is insertion order.
type BoltSpool struct {
	db *bolt.DB
	mu sync.Mutex // serialises replays
}

var _ portsrepo.AuditSpool = (*BoltSpool)(nil)

// Open opens (or creates) the spool file at path. bbolt holds an exclusive file lock,
// so a second process opening the same file fails after a short wait.
func Open(path string) (*BoltSpool, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open audit spool: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketAudit))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", bucketAudit, err)
	}
	return &BoltSpool{db: db}, nil
}

// Close closes the spool file.
func (s *BoltSpool) Close() error {
	return s.db.Close()
}

// Put appends an entry.
func (s *BoltSpool) Put(entry domain.AuditLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketAudit))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
}

// Len returns the number of spooled entries.
func (s *BoltSpool) Len() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(bucketAudit)).Stats().KeyN
		return nil
	})
	return n, err
}

type spooled struct {
	key   []byte
	entry domain.AuditLogEntry
}

// Replay hands spooled entries to fn oldest first. Each accepted entry is deleted
// before the next one is offered; the first error stops the replay.
func (s *BoltSpool) Replay(ctx context.Context, fn func(domain.AuditLogEntry) error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []spooled
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketAudit)).ForEach(func(k, v []byte) error {
			var entry domain.AuditLogEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("corrupt spooled entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			pending = append(pending, spooled{key: append([]byte(nil), k...), entry: entry})
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	replayed := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return replayed, err
		}
		if err := fn(p.entry); err != nil {
			return replayed, err
		}
		err := s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket([]byte(bucketAudit)).Delete(p.key)
		})
		if err != nil {
			return replayed, fmt.Errorf("failed to remove replayed entry: %w", err)
		}
		replayed++
	}
	return replayed, nil
}

// itob returns an 8-byte big endian representation of v.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
