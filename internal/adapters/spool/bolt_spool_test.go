package spool

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

func openTemp(t *testing.T) *BoltSpool {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "spool.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func entry(action string) domain.AuditLogEntry {
	return domain.AuditLogEntry{
		LogID:     action + "-id",
		ActorName: "Admin",
		Action:    action,
		Module:    "journal_entries",
		Metadata:  map[string]any{"voucher_number": "VOU-000001"},
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestBoltSpool_ReplayInOrder(t *testing.T) {
	s := openTemp(t)
	for _, a := range []string{"first", "second", "third"} {
		require.NoError(t, s.Put(entry(a)))
	}

	var seen []string
	n, err := s.Replay(context.Background(), func(e domain.AuditLogEntry) error {
		seen = append(seen, e.Action)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"first", "second", "third"}, seen)
	left, err := s.Len()
	require.NoError(t, err)
	assert.Zero(t, left)
}

func TestBoltSpool_ReplayStopsAtFirstError(t *testing.T) {
	s := openTemp(t)
	for _, a := range []string{"first", "second", "third"} {
		require.NoError(t, s.Put(entry(a)))
	}

	n, err := s.Replay(context.Background(), func(e domain.AuditLogEntry) error {
		if e.Action == "second" {
			return errors.New("store still down")
		}
		return nil
	})

	require.Error(t, err)
	assert.Equal(t, 1, n)
	left, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, left)

	var seen []string
	_, err = s.Replay(context.Background(), func(e domain.AuditLogEntry) error {
		seen = append(seen, e.Action)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "third"}, seen)
}

func TestBoltSpool_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spool.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(entry("posted")))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	var got domain.AuditLogEntry
	n, err := reopened.Replay(context.Background(), func(e domain.AuditLogEntry) error {
		got = e
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "posted", got.Action)
	assert.Equal(t, "VOU-000001", got.Metadata["voucher_number"])
	assert.True(t, got.CreatedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
}

func TestBoltSpool_ReplayHonoursCancelledContext(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Put(entry("posted")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := s.Replay(ctx, func(domain.AuditLogEntry) error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}
