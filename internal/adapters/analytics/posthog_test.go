package analytics

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/posthog/posthog-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

type recordingEnqueuer struct {
	messages []posthog.Message
	err      error
	closed   bool
}

func (r *recordingEnqueuer) Enqueue(m posthog.Message) error {
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, m)
	return nil
}

func (r *recordingEnqueuer) Close() error {
	r.closed = true
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewClient_EmptyKeyIsDisabled(t *testing.T) {
	c := NewClient("", quietLogger())

	assert.False(t, c.IsInitialized())
	assert.NoError(t, c.Track("user-1", "anything", nil))
	assert.NoError(t, c.Mirror(domain.AuditLogEntry{Action: "posted"}))
	c.Close()
}

func TestMirror_CapturesAuditEntry(t *testing.T) {
	rec := &recordingEnqueuer{}
	c := newClient(rec, quietLogger())
	userID := "user-1"

	err := c.Mirror(domain.AuditLogEntry{
		LogID:     "log-1",
		UserID:    &userID,
		ActorName: "Alice",
		Action:    "post",
		Module:    "sales",
		Metadata:  map[string]any{"document_number": "INV-1"},
		IPAddress: "10.0.0.1",
	})

	require.NoError(t, err)
	require.Len(t, rec.messages, 1)
	capture, ok := rec.messages[0].(posthog.Capture)
	require.True(t, ok)
	assert.Equal(t, "user-1", capture.DistinctId)
	assert.Equal(t, AuditEventName, capture.Event)
	assert.Equal(t, "sales", capture.Properties["module"])
	assert.Equal(t, map[string]any{"document_number": "INV-1"}, capture.Properties["metadata"])
	assert.NotContains(t, capture.Properties, "ip_address")
}

func TestMirror_GuestEntryAndEnqueueError(t *testing.T) {
	rec := &recordingEnqueuer{}
	c := newClient(rec, quietLogger())

	require.NoError(t, c.Mirror(domain.AuditLogEntry{Action: "login_failed", Module: "auth"}))
	capture := rec.messages[0].(posthog.Capture)
	assert.Equal(t, guestDistinctID, capture.DistinctId)
	assert.NotContains(t, capture.Properties, "metadata")

	rec.err = errors.New("queue full")
	assert.EqualError(t, c.Mirror(domain.AuditLogEntry{Action: "post"}), "queue full")
}

func TestClose_FlushesClient(t *testing.T) {
	rec := &recordingEnqueuer{}
	newClient(rec, quietLogger()).Close()
	assert.True(t, rec.closed)
}
