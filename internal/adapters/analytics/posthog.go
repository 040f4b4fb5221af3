// Package analytics forwards request events and audit entries to PostHog. A client
// built without an API key is a no-op, so callers never need to nil-check it.
package analytics

import (
	"log/slog"

	"github.com/posthog/posthog-go"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
)

const (
	posthogEndpoint = "https://eu.i.posthog.com"

	// AuditEventName is the PostHog event every mirrored audit entry is captured as.
	AuditEventName = "ledger_audit"
	guestDistinctID = "guest"
)

// enqueuer is the part of posthog.Client this package uses.
type enqueuer interface {
	Enqueue(posthog.Message) error
	Close() error
}

// Client wraps a posthog client.
type Client struct {
	posthog enqueuer
	logger  *slog.Logger
}

var _ portsrepo.AuditMirror = (*Client)(nil)

// NewClient creates the client. An empty apiKey yields a disabled client.
func NewClient(apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if apiKey == "" {
		logger.Warn("Posthog API key is empty, not initializing posthog client.")
		return &Client{logger: logger}
	}
	client, err := posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: posthogEndpoint})
	if err != nil {
		logger.Error("Failed to initialize posthog client", slog.String("error", err.Error()))
		return &Client{logger: logger}
	}
	logger.Info("Posthog client initialized", slog.String("endpoint", posthogEndpoint))
	return &Client{posthog: client, logger: logger}
}

func newClient(e enqueuer, logger *slog.Logger) *Client {
	return &Client{posthog: e, logger: logger}
}

func (c *Client) IsInitialized() bool {
	return c != nil && c.posthog != nil
}

// Track captures a single event.
func (c *Client) Track(distinctID, event string, properties map[string]any) error {
	if !c.IsInitialized() {
		return nil
	}
	c.logger.Debug("Enqueueing event", slog.String("distinct_id", distinctID), slog.String("event", event))
	return c.posthog.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      event,
		Properties: properties,
	})
}

// Mirror captures an audit entry. The client address is not forwarded.
func (c *Client) Mirror(entry domain.AuditLogEntry) error {
	distinctID := guestDistinctID
	if entry.UserID != nil && *entry.UserID != "" {
		distinctID = *entry.UserID
	}
	props := map[string]any{
		"log_id":      entry.LogID,
		"actor_name":  entry.ActorName,
		"action":      entry.Action,
		"module":      entry.Module,
		"description": entry.Description,
	}
	if len(entry.Metadata) > 0 {
		props["metadata"] = entry.Metadata
	}
	return c.Track(distinctID, AuditEventName, props)
}

// Close flushes queued events.
func (c *Client) Close() {
	if !c.IsInitialized() {
		return
	}
	if err := c.posthog.Close(); err != nil {
		c.logger.Warn("Error closing posthog client", slog.String("error", err.Error()))
	}
}
