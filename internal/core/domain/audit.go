package domain

import "time"

// GuestActorName is recorded when an audited action has no authenticated actor.
const GuestActorName = "Guest"

// AuditLogEntry is one append-only audit trail record.
type AuditLogEntry struct {
	LogID       string         `json:"logID"`
	UserID      *string        `json:"userID,omitempty"`
	ActorName   string         `json:"actorName"`
	Action      string         `json:"action"`
	Module      string         `json:"module"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IPAddress   string         `json:"ipAddress,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}
