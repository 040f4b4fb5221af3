package domain

import "time"

// APIToken authenticates an integration client (sales, purchasing, payroll modules)
// calling the ledger core. Only the bcrypt hash of the secret is stored.
type APIToken struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Prefix      string     `json:"prefix"` // first characters of the secret, used to find the row
	TokenHash   string     `json:"-"`
	Permissions []string   `json:"permissions"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// IsExpired checks if the token has expired at now.
func (t *APIToken) IsExpired(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return t.ExpiresAt.Before(now)
}

// IsUsable reports whether the token is neither revoked nor expired.
func (t *APIToken) IsUsable(now time.Time) bool {
	return t.RevokedAt == nil && !t.IsExpired(now)
}

// Actor returns the principal the token authenticates as.
func (t *APIToken) Actor() Actor {
	return Actor{
		ID:          "token:" + t.ID,
		Name:        t.Name,
		Kind:        ActorIntegration,
		Permissions: t.Permissions,
	}
}
