package domain

// ActorKind distinguishes interactive users from integration clients.
type ActorKind string

const (
	ActorUser        ActorKind = "USER"
	ActorIntegration ActorKind = "INTEGRATION"
)

// Actor is the authenticated principal performing an operation.
// Permissions are opaque strings such as "sales.delete" or "bypass_all".
type Actor struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        ActorKind `json:"kind"`
	Permissions []string  `json:"permissions"`
}

// HasPermission reports whether the actor was granted p.
func (a Actor) HasPermission(p string) bool {
	for _, granted := range a.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}

// DisplayName returns the name recorded in audit entries.
func (a *Actor) DisplayName() string {
	if a == nil || a.ID == "" {
		return GuestActorName
	}
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
