package domain

import "time"

// Team status values. full is set and cleared only by this system's own
// bookkeeping; banned and error come from the provider health sync.
const (
	TeamStatusActive = "active"
	TeamStatusFull   = "full"
	TeamStatusBanned = "banned"
	TeamStatusError  = "error"
)

type Team struct {
	ID                   int32      `json:"id"`
	Name                 string     `json:"name"`
	AccountID            string     `json:"account_id"`
	Email                string     `json:"email"`
	Status               string     `json:"status"`
	CurrentMembers       int32      `json:"current_members"`
	MaxMembers           int32      `json:"max_members"`
	ExpiresAt            *time.Time `json:"expires_at,omitempty"`
	AccessTokenEncrypted string     `json:"-"`
	LastSync             *time.Time `json:"last_sync,omitempty"`
	CreatedOn            time.Time  `json:"created_on"`
}

// HasCapacity reports whether the team can take another seat.
func (t *Team) HasCapacity() bool {
	return t.CurrentMembers < t.MaxMembers
}

// Expired reports whether the team lapsed on its natural schedule.
func (t *Team) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

// Failed reports whether the team died through a provider-side fault,
// which is what a warranty covers.
func (t *Team) Failed() bool {
	return t.Status == TeamStatusBanned || t.Status == TeamStatusError
}
