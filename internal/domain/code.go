package domain

import "time"

// RedemptionCode status values. A code never moves back to unused except
// through the orchestrator's rollback path.
const (
	CodeStatusUnused         = "unused"
	CodeStatusUsed           = "used"
	CodeStatusWarrantyActive = "warranty_active"
)

type RedemptionCode struct {
	ID                int32      `json:"id"`
	Code              string     `json:"code"`
	Status            string     `json:"status"`
	HasWarranty       bool       `json:"has_warranty"`
	WarrantyExpiresAt *time.Time `json:"warranty_expires_at,omitempty"` // nil = unlimited warranty
	UsedByEmail       *string    `json:"used_by_email,omitempty"`
	UsedTeamID        *int32     `json:"used_team_id,omitempty"`
	UsedAt            *time.Time `json:"used_at,omitempty"`
	CreatedOn         time.Time  `json:"created_on"`
}

// WarrantyExpired reports whether the warranty window has passed.
// A nil expiry means the warranty never expires.
func (c *RedemptionCode) WarrantyExpired(now time.Time) bool {
	return c.WarrantyExpiresAt != nil && c.WarrantyExpiresAt.Before(now)
}

// ClearAssignment resets the usage snapshot fields.
func (c *RedemptionCode) ClearAssignment() {
	c.UsedByEmail = nil
	c.UsedTeamID = nil
	c.UsedAt = nil
}
