package domain

import "time"

// RedemptionRecord is the append-only ledger of confirmed redemptions.
// Rows are never updated or deleted; after a rollback they are the sole
// source of truth for who last held a warranty code.
type RedemptionRecord struct {
	ID                   int32     `json:"id"`
	Email                string    `json:"email"`
	Code                 string    `json:"code"`
	TeamID               int32     `json:"team_id"`
	AccountID            string    `json:"account_id"`
	IsWarrantyRedemption bool      `json:"is_warranty_redemption"`
	RedeemedAt           time.Time `json:"redeemed_at"`
}
