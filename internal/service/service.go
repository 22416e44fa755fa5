package service

import (
	"context"
	"time"

	"teamseat-backend/internal/domain"
)

// WarrantyGracePeriod is how long a warranty stays valid after the code's
// first-ever use.
const WarrantyGracePeriod = 30 * 24 * time.Hour

type TeamInfo struct {
	TeamID    int32      `json:"team_id"`
	TeamName  string     `json:"team_name"`
	AccountID string     `json:"account_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// VerifyResult answers "is this code redeemable, and where could it land".
type VerifyResult struct {
	Valid  bool       `json:"valid"`
	Reason string     `json:"reason,omitempty"`
	Teams  []TeamInfo `json:"teams"`
}

type RedeemResult struct {
	Message string   `json:"message"`
	Team    TeamInfo `json:"team_info"`
}

type ReuseDecision struct {
	CanReuse bool   `json:"can_reuse"`
	Reason   string `json:"reason"`
}

type BannedTeam struct {
	TeamID   int32      `json:"team_id"`
	TeamName string     `json:"team_name"`
	Email    string     `json:"email"`
	BannedAt *time.Time `json:"banned_at,omitempty"`
}

type WarrantyStatus struct {
	HasWarranty       bool         `json:"has_warranty"`
	WarrantyValid     bool         `json:"warranty_valid"`
	WarrantyExpiresAt *time.Time   `json:"warranty_expires_at,omitempty"`
	BannedTeams       []BannedTeam `json:"banned_teams"`
	CanReuse          bool         `json:"can_reuse"`
	OriginalCode      string       `json:"original_code,omitempty"`
	Message           string       `json:"message,omitempty"`
}

type RedemptionService interface {
	// VerifyCode validates a code without consuming it and lists the teams a
	// redemption could land on.
	VerifyCode(ctx context.Context, code string) (*VerifyResult, error)
	// Redeem runs the full reserve, invite, finalize-or-compensate flow.
	// teamID nil means pick automatically.
	Redeem(ctx context.Context, email, code string, teamID *int32) (*RedeemResult, error)
}

type WarrantyService interface {
	// CheckStatus reports warranty state for an email or a code. Rate limited.
	CheckStatus(ctx context.Context, email, code string) (*WarrantyStatus, error)
	// ValidateReuse decides whether a warranty code may be redeemed again by
	// the given requester.
	ValidateReuse(ctx context.Context, code, email string) (*ReuseDecision, error)
}

// InviteNotifier sends the provider invite. Slow and unreliable; never called
// while database locks are held. Implemented by provider.Client.
type InviteNotifier interface {
	SendInvite(ctx context.Context, accessToken, accountID, email string) error
}

// CredentialVault decrypts stored team access tokens.
type CredentialVault interface {
	Decrypt(ciphertext string) (string, error)
}

// TeamHealthSync re-checks a team against the provider and persists the
// resulting status as a side effect.
type TeamHealthSync interface {
	Sync(ctx context.Context, teamID int32) (*domain.Team, error)
}

// EmailService sends best-effort user-facing mail. Failures are logged, never
// surfaced.
type EmailService interface {
	SendRedemptionConfirmation(ctx context.Context, email, teamName string, expiresAt *time.Time) error
}
