package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"teamseat-backend/internal/logger"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenExpired = errors.New("access token has expired")

// Client talks to the seat provider's team API. It owns its own timeout
// policy; callers only see success or failure.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// CheckTokenExpiry reads the exp claim of the provider access token without
// verifying the signature (the provider verifies; we only want to avoid
// burning a call on a token we already know is dead).
func CheckTokenExpiry(accessToken string, now time.Time) error {
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		// Not a JWT; let the provider decide.
		return nil
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if exp.Before(now) {
		return ErrTokenExpired
	}
	return nil
}

type inviteRequest struct {
	Email string `json:"email_address"`
	Role  string `json:"role"`
}

type apiError struct {
	Detail string `json:"detail"`
}

// SendInvite asks the provider to invite email into the team account.
func (c *Client) SendInvite(ctx context.Context, accessToken, accountID, email string) error {
	logger.ExternalServiceCall("provider", "send_invite", "account_id", accountID)

	body, err := json.Marshal(inviteRequest{Email: email, Role: "standard-user"})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/accounts/%s/invites", c.baseURL, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		logger.ExternalServiceResult("provider", "send_invite", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("invite failed: status %d%s", resp.StatusCode, readDetail(resp.Body))
		logger.ExternalServiceResult("provider", "send_invite", err)
		return err
	}

	logger.ExternalServiceResult("provider", "send_invite", nil)
	return nil
}

type accountStatus struct {
	Banned      bool `json:"banned"`
	Deactivated bool `json:"deactivated"`
}

// FetchTeamHealth asks the provider whether the team account is still alive.
// It returns banned=true when the account has been suspended by the provider.
func (c *Client) FetchTeamHealth(ctx context.Context, accessToken, accountID string) (banned bool, err error) {
	logger.ExternalServiceCall("provider", "fetch_team_health", "account_id", accountID)

	url := fmt.Sprintf("%s/accounts/%s", c.baseURL, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.ExternalServiceResult("provider", "fetch_team_health", err)
		return false, err
	}
	defer resp.Body.Close()

	// The provider answers 401/403 for suspended accounts.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		logger.ExternalServiceResult("provider", "fetch_team_health", nil, "banned", true)
		return true, nil
	}
	if resp.StatusCode >= 400 {
		err := fmt.Errorf("health check failed: status %d%s", resp.StatusCode, readDetail(resp.Body))
		logger.ExternalServiceResult("provider", "fetch_team_health", err)
		return false, err
	}

	var status accountStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false, err
	}

	logger.ExternalServiceResult("provider", "fetch_team_health", nil, "banned", status.Banned)
	return status.Banned || status.Deactivated, nil
}

func readDetail(r io.Reader) string {
	var e apiError
	if err := json.NewDecoder(r).Decode(&e); err != nil || e.Detail == "" {
		return ""
	}
	return ": " + e.Detail
}
