package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"teamseat-backend/internal/domain"
	"teamseat-backend/internal/logger"
	"teamseat-backend/internal/service"
)

type handler struct {
	redemption service.RedemptionService
	warranty   service.WarrantyService
}

type redeemRequest struct {
	Email  string `json:"email"`
	Code   string `json:"code"`
	TeamID *int32 `json:"team_id,omitempty"`
}

func (h *handler) redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &domain.ValidationError{Reason: "invalid request body"})
		return
	}
	if req.Email == "" || req.Code == "" {
		writeError(w, &domain.ValidationError{Reason: "email and code are required"})
		return
	}

	result, err := h.redemption.Redeem(r.Context(), req.Email, req.Code, req.TeamID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type verifyRequest struct {
	Code string `json:"code"`
}

func (h *handler) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, &domain.ValidationError{Reason: "code is required"})
		return
	}

	result, err := h.redemption.VerifyCode(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type warrantyCheckRequest struct {
	Email string `json:"email,omitempty"`
	Code  string `json:"code,omitempty"`
}

func (h *handler) checkWarranty(w http.ResponseWriter, r *http.Request) {
	var req warrantyCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &domain.ValidationError{Reason: "invalid request body"})
		return
	}

	result, err := h.warranty.CheckStatus(r.Context(), req.Email, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type validateReuseRequest struct {
	Code  string `json:"code"`
	Email string `json:"email"`
}

func (h *handler) validateReuse(w http.ResponseWriter, r *http.Request) {
	var req validateReuseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" || req.Email == "" {
		writeError(w, &domain.ValidationError{Reason: "code and email are required"})
		return
	}

	result, err := h.warranty.ValidateReuse(r.Context(), req.Code, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *domain.ValidationError
		conflictErr   *domain.ConflictError
		rateErr       *domain.RateLimitError
		credErr       *domain.CredentialError
		externalErr   *domain.ExternalServiceError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &conflictErr):
		status = http.StatusConflict
	case errors.As(err, &rateErr):
		status = http.StatusTooManyRequests
		w.Header().Set("Retry-After", strconv.Itoa(rateErr.RetryAfterSeconds))
	case errors.As(err, &credErr), errors.As(err, &externalErr):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
