package http

import (
	"net/http"

	"teamseat-backend/internal/service"

	"github.com/gorilla/mux"
)

// NewRouter wires the JSON API. All consistency logic lives in the services;
// handlers only translate requests and error kinds.
func NewRouter(redemption service.RedemptionService, warranty service.WarrantyService) http.Handler {
	h := &handler{redemption: redemption, warranty: warranty}

	r := mux.NewRouter()
	r.Use(requestID, requestLogging)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/redeem", h.redeem).Methods(http.MethodPost)
	api.HandleFunc("/redeem/verify", h.verify).Methods(http.MethodPost)
	api.HandleFunc("/warranty/check", h.checkWarranty).Methods(http.MethodPost)
	api.HandleFunc("/warranty/validate-reuse", h.validateReuse).Methods(http.MethodPost)

	return r
}
