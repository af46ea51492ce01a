package handler

import (
	"net/http"

	"github.com/Dan9191/card-service/internal/middleware"
	"github.com/gorilla/mux"
)

// NewRouter wires every route. Admin routes sit behind the admin gate and
// platform routes behind the access gate. Routes are registered on the root
// router so a wrong method answers 405 everywhere.
func NewRouter(h *Handler, access *middleware.AccessGate, adminSecret string) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(h.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.MethodNotAllowed)

	r.HandleFunc("/status", h.Status).Methods("GET")

	// Public card routes
	r.HandleFunc("/credit-cards/generate", h.GenerateCard).Methods("POST")
	r.HandleFunc("/credit-cards/validate", h.ValidateCard).Methods("POST")
	r.HandleFunc("/credit-cards/process-payment", h.ProcessPayment).Methods("POST")
	r.HandleFunc("/credit-cards/stats", h.Stats).Methods("GET")
	r.HandleFunc("/credit-cards/receipts/verify", h.VerifyReceipt).Methods("POST")

	// Admin routes
	admin := middleware.AdminGate(adminSecret)
	r.Handle("/auth/register", admin(http.HandlerFunc(h.RegisterPlatform))).Methods("POST")
	r.Handle("/auth/regenerate-keys", admin(http.HandlerFunc(h.RegenerateKeys))).Methods("POST")
	r.Handle("/auth/platforms", admin(http.HandlerFunc(h.ListPlatforms))).Methods("GET")
	r.Handle("/auth/platforms/{id}/status", admin(http.HandlerFunc(h.UpdatePlatformStatus))).Methods("PUT")
	r.Handle("/auth/platforms/{id}/ip-whitelist", admin(http.HandlerFunc(h.UpdateIPWhitelist))).Methods("PUT")

	// Platform-scoped routes
	r.Handle("/platform/me", access.Middleware(http.HandlerFunc(h.CurrentPlatform))).Methods("GET")
	r.Handle("/platform/stats", access.Middleware(http.HandlerFunc(h.Stats))).Methods("GET")
	r.Handle("/platform/process-payment", access.Middleware(http.HandlerFunc(h.PlatformProcessPayment))).Methods("POST")

	return r
}
