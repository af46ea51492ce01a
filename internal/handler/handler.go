package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Dan9191/card-service/internal/apperrors"
	"github.com/Dan9191/card-service/internal/service"
	"github.com/sirupsen/logrus"
)

const (
	serviceName    = "credit-card-api"
	serviceVersion = "1.0.0"
	maxBodyBytes   = 1 << 20
)

var errInvalidBody = apperrors.New(apperrors.KindValidation, "invalid request body")

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Status is the liveness probe
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"status":    "online",
		"service":   serviceName,
		"version":   serviceVersion,
		"timestamp": time.Now().UTC(),
	})
}

// NotFound answers unknown routes
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "route not found"})
}

// MethodNotAllowed answers known routes called with the wrong method
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"success": false, "message": "method not allowed"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// decodeBody reads a JSON request body into dst
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidBody
	}
	return nil
}

// writeError translates err into a status code and a public message.
// Internal faults are logged with full detail and answered generically.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.respondError(w, r, err, apperrors.HTTPStatus(err))
}

// writeAdminError is writeError for platform administration routes, where
// a missing platform is a 404.
func (h *Handler) writeAdminError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if errors.Is(err, apperrors.ErrNotFound) {
		status = http.StatusNotFound
	}
	h.respondError(w, r, err, status)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": apperrors.PublicMessage(err),
	})
}
