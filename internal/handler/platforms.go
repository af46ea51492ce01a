package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Dan9191/card-service/internal/apperrors"
	"github.com/Dan9191/card-service/internal/middleware"
	"github.com/Dan9191/card-service/internal/service"
	"github.com/gorilla/mux"
)

const secretKeyWarning = "Store the secret key securely. It will not be shown again."

var errWhitelistNotArray = apperrors.New(apperrors.KindValidation, "ipWhitelist must be an array of strings")

type registerPlatformRequest struct {
	Name               string   `json:"name"`
	IPWhitelist        []string `json:"ipWhitelist"`
	RateLimitPerMinute *int     `json:"rateLimitPerMinute"`
}

type regenerateKeysRequest struct {
	PlatformID string `json:"platformId"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type updateWhitelistRequest struct {
	IPWhitelist json.RawMessage `json:"ipWhitelist"`
}

// RegisterPlatform creates a platform and returns its keys once
func (h *Handler) RegisterPlatform(w http.ResponseWriter, r *http.Request) {
	var req registerPlatformRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeAdminError(w, r, err)
		return
	}

	platform, err := h.svc.RegisterPlatform(r.Context(), service.RegisterPlatformInput{
		Name:               req.Name,
		IPWhitelist:        req.IPWhitelist,
		RateLimitPerMinute: req.RateLimitPerMinute,
	})
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}

	view := platform.View()
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Platform registered successfully",
		"platform": map[string]any{
			"id":                 view.ID,
			"name":               view.Name,
			"apiKey":             view.APIKey,
			"secretKey":          platform.SecretKey,
			"ipWhitelist":        view.IPWhitelist,
			"rateLimitPerMinute": view.RateLimitPerMinute,
			"status":             view.Status,
			"createdAt":          view.CreatedAt,
		},
		"warning": secretKeyWarning,
	})
}

// RegenerateKeys rotates both keys of a platform
func (h *Handler) RegenerateKeys(w http.ResponseWriter, r *http.Request) {
	var req regenerateKeysRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeAdminError(w, r, err)
		return
	}

	platform, err := h.svc.RegenerateKeys(r.Context(), req.PlatformID)
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Keys regenerated successfully",
		"platform": map[string]any{
			"id":        platform.ID,
			"name":      platform.Name,
			"apiKey":    platform.APIKey,
			"secretKey": platform.SecretKey,
		},
		"warning": secretKeyWarning,
	})
}

// ListPlatforms returns all platforms without secret keys
func (h *Handler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	platforms, err := h.svc.ListPlatforms(r.Context())
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"count":     len(platforms),
		"platforms": platforms,
	})
}

// UpdatePlatformStatus sets a platform's status
func (h *Handler) UpdatePlatformStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeAdminError(w, r, err)
		return
	}

	platform, err := h.svc.UpdatePlatformStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Platform status updated successfully",
		"platform": platform,
	})
}

// UpdateIPWhitelist replaces a platform's IP whitelist
func (h *Handler) UpdateIPWhitelist(w http.ResponseWriter, r *http.Request) {
	var req updateWhitelistRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	var whitelist []string
	if len(req.IPWhitelist) == 0 || req.IPWhitelist[0] != '[' || json.Unmarshal(req.IPWhitelist, &whitelist) != nil {
		h.writeAdminError(w, r, errWhitelistNotArray)
		return
	}

	platform, err := h.svc.UpdateIPWhitelist(r.Context(), mux.Vars(r)["id"], whitelist)
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "IP whitelist updated successfully",
		"platform": platform,
	})
}

// CurrentPlatform returns the authenticated platform
func (h *Handler) CurrentPlatform(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.PlatformFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperrors.ErrMissingCredential)
		return
	}
	platform, err := h.svc.GetPlatform(r.Context(), identity.ID)
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"platform": platform,
	})
}
