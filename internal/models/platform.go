package models

import "time"

// PlatformStatus is the lifecycle status of a platform.
type PlatformStatus string

const (
	PlatformStatusActive    PlatformStatus = "active"
	PlatformStatusInactive  PlatformStatus = "inactive"
	PlatformStatusSuspended PlatformStatus = "suspended"
)

// DefaultRateLimitPerMinute is applied when registration omits a limit.
const DefaultRateLimitPerMinute = 60

// Valid reports whether s is a known status.
func (s PlatformStatus) Valid() bool {
	switch s {
	case PlatformStatusActive, PlatformStatusInactive, PlatformStatusSuspended:
		return true
	}
	return false
}

// Platform represents an external platform allowed to call the API
type Platform struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	APIKey             string         `json:"apiKey"`
	SecretKey          string         `json:"-"` // Plaintext, only present right after creation or rotation
	SecretKeyHash      string         `json:"-"`
	Status             PlatformStatus `json:"status"`
	IPWhitelist        []string       `json:"ipWhitelist"`
	RateLimitPerMinute int            `json:"rateLimitPerMinute"`
	CreatedAt          time.Time      `json:"createdAt"`
	LastAccessedAt     *time.Time     `json:"lastAccessedAt"`
}

// PlatformView is the representation of a platform returned by list and
// fetch operations. It has no secret fields.
type PlatformView struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	APIKey             string         `json:"apiKey"`
	Status             PlatformStatus `json:"status"`
	IPWhitelist        []string       `json:"ipWhitelist"`
	RateLimitPerMinute int            `json:"rateLimitPerMinute"`
	CreatedAt          time.Time      `json:"createdAt"`
	LastAccessedAt     *time.Time     `json:"lastAccessedAt"`
}

// View strips secrets from the platform.
func (p *Platform) View() PlatformView {
	whitelist := p.IPWhitelist
	if whitelist == nil {
		whitelist = []string{}
	}
	return PlatformView{
		ID:                 p.ID,
		Name:               p.Name,
		APIKey:             p.APIKey,
		Status:             p.Status,
		IPWhitelist:        whitelist,
		RateLimitPerMinute: p.RateLimitPerMinute,
		CreatedAt:          p.CreatedAt,
		LastAccessedAt:     p.LastAccessedAt,
	}
}

// PlatformIdentity is attached to requests that passed the access gate.
type PlatformIdentity struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	RateLimitPerMinute int    `json:"rateLimitPerMinute"`
}
