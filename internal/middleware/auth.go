package middleware

import (
	"context"
	"crypto/subtle"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/card-service/internal/apperrors"
	"github.com/Dan9191/card-service/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	APIKeyHeader   = "x-api-key"
	AdminKeyHeader = "x-admin-key"
)

type contextKey string

const platformContextKey contextKey = "platform"

// PlatformAuthenticator resolves API keys to active platforms.
type PlatformAuthenticator interface {
	Authenticate(ctx context.Context, apiKey string) (*models.Platform, error)
	TouchPlatform(ctx context.Context, platformID string) error
}

// RateLimiter counts calls per platform within a one minute window.
type RateLimiter interface {
	Allow(ctx context.Context, platformID string, limit int) (allowed bool, retryAfter time.Duration, err error)
}

// AccessGate authenticates platform-scoped requests by API key
type AccessGate struct {
	auth              PlatformAuthenticator
	limiter           RateLimiter
	log               *logrus.Logger
	trustProxyHeaders bool
}

// NewAccessGate creates a gate. When trustProxyHeaders is set the client IP
// is read from X-Forwarded-For or X-Real-IP before RemoteAddr.
func NewAccessGate(auth PlatformAuthenticator, log *logrus.Logger, trustProxyHeaders bool) *AccessGate {
	return &AccessGate{auth: auth, log: log, trustProxyHeaders: trustProxyHeaders}
}

// WithRateLimiter enables per-platform rate limit enforcement
func (g *AccessGate) WithRateLimiter(limiter RateLimiter) *AccessGate {
	g.limiter = limiter
	return g
}

// Middleware rejects requests without a valid API key or from an IP outside
// the platform's whitelist, and attaches the platform identity otherwise.
func (g *AccessGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := strings.TrimSpace(r.Header.Get(APIKeyHeader))
		platform, err := g.auth.Authenticate(r.Context(), apiKey)
		if err != nil {
			if apperrors.KindOf(err) == apperrors.KindInternal {
				g.log.WithError(err).Error("Platform authentication failed")
			}
			writeError(w, err)
			return
		}

		clientIP := ClientIP(r, g.trustProxyHeaders)
		if !ipAllowed(platform.IPWhitelist, clientIP) {
			g.log.WithFields(logrus.Fields{
				"platform_id": platform.ID,
				"client_ip":   clientIP,
			}).Warn("Request from IP outside whitelist rejected")
			writeError(w, apperrors.ErrIPNotAllowed)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(platform.RateLimitPerMinute))
		if g.limiter != nil {
			allowed, retryAfter, err := g.limiter.Allow(r.Context(), platform.ID, platform.RateLimitPerMinute)
			switch {
			case err != nil:
				g.log.WithError(err).Warnf("Rate limiter unavailable for platform %s, allowing request", platform.ID)
			case !allowed:
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				writeError(w, apperrors.ErrRateLimited)
				return
			}
		}

		if err := g.auth.TouchPlatform(r.Context(), platform.ID); err != nil {
			g.log.WithError(err).Warnf("Failed to update last access for platform %s", platform.ID)
		}

		identity := models.PlatformIdentity{
			ID:                 platform.ID,
			Name:               platform.Name,
			RateLimitPerMinute: platform.RateLimitPerMinute,
		}
		ctx := context.WithValue(r.Context(), platformContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PlatformFromContext returns the identity attached by AccessGate
func PlatformFromContext(ctx context.Context) (models.PlatformIdentity, bool) {
	identity, ok := ctx.Value(platformContextKey).(models.PlatformIdentity)
	return identity, ok
}

// AdminGate allows requests whose x-admin-key header equals secret. An empty
// secret rejects every request.
func AdminGate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(AdminKeyHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				writeError(w, apperrors.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the caller's address. Proxy headers are only consulted
// when trusted.
func ClientIP(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func ipAllowed(whitelist []string, clientIP string) bool {
	if len(whitelist) == 0 {
		return true
	}
	ip := net.ParseIP(clientIP)
	if ip == nil {
		return false
	}
	for _, entry := range whitelist {
		if allowed := net.ParseIP(entry); allowed != nil && allowed.Equal(ip) {
			return true
		}
	}
	return false
}
