package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/Dan9191/card-service/internal/apperrors"
	"github.com/Dan9191/card-service/internal/models"
	"github.com/Dan9191/card-service/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

var errPlatformNotFound = apperrors.New(apperrors.KindNotFound, "platform not found")

// RegisterPlatformInput holds the fields accepted when registering a platform
type RegisterPlatformInput struct {
	Name               string
	IPWhitelist        []string
	RateLimitPerMinute *int
}

// RegisterPlatform creates an active platform with a fresh key pair. The
// returned platform carries the plaintext secret key; it is not retrievable
// afterwards.
func (s *Service) RegisterPlatform(ctx context.Context, in RegisterPlatformInput) (*models.Platform, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.New(apperrors.KindValidation, "platform name is required")
	}
	whitelist, err := normalizeIPWhitelist(in.IPWhitelist)
	if err != nil {
		return nil, err
	}
	rateLimit := models.DefaultRateLimitPerMinute
	if in.RateLimitPerMinute != nil {
		if *in.RateLimitPerMinute <= 0 {
			return nil, apperrors.New(apperrors.KindValidation, "rateLimitPerMinute must be greater than zero")
		}
		rateLimit = *in.RateLimitPerMinute
	}

	apiKey, secretKey, secretHash, err := s.newKeyPair()
	if err != nil {
		return nil, err
	}
	platform := &models.Platform{
		Name:               name,
		APIKey:             apiKey,
		SecretKeyHash:      secretHash,
		Status:             models.PlatformStatusActive,
		IPWhitelist:        whitelist,
		RateLimitPerMinute: rateLimit,
	}
	if err := s.store.CreatePlatform(ctx, platform); err != nil {
		return nil, err
	}
	platform.SecretKey = secretKey

	s.log.Infof("Platform registered: %s (%s)", platform.Name, platform.ID)
	return platform, nil
}

// RegenerateKeys replaces both keys of a platform. The previous API key stops
// authenticating as soon as the update is stored.
func (s *Service) RegenerateKeys(ctx context.Context, platformID string) (*models.Platform, error) {
	platformID = strings.TrimSpace(platformID)
	if platformID == "" {
		return nil, apperrors.New(apperrors.KindValidation, "platformId is required")
	}

	apiKey, secretKey, secretHash, err := s.newKeyPair()
	if err != nil {
		return nil, err
	}
	platform, err := s.store.UpdatePlatformKeys(ctx, platformID, apiKey, secretHash)
	if err != nil {
		return nil, mapPlatformNotFound(err)
	}
	platform.SecretKey = secretKey

	s.log.Infof("Platform keys regenerated: %s (%s)", platform.Name, platform.ID)
	if s.notifier != nil {
		if err := s.notifier.SendKeyRotationAlert(platform.View(), s.now()); err != nil {
			s.log.Warnf("Key rotation alert for platform %s not sent: %v", platform.ID, err)
		}
	}
	return platform, nil
}

// ListPlatforms returns every platform without secrets
func (s *Service) ListPlatforms(ctx context.Context) ([]models.PlatformView, error) {
	platforms, err := s.store.ListPlatforms(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.PlatformView, 0, len(platforms))
	for i := range platforms {
		views = append(views, platforms[i].View())
	}
	return views, nil
}

// GetPlatform returns one platform without secrets
func (s *Service) GetPlatform(ctx context.Context, platformID string) (*models.PlatformView, error) {
	platform, err := s.store.FindPlatformByID(ctx, platformID)
	if err != nil {
		return nil, mapPlatformNotFound(err)
	}
	view := platform.View()
	return &view, nil
}

// UpdatePlatformStatus sets the status to active, inactive or suspended
func (s *Service) UpdatePlatformStatus(ctx context.Context, platformID, status string) (*models.PlatformView, error) {
	newStatus := models.PlatformStatus(status)
	if !newStatus.Valid() {
		return nil, apperrors.New(apperrors.KindValidation, "invalid status, must be active, inactive or suspended")
	}
	platform, err := s.store.UpdatePlatformStatus(ctx, platformID, newStatus)
	if err != nil {
		return nil, mapPlatformNotFound(err)
	}

	s.log.Infof("Platform %s status set to %s", platform.ID, platform.Status)
	view := platform.View()
	if s.notifier != nil {
		if err := s.notifier.SendStatusChangeAlert(view, s.now()); err != nil {
			s.log.Warnf("Status change alert for platform %s not sent: %v", platform.ID, err)
		}
	}
	return &view, nil
}

// UpdateIPWhitelist replaces the platform's IP whitelist. An empty list
// removes the restriction.
func (s *Service) UpdateIPWhitelist(ctx context.Context, platformID string, ipWhitelist []string) (*models.PlatformView, error) {
	whitelist, err := normalizeIPWhitelist(ipWhitelist)
	if err != nil {
		return nil, err
	}
	platform, err := s.store.UpdatePlatformIPWhitelist(ctx, platformID, whitelist)
	if err != nil {
		return nil, mapPlatformNotFound(err)
	}

	s.log.Infof("Platform %s IP whitelist updated (%d entries)", platform.ID, len(platform.IPWhitelist))
	view := platform.View()
	return &view, nil
}

// Authenticate resolves an API key to an active platform
func (s *Service) Authenticate(ctx context.Context, apiKey string) (*models.Platform, error) {
	if apiKey == "" {
		return nil, apperrors.ErrMissingCredential
	}
	platform, err := s.store.FindActivePlatformByAPIKey(ctx, apiKey)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrInvalidCredential
	}
	if err != nil {
		return nil, err
	}
	return platform, nil
}

// TouchPlatform records that the platform just made an authenticated call
func (s *Service) TouchPlatform(ctx context.Context, platformID string) error {
	return s.store.TouchPlatform(ctx, platformID, s.now())
}

func (s *Service) newKeyPair() (apiKey, secretKey, secretHash string, err error) {
	apiKey, err = utils.GenerateAPIKey()
	if err != nil {
		return "", "", "", err
	}
	secretKey, err = utils.GenerateSecretKey()
	if err != nil {
		return "", "", "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secretKey), s.hashCost)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to hash secret key: %w", err)
	}
	return apiKey, secretKey, string(hash), nil
}

func mapPlatformNotFound(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return errPlatformNotFound
	}
	return err
}

// normalizeIPWhitelist trims entries, drops duplicates keeping the first
// occurrence and rejects anything that is not an IP address.
func normalizeIPWhitelist(list []string) ([]string, error) {
	out := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, raw := range list {
		entry := strings.TrimSpace(raw)
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, apperrors.New(apperrors.KindValidation, fmt.Sprintf("invalid IP address in ipWhitelist: %q", raw))
		}
		if seen[ip.String()] {
			continue
		}
		seen[ip.String()] = true
		out = append(out, entry)
	}
	return out, nil
}
