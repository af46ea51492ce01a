package repository

import (
	"context"
	"time"

	"github.com/Dan9191/card-service/internal/models"
)

// CardStore persists cards. ConsumeCard must be a single conditional update:
// it succeeds only while the card is still unused.
type CardStore interface {
	CreateCard(ctx context.Context, card *models.Card) error
	FindMatchingCard(ctx context.Context, match models.CardMatch) (*models.Card, error)
	FindCardByID(ctx context.Context, id string) (*models.Card, error)
	ConsumeCard(ctx context.Context, id, transactionID, platform string, at time.Time) (*models.Card, error)
	CardCounts(ctx context.Context) (total, used int64, err error)
	ConsumedByPlatform(ctx context.Context) ([]models.PlatformCount, error)
	ConsumedSince(ctx context.Context, since time.Time) ([]models.DateCount, error)
}

// PlatformStore persists platforms.
type PlatformStore interface {
	CreatePlatform(ctx context.Context, platform *models.Platform) error
	FindPlatformByID(ctx context.Context, id string) (*models.Platform, error)
	FindActivePlatformByAPIKey(ctx context.Context, apiKey string) (*models.Platform, error)
	ListPlatforms(ctx context.Context) ([]models.Platform, error)
	UpdatePlatformKeys(ctx context.Context, id, apiKey, secretKeyHash string) (*models.Platform, error)
	UpdatePlatformStatus(ctx context.Context, id string, status models.PlatformStatus) (*models.Platform, error)
	UpdatePlatformIPWhitelist(ctx context.Context, id string, ipWhitelist []string) (*models.Platform, error)
	TouchPlatform(ctx context.Context, id string, at time.Time) error
}

// Store is the full storage surface used by the service.
type Store interface {
	CardStore
	PlatformStore
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryStore)(nil)
)
