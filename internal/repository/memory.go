package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dan9191/card-service/internal/apperrors"
	"github.com/Dan9191/card-service/internal/models"
	"github.com/google/uuid"
)

// MemoryStore keeps cards and platforms in process memory. It gives the same
// guarantees as Repository, including the conditional consume update, and is
// used for local runs and tests.
type MemoryStore struct {
	mu sync.RWMutex

	cards       map[string]*models.Card
	cardNumbers map[string]string

	platforms map[string]*models.Platform
	order     []string
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cards:       make(map[string]*models.Card),
		cardNumbers: make(map[string]string),
		platforms:   make(map[string]*models.Platform),
	}
}

func cloneCard(c *models.Card) *models.Card {
	out := *c
	out.CVV = ""
	return &out
}

func clonePlatform(p *models.Platform) *models.Platform {
	out := *p
	out.SecretKey = ""
	out.IPWhitelist = append([]string{}, p.IPWhitelist...)
	return &out
}

// CreateCard stores a new card. A number collision fails with ErrDuplicateKey.
func (s *MemoryStore) CreateCard(_ context.Context, card *models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cardNumbers[card.Number]; exists {
		return apperrors.New(apperrors.KindDuplicateKey, "card number already exists")
	}
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if card.Status == "" {
		card.Status = models.CardStatusUnused
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now().UTC()
	}
	s.cards[card.ID] = cloneCard(card)
	s.cardNumbers[card.Number] = card.ID
	return nil
}

// FindMatchingCard returns the unused card matching every supplied field
func (s *MemoryStore) FindMatchingCard(_ context.Context, match models.CardMatch) (*models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.cardNumbers[match.Number]
	if ok {
		c := s.cards[id]
		if c.Status == models.CardStatusUnused &&
			c.ExpirationDate == match.ExpirationDate &&
			c.CVVFingerprint == match.CVVFingerprint &&
			c.HolderName == match.HolderName &&
			c.NationalID == match.NationalID {
			return cloneCard(c), nil
		}
	}
	return nil, apperrors.New(apperrors.KindNotFound, "card not found")
}

// FindCardByID retrieves a card by id
func (s *MemoryStore) FindCardByID(_ context.Context, id string) (*models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cards[id]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "card not found")
	}
	return cloneCard(c), nil
}

// ConsumeCard marks an unused card as consumed under the write lock.
// Concurrent calls for the same id cannot both succeed.
func (s *MemoryStore) ConsumeCard(_ context.Context, id, transactionID, platform string, at time.Time) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[id]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "card not found")
	}
	if c.Status != models.CardStatusUnused {
		return nil, apperrors.ErrAlreadyConsumed
	}
	consumedAt := at.UTC()
	c.Status = models.CardStatusConsumed
	c.ConsumedBy = &transactionID
	c.ConsumedAt = &consumedAt
	if platform != "" {
		c.Platform = &platform
	}
	return cloneCard(c), nil
}

// CardCounts returns the total number of cards and how many were consumed
func (s *MemoryStore) CardCounts(_ context.Context) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var used int64
	for _, c := range s.cards {
		if c.Status == models.CardStatusConsumed {
			used++
		}
	}
	return int64(len(s.cards)), used, nil
}

// ConsumedByPlatform groups consumed cards by platform label, largest first
func (s *MemoryStore) ConsumedByPlatform(_ context.Context) ([]models.PlatformCount, error) {
	s.mu.RLock()
	counts := make(map[string]int64)
	for _, c := range s.cards {
		if c.Status != models.CardStatusConsumed {
			continue
		}
		label := ""
		if c.Platform != nil {
			label = *c.Platform
		}
		counts[label]++
	}
	s.mu.RUnlock()

	result := make([]models.PlatformCount, 0, len(counts))
	for label, count := range counts {
		result = append(result, models.PlatformCount{Platform: label, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Platform < result[j].Platform
	})
	return result, nil
}

// ConsumedSince groups cards consumed at or after since by UTC calendar date
func (s *MemoryStore) ConsumedSince(_ context.Context, since time.Time) ([]models.DateCount, error) {
	s.mu.RLock()
	counts := make(map[string]int64)
	for _, c := range s.cards {
		if c.Status != models.CardStatusConsumed || c.ConsumedAt == nil || c.ConsumedAt.Before(since) {
			continue
		}
		counts[c.ConsumedAt.UTC().Format("2006-01-02")]++
	}
	s.mu.RUnlock()

	result := make([]models.DateCount, 0, len(counts))
	for date, count := range counts {
		result = append(result, models.DateCount{Date: date, Count: count})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

// CreatePlatform stores a new platform
func (s *MemoryStore) CreatePlatform(_ context.Context, platform *models.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.platforms {
		if p.Name == platform.Name {
			return apperrors.ErrDuplicateName
		}
		if p.APIKey == platform.APIKey {
			return apperrors.New(apperrors.KindDuplicateKey, "platform key already exists")
		}
	}
	if platform.ID == "" {
		platform.ID = uuid.NewString()
	}
	if platform.IPWhitelist == nil {
		platform.IPWhitelist = []string{}
	}
	if platform.CreatedAt.IsZero() {
		platform.CreatedAt = time.Now().UTC()
	}
	s.platforms[platform.ID] = clonePlatform(platform)
	s.order = append(s.order, platform.ID)
	return nil
}

// FindPlatformByID retrieves a platform by id
func (s *MemoryStore) FindPlatformByID(_ context.Context, id string) (*models.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.platforms[id]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "platform not found")
	}
	return clonePlatform(p), nil
}

// FindActivePlatformByAPIKey retrieves an active platform by API key
func (s *MemoryStore) FindActivePlatformByAPIKey(_ context.Context, apiKey string) (*models.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.platforms {
		if p.APIKey == apiKey && p.Status == models.PlatformStatusActive {
			return clonePlatform(p), nil
		}
	}
	return nil, apperrors.New(apperrors.KindNotFound, "platform not found")
}

// ListPlatforms returns all platforms in registration order
func (s *MemoryStore) ListPlatforms(_ context.Context) ([]models.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	platforms := make([]models.Platform, 0, len(s.order))
	for _, id := range s.order {
		platforms = append(platforms, *clonePlatform(s.platforms[id]))
	}
	return platforms, nil
}

// UpdatePlatformKeys replaces both keys at once
func (s *MemoryStore) UpdatePlatformKeys(_ context.Context, id, apiKey, secretKeyHash string) (*models.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.platforms[id]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "platform not found")
	}
	for otherID, other := range s.platforms {
		if otherID != id && other.APIKey == apiKey {
			return nil, apperrors.New(apperrors.KindDuplicateKey, "platform key already exists")
		}
	}
	p.APIKey = apiKey
	p.SecretKeyHash = secretKeyHash
	return clonePlatform(p), nil
}

// UpdatePlatformStatus sets the platform status
func (s *MemoryStore) UpdatePlatformStatus(_ context.Context, id string, status models.PlatformStatus) (*models.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.platforms[id]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "platform not found")
	}
	p.Status = status
	return clonePlatform(p), nil
}

// UpdatePlatformIPWhitelist replaces the platform IP whitelist
func (s *MemoryStore) UpdatePlatformIPWhitelist(_ context.Context, id string, ipWhitelist []string) (*models.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.platforms[id]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "platform not found")
	}
	p.IPWhitelist = append([]string{}, ipWhitelist...)
	return clonePlatform(p), nil
}

// TouchPlatform records the last access time
func (s *MemoryStore) TouchPlatform(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.platforms[id]
	if !ok {
		return apperrors.New(apperrors.KindNotFound, "platform not found")
	}
	accessed := at.UTC()
	p.LastAccessedAt = &accessed
	return nil
}
