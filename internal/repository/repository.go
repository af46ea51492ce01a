package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/card-service/internal/apperrors"
	"github.com/Dan9191/card-service/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const schema = `
CREATE SCHEMA IF NOT EXISTS card_service;

CREATE TABLE IF NOT EXISTS card_service.cards (
	id              UUID PRIMARY KEY,
	number          TEXT NOT NULL UNIQUE,
	expiration_date TEXT NOT NULL,
	cvv_fingerprint TEXT NOT NULL,
	holder_name     TEXT NOT NULL,
	national_id     TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'unused',
	consumed_by     TEXT,
	consumed_at     TIMESTAMPTZ,
	platform        TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS cards_status_idx ON card_service.cards (status);
CREATE INDEX IF NOT EXISTS cards_consumed_at_idx ON card_service.cards (consumed_at);

CREATE TABLE IF NOT EXISTS card_service.platforms (
	id                    UUID PRIMARY KEY,
	name                  TEXT NOT NULL UNIQUE,
	api_key               TEXT NOT NULL UNIQUE,
	secret_key_hash       TEXT NOT NULL,
	status                TEXT NOT NULL DEFAULT 'active',
	ip_whitelist          TEXT[] NOT NULL DEFAULT '{}',
	rate_limit_per_minute INTEGER NOT NULL DEFAULT 60,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_accessed_at      TIMESTAMPTZ
);`

const (
	cardColumns = `id, number, expiration_date, cvv_fingerprint, holder_name, national_id,
		status, consumed_by, consumed_at, platform, created_at`
	platformColumns = `id, name, api_key, secret_key_hash, status, ip_whitelist,
		rate_limit_per_minute, created_at, last_accessed_at`
)

// Repository provides PostgreSQL storage for cards and platforms
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the schema if it does not exist
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*models.Card, error) {
	card := &models.Card{}
	var (
		status     string
		consumedBy sql.NullString
		consumedAt sql.NullTime
		platform   sql.NullString
	)
	err := row.Scan(&card.ID, &card.Number, &card.ExpirationDate, &card.CVVFingerprint, &card.HolderName,
		&card.NationalID, &status, &consumedBy, &consumedAt, &platform, &card.CreatedAt)
	if err != nil {
		return nil, err
	}
	card.Status = models.CardStatus(status)
	if consumedBy.Valid {
		card.ConsumedBy = &consumedBy.String
	}
	if consumedAt.Valid {
		at := consumedAt.Time.UTC()
		card.ConsumedAt = &at
	}
	if platform.Valid {
		card.Platform = &platform.String
	}
	card.CreatedAt = card.CreatedAt.UTC()
	return card, nil
}

func scanPlatform(row rowScanner) (*models.Platform, error) {
	platform := &models.Platform{}
	var (
		status         string
		lastAccessedAt sql.NullTime
	)
	err := row.Scan(&platform.ID, &platform.Name, &platform.APIKey, &platform.SecretKeyHash, &status,
		pq.Array(&platform.IPWhitelist), &platform.RateLimitPerMinute, &platform.CreatedAt, &lastAccessedAt)
	if err != nil {
		return nil, err
	}
	platform.Status = models.PlatformStatus(status)
	if platform.IPWhitelist == nil {
		platform.IPWhitelist = []string{}
	}
	if lastAccessedAt.Valid {
		at := lastAccessedAt.Time.UTC()
		platform.LastAccessedAt = &at
	}
	platform.CreatedAt = platform.CreatedAt.UTC()
	return platform, nil
}

func isUniqueViolation(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr, true
	}
	return nil, false
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// CreateCard inserts a new card. A number collision fails with ErrDuplicateKey.
func (r *Repository) CreateCard(ctx context.Context, card *models.Card) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if card.Status == "" {
		card.Status = models.CardStatusUnused
	}
	query := `
		INSERT INTO card_service.cards (id, number, expiration_date, cvv_fingerprint, holder_name, national_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, card.ID, card.Number, card.ExpirationDate, card.CVVFingerprint,
		card.HolderName, card.NationalID, string(card.Status)).Scan(&card.CreatedAt)
	if _, dup := isUniqueViolation(err); dup {
		return apperrors.Wrap(apperrors.KindDuplicateKey, "card number already exists", err)
	}
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	card.CreatedAt = card.CreatedAt.UTC()
	return nil
}

// FindMatchingCard returns the unused card matching every supplied field
func (r *Repository) FindMatchingCard(ctx context.Context, match models.CardMatch) (*models.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM card_service.cards
		WHERE number = $1 AND expiration_date = $2 AND cvv_fingerprint = $3
			AND holder_name = $4 AND national_id = $5 AND status = 'unused'`
	card, err := scanCard(r.db.QueryRowContext(ctx, query, match.Number, match.ExpirationDate,
		match.CVVFingerprint, match.HolderName, match.NationalID))
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.KindNotFound, "card not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	return card, nil
}

// FindCardByID retrieves a card by id
func (r *Repository) FindCardByID(ctx context.Context, id string) (*models.Card, error) {
	if !validID(id) {
		return nil, apperrors.New(apperrors.KindNotFound, "card not found")
	}
	query := `SELECT ` + cardColumns + ` FROM card_service.cards WHERE id = $1`
	card, err := scanCard(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.KindNotFound, "card not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	return card, nil
}

// ConsumeCard marks an unused card as consumed in one conditional update.
// Concurrent calls for the same id cannot both succeed.
func (r *Repository) ConsumeCard(ctx context.Context, id, transactionID, platform string, at time.Time) (*models.Card, error) {
	if !validID(id) {
		return nil, apperrors.New(apperrors.KindNotFound, "card not found")
	}
	query := `
		UPDATE card_service.cards
		SET status = 'consumed', consumed_by = $2, consumed_at = $3, platform = COALESCE($4, platform)
		WHERE id = $1 AND status = 'unused'
		RETURNING ` + cardColumns
	label := sql.NullString{String: platform, Valid: platform != ""}
	card, err := scanCard(r.db.QueryRowContext(ctx, query, id, transactionID, at.UTC(), label))
	if err == nil {
		return card, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to consume card: %w", err)
	}

	var exists bool
	if errExists := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM card_service.cards WHERE id = $1)`, id).Scan(&exists); errExists != nil {
		return nil, fmt.Errorf("failed to check card: %w", errExists)
	}
	if !exists {
		return nil, apperrors.New(apperrors.KindNotFound, "card not found")
	}
	return nil, apperrors.ErrAlreadyConsumed
}

// CardCounts returns the total number of cards and how many were consumed
func (r *Repository) CardCounts(ctx context.Context) (int64, int64, error) {
	var total, used int64
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'consumed')
		FROM card_service.cards`
	if err := r.db.QueryRowContext(ctx, query).Scan(&total, &used); err != nil {
		return 0, 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return total, used, nil
}

// ConsumedByPlatform groups consumed cards by platform label, largest first
func (r *Repository) ConsumedByPlatform(ctx context.Context) ([]models.PlatformCount, error) {
	query := `
		SELECT COALESCE(platform, ''), COUNT(*) AS count
		FROM card_service.cards
		WHERE status = 'consumed'
		GROUP BY platform
		ORDER BY count DESC, COALESCE(platform, '') ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to group cards by platform: %w", err)
	}
	defer rows.Close()

	result := []models.PlatformCount{}
	for rows.Next() {
		var pc models.PlatformCount
		if err := rows.Scan(&pc.Platform, &pc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan platform count: %w", err)
		}
		result = append(result, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to group cards by platform: %w", err)
	}
	return result, nil
}

// ConsumedSince groups cards consumed at or after since by UTC calendar date
func (r *Repository) ConsumedSince(ctx context.Context, since time.Time) ([]models.DateCount, error) {
	query := `
		SELECT to_char(consumed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM card_service.cards
		WHERE status = 'consumed' AND consumed_at >= $1
		GROUP BY day
		ORDER BY day ASC`
	rows, err := r.db.QueryContext(ctx, query, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to group cards by date: %w", err)
	}
	defer rows.Close()

	result := []models.DateCount{}
	for rows.Next() {
		var dc models.DateCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan date count: %w", err)
		}
		result = append(result, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to group cards by date: %w", err)
	}
	return result, nil
}

// CreatePlatform inserts a new platform
func (r *Repository) CreatePlatform(ctx context.Context, platform *models.Platform) error {
	if platform.ID == "" {
		platform.ID = uuid.NewString()
	}
	if platform.IPWhitelist == nil {
		platform.IPWhitelist = []string{}
	}
	query := `
		INSERT INTO card_service.platforms (id, name, api_key, secret_key_hash, status, ip_whitelist, rate_limit_per_minute)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, platform.ID, platform.Name, platform.APIKey, platform.SecretKeyHash,
		string(platform.Status), pq.Array(platform.IPWhitelist), platform.RateLimitPerMinute).Scan(&platform.CreatedAt)
	if pqErr, dup := isUniqueViolation(err); dup {
		if pqErr.Constraint == "platforms_name_key" {
			return apperrors.ErrDuplicateName
		}
		return apperrors.Wrap(apperrors.KindDuplicateKey, "platform key already exists", err)
	}
	if err != nil {
		return fmt.Errorf("failed to create platform: %w", err)
	}
	platform.CreatedAt = platform.CreatedAt.UTC()
	return nil
}

// FindPlatformByID retrieves a platform by id
func (r *Repository) FindPlatformByID(ctx context.Context, id string) (*models.Platform, error) {
	if !validID(id) {
		return nil, apperrors.New(apperrors.KindNotFound, "platform not found")
	}
	query := `SELECT ` + platformColumns + ` FROM card_service.platforms WHERE id = $1`
	return r.queryPlatform(ctx, query, id)
}

// FindActivePlatformByAPIKey retrieves an active platform by API key
func (r *Repository) FindActivePlatformByAPIKey(ctx context.Context, apiKey string) (*models.Platform, error) {
	query := `SELECT ` + platformColumns + ` FROM card_service.platforms WHERE api_key = $1 AND status = 'active'`
	return r.queryPlatform(ctx, query, apiKey)
}

// ListPlatforms returns all platforms, oldest first
func (r *Repository) ListPlatforms(ctx context.Context) ([]models.Platform, error) {
	query := `SELECT ` + platformColumns + ` FROM card_service.platforms ORDER BY created_at ASC, name ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list platforms: %w", err)
	}
	defer rows.Close()

	platforms := []models.Platform{}
	for rows.Next() {
		platform, err := scanPlatform(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan platform: %w", err)
		}
		platforms = append(platforms, *platform)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list platforms: %w", err)
	}
	return platforms, nil
}

// UpdatePlatformKeys replaces both keys in one statement
func (r *Repository) UpdatePlatformKeys(ctx context.Context, id, apiKey, secretKeyHash string) (*models.Platform, error) {
	if !validID(id) {
		return nil, apperrors.New(apperrors.KindNotFound, "platform not found")
	}
	query := `
		UPDATE card_service.platforms SET api_key = $2, secret_key_hash = $3
		WHERE id = $1
		RETURNING ` + platformColumns
	platform, err := r.queryPlatform(ctx, query, id, apiKey, secretKeyHash)
	if _, dup := isUniqueViolation(err); dup {
		return nil, apperrors.Wrap(apperrors.KindDuplicateKey, "platform key already exists", err)
	}
	return platform, err
}

// UpdatePlatformStatus sets the platform status
func (r *Repository) UpdatePlatformStatus(ctx context.Context, id string, status models.PlatformStatus) (*models.Platform, error) {
	if !validID(id) {
		return nil, apperrors.New(apperrors.KindNotFound, "platform not found")
	}
	query := `
		UPDATE card_service.platforms SET status = $2
		WHERE id = $1
		RETURNING ` + platformColumns
	return r.queryPlatform(ctx, query, id, string(status))
}

// UpdatePlatformIPWhitelist replaces the platform IP whitelist
func (r *Repository) UpdatePlatformIPWhitelist(ctx context.Context, id string, ipWhitelist []string) (*models.Platform, error) {
	if !validID(id) {
		return nil, apperrors.New(apperrors.KindNotFound, "platform not found")
	}
	if ipWhitelist == nil {
		ipWhitelist = []string{}
	}
	query := `
		UPDATE card_service.platforms SET ip_whitelist = $2
		WHERE id = $1
		RETURNING ` + platformColumns
	return r.queryPlatform(ctx, query, id, pq.Array(ipWhitelist))
}

// TouchPlatform records the last access time
func (r *Repository) TouchPlatform(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE card_service.platforms SET last_accessed_at = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to update last access: %w", err)
	}
	return nil
}

func (r *Repository) queryPlatform(ctx context.Context, query string, args ...any) (*models.Platform, error) {
	platform, err := scanPlatform(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.KindNotFound, "platform not found")
	}
	if err != nil {
		if _, dup := isUniqueViolation(err); dup {
			return nil, err
		}
		return nil, fmt.Errorf("failed to query platform: %w", err)
	}
	return platform, nil
}
