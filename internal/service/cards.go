package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Dan9191/card-service/internal/apperrors"
	"github.com/Dan9191/card-service/internal/models"
	"github.com/Dan9191/card-service/internal/utils"
)

const (
	// 4-digit prefix, 11 random digits and the Luhn check digit
	cardNumberLength = 16
	maxIssueAttempts = 5
	recentWindow     = 7 * 24 * time.Hour
)

var errInvalidCard = apperrors.New(apperrors.KindNotFound, "invalid or already used card")

// ValidateCardInput holds every field of a card as re-supplied by the caller
type ValidateCardInput struct {
	CardNumber     string
	ExpirationDate string
	CVV            string
	HolderName     string
	NationalID     string
}

// PaymentInput describes a payment against a previously validated card
type PaymentInput struct {
	CardID        string
	Amount        float64
	TransactionID string
}

// PaymentResult is the consumed card plus a signed receipt
type PaymentResult struct {
	Card    *models.Card
	Amount  float64
	Receipt string
}

// IssueCard creates and stores a new unused card. The returned card is the
// only representation that carries the CVV.
func (s *Service) IssueCard(ctx context.Context) (*models.Card, error) {
	holderName, err := s.names.FullName(ctx)
	if err != nil {
		if apperrors.KindOf(err) != apperrors.KindDependencyUnavailable {
			err = apperrors.Wrap(apperrors.KindDependencyUnavailable, "name source unavailable", err)
		}
		return nil, err
	}

	expiry, err := utils.GenerateExpiryDate(s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to generate expiry date: %w", err)
	}
	cvv, err := utils.GenerateCVV()
	if err != nil {
		return nil, fmt.Errorf("failed to generate cvv: %w", err)
	}
	nationalID, err := utils.GenerateNationalID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate national id: %w", err)
	}

	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		number, err := utils.GenerateCardNumber(s.config.CardPrefix, cardNumberLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate card number: %w", err)
		}

		card := &models.Card{
			Number:         number,
			ExpirationDate: expiry,
			CVVFingerprint: utils.CVVFingerprint(number, expiry, cvv, s.config.FingerprintSecret),
			HolderName:     holderName,
			NationalID:     nationalID,
			Status:         models.CardStatusUnused,
		}
		err = s.store.CreateCard(ctx, card)
		if err == nil {
			card.CVV = cvv
			s.log.Infof("Card issued: %s (%s)", card.ID, utils.MaskCardNumber(card.Number))
			return card, nil
		}
		if !errors.Is(err, apperrors.ErrDuplicateKey) {
			return nil, err
		}
		s.log.Warnf("Card number collision on attempt %d, regenerating", attempt)
	}

	return nil, fmt.Errorf("failed to issue card: no unique number after %d attempts", maxIssueAttempts)
}

// ValidateCard finds the unused card matching every supplied field. It does
// not change the card.
func (s *Service) ValidateCard(ctx context.Context, in ValidateCardInput) (*models.Card, error) {
	if in.CardNumber == "" || in.ExpirationDate == "" || in.CVV == "" || in.HolderName == "" || in.NationalID == "" {
		return nil, apperrors.New(apperrors.KindValidation, "all card fields are required")
	}
	if !utils.LuhnValid(in.CardNumber) {
		return nil, errInvalidCard
	}

	card, err := s.store.FindMatchingCard(ctx, models.CardMatch{
		Number:         in.CardNumber,
		ExpirationDate: in.ExpirationDate,
		CVVFingerprint: utils.CVVFingerprint(in.CardNumber, in.ExpirationDate, in.CVV, s.config.FingerprintSecret),
		HolderName:     in.HolderName,
		NationalID:     in.NationalID,
	})
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, errInvalidCard
	}
	if err != nil {
		return nil, err
	}
	return card, nil
}

// ProcessPayment consumes the card. platform labels the consuming platform
// and may be empty.
func (s *Service) ProcessPayment(ctx context.Context, in PaymentInput, platform string) (*PaymentResult, error) {
	cardID := strings.TrimSpace(in.CardID)
	transactionID := strings.TrimSpace(in.TransactionID)
	if cardID == "" || transactionID == "" {
		return nil, apperrors.New(apperrors.KindValidation, "cardId, amount and transactionId are required")
	}
	if math.IsNaN(in.Amount) || in.Amount <= 0 {
		return nil, apperrors.New(apperrors.KindValidation, "amount must be greater than zero")
	}

	card, err := s.store.ConsumeCard(ctx, cardID, transactionID, platform, s.now())
	if err != nil {
		return nil, err
	}
	s.log.Infof("Payment processed: card %s, transaction %s", card.ID, transactionID)

	receipt, err := s.signReceipt(card, in.Amount)
	if err != nil {
		s.log.Errorf("Failed to sign receipt for card %s: %v", card.ID, err)
	}
	return &PaymentResult{Card: card, Amount: in.Amount, Receipt: receipt}, nil
}

// Stats aggregates card usage
func (s *Service) Stats(ctx context.Context) (*models.CardStats, error) {
	total, used, err := s.store.CardCounts(ctx)
	if err != nil {
		return nil, err
	}
	byPlatform, err := s.store.ConsumedByPlatform(ctx)
	if err != nil {
		return nil, err
	}
	byDate, err := s.store.ConsumedSince(ctx, s.now().Add(-recentWindow))
	if err != nil {
		return nil, err
	}

	stats := &models.CardStats{
		Total:        total,
		Used:         used,
		Available:    total - used,
		ByPlatform:   byPlatform,
		ByRecentDate: byDate,
	}
	if total > 0 {
		stats.UsageRatePercent = math.Round(float64(used)/float64(total)*10000) / 100
	}
	return stats, nil
}
