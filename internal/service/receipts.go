package service

import (
	"fmt"

	"github.com/Dan9191/card-service/internal/apperrors"
	"github.com/Dan9191/card-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const receiptIssuer = "card-service"

// ReceiptClaims are the claims of a signed payment receipt. Subject is the
// card id and ID is the transaction id.
type ReceiptClaims struct {
	Amount       float64 `json:"amount"`
	CardLastFour string  `json:"cardLastFour"`
	Platform     string  `json:"platform,omitempty"`
	jwt.RegisteredClaims
}

func (s *Service) signReceipt(card *models.Card, amount float64) (string, error) {
	claims := ReceiptClaims{
		Amount:       amount,
		CardLastFour: card.LastFour(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:  receiptIssuer,
			Subject: card.ID,
		},
	}
	if card.ConsumedBy != nil {
		claims.ID = *card.ConsumedBy
	}
	if card.ConsumedAt != nil {
		claims.IssuedAt = jwt.NewNumericDate(*card.ConsumedAt)
	}
	if card.Platform != nil {
		claims.Platform = *card.Platform
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.ReceiptSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign receipt: %w", err)
	}
	return signed, nil
}

// VerifyReceipt checks a receipt's signature and returns its claims
func (s *Service) VerifyReceipt(receipt string) (*ReceiptClaims, error) {
	if receipt == "" {
		return nil, apperrors.New(apperrors.KindValidation, "receipt is required")
	}
	claims := &ReceiptClaims{}
	token, err := jwt.ParseWithClaims(receipt, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.config.ReceiptSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(receiptIssuer))
	if err != nil || !token.Valid {
		return nil, apperrors.New(apperrors.KindValidation, "invalid receipt")
	}
	return claims, nil
}
