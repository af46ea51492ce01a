package models

import "time"

// CardStatus is the redemption state of a card.
type CardStatus string

const (
	CardStatusUnused   CardStatus = "unused"
	CardStatusConsumed CardStatus = "consumed"
)

// Card represents a synthetic payment card
type Card struct {
	ID             string     `json:"id"`
	Number         string     `json:"number"`
	ExpirationDate string     `json:"expirationDate"` // MM/YY
	CVV            string     `json:"cvv,omitempty"`  // Only set on a freshly issued card
	CVVFingerprint string     `json:"-"`              // Stored in place of the CVV
	HolderName     string     `json:"holderName"`
	NationalID     string     `json:"nationalId"`
	Status         CardStatus `json:"status"`
	ConsumedBy     *string    `json:"consumedBy,omitempty"`
	ConsumedAt     *time.Time `json:"consumedAt,omitempty"`
	Platform       *string    `json:"platform,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// LastFour returns the last four digits of the card number.
func (c *Card) LastFour() string {
	if len(c.Number) <= 4 {
		return c.Number
	}
	return c.Number[len(c.Number)-4:]
}

// CardMatch holds the fields a caller must re-supply to validate a card.
type CardMatch struct {
	Number         string
	ExpirationDate string
	CVVFingerprint string
	HolderName     string
	NationalID     string
}
