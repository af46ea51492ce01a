package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// GenerateCardNumber generates a Luhn-valid card number of the given length
// starting with prefix. The last digit is the check digit.
func GenerateCardNumber(prefix string, length int) (string, error) {
	if length <= len(prefix) || length > 19 {
		return "", fmt.Errorf("invalid card number length: %d", length)
	}
	body, ok := toDigits(prefix)
	if !ok {
		return "", fmt.Errorf("card prefix must be numeric: %q", prefix)
	}

	random, err := randomDigits(length - len(prefix) - 1)
	if err != nil {
		return "", err
	}
	body = append(body, random...)
	body = append(body, LuhnDigit(body))

	var builder strings.Builder
	builder.Grow(length)
	for _, d := range body {
		builder.WriteByte(byte('0' + d))
	}
	return builder.String(), nil
}

// GenerateExpiryDate generates a card expiry date (MM/YY) with a random month
// and a year 2 to 5 years after now.
func GenerateExpiryDate(now time.Time) (string, error) {
	month, err := randomInt(12)
	if err != nil {
		return "", err
	}
	years, err := randomInt(4)
	if err != nil {
		return "", err
	}
	year := now.Year() + 2 + years
	return fmt.Sprintf("%02d/%02d", month+1, year%100), nil
}

// GenerateCVV generates a 3-digit CVV code in [100,999]
func GenerateCVV() (string, error) {
	n, err := randomInt(900)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%03d", n+100), nil
}

// GenerateNationalID generates an 11-digit national ID: nine random digits
// followed by two modulo-11 check digits.
func GenerateNationalID() (string, error) {
	digits, err := randomDigits(9)
	if err != nil {
		return "", err
	}
	digits = append(digits, Mod11CheckDigit(digits))
	digits = append(digits, Mod11CheckDigit(digits))

	var builder strings.Builder
	builder.Grow(len(digits))
	for _, d := range digits {
		builder.WriteByte(byte('0' + d))
	}
	return builder.String(), nil
}

// CVVFingerprint returns the HMAC stored in place of a card's CVV
func CVVFingerprint(cardNumber, expiryDate, cvv, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(cardNumber + "|" + expiryDate + "|" + cvv))
	return hex.EncodeToString(h.Sum(nil))
}

// MaskCardNumber keeps only the last four digits visible.
func MaskCardNumber(cardNumber string) string {
	if len(cardNumber) <= 4 {
		return cardNumber
	}
	return strings.Repeat("*", len(cardNumber)-4) + cardNumber[len(cardNumber)-4:]
}

func randomDigits(n int) ([]int, error) {
	digits := make([]int, n)
	for i := range digits {
		d, err := randomInt(10)
		if err != nil {
			return nil, err
		}
		digits[i] = d
	}
	return digits, nil
}

func randomInt(max int64) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return int(n.Int64()), nil
}
