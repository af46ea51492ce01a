package utils

import (
	"regexp"
	"strconv"
	"testing"
	"time"
)

func TestGenerateCardNumber(t *testing.T) {
	for i := 0; i < 200; i++ {
		number, err := GenerateCardNumber("4532", 16)
		if err != nil {
			t.Fatalf("generate card number: %v", err)
		}
		if len(number) != 16 {
			t.Fatalf("expected 16 digits, got %q", number)
		}
		if number[:4] != "4532" {
			t.Fatalf("expected prefix 4532, got %q", number)
		}
		if !LuhnValid(number) {
			t.Fatalf("generated number %q fails Luhn", number)
		}
	}
}

func TestGenerateCardNumberRejectsBadInput(t *testing.T) {
	if _, err := GenerateCardNumber("45a2", 16); err == nil {
		t.Fatalf("expected error for non numeric prefix")
	}
	if _, err := GenerateCardNumber("4532", 4); err == nil {
		t.Fatalf("expected error when length does not exceed prefix")
	}
	if _, err := GenerateCardNumber("4532", 20); err == nil {
		t.Fatalf("expected error for length above 19")
	}
}

func TestGenerateExpiryDate(t *testing.T) {
	now := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	for i := 0; i < 200; i++ {
		expiry, err := GenerateExpiryDate(now)
		if err != nil {
			t.Fatalf("generate expiry: %v", err)
		}
		if !pattern.MatchString(expiry) {
			t.Fatalf("unexpected expiry format %q", expiry)
		}
		year, _ := strconv.Atoi(expiry[3:])
		if year < 28 || year > 31 {
			t.Fatalf("expiry year %d outside 2..5 years from 2026", year)
		}
	}
}

func TestGenerateCVV(t *testing.T) {
	for i := 0; i < 200; i++ {
		cvv, err := GenerateCVV()
		if err != nil {
			t.Fatalf("generate cvv: %v", err)
		}
		n, err := strconv.Atoi(cvv)
		if err != nil || len(cvv) != 3 || n < 100 || n > 999 {
			t.Fatalf("unexpected cvv %q", cvv)
		}
	}
}

func TestGenerateNationalID(t *testing.T) {
	for i := 0; i < 200; i++ {
		id, err := GenerateNationalID()
		if err != nil {
			t.Fatalf("generate national id: %v", err)
		}
		if !ValidNationalID(id) {
			t.Fatalf("generated national id %q has wrong check digits", id)
		}
	}
}

func TestCVVFingerprint(t *testing.T) {
	a := CVVFingerprint("453201511283036", "01/29", "123", "secret")
	b := CVVFingerprint("453201511283036", "01/29", "123", "secret")
	if a != b {
		t.Fatalf("fingerprint is not deterministic")
	}
	if a == CVVFingerprint("453201511283036", "01/29", "124", "secret") {
		t.Fatalf("fingerprint ignores cvv")
	}
	if a == CVVFingerprint("453201511283036", "01/29", "123", "other") {
		t.Fatalf("fingerprint ignores secret")
	}
}

func TestMaskCardNumber(t *testing.T) {
	if got := MaskCardNumber("453201511283036"); got != "***********3036" {
		t.Fatalf("unexpected mask %q", got)
	}
}

func TestGenerateKeys(t *testing.T) {
	apiKey, err := GenerateAPIKey()
	if err != nil || len(apiKey) != 32 {
		t.Fatalf("unexpected api key %q err=%v", apiKey, err)
	}
	secret, err := GenerateSecretKey()
	if err != nil || len(secret) != 64 {
		t.Fatalf("unexpected secret key %q err=%v", secret, err)
	}
}
