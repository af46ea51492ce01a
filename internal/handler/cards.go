package handler

import (
	"net/http"
	"strings"

	"github.com/Dan9191/card-service/internal/apperrors"
	"github.com/Dan9191/card-service/internal/middleware"
	"github.com/Dan9191/card-service/internal/models"
	"github.com/Dan9191/card-service/internal/service"
)

type validateCardRequest struct {
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
	CVV            string `json:"cvv"`
	HolderName     string `json:"holderName"`
	NationalID     string `json:"nationalId"`
}

type paymentRequest struct {
	CardID        string  `json:"cardId"`
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transactionId"`
}

type verifyReceiptRequest struct {
	Receipt string `json:"receipt"`
}

// GenerateCard issues a new card. This is the only response carrying the CVV.
func (h *Handler) GenerateCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.svc.IssueCard(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Card generated successfully",
		"card":    card,
	})
}

// ValidateCard checks that an unused card matches every supplied field
func (h *Handler) ValidateCard(w http.ResponseWriter, r *http.Request) {
	var req validateCardRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	card, err := h.svc.ValidateCard(r.Context(), service.ValidateCardInput{
		CardNumber:     strings.TrimSpace(req.CardNumber),
		ExpirationDate: strings.TrimSpace(req.ExpirationDate),
		CVV:            strings.TrimSpace(req.CVV),
		HolderName:     req.HolderName,
		NationalID:     strings.TrimSpace(req.NationalID),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Card is valid",
		"cardId":  card.ID,
		"card": map[string]string{
			"id":         card.ID,
			"lastFour":   card.LastFour(),
			"holderName": card.HolderName,
		},
	})
}

// ProcessPayment consumes a card without a platform label
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	h.processPayment(w, r, "")
}

// PlatformProcessPayment consumes a card on behalf of the authenticated platform
func (h *Handler) PlatformProcessPayment(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.PlatformFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperrors.ErrMissingCredential)
		return
	}
	h.processPayment(w, r, identity.Name)
}

func (h *Handler) processPayment(w http.ResponseWriter, r *http.Request, platform string) {
	var req paymentRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.svc.ProcessPayment(r.Context(), service.PaymentInput{
		CardID:        req.CardID,
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
	}, platform)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := map[string]any{
		"success":       true,
		"message":       "Payment processed successfully",
		"paymentId":     result.Card.ID,
		"transactionId": strings.TrimSpace(req.TransactionID),
		"amount":        result.Amount,
		"cardLastFour":  result.Card.LastFour(),
		"status":        result.Card.Status,
	}
	if result.Receipt != "" {
		resp["receipt"] = result.Receipt
	}
	writeJSON(w, http.StatusOK, resp)
}

// VerifyReceipt checks a payment receipt and returns what it attests
func (h *Handler) VerifyReceipt(w http.ResponseWriter, r *http.Request) {
	var req verifyReceiptRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	claims, err := h.svc.VerifyReceipt(strings.TrimSpace(req.Receipt))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	receipt := map[string]any{
		"cardId":        claims.Subject,
		"transactionId": claims.ID,
		"amount":        claims.Amount,
		"cardLastFour":  claims.CardLastFour,
		"platform":      claims.Platform,
	}
	if claims.IssuedAt != nil {
		receipt["issuedAt"] = claims.IssuedAt.Time.UTC()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Receipt is valid",
		"receipt": receipt,
	})
}

// Stats returns card usage statistics as JSON, or XML when asked for
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if wantsXML(r) {
		if err := writeStatsXML(w, stats); err != nil {
			h.log.WithError(err).Error("Failed to write stats XML")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   statsResponse(stats),
	})
}

func statsResponse(stats *models.CardStats) models.CardStats {
	out := *stats
	if out.ByPlatform == nil {
		out.ByPlatform = []models.PlatformCount{}
	}
	if out.ByRecentDate == nil {
		out.ByRecentDate = []models.DateCount{}
	}
	return out
}
