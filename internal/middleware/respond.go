package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/Dan9191/card-service/internal/apperrors"
)

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperrors.HTTPStatus(err))
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": apperrors.PublicMessage(err),
	})
}
