package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"DataLink.piwebapi/internal/models"
)

// RespondWithError sends a JSON error response using the APIError model.
// It sets the HTTP status code from the APIError and encodes the entire struct.
func RespondWithError(writer http.ResponseWriter, apiErr models.APIError) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(apiErr.StatusCode)

	if err := json.NewEncoder(writer).Encode(apiErr); err != nil {
		zap.L().Error("Failed to encode error response", zap.Error(err))
	}
}

// RespondWithErr maps err onto the APIError envelope and sends it.
func RespondWithErr(writer http.ResponseWriter, err error) {
	apiErr := models.APIErrorFrom(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		zap.L().Warn("request failed", zap.Int("status", apiErr.StatusCode), zap.Error(err))
	}
	RespondWithError(writer, apiErr)
}

// RespondWithJSON sends a JSON success response.
func RespondWithJSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(writer).Encode(payload); err != nil {
		zap.L().Error("Failed to encode JSON response", zap.Error(err))
	}
}

// RespondWithText sends body verbatim with the given content type.
func RespondWithText(writer http.ResponseWriter, statusCode int, contentType string, body []byte) {
	writer.Header().Set("Content-Type", contentType)
	writer.WriteHeader(statusCode)
	if _, err := writer.Write(body); err != nil {
		zap.L().Error("Failed to write response", zap.Error(err))
	}
}
