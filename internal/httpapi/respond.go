package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type uploadResponse struct {
	Success   bool   `json:"success"`
	Duplicate bool   `json:"duplicate,omitempty"`
	RecordID  int64  `json:"recordId"`
	Message   string `json:"message,omitempty"`
}

type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type documentsResponse struct {
	Success   bool `json:"success"`
	Documents any  `json:"documents"`
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("Failed to encode response", "error", err)
	}
}

// sendJSONError writes {"success": false, "message": message}.
func sendJSONError(w http.ResponseWriter, logger *slog.Logger, message string, statusCode int) {
	logger.Warn("Sending JSON error to client", "message", message, "statusCode", statusCode)
	writeJSON(w, statusCode, errorResponse{Success: false, Message: message})
}
