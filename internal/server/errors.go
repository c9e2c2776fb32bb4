package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kfreiman/docconv/internal/convert"
	"github.com/kfreiman/docconv/internal/converter"
)

const (
	msgTimeout       = "Conversion timed out on the server. Try a smaller file."
	msgOutputMissing = "Conversion failed or output file not found. Check server logs for exact conversion error."
	msgTooLarge      = "Uploaded file is too large"
	msgBusy          = "Server is busy. Try again later."
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error body with the given status
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// statusFor maps a conversion error to the HTTP status and client message
func statusFor(err error) (int, string) {
	var (
		inputErr    *convert.ClientInputError
		timeoutErr  *converter.ToolTimeoutError
		missingErr  *convert.OutputMissingError
		tooLargeErr *http.MaxBytesError
		targetErr   *converter.InvalidTargetError
	)

	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, inputErr.Reason
	case errors.As(err, &targetErr):
		return http.StatusBadRequest, "Invalid target format"
	case errors.As(err, &tooLargeErr):
		return http.StatusRequestEntityTooLarge, msgTooLarge
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout, msgTimeout
	case errors.As(err, &missingErr):
		return http.StatusInternalServerError, msgOutputMissing
	default:
		return http.StatusInternalServerError, "Conversion failed: " + err.Error()
	}
}
