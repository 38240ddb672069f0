package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tyemirov/certtrust/internal/certificates/trust"
)

const (
	headerContentType      = "Content-Type"
	contentTypeJSON        = "application/json"
	errorCategoryRequest   = "request"
	errorCategoryFormat    = "format"
	errorCategorySecurity  = "security"
	errorCategoryUnhandled = "internal"
)

type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category"`
	// Added lists aliases trusted before a multi-certificate upload failed.
	Added []string `json:"added,omitempty"`
}

func writeJSON(responseWriter http.ResponseWriter, statusCode int, payload any) {
	responseWriter.Header().Set(headerContentType, contentTypeJSON)
	responseWriter.WriteHeader(statusCode)
	_ = json.NewEncoder(responseWriter).Encode(payload)
}

func writeRequestError(responseWriter http.ResponseWriter, err error) {
	writeJSON(responseWriter, http.StatusBadRequest, errorResponse{Error: err.Error(), Category: errorCategoryRequest})
}

// writeManagerError reports a trust store failure. Requests are validated
// before reaching the manager, so manager failures are server-side.
func writeManagerError(responseWriter http.ResponseWriter, err error) {
	writeJSON(responseWriter, http.StatusInternalServerError, errorResponse{Error: err.Error(), Category: managerErrorCategory(err)})
}

// managerErrorCategory prefers a format cause over the security wrapper AsKeyStore adds.
func managerErrorCategory(err error) string {
	switch {
	case errors.Is(err, trust.ErrFormat):
		return errorCategoryFormat
	case errors.Is(err, trust.ErrSecurity):
		return errorCategorySecurity
	default:
		return errorCategoryUnhandled
	}
}
