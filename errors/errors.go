package errors

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/voforge/voforge-api/log"
	"github.com/xeipuuv/gojsonschema"
)

type apiError struct {
	Msg    string `json:"message"`
	Status int    `json:"status"`
	Err    error  `json:"-"`
}

func writeHTTPError(w http.ResponseWriter, msg string, status int, err error) apiError {
	var errorDetail string
	if err != nil {
		errorDetail = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg, "error_detail": errorDetail}); err != nil {
		log.LogNoJobID("error writing HTTP error", "http_error_msg", msg, "error", err)
	}

	return apiError{msg, status, err}
}

func WriteHTTPBadRequest(w http.ResponseWriter, msg string, err error) apiError {
	return writeHTTPError(w, msg, http.StatusBadRequest, err)
}

func WriteHTTPNotFound(w http.ResponseWriter, msg string, err error) apiError {
	return writeHTTPError(w, msg, http.StatusNotFound, err)
}

func WriteHTTPUnsupportedMediaType(w http.ResponseWriter, msg string, err error) apiError {
	return writeHTTPError(w, msg, http.StatusUnsupportedMediaType, err)
}

func WriteHTTPInternalServerError(w http.ResponseWriter, msg string, err error) apiError {
	return writeHTTPError(w, msg, http.StatusInternalServerError, err)
}

func WriteHTTPBadBodySchema(where string, w http.ResponseWriter, errors []gojsonschema.ResultError) apiError {
	sb := strings.Builder{}
	sb.WriteString("Body validation error in ")
	sb.WriteString(where)
	sb.WriteString(" ")
	for i := 0; i < len(errors); i++ {
		sb.WriteString(errors[i].String())
		sb.WriteString(" ")
	}
	return writeHTTPError(w, sb.String(), http.StatusBadRequest, nil)
}

// WriteHTTPValidationFailure renders a structured import or action validation
// failure, keeping the machine-readable fields alongside the message.
func WriteHTTPValidationFailure(w http.ResponseWriter, msg string, detail interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"error": msg, "detail": detail}); err != nil {
		log.LogNoJobID("error writing HTTP validation failure", "http_error_msg", msg, "error", err)
	}
}
