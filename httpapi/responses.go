package httpapi

import (
	"encoding/json"
	"net/http"

	"quizstake/domain"

	log "github.com/sirupsen/logrus"
)

// Response is the envelope of every JSON reply
type Response struct {
	Message   string      `json:"message,omitempty"`
	Code      int         `json:"code"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorCode string      `json:"errorCode,omitempty"`
}

func writeResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.WithError(err).Warn("Failed to write response")
	}
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeResponse(w, Response{Code: status, Data: data})
}

var kindStatus = map[domain.ErrorKind]int{
	domain.KindValidation:         http.StatusBadRequest,
	domain.KindForbidden:          http.StatusForbidden,
	domain.KindNotFound:           http.StatusNotFound,
	domain.KindConflict:           http.StatusConflict,
	domain.KindAlreadyMatched:     http.StatusConflict,
	domain.KindInsufficientFunds:  http.StatusUnprocessableEntity,
	domain.KindStorageUnavailable: http.StatusServiceUnavailable,
	// A write conflict should never escape the application layer, but if it
	// does the request is safe to retry.
	domain.KindWriteConflict: http.StatusServiceUnavailable,
}

// writeError maps the domain taxonomy onto HTTP statuses
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"error":  err,
		}).Error("Unhandled error serving request")
		writeResponse(w, Response{
			Code:      http.StatusInternalServerError,
			Error:     "internal error",
			ErrorCode: "internal",
		})
		return
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
		kind = domain.KindStorageUnavailable
	}

	writeResponse(w, Response{
		Code:      status,
		Error:     err.Error(),
		ErrorCode: string(kind),
	})
}

func writeBadRequest(w http.ResponseWriter, format string, args ...any) {
	writeResponse(w, Response{
		Code:      http.StatusBadRequest,
		Error:     domain.NewValidationError(format, args...).Error(),
		ErrorCode: string(domain.KindValidation),
	})
}
