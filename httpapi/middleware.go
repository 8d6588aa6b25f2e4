package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

// requestLogger logs one line per request through logrus
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			log.WithFields(log.Fields{
				"method":    r.Method,
				"path":      r.URL.Path,
				"status":    ww.Status(),
				"bytes":     ww.BytesWritten(),
				"duration":  time.Since(start),
				"requestId": middleware.GetReqID(r.Context()),
				"remote":    r.RemoteAddr,
			}).Info("Handled request")
		}()

		next.ServeHTTP(ww, r)
	})
}

// authenticator rejects requests without a verified token carrying a subject
func authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil || token.Subject() == "" {
			writeResponse(w, Response{
				Code:      http.StatusUnauthorized,
				Error:     "missing or invalid bearer token",
				ErrorCode: "unauthorized",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireOperator lets only configured operators through
func (h *Handler) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := h.operators[userID(r)]; !ok {
			writeResponse(w, Response{
				Code:      http.StatusForbidden,
				Error:     "operator access required",
				ErrorCode: "forbidden",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// userID is the token subject. Only valid behind authenticator.
func userID(r *http.Request) string {
	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		return ""
	}
	return token.Subject()
}
