package logger

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const logTag = "[logger]"

// statusRecorder keeps the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Log logs the method, path, status and latency of every request.
func Log(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		log.Debugln(logTag, ": started", r.Method, r.URL.Path)

		h.ServeHTTP(recorder, r)

		entry := log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": recorder.status,
			"took":   time.Since(start).String(),
		})
		if recorder.status >= http.StatusInternalServerError {
			entry.Errorln(logTag, ": request failed")
			return
		}
		entry.Infoln(logTag, ": request finished")
	})
}
