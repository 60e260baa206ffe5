package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"taskbot/pkg/logging"
)

// requestLogger logs every request once it has been served. Query strings
// are left out since the callback carries authorization codes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logging.Debug("Server", "%s %s status=%d bytes=%d duration=%s request_id=%s",
			r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start), middleware.GetReqID(r.Context()))
	})
}
