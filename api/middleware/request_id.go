package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/angelmondragon/ordering-backend/pkg/logger"
)

const (
	requestIDHeader = "X-Request-Id"
	maxRequestIDLen = 64
)

var traceContext = propagation.TraceContext{}

// RequestID tags the request with an id, echoed in X-Request-Id. A caller
// supplied id wins, then the trace id from a W3C traceparent header, then a
// fresh uuid. The extracted span context is kept on the request so spans
// started downstream join the caller's trace.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := traceContext.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			reqID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if !validRequestID(reqID) {
				if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
					reqID = sc.TraceID().String()
				} else {
					reqID = uuid.NewString()
				}
			}
			w.Header().Set(requestIDHeader, reqID)

			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validRequestID keeps ids printable ASCII so they are safe in log lines.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
