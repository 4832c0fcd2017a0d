package rest

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/xenonforlife/Sample-Server-node-opcua/internal/logger"
)

// RequestIDHeader carries the request id on requests and responses.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext returns the request id assigned by the middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestID propagates the caller's X-Request-ID or assigns a new uuid.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (a *RESTAdapter) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debug("REST %s %s -> %d (%d bytes) in %s [%s]",
			r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(),
			time.Since(start), RequestIDFromContext(r.Context()))
	})
}

// rateLimit rejects requests once the token bucket is empty.
func (a *RESTAdapter) rateLimit(next http.Handler) http.Handler {
	if a.limiter.Unlimited() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.limiter.Allow() {
			a.metrics.RecordRateLimited()
			retry := int(math.Ceil(a.limiter.Retry().Seconds()))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeError(w, r, http.StatusTooManyRequests, StatusBadTooManyRequests, "request rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *RESTAdapter) requireAddressSpace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.as == nil {
			writeError(w, r, http.StatusServiceUnavailable, StatusBadResourceUnavailable, "address space not available")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// instrument records per-service metrics around h.
func (a *RESTAdapter) instrument(service string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.metrics.RecordRequestStart(service)
		defer a.metrics.RecordRequestEnd(service)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		h(ww, r)

		code := ""
		if ww.Status() >= http.StatusBadRequest {
			code = strconv.Itoa(ww.Status())
		}
		a.metrics.RecordRequest(service, time.Since(start), code)
	}
}
