package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/dataql/internal/logging"
	"github.com/rpattn/dataql/internal/query"
	"github.com/rpattn/dataql/internal/repository"
)

func TestRequestIDGeneratesAndReuses(t *testing.T) {
	var seen string
	h := RequestID(logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(RequestIDHeader)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/query", nil))
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	require.NoError(t, err)
	assert.Equal(t, rec.Header().Get(RequestIDHeader), seen)

	req := httptest.NewRequest(http.MethodPost, "/query", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestLoggingMiddlewareCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelInfo)

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), RequestID(logger), LoggingMiddleware(logger))

	req := httptest.NewRequest(http.MethodPost, "/meta", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.Contains(t, line, "http request")
	assert.Contains(t, line, "request_id=req-1")
	assert.Contains(t, line, "status=418")
	assert.Contains(t, line, "path=/meta")
}

func TestHopCacheMiddlewareInjectsLoader(t *testing.T) {
	var loaders []*query.HopLoader
	h := HopCacheMiddleware(repository.Registry{}, logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loaders = append(loaders, query.HopLoaderFromContext(r.Context()))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/query", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/query", nil))

	require.Len(t, loaders, 2)
	assert.NotNil(t, loaders[0])
	assert.NotNil(t, loaders[1])
	assert.NotSame(t, loaders[0], loaders[1])
}
