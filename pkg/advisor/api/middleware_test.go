package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecoveryMiddleware(t *testing.T) {
	metrics := NewMetrics()
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("model exploded")
	})
	handler := RequestIDMiddleware(RecoveryMiddleware(discardLogger(), metrics)(panicking))

	req := httptest.NewRequest(http.MethodPost, "/api/crop-recommendation", nil)
	w := httptest.NewRecorder()
	require.NotPanics(t, func() { handler.ServeHTTP(w, req) })

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"model exploded"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	// The next request is served normally.
	ok := RecoveryMiddleware(discardLogger(), metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	w = httptest.NewRecorder()
	ok.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestIDFromContext(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	metrics := NewMetrics()
	router, _ := setupRouterTest(t, defaultPredictors(), RouterConfig{
		Metrics:        metrics,
		RateLimit:      1,
		RateLimitBurst: 1,
	})

	assert.Equal(t, http.StatusOK, get(router, "/api/logs").Code)

	w := get(router, "/api/logs")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Rate limit exceeded", decodeBody(t, w)["error"])
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// System endpoints are not limited.
	assert.Equal(t, http.StatusOK, get(router, "/health").Code)
}

func TestLogsAuth(t *testing.T) {
	ja := jwtauth.New("HS256", []byte("test-secret"), nil)
	router, _ := setupRouterTest(t, defaultPredictors(), RouterConfig{LogsAuth: ja})

	for _, path := range []string{"/api/logs", "/api/crop-recommendation"} {
		w := get(router, path)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		assert.Equal(t, "Unauthorized: no token found", decodeBody(t, w)["error"])
	}

	req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["error"])

	_, token, err := ja.Encode(map[string]interface{}{"sub": "operator"})
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/api/logs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Recommendations stay open.
	w = postJSON(t, router, "/api/crop-recommendation", validBodies()["crop"])
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSMiddleware(t *testing.T) {
	router, _ := setupRouterTest(t, defaultPredictors(), RouterConfig{EnableCORS: true})

	req := httptest.NewRequest(http.MethodOptions, "/api/crop-recommendation", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestBodyLimitMiddleware(t *testing.T) {
	router, repo := setupRouterTest(t, defaultPredictors(), RouterConfig{MaxBodyBytes: 16})

	w := postJSON(t, router, "/api/fertilizer-recommendation", validBodies()["fertilizer"])

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, repo.Len())
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := NewMetrics()
	predictors := defaultPredictors()
	delete(predictors, "dosage")
	router, _ := setupRouterTest(t, predictors, RouterConfig{Metrics: metrics})

	postJSON(t, router, "/api/crop-recommendation", validBodies()["crop"])
	postJSON(t, router, "/api/dosage-recommendation", validBodies()["dosage"])
	assert.Equal(t, http.StatusNotFound, get(router, "/wp-admin/setup.php").Code)

	w := get(router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `advisor_predictions_total{domain="crop",outcome="success"} 1`)
	assert.Contains(t, body, `advisor_predictions_total{domain="dosage",outcome="model_unavailable"} 1`)
	assert.True(t, strings.Contains(body, `route="/api/crop-recommendation"`), body)
	assert.Contains(t, body, `route="unmatched",status="404"`)
	assert.NotContains(t, body, "wp-admin")
}
