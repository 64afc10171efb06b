package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitanda/internal/core/apperror"
	appctx "kitanda/internal/core/context"
	"kitanda/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.SetDefault(logger.Nop())
}

func newEngine(h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(), Trace(), Logger(logger.Nop()), ErrorHandler())
	r.GET("/x", h)
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRecovery_RendersInternalError(t *testing.T) {
	r := newEngine(func(*gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, string(apperror.CodeInternal), body["code"])
	assert.Equal(t, "Internal server error", body["message"])
	assert.Equal(t, "req-42", body["details"].(map[string]any)["request_id"])
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestTrace_KeepsClientIDs(t *testing.T) {
	var seen *appctx.TraceContext
	r := newEngine(func(c *gin.Context) {
		seen = appctx.GetTrace(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	req.Header.Set(HeaderTraceID, "trace-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.NotNil(t, seen)
	assert.Equal(t, "req-1", seen.RequestID)
	assert.Equal(t, "trace-1", seen.TraceID)
	assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))
	assert.Equal(t, "trace-1", w.Header().Get(HeaderTraceID))
}

func TestTrace_GeneratesIDs(t *testing.T) {
	r := newEngine(func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, w.Header().Get(HeaderRequestID), w.Header().Get(HeaderTraceID))
}

func TestErrorHandler_BusinessErrorKeepsMessage(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		_ = c.Error(apperror.NewSeriesInactive("A"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, string(apperror.CodeSeriesInactive), decode(t, w)["code"])
}

func TestQuietRoute(t *testing.T) {
	assert.True(t, quietRoute("/metrics"))
	assert.True(t, quietRoute("/health/ready"))
	assert.False(t, quietRoute("/api/v1/documents"))
}
