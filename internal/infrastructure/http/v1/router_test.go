package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "kitanda/internal/core/context"
	"kitanda/internal/core/tx"
	"kitanda/internal/domain/audit"
	"kitanda/internal/domain/auth"
	"kitanda/internal/domain/currency"
	"kitanda/internal/domain/documents"
	"kitanda/internal/domain/reports/model7"
	"kitanda/internal/domain/series"
	"kitanda/internal/domain/totals"
	v1 "kitanda/internal/infrastructure/http/v1"
	"kitanda/internal/infrastructure/metrics"
	"kitanda/internal/infrastructure/numerator"
	"kitanda/internal/infrastructure/storage/memory"
	"kitanda/pkg/logger"
)

const testSecret = "router-test-secret"

type apiEnv struct {
	router *gin.Engine
	jwt    *auth.JWTService
}

func newAPI(t *testing.T, authDisabled bool) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := prometheus.NewRegistry()
	fiscal := metrics.New(registry)

	seriesRepo := memory.NewSeriesRepo()
	docRepo := memory.NewDocumentRepo()
	allocator := series.NewAllocator(seriesRepo, numerator.NewMemoryStore(), fiscal)
	converter, err := currency.NewConverter(nil)
	require.NoError(t, err)

	rules := totals.DefaultRules()
	history := &audit.Memory{}
	docs := documents.NewService(docRepo, allocator, totals.NewEngine(rules), converter, tx.NoopManager{}, history)
	docs.SetObserver(fiscal)

	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(testSecret))
	router := v1.NewRouter(v1.RouterConfig{
		Logger:       logger.Nop(),
		JWTValidator: jwtService,
		AuthDisabled: authDisabled,
		Documents:    docs,
		Series:       series.NewService(seriesRepo),
		Allocator:    allocator,
		Converter:    converter,
		Model7:       model7.NewService(docRepo, rules, fiscal),
		History:      history,
		Requests:     fiscal,
		Gatherer:     registry,
		Version:      "test",
	})
	return &apiEnv{router: router, jwt: jwtService}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *apiEnv) token(t *testing.T, perms ...string) string {
	t.Helper()
	tok, _, err := e.jwt.GenerateAccessToken(appctx.UserContext{UserID: "op-1", Permissions: perms})
	require.NoError(t, err)
	return tok
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

var invoiceItems = []map[string]any{
	{"description": "Item A", "quantity": "10", "unitPrice": "1000", "taxRate": "14"},
	{"description": "Item B", "quantity": "1", "unitPrice": "5000", "discountPercent": "10", "taxRate": "0"},
}

func TestHealthAndMetrics(t *testing.T) {
	e := newAPI(t, true)

	w := e.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = e.do(t, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kitanda_http_request_duration_seconds")
}

func TestAuthRequired(t *testing.T) {
	e := newAPI(t, false)

	w := e.do(t, http.MethodGet, "/api/v1/series", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, w)["code"])

	w = e.do(t, http.MethodGet, "/api/v1/series", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	readOnly := e.token(t, auth.PermSeriesRead)
	w = e.do(t, http.MethodGet, "/api/v1/series", nil, readOnly)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/series", map[string]any{"code": "A", "year": 2026}, readOnly)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decode(t, w)["code"])
}

func TestTotalsPreview(t *testing.T) {
	e := newAPI(t, true)

	w := e.do(t, http.MethodPost, "/api/v1/documents/totals", map[string]any{
		"globalDiscountPercent": "5",
		"items":                 invoiceItems,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	tot := body["totals"].(map[string]any)
	assert.Equal(t, "14500.00", tot["subtotal"])
	assert.Equal(t, "1400.00", tot["taxAmount"])
	assert.Equal(t, "725.00", tot["globalDiscountAmount"])
	assert.Equal(t, "15175.00", tot["total"])
	assert.Len(t, body["breakdown"], 2)

	bad := []map[string]any{{"description": "x", "unitPrice": "10", "taxRate": "10"}}
	w = e.do(t, http.MethodPost, "/api/v1/documents/totals", map[string]any{"items": bad}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_TAX_RATE", decode(t, w)["code"])
}

func TestInvoiceLifecycle(t *testing.T) {
	e := newAPI(t, true)

	w := e.do(t, http.MethodPost, "/api/v1/series", map[string]any{"code": "a", "name": "Main", "year": 2026}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	seriesID := decode(t, w)["id"].(string)

	w = e.do(t, http.MethodPost, "/api/v1/documents", map[string]any{
		"type":                  "FT",
		"seriesId":              seriesID,
		"date":                  "2026-03-10T09:30:00Z",
		"counterpartyName":      "Cliente Lda",
		"counterpartyNif":       "5000000000",
		"globalDiscountPercent": "5",
		"items":                 invoiceItems,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	draft := decode(t, w)
	docID := draft["id"].(string)
	assert.True(t, strings.HasPrefix(draft["number"].(string), documents.DraftNumberPrefix))
	assert.Equal(t, "DRAFT", draft["status"])

	w = e.do(t, http.MethodPatch, "/api/v1/documents/"+docID, map[string]any{"paymentMethod": "TPA"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "TPA", decode(t, w)["paymentMethod"])

	w = e.do(t, http.MethodPost, "/api/v1/documents/"+docID+"/issue", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	issued := decode(t, w)
	assert.Equal(t, "FT/A/2026/1", issued["number"])
	assert.Equal(t, "PENDING", issued["status"])
	assert.Equal(t, true, issued["isCertified"])
	assert.NotEmpty(t, issued["hash"])
	assert.Equal(t, "15175.00 Kz", issued["displayTotal"])

	w = e.do(t, http.MethodPost, "/api/v1/documents/"+docID+"/issue", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "DOCUMENT_CERTIFIED", decode(t, w)["code"])

	w = e.do(t, http.MethodPatch, "/api/v1/documents/"+docID, map[string]any{"items": invoiceItems[:1]}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.do(t, http.MethodGet, "/api/v1/documents?year=2026&month=3", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["totalCount"])

	w = e.do(t, http.MethodGet, "/api/v1/documents?year=2026&month=4", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["totalCount"])

	w = e.do(t, http.MethodGet, "/api/v1/reports/model7?year=2026&month=3&regime=general", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	general := decode(t, w)["general"].(map[string]any)
	assert.Equal(t, "1400.00", general["totalFavorState"])
	assert.Equal(t, "1400.00", general["amountPayable"])
	assert.EqualValues(t, 1, general["salesDocuments"])

	w = e.do(t, http.MethodPost, "/api/v1/documents/"+docID+"/cancel", map[string]any{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/documents/"+docID+"/cancel", map[string]any{"reason": "wrong customer"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cancelled := decode(t, w)
	assert.Equal(t, "CANCELLED", cancelled["status"])
	assert.Equal(t, "FT/A/2026/1", cancelled["number"])

	w = e.do(t, http.MethodGet, "/api/v1/documents/"+docID+"/history", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	hist := decode(t, w)
	assert.EqualValues(t, 4, hist["totalCount"])
	first := hist["items"].([]any)[0].(map[string]any)
	assert.Equal(t, string(audit.ActionCancel), first["action"])

	w = e.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Contains(t, w.Body.String(), `kitanda_documents_issued_total{doc_type="FT"} 1`)
	assert.Contains(t, w.Body.String(), `kitanda_documents_cancelled_total{doc_type="FT"} 1`)
}

func TestSeriesEndpoints(t *testing.T) {
	e := newAPI(t, true)

	w := e.do(t, http.MethodPost, "/api/v1/series", map[string]any{"code": "B", "year": 2026, "padWidth": 4}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	seriesID := decode(t, w)["id"].(string)
	base := "/api/v1/series/" + seriesID

	w = e.do(t, http.MethodPost, "/api/v1/series", map[string]any{"code": "B", "year": 2026}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, base+"/allocate", map[string]any{"docType": "FT", "year": 2026}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "FT/B/2026/0001", decode(t, w)["number"])

	w = e.do(t, http.MethodPost, base+"/next", map[string]any{"docType": "FT", "year": 2026, "value": 40}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 40, decode(t, w)["next"])

	w = e.do(t, http.MethodPost, base+"/allocate", map[string]any{"docType": "FT", "year": 2026}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "FT/B/2026/0040", decode(t, w)["number"])

	w = e.do(t, http.MethodGet, base+"/counters/ft?year=2026", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 40, decode(t, w)["last"])

	w = e.do(t, http.MethodPost, base+"/manual", map[string]any{"docType": "FT", "year": 2026, "number": 3}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.do(t, http.MethodPatch, base+"/active", map[string]any{"active": false}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["isActive"])

	w = e.do(t, http.MethodPost, base+"/allocate", map[string]any{"docType": "FT", "year": 2026}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "SERIES_INACTIVE", decode(t, w)["code"])

	w = e.do(t, http.MethodGet, "/api/v1/series/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCurrencyRates(t *testing.T) {
	e := newAPI(t, true)

	w := e.do(t, http.MethodPut, "/api/v1/currencies/usd/rate", map[string]any{"rate": "900.5"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "USD", decode(t, w)["code"])

	w = e.do(t, http.MethodGet, "/api/v1/currencies/rates", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rate":"900.5"`)

	w = e.do(t, http.MethodPut, "/api/v1/currencies/usd/rate", map[string]any{"rate": "-1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPut, "/api/v1/currencies/aoa/rate", map[string]any{"rate": "2"}, "")
	assert.GreaterOrEqual(t, w.Code, 400)
}
