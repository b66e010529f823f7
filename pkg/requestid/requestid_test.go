package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billsync/pkg/requestid"
)

func serve(t *testing.T, req *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var seen string
	handler := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return seen, rec
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("generates new request ID when not provided", func(t *testing.T) {
		t.Parallel()
		id, rec := serve(t, httptest.NewRequest(http.MethodPost, "/api/payment/webhook", nil))
		assert.NotEmpty(t, id)
		assert.Equal(t, id, rec.Header().Get(requestid.Header))
	})

	t.Run("reuses a valid request ID header", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(requestid.Header, "req_123-abc")
		id, rec := serve(t, req)
		assert.Equal(t, "req_123-abc", id)
		assert.Equal(t, "req_123-abc", rec.Header().Get(requestid.Header))
	})

	t.Run("falls back to correlation header", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(requestid.CorrelationHeader, "corr-1")
		id, _ := serve(t, req)
		assert.Equal(t, "corr-1", id)
	})

	t.Run("replaces malformed and oversized ids", func(t *testing.T) {
		t.Parallel()
		for _, bad := range []string{"has space", "semi;colon", strings.Repeat("a", 129)} {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.Header.Set(requestid.Header, bad)
			id, _ := serve(t, req)
			assert.NotEqual(t, bad, id)
			assert.NotEmpty(t, id)
		}
	})
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()
	extract := requestid.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(requestid.WithContext(context.Background(), "abc"))
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "abc", attr.Value.String())
}
