package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aira-payment/walletdir/internal/config"
	"github.com/aira-payment/walletdir/internal/directory"
	"github.com/aira-payment/walletdir/internal/metrics"
	"github.com/aira-payment/walletdir/internal/walletset"
	wderr "github.com/aira-payment/walletdir/pkg/errors"
)

var errDiskFull = errors.New("no space left on device")

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	Code      string          `json:"code"`
	Timestamp string          `json:"timestamp"`
}

func testConfig() config.ServerConfig {
	cfg := config.Defaults().Server
	cfg.RateLimit.RequestsPerSecond = 0 // unlimited
	return cfg
}

func newTestServer(t *testing.T) (*Server, *directory.Directory, *metrics.Metrics) {
	t.Helper()
	m := &metrics.Metrics{}
	dir, err := directory.New(filepath.Join(t.TempDir(), "database.txt"), nil, nil, m)
	require.NoError(t, err)
	srv := New(dir, Options{Config: testConfig(), Metrics: m, Version: "v1.0.0"})
	return srv, dir, m
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decodeSet(t *testing.T, raw json.RawMessage) walletset.WalletSet {
	t.Helper()
	var ws walletset.WalletSet
	require.NoError(t, json.Unmarshal(raw, &ws))
	return ws
}

func TestGetOrCreate_Endpoint(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	rec, env := do(t, h, http.MethodPost, BasePath+"/wallet", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Wallets retrieved/created successfully", env.Message)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	_, err := time.Parse(time.RFC3339, env.Timestamp)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(env.Timestamp, "Z"))

	first := decodeSet(t, env.Data)
	assert.Equal(t, "a@x.com", first.Email)
	assert.Regexp(t, `^AIRA[0-9A-F]{12}$`, first.AiraID)
	assert.Len(t, first.EVMWallet, 42)
	assert.True(t, strings.HasPrefix(first.CelestiaWallet, "celestia1"))

	_, env = do(t, h, http.MethodPost, BasePath+"/wallet", `{"email":"a@x.com"}`)
	assert.Equal(t, first, decodeSet(t, env.Data))
}

func TestGetOrCreate_JSONFieldNames(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t)

	rec, _ := do(t, srv.Handler(), http.MethodPost, BasePath+"/wallet", `{"email":"a@x.com"}`)
	var raw struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, key := range []string{"email", "mnemonic", "evmWallet", "celestiaWallet", "solanaWallet", "aptosWallet", "suiWallet", "airaId"} {
		assert.Contains(t, raw.Data, key)
	}
}

func TestGetOrCreate_MissingEmail(t *testing.T) {
	t.Parallel()
	srv, dir, _ := newTestServer(t)

	for _, body := range []string{`{}`, `{"email":""}`, ``, `not json`} {
		rec, env := do(t, srv.Handler(), http.MethodPost, BasePath+"/wallet", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.False(t, env.Success)
		assert.Equal(t, "Email is required", env.Message)
		assert.Equal(t, "EMAIL_REQUIRED", env.Code)
		assert.Equal(t, "null", string(env.Data))
	}

	sets, err := dir.ListAll()
	require.NoError(t, err)
	assert.Empty(t, sets)
}

func TestGetOrCreate_InvalidEmail(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t)

	rec, env := do(t, srv.Handler(), http.MethodPost, BasePath+"/wallet", `{"email":"a b@x.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_EMAIL", env.Code)
}

func TestGetOrCreate_EmailTooLong(t *testing.T) {
	t.Parallel()
	srv, dir, _ := newTestServer(t)

	rec, _ := do(t, srv.Handler(), http.MethodPost, BasePath+"/wallet", `{"email":"alice@x.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	long := strings.Repeat("a", 70*1024) + "@x.com"
	rec, env := do(t, srv.Handler(), http.MethodPost, BasePath+"/wallet", `{"email":"`+long+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EMAIL_TOO_LONG", env.Code)
	assert.Equal(t, "Email is too long", env.Message)

	rec, _ = do(t, srv.Handler(), http.MethodGet, BasePath+"/wallet/alice@x.com", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, srv.Handler(), http.MethodPost, BasePath+"/wallet", `{"email":"bob@x.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	sets, err := dir.ListAll()
	require.NoError(t, err)
	assert.Len(t, sets, 2)
}

func TestGetOrCreate_BodyTooLarge(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MaxBodyBytes = 32
	dir, err := directory.New(filepath.Join(t.TempDir(), "database.txt"), nil, nil, &metrics.Metrics{})
	require.NoError(t, err)
	srv := New(dir, Options{Config: cfg, Metrics: &metrics.Metrics{}})

	body := `{"email":"` + strings.Repeat("a", 64) + `@x.com"}`
	rec, env := do(t, srv.Handler(), http.MethodPost, BasePath+"/wallet", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, env.Success)
}

func TestLookup_Endpoint(t *testing.T) {
	t.Parallel()
	srv, dir, _ := newTestServer(t)
	h := srv.Handler()

	rec, env := do(t, h, http.MethodGet, BasePath+"/wallet/missing@x.com", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Wallet not found", env.Message)
	assert.Equal(t, "WALLET_NOT_FOUND", env.Code)

	created, err := dir.GetOrCreate("a@x.com")
	require.NoError(t, err)

	rec, env = do(t, h, http.MethodGet, BasePath+"/wallet/a@x.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Wallets retrieved successfully", env.Message)
	assert.Equal(t, created, decodeSet(t, env.Data))
}

func TestLookup_EscapedEmail(t *testing.T) {
	t.Parallel()
	srv, dir, _ := newTestServer(t)

	created, err := dir.GetOrCreate("a+b@x.com")
	require.NoError(t, err)

	rec, env := do(t, srv.Handler(), http.MethodGet, BasePath+"/wallet/a%2Bb%40x.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decodeSet(t, env.Data))
}

func TestList_Endpoint(t *testing.T) {
	t.Parallel()
	srv, dir, _ := newTestServer(t)
	h := srv.Handler()

	rec, env := do(t, h, http.MethodGet, BasePath+"/wallets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", string(env.Data))

	for _, e := range []string{"b@x.com", "a@x.com"} {
		_, err := dir.GetOrCreate(e)
		require.NoError(t, err)
	}

	_, env = do(t, h, http.MethodGet, BasePath+"/wallets", "")
	var sets []walletset.WalletSet
	require.NoError(t, json.Unmarshal(env.Data, &sets))
	require.Len(t, sets, 2)
	assert.Equal(t, "b@x.com", sets[0].Email)
	assert.Equal(t, "a@x.com", sets[1].Email)
	assert.Equal(t, "All wallets retrieved successfully", env.Message)
}

func TestDelete_Endpoint(t *testing.T) {
	t.Parallel()
	srv, dir, _ := newTestServer(t)
	h := srv.Handler()

	_, err := dir.GetOrCreate("a@x.com")
	require.NoError(t, err)

	rec, env := do(t, h, http.MethodDelete, BasePath+"/wallet/a@x.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Wallet deleted successfully", env.Message)

	rec, env = do(t, h, http.MethodDelete, BasePath+"/wallet/a@x.com", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Wallet not found", env.Message)

	rec, _ = do(t, h, http.MethodGet, BasePath+"/wallet/a@x.com", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConcurrentCreateOverHTTP(t *testing.T) {
	t.Parallel()
	srv, dir, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	const callers = 16
	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Post(ts.URL+BasePath+"/wallet", "application/json", strings.NewReader(`{"email":"race@x.com"}`)) //nolint:noctx // test request
			if !assert.NoError(t, err) {
				return
			}
			defer func() { _ = resp.Body.Close() }()
			var env envelope
			if assert.NoError(t, json.NewDecoder(resp.Body).Decode(&env)) {
				results[i] = string(env.Data)
			}
		}(i)
	}
	wg.Wait()

	for i := range callers {
		assert.Equal(t, results[0], results[i])
	}
	sets, err := dir.ListAll()
	require.NoError(t, err)
	assert.Len(t, sets, 1)
}

// failingDirectory reports a storage failure for every call.
type failingDirectory struct{}

func (failingDirectory) GetOrCreate(string) (walletset.WalletSet, error) {
	return walletset.WalletSet{}, wderr.WithCause(wderr.ErrStorage, errDiskFull)
}

func (failingDirectory) Lookup(string) (walletset.WalletSet, error) {
	return walletset.WalletSet{}, wderr.WithCause(wderr.ErrStorage, errDiskFull)
}

func (failingDirectory) ListAll() ([]walletset.WalletSet, error) {
	return nil, wderr.WithCause(wderr.ErrStorage, errDiskFull)
}

func (failingDirectory) Delete(string) (bool, error) {
	return false, wderr.WithCause(wderr.ErrStorage, errDiskFull)
}

func (failingDirectory) Stats() (directory.Stats, error) {
	return directory.Stats{}, wderr.WithCause(wderr.ErrStorage, errDiskFull)
}

func TestStorageFailures(t *testing.T) {
	t.Parallel()
	var logs bytes.Buffer
	m := &metrics.Metrics{}
	srv := New(failingDirectory{}, Options{
		Config:  testConfig(),
		Logger:  config.NewStreamLogger(config.LogLevelError, &logs),
		Metrics: m,
	})
	h := srv.Handler()

	tests := []struct {
		method, path, body, message string
	}{
		{http.MethodPost, BasePath + "/wallet", `{"email":"a@x.com"}`, "Failed to get or create wallet"},
		{http.MethodGet, BasePath + "/wallet/a@x.com", "", "Failed to get wallet"},
		{http.MethodGet, BasePath + "/wallets", "", "Failed to get all wallets"},
		{http.MethodDelete, BasePath + "/wallet/a@x.com", "", "Failed to delete wallet"},
	}

	for _, tc := range tests {
		rec, env := do(t, h, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, tc.path)
		assert.Equal(t, tc.message, env.Message)
		assert.Equal(t, "STORAGE_ERROR", env.Code)
		assert.NotContains(t, rec.Body.String(), "no space left")
	}

	assert.Contains(t, logs.String(), "no space left on device")
	assert.Equal(t, int64(len(tests)), m.Snapshot().HTTPErrorsTotal)

	rec, env := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, env.Success)
}

func TestHealthDocsMetrics(t *testing.T) {
	t.Parallel()
	srv, dir, m := newTestServer(t)
	h := srv.Handler()

	_, err := dir.GetOrCreate("a@x.com")
	require.NoError(t, err)

	rec, env := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "v1.0.0", health.Version)
	assert.Equal(t, 1, health.Records)

	rec, env = do(t, h, http.MethodGet, "/api/v1/docs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var docs struct {
		Endpoints []Endpoint `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &docs))
	assert.Equal(t, Endpoints(), docs.Endpoints)

	rec, env = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap metrics.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, int64(1), snap.WalletsCreated)
	assert.Equal(t, int64(2), snap.HTTPRequestsTotal)
	assert.Equal(t, int64(3), m.Snapshot().HTTPRequestsTotal)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	rec, env := do(t, h, http.MethodGet, "/api/v1/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", env.Code)

	rec, env = do(t, h, http.MethodGet, BasePath+"/wallet", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", env.Code)

	rec, _ = do(t, h, http.MethodPut, BasePath+"/wallet/a@x.com", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	rec, _ := do(t, h, http.MethodGet, "/health", "")
	generated := rec.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "6f1c1f59-8a5b-4f9b-9a57-3c1c2d0e4b11")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "6f1c1f59-8a5b-4f9b-9a57-3c1c2d0e4b11", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid\r\n")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid\r\n", rec.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodOptions, BasePath+"/wallet", nil)
	req.Header.Set("Origin", "http://localhost:7001")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:7001", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.RateLimit.RequestsPerSecond = 0.001
	cfg.RateLimit.Burst = 2
	dir, err := directory.New(filepath.Join(t.TempDir(), "database.txt"), nil, nil, &metrics.Metrics{})
	require.NoError(t, err)
	m := &metrics.Metrics{}
	srv := New(dir, Options{Config: cfg, Metrics: m})
	h := srv.Handler()

	for range 2 {
		rec, _ := do(t, h, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec, env := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", env.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, int64(1), m.Snapshot().HTTPRateLimited)
}

func TestRecovery(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t)

	h := srv.withRecovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec, env := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", env.Message)
}

func TestStartShutdown(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health") //nolint:noctx // test request
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-done)
}
