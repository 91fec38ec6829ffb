package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/orderdesk/internal/config"
	"github.com/cloo-solutions/orderdesk/internal/domain"
)

type recordingAPI struct {
	mu    sync.Mutex
	paths []string
	auth  []string
}

func (a *recordingAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.paths = append(a.paths, r.URL.Path)
	a.auth = append(a.auth, r.Header.Get("Authorization"))
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasPrefix(r.URL.Path, "/meds/"):
		w.Write([]byte(`{"success":true,"data":[]}`))
	case r.URL.Path == "/user/token":
		w.Write([]byte(`{"success":true,"data":{"token":"dev-token","user_info":{"name":"dev"}}}`))
	default:
		w.Write([]byte(`{"success":true,"data":{"count":0,"list":[]}}`))
	}
}

func (a *recordingAPI) called(path string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range a.paths {
		if p == path {
			return true
		}
	}
	return false
}

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		APIURL:         apiURL,
		APITimeout:     5 * time.Second,
		AppOrigin:      "https://desk.example.com",
		TargetOrigin:   "*",
		SearchDebounce: 10 * time.Millisecond,
		StaleDiscard:   true,
		Environment:    "test",
	}
}

func startDaemon(t *testing.T, cfg *config.Config) *daemon {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	d := newDaemon(ctx, cfg, nil, nil)
	t.Cleanup(func() {
		cancel()
		d.close()
	})
	return d
}

func TestNewDaemon_Wiring(t *testing.T) {
	api := &recordingAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.OrdersRefreshInterval = time.Minute
	d := startDaemon(t, cfg)

	// One sweeper per search domain plus the orders refresher.
	assert.Len(t, d.workers, len(domain.SearchDomains())+1)

	rec := httptest.NewRecorder()
	d.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewDaemon_NoRefresherByDefault(t *testing.T) {
	api := &recordingAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	d := startDaemon(t, testConfig(srv.URL))

	assert.Len(t, d.workers, len(domain.SearchDomains()))
}

func TestNewDaemon_MedicationsWaitForToken(t *testing.T) {
	api := &recordingAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	d := startDaemon(t, testConfig(srv.URL))

	time.Sleep(50 * time.Millisecond)
	assert.False(t, api.called("/meds/generic/list"))

	d.tokens.Publish("tok")

	assert.Eventually(t, func() bool {
		return api.called("/meds/brand/list")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewDaemon_StaticToken(t *testing.T) {
	api := &recordingAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.APIToken = "static"
	d := startDaemon(t, cfg)

	tok, ok := d.tokens.Current()
	require.True(t, ok)
	assert.Equal(t, "static", tok)

	assert.Eventually(t, func() bool {
		return api.called("/meds/generic/list")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewDaemon_DevLogin(t *testing.T) {
	api := &recordingAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Environment = "development"
	cfg.DevUsername = "dev"
	cfg.DevPassword = "secret"
	d := startDaemon(t, cfg)

	assert.Eventually(t, func() bool {
		tok, ok := d.tokens.Current()
		return ok && tok == "dev-token"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewDaemon_TokenFromHost(t *testing.T) {
	api := &recordingAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	d := startDaemon(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/bridge/inbox", strings.NewReader(`{"type":"api:token","data":"from-host"}`))
	req.Header.Set("Origin", cfg.AppOrigin)
	rec := httptest.NewRecorder()
	d.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	assert.Eventually(t, func() bool {
		tok, ok := d.tokens.Current()
		return ok && tok == "from-host"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSearchOptions(t *testing.T) {
	cfg := testConfig("http://unused/")
	assert.Len(t, searchOptions(cfg, nil), 2)
}
