//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/orderdesk/internal/api/handlers"
	"github.com/cloo-solutions/orderdesk/internal/bridge"
	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/remote"
	"github.com/cloo-solutions/orderdesk/internal/repository"
	"github.com/cloo-solutions/orderdesk/internal/search"
	"github.com/cloo-solutions/orderdesk/internal/server"
	"github.com/cloo-solutions/orderdesk/internal/service"
	"github.com/cloo-solutions/orderdesk/internal/storage"
	"github.com/cloo-solutions/orderdesk/internal/testutil"
	"github.com/cloo-solutions/orderdesk/internal/token"
)

const appOrigin = "https://desk.example.com"

// reportPDF is what the fake API serves for accession reports.
var reportPDF = []byte("%PDF-1.4 e2e report")

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	ObjectStoreC *testutil.ObjectStoreContainer
	Pool         *pgxpool.Pool
	Upstream     *FakeAPI
	UpstreamURL  string
	ServerURL    string
	ServerCloser func()
	BinaryDir    string
	HTTPClient   *http.Client
}

// FakeAPI stands in for the remote order desk API.
type FakeAPI struct {
	mu   sync.Mutex
	auth []string
}

func (f *FakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()

	switch {
	case strings.HasPrefix(r.URL.Path, "/accession/report/"):
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(reportPDF)
		return
	case strings.HasPrefix(r.URL.Path, "/demo/search/doctors/"):
		writeEnvelope(w, `{"count":2,"list":{"4":{"id":4,"name":"Dr. Smith"},"9":{"id":9,"name":"Dr. Smithers"}}}`)
	case strings.HasPrefix(r.URL.Path, "/demo/order/search/"):
		writeEnvelope(w, `{"count":1,"list":[{"id":12,"patient":{"id":1,"name":"Ana"}}]}`)
	case strings.HasPrefix(r.URL.Path, "/meds/"):
		writeEnvelope(w, `[]`)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"not found"}`))
	}
}

func writeEnvelope(w http.ResponseWriter, data string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"success":true,"data":` + data + `}`))
}

// Authorizations returns every Authorization header the API has seen.
func (f *FakeAPI) Authorizations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auth...)
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	// Start PostgreSQL container
	pgC := testutil.NewPostgresContainer(ctx, t)

	// Start object store container
	s3C := testutil.NewObjectStoreContainer(ctx, t)

	// Create connection pool and run migrations
	pool := testutil.NewTestPool(ctx, t, pgC)

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     s3C.AccessKey,
		SecretAccessKey: s3C.SecretKey,
		Bucket:          "e2e-reports",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	upstream := &FakeAPI{}
	upstreamSrv := httptest.NewServer(upstream)

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, s3Client, upstreamSrv.URL, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		ObjectStoreC: s3C,
		Pool:         pool,
		Upstream:     upstream,
		UpstreamURL:  upstreamSrv.URL + "/",
		ServerURL:    serverURL,
		ServerCloser: func() {
			serverCloser()
			upstreamSrv.Close()
		},
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.ObjectStoreC != nil {
		e.ObjectStoreC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildCLI builds the orderdesk binary
func (e *E2ETestEnv) BuildCLI() {
	tmpDir, err := os.MkdirTemp("", "orderdesk-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "orderdesk"), "./cmd/orderdesk")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build orderdesk: %v\n%s", err, out)
	}
}

// RunCLI runs the orderdesk CLI against the fake API with a throwaway
// config directory.
func (e *E2ETestEnv) RunCLI(args ...string) (string, error) {
	home := e.T.TempDir()
	cmd := exec.Command(filepath.Join(e.BinaryDir, "orderdesk"), args...)
	cmd.Dir = home
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, ".config"),
		"ORDERDESK_API_TOKEN=cli-token",
		"ORDERDESK_API_URL="+e.UpstreamURL,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status int
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
}

// Do performs a request against the daemon with the given headers.
func (e *E2ETestEnv) Do(method, path string, body interface{}, headers map[string]string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := APIResponse{Status: resp.StatusCode}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
	}
	return &apiResp, nil
}

// DownloadFile downloads a file from the presigned URL
func (e *E2ETestEnv) DownloadFile(downloadURL string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(downloadURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// SHA256Sum calculates SHA256 hash of data
func SHA256Sum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// startServer wires the daemon's components against the fake API and serves them.
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, upstreamURL string, port int) (string, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	tokens := token.NewStream()
	b := bridge.New()
	tokens.Follow(ctx, b)
	frame := bridge.NewFrame(b, appOrigin)

	client := remote.New(upstreamURL, tokens, remote.WithTimeout(10*time.Second))

	searchLog := service.NewSearchLogger(repository.NewSearchLogRepository(pool))
	opts := []search.Option{search.WithWindow(20 * time.Millisecond), search.WithRecorder(searchLog)}

	orders := service.NewOrderService(client, opts...)

	states := make(map[domain.SearchDomain]handlers.SearchStates)
	var registries []*search.Registry[string, json.RawMessage]
	for _, d := range domain.SearchDomains() {
		fetch := service.DomainFetcher(client, d)
		name := string(d)
		registry := search.NewRegistry(func(owner string) *handlers.SearchState {
			return search.NewState(name, fetch, opts...)
		}, time.Minute)
		registries = append(registries, registry)
		states[d] = registry
	}

	user := service.NewUserService(client, tokens, service.NewFileCRMStore(filepath.Join(t.TempDir(), "crm.json")))
	user.WatchInfo(ctx, b)

	router := server.NewRouter(server.RouterConfig{
		AppOrigin:      appOrigin,
		Tokens:         tokens,
		BridgeHandler:  handlers.NewBridgeHandler(b, frame),
		OrderHandler:   handlers.NewOrderHandler(orders),
		SearchHandler:  handlers.NewSearchHandler(states, searchLog),
		AdminHandler:   handlers.NewAdminHandler(service.NewAdminService(client)),
		SessionHandler: handlers.NewSessionHandler(user, service.NewMedicationService(client)),
		ReportHandler:  handlers.NewReportHandler(service.NewReportService(client, s3Client)),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to start
	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
		orders.Close()
		for _, r := range registries {
			r.Close()
		}
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
