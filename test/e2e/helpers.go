//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/adviserops/chaser/internal/api/handlers"
	"github.com/adviserops/chaser/internal/dispatch"
	"github.com/adviserops/chaser/internal/repository"
	"github.com/adviserops/chaser/internal/server"
	"github.com/adviserops/chaser/internal/service"
	"github.com/adviserops/chaser/internal/testutil"
	"github.com/adviserops/chaser/internal/tools"
	"github.com/jackc/pgx/v5/pgxpool"
)

// E2ETestEnv is a database container plus a running server, torn down
// with Cleanup.
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	BinaryDir    string
	FirmID       string
	APIKeyID     string
	APIKeyToken  string
	HTTPClient   *http.Client
}

func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}
	serverURL, closer := startServer(t, pool, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: closer,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// postInto posts body and decodes the data envelope into out.
func (e *E2ETestEnv) postInto(path string, body, out interface{}) {
	e.T.Helper()
	resp, err := e.Post(path, body, "")
	if err != nil {
		e.T.Fatalf("POST %s failed: %v", path, err)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		e.T.Fatalf("failed to parse %s response: %v", path, err)
	}
}

// Bootstrap provisions a firm and an API key through the admin surface.
func (e *E2ETestEnv) Bootstrap() {
	var firm struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	e.postInto("/firms", map[string]string{"name": "E2E Test Firm"}, &firm)
	e.FirmID = firm.ID

	var key struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	}
	e.postInto("/apikeys", map[string]string{
		"firm_id": e.FirmID,
		"name":    "e2e-test-key",
	}, &key)
	e.APIKeyID = key.ID
	e.APIKeyToken = key.Token
}

// BuildBinaries compiles both binaries into a temp dir.
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "chaser-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	for _, name := range []string{"chaserd", "chaser"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, out)
		}
	}
}

// RunChaser invokes the client binary pointed at the test server.
func (e *E2ETestEnv) RunChaser(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "chaser"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		"CHASER_API_KEY="+e.APIKeyToken,
		"CHASER_API_URL="+e.ServerURL,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(raw))
		}
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}
	return &apiResp, nil
}

// startServer wires the full service stack and starts the HTTP server.
// The cycle dispatcher is the task log so runs never need SMTP, and
// queries run without a reasoner.
func startServer(t *testing.T, pool *pgxpool.Pool, port int) (string, func()) {
	chaseRepo := repository.NewChaseRepository(pool)
	clientRepo := repository.NewClientRepository(pool)
	commRepo := repository.NewCommunicationRepository(pool)

	authSvc := service.NewAuthService(
		repository.NewFirmRepository(pool),
		repository.NewAPIKeyRepository(pool),
		&service.DefaultUUIDGenerator{},
	)

	scorer := service.NewScoringEngine(service.DefaultScoringConfig())
	builder := service.NewRecommendationBuilder()

	now := func() time.Time { return time.Now().UTC() }
	catalog := tools.NewCatalog()
	tools.NewChaseToolset(chaseRepo, scorer.ScoreAll, builder.Build, now).RegisterAll(catalog)
	tools.NewInsightToolset(clientRepo, chaseRepo, now).RegisterAll(catalog)
	catalog.Seal()

	orchestrator := service.NewOrchestrator(catalog, nil, service.DefaultOrchestratorConfig())

	chaseSvc := service.NewChaseService(chaseRepo, scorer, builder)
	cycleSvc := service.NewCycleService(
		chaseRepo, commRepo, scorer, builder,
		dispatch.NewTaskLogDispatcher(), nil, nil,
		service.NewSnapshotCache(5*time.Minute),
		service.DefaultCycleConfig(),
	)

	router := server.NewRouter(server.RouterConfig{
		AuthValidator: authSvc,
		ChaseHandler:  handlers.NewChaseHandler(chaseSvc),
		QueryHandler:  handlers.NewQueryHandler(orchestrator),
		CycleHandler:  handlers.NewCycleHandler(cycleSvc, commRepo),
		AuthHandler:   handlers.NewAuthHandler(authSvc),
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
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
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
