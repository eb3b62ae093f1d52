//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/cloo-solutions/msassist/internal/api/handlers"
	"github.com/cloo-solutions/msassist/internal/jobs"
	"github.com/cloo-solutions/msassist/internal/repository"
	"github.com/cloo-solutions/msassist/internal/server"
	"github.com/cloo-solutions/msassist/internal/service"
	"github.com/cloo-solutions/msassist/internal/storage"
	"github.com/cloo-solutions/msassist/internal/symptoms"
	"github.com/cloo-solutions/msassist/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

const assistantReply = "Many people with MS manage fatigue by pacing activities and staying cool."

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	S3Client     *storage.S3Client
	Generator    *testutil.EchoGenerator
	Worker       *jobs.IngestionWorker
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// SetupE2EEnv starts Postgres and RustFS and serves the full router with
// deterministic AI clients.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "e2e-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		S3Client:   s3Client,
		Generator:  &testutil.EchoGenerator{Reply: assistantReply},
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.ServerURL, env.ServerCloser = env.startServer(port)
	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

func (e *E2ETestEnv) startServer(port int) (string, func()) {
	embedder := testutil.HashEmbedder{}
	txRunner := repository.NewTxRunner(e.Pool)
	chunks := repository.NewChunkRepository(e.Pool)
	jobRepo := repository.NewIngestionJobRepository(e.Pool)
	table := symptoms.Default()

	authSvc := service.NewAuthService(repository.NewUserRepository(e.Pool), service.AuthConfig{
		Secret:     []byte("e2e-secret"),
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	conversations := service.NewConversationService(
		repository.NewSessionRepository(e.Pool), repository.NewMessageRepository(e.Pool), txRunner)
	responderCfg := service.DefaultResponderConfig()
	responderCfg.GenerationTimeout = time.Second
	responder := service.NewResponder(embedder, chunks, e.Generator, table, responderCfg)
	chatSvc := service.NewChatService(conversations, responder, nil, time.Second)
	ingestion := service.NewIngestionService(repository.NewDocumentRepository(e.Pool), txRunner, embedder, e.S3Client,
		service.IngestConfig{Chunk: service.ChunkConfig{Size: 200, Overlap: 40}, BatchSize: 4})
	uploads := service.NewUploadService(e.S3Client, jobRepo, 10<<20)

	e.Worker = jobs.NewIngestionWorker(jobRepo, e.S3Client, ingestion)

	router := server.NewRouter(server.RouterConfig{
		Logger:          zaptest.NewLogger(e.T),
		TokenValidator:  authSvc,
		AuthHandler:     handlers.NewAuthHandler(authSvc),
		SessionHandler:  handlers.NewSessionHandler(conversations, chatSvc, service.NewExportService(conversations)),
		SymptomHandler:  handlers.NewSymptomHandler(table, chatSvc),
		DocumentHandler: handlers.NewDocumentHandler(ingestion, uploads),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.T.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// RegisterAndLogin creates an account and returns its bearer token.
func (e *E2ETestEnv) RegisterAndLogin(email, password string) string {
	e.T.Helper()

	if _, err := e.Post("/auth/register", map[string]string{
		"email": email, "password": password, "confirm_password": password,
	}, ""); err != nil {
		e.T.Fatalf("failed to register %s: %v", email, err)
	}

	resp, err := e.Post("/auth/login", map[string]string{"email": email, "password": password}, "")
	if err != nil {
		e.T.Fatalf("failed to log in %s: %v", email, err)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(resp.Data, &token); err != nil {
		e.T.Fatalf("failed to parse token: %v", err)
	}
	return token.AccessToken
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status        int             `json:"-"`
	Data          json.RawMessage `json:"data"`
	Error         string          `json:"error,omitempty"`
	Code          string          `json:"code,omitempty"`
	ChunksIndexed *int            `json:"chunks_indexed,omitempty"`
}

// HTTPError carries the status of a failed request.
type HTTPError struct {
	Status int
	Body   APIResponse
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (%s)", e.Status, e.Body.Error, e.Body.Code)
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doJSON(http.MethodGet, path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doJSON(http.MethodPost, path, body, authToken)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doJSON(http.MethodPut, path, body, authToken)
}

// GetRaw returns the undecoded body, for file downloads.
func (e *E2ETestEnv) GetRaw(path, authToken string) (*http.Response, []byte, error) {
	req, err := http.NewRequest(http.MethodGet, e.ServerURL+path, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp, body, err
}

// UploadDocument posts a multipart document to /documents.
func (e *E2ETestEnv) UploadDocument(filename string, content []byte, title, authToken string) (*APIResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if title != "" {
		if err := mw.WriteField("title", title); err != nil {
			return nil, err
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	return e.do(http.MethodPost, "/documents", &body, mw.FormDataContentType(), authToken)
}

func (e *E2ETestEnv) doJSON(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}
	return e.do(method, path, reqBody, "application/json", authToken)
}

func (e *E2ETestEnv) do(method, path string, body io.Reader, contentType, authToken string) (*APIResponse, error) {
	req, err := http.NewRequest(method, e.ServerURL+path, body)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", contentType)

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
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if resp.StatusCode >= 400 {
		return &apiResp, &HTTPError{Status: resp.StatusCode, Body: apiResp}
	}
	return &apiResp, nil
}

// UploadFile uploads a file to the presigned URL
func (e *E2ETestEnv) UploadFile(uploadURL string, content []byte, contentType string) error {
	req, err := http.NewRequest(http.MethodPut, uploadURL, bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, body)
	}

	return nil
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
