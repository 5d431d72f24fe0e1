package front

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/unicore-lms/aicore/internal/artifacts"
	"github.com/unicore-lms/aicore/internal/db"
	"github.com/unicore-lms/aicore/internal/generation"
	"github.com/unicore-lms/aicore/internal/settings"
	"github.com/unicore-lms/aicore/internal/usage"
)

type stubCompleter struct {
	response generation.Response
	err      error
}

func (s *stubCompleter) Complete(ctx context.Context, req generation.Request) (generation.Response, error) {
	if s.err != nil {
		return generation.Response{}, s.err
	}
	return s.response, nil
}

func newTestRouter(t *testing.T, completer generation.Completer) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "aicore-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	store, errStore := artifacts.NewStore(t.TempDir())
	if errStore != nil {
		t.Fatalf("new store: %v", errStore)
	}

	svc := settings.NewService(conn)
	recorder := usage.NewRecorder(conn)
	generator := generation.NewService(conn, completer, svc, recorder, store)

	docsRoot := t.TempDir()
	engine := gin.New()
	RegisterFrontRoutes(engine, generator, svc, recorder, docsRoot)
	return engine, docsRoot
}

func TestSummaryRequiresActorHeader(t *testing.T) {
	engine, _ := newTestRouter(t, &stubCompleter{response: generation.Response{Content: "summary"}})

	req := httptest.NewRequest(http.MethodPost, "/v1/generate/summary", strings.NewReader(`{"text":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing actor: status = %d, want 400", rec.Code)
	}
}

func TestSummarySucceeds(t *testing.T) {
	engine, _ := newTestRouter(t, &stubCompleter{response: generation.Response{Content: "ملخص قصير", TokensUsed: 12}})

	body := `{"text":"نص المستند الذي سيتم تلخيصه في هذا الاختبار."}`
	req := httptest.NewRequest(http.MethodPost, "/v1/generate/summary", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", "student-1")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp generation.SummaryResult
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Summary != "ملخص قصير" {
		t.Fatalf("summary = %q", resp.Summary)
	}
	if resp.Degraded {
		t.Fatalf("expected non-degraded summary")
	}
}

func TestSummaryMapsDisabledError(t *testing.T) {
	engine, _ := newTestRouter(t, &stubCompleter{err: &generation.DisabledError{Message: "back soon"}})

	body := `{"text":"some document text"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/generate/summary", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", "student-1")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("disabled: status = %d, want 503, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "back soon") {
		t.Fatalf("expected maintenance message in body: %s", rec.Body.String())
	}
}

func TestDocumentPathConfinedToRoot(t *testing.T) {
	engine, docsRoot := newTestRouter(t, &stubCompleter{response: generation.Response{Content: "ملخص"}})

	secret := filepath.Join(t.TempDir(), "secret.txt")
	if errWrite := os.WriteFile(secret, []byte("outside the root"), 0o644); errWrite != nil {
		t.Fatalf("write secret file: %v", errWrite)
	}

	post := func(documentPath string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]string{"document_path": documentPath})
		req := httptest.NewRequest(http.MethodPost, "/v1/generate/summary", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Actor-ID", "student-1")
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec
	}

	if rec := post(secret); rec.Code != http.StatusBadRequest {
		t.Fatalf("absolute path: status = %d, want 400", rec.Code)
	}
	if rec := post("../secret.txt"); rec.Code != http.StatusBadRequest {
		t.Fatalf("traversal path: status = %d, want 400", rec.Code)
	}

	inside := filepath.Join(docsRoot, "lesson.txt")
	if errWrite := os.WriteFile(inside, []byte("document body for summarization"), 0o644); errWrite != nil {
		t.Fatalf("write document: %v", errWrite)
	}
	if rec := post("lesson.txt"); rec.Code != http.StatusOK {
		t.Fatalf("confined path: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestLimitsReportsRemainingQuota(t *testing.T) {
	engine, _ := newTestRouter(t, &stubCompleter{})

	req := httptest.NewRequest(http.MethodGet, "/v1/generate/limits", nil)
	req.Header.Set("X-Actor-ID", "student-1")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("limits: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Actor     string `json:"actor"`
		Quota     int    `json:"quota"`
		Remaining int    `json:"remaining"`
		Allowed   bool   `json:"allowed"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Actor != "student-1" || !resp.Allowed {
		t.Fatalf("unexpected limits response: %+v", resp)
	}
	if resp.Remaining != resp.Quota {
		t.Fatalf("remaining = %d, want full quota %d before any usage", resp.Remaining, resp.Quota)
	}
}
