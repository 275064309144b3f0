package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	domain "github.com/taskpilot/file-api/internal/domain/attachment"
	"github.com/taskpilot/file-api/internal/infrastructure/auth"
	"github.com/taskpilot/file-api/internal/infrastructure/ownerdir"
	attachrepo "github.com/taskpilot/file-api/internal/infrastructure/repository/attachment"
	"github.com/taskpilot/file-api/internal/infrastructure/storage"
	"github.com/taskpilot/file-api/internal/interfaces/httpserver/handlers"
	"github.com/taskpilot/file-api/internal/interfaces/httpserver/responses"
	"github.com/taskpilot/file-api/internal/interfaces/httpserver/routes"
	"github.com/taskpilot/file-api/utils/attachid"
)

var jpegPart = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, bytes.Repeat([]byte{0x42}, 256)...)

type testServer struct {
	router *gin.Engine
	repo   *attachrepo.InMemoryRepository
	store  *storage.LocalStorage
}

func newTestServer(t *testing.T, principal domain.Principal) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewLocalStorage(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	repo := attachrepo.NewInMemoryRepository()
	dir := ownerdir.NewStaticDirectory()
	dir.Put(domain.OwnerTask, "t1", "c1", "u-alice")

	service := domain.NewService(
		repo,
		store,
		domain.NewGuard(dir, zerolog.Nop()),
		domain.NewNamer(attachid.NewGenerator()),
		domain.NewValidator(),
		dir,
		zerolog.Nop(),
	)
	sweeper := domain.NewSweeper(repo, store, time.Hour, 90, zerolog.Nop())

	bus := domain.NewOwnerEventBus()
	service.SubscribeCascade(bus)

	provider := handlers.NewProvider(service, sweeper, bus, zerolog.Nop())

	router := gin.New()
	router.Use(func(c *gin.Context) {
		auth.SetPrincipal(c, principal)
		c.Next()
	})
	routes.NewRoutes(provider).Register(router)
	return &testServer{router: router, repo: repo, store: store}
}

func multipartUpload(t *testing.T, taskData string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if taskData != "" {
		if err := writer.WriteField("taskData", taskData); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for name, content := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="attachments"; filename="`+name+`"`)
		header.Set("Content-Type", "image/jpeg")
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestUpdateTaskStoresAttachments(t *testing.T) {
	pm := domain.Principal{ID: "u-pm", Role: domain.RolePM}
	ts := newTestServer(t, pm)

	body, contentType := multipartUpload(t, `{"title":"new title"}`, map[string][]byte{
		"photo.jpg": jpegPart,
	})
	req := httptest.NewRequest(http.MethodPut, "/tasks/t1/customer/c1", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp responses.UpdateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.OwnerType != "task" || resp.OwnerID != "t1" {
		t.Fatalf("unexpected owner in response: %+v", resp)
	}
	if len(resp.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(resp.Attachments))
	}
	att := resp.Attachments[0]
	if att.Category != "image" || att.Mime != "image/jpeg" || att.OriginalName != "photo.jpg" {
		t.Fatalf("unexpected attachment metadata: %+v", att)
	}

	// Round-trip through the download route.
	downloadURL := "/files/task/t1/customer/c1/attachment/" + att.ID + "/download"
	req = httptest.NewRequest(http.MethodGet, downloadURL, nil)
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := io.ReadAll(rec.Body)
	if !bytes.Equal(data, jpegPart) {
		t.Fatal("downloaded bytes differ from uploaded part")
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="photo.jpg"` {
		t.Fatalf("unexpected disposition %q", got)
	}
}

func TestUpdateTaskRejectsBlockedFile(t *testing.T) {
	pm := domain.Principal{ID: "u-pm", Role: domain.RolePM}
	ts := newTestServer(t, pm)

	body, contentType := multipartUpload(t, "", map[string][]byte{
		"setup.exe": jpegPart,
	})
	req := httptest.NewRequest(http.MethodPut, "/tasks/t1/customer/c1", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("blocked-extension")) {
		t.Fatalf("expected rejection reason in body: %s", rec.Body.String())
	}
}

func TestUpdateTaskFailedPartRollsBackStoredParts(t *testing.T) {
	pm := domain.Principal{ID: "u-pm", Role: domain.RolePM}
	ts := newTestServer(t, pm)

	// One acceptable part and one blocked part in the same request.
	// Whatever order the parts are processed in, nothing may persist.
	body, contentType := multipartUpload(t, "", map[string][]byte{
		"photo.jpg": jpegPart,
		"setup.exe": jpegPart,
	})
	req := httptest.NewRequest(http.MethodPut, "/tasks/t1/customer/c1", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	stats, err := ts.repo.Stats(req.Context())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalCount != 0 {
		t.Fatalf("expected empty registry after rollback, got %d records", stats.TotalCount)
	}
	keys, err := ts.store.Keys(req.Context())
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no stored objects after rollback, got %v", keys)
	}
}

func TestUpdateTaskOtherCustomerForbidden(t *testing.T) {
	other := domain.Principal{ID: "u-c2", Role: domain.RoleCustomer, CustomerID: "c2"}
	ts := newTestServer(t, other)

	body, contentType := multipartUpload(t, `{"title":"x"}`, nil)
	req := httptest.NewRequest(http.MethodPut, "/tasks/t1/customer/c1", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateUnknownTaskIsNotFound(t *testing.T) {
	pm := domain.Principal{ID: "u-pm", Role: domain.RolePM}
	ts := newTestServer(t, pm)

	body, contentType := multipartUpload(t, `{"title":"x"}`, nil)
	req := httptest.NewRequest(http.MethodPut, "/tasks/unknown/customer/c1", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateTaskRejectsInvalidTaskData(t *testing.T) {
	pm := domain.Principal{ID: "u-pm", Role: domain.RolePM}
	ts := newTestServer(t, pm)

	body, contentType := multipartUpload(t, `{not json`, nil)
	req := httptest.NewRequest(http.MethodPut, "/tasks/t1/customer/c1", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestInfoUnknownAttachment(t *testing.T) {
	pm := domain.Principal{ID: "u-pm", Role: domain.RolePM}
	ts := newTestServer(t, pm)

	req := httptest.NewRequest(http.MethodGet, "/files/info/att_missing", nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOwnerDeletedEventCascades(t *testing.T) {
	pm := domain.Principal{ID: "u-pm", Role: domain.RolePM}
	ts := newTestServer(t, pm)

	body, contentType := multipartUpload(t, "", map[string][]byte{
		"photo.jpg": jpegPart,
	})
	req := httptest.NewRequest(http.MethodPut, "/tasks/t1/customer/c1", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	event := bytes.NewReader([]byte(`{"ownerType":"task","ownerId":"t1"}`))
	req = httptest.NewRequest(http.MethodPost, "/events/owner-deleted", event)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("event: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Synchronous dispatch: the attachments are gone when the event
	// call returns.
	records, err := ts.repo.ListByOwner(req.Context(), domain.OwnerTask, "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected cascade to remove attachments, got %d", len(records))
	}
	keys, err := ts.store.Keys(req.Context())
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected cascade to remove bytes, got %v", keys)
	}
}

func TestOwnerDeletedEventRejectsBadOwnerType(t *testing.T) {
	pm := domain.Principal{ID: "u-pm", Role: domain.RolePM}
	ts := newTestServer(t, pm)

	for _, payload := range []string{
		`{"ownerType":"project","ownerId":"p1"}`,
		`{"ownerType":"task"}`,
		`{}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/events/owner-deleted", bytes.NewReader([]byte(payload)))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("payload %s: expected 400, got %d", payload, rec.Code)
		}
	}
}

func TestCleanupValidatesRequest(t *testing.T) {
	pm := domain.Principal{ID: "u-pm", Role: domain.RolePM}
	ts := newTestServer(t, pm)

	req := httptest.NewRequest(http.MethodPost, "/files/cleanup", bytes.NewReader([]byte(`{"maxAgeInDays":0}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero age, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/files/cleanup", bytes.NewReader([]byte(`{"maxAgeInDays":30}`)))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result domain.SweepResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.MaxAgeDays != 30 {
		t.Fatalf("expected max_age_days 30, got %d", result.MaxAgeDays)
	}
}

func TestStatsEmptyRegistry(t *testing.T) {
	pm := domain.Principal{ID: "u-pm", Role: domain.RolePM}
	ts := newTestServer(t, pm)

	req := httptest.NewRequest(http.MethodGet, "/files/stats", nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp responses.StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalCount != 0 || resp.TotalBytes != 0 {
		t.Fatalf("expected zero totals, got %+v", resp)
	}
	if len(resp.PerCategory) != len(domain.Categories()) {
		t.Fatalf("expected every category reported, got %d", len(resp.PerCategory))
	}
}
