package services_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"khatam-tracker/handlers"
	"khatam-tracker/models"
	"khatam-tracker/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "khatam.db")), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	// one connection keeps sqlite happy under concurrent requests
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Khatam{}, &models.KhatamItem{}, &models.Pledge{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// newCaptchaStub points the client at a local verifier that always answers
// with the given outcome.
func newCaptchaStub(t *testing.T, success bool) *services.CaptchaClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"success": %t}`, success)
	}))
	t.Cleanup(srv.Close)
	return services.NewCaptchaClient("test-secret", srv.URL)
}

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
}

func newTestEnv(t *testing.T, captchaOK bool) *testEnv {
	t.Helper()
	db := newTestDB(t)
	captcha := newCaptchaStub(t, captchaOK)
	email := services.NewEmailClient("", "") // no API key: sends are no-ops

	app := fiber.New()
	handlers.SetupKhatamRoutes(app, services.NewKhatamService(db, captcha))
	handlers.SetupPledgeRoutes(app, services.NewPledgeService(db, captcha, email, "http://localhost:3000"))
	return &testEnv{app: app, db: db}
}

func (e *testEnv) postJSON(t *testing.T, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req)
}

func (e *testEnv) get(t *testing.T, path string) (int, map[string]interface{}) {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *testEnv) do(t *testing.T, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

// rawGet returns the unparsed body, for asserting what a response does NOT
// contain.
func (e *testEnv) rawGet(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(raw)
}

// postCover sends a multipart form to the cover endpoint, optionally with a
// "cover" file part.
func (e *testEnv) postCover(t *testing.T, path string, withFile bool) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if withFile {
		part, err := w.CreateFormFile("cover", "cover.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("not-a-real-png")); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return e.do(t, req)
}

func futureDeadline() string {
	return time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
}

func (e *testEnv) createQuranKhatam(t *testing.T, title string) string {
	t.Helper()
	status, body := e.postJSON(t, "/khatam/create", map[string]interface{}{
		"type":          "quran",
		"title":         title,
		"read_by_iso":   futureDeadline(),
		"tz":            "Europe/London",
		"captcha_token": "tok",
	})
	if status != http.StatusCreated {
		t.Fatalf("create quran khatam: status %d body %v", status, body)
	}
	return body["slug"].(string)
}

func (e *testEnv) createCounterKhatam(t *testing.T, title, unitLabel string, target int) string {
	t.Helper()
	status, body := e.postJSON(t, "/khatam/create", map[string]interface{}{
		"type":          "custom_counter",
		"title":         title,
		"read_by_iso":   futureDeadline(),
		"tz":            "Europe/London",
		"unit_label":    unitLabel,
		"target_units":  target,
		"captcha_token": "tok",
	})
	if status != http.StatusCreated {
		t.Fatalf("create counter khatam: status %d body %v", status, body)
	}
	return body["slug"].(string)
}

func (e *testEnv) createPledge(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	status, resp := e.postJSON(t, "/pledge/create", body)
	if status != http.StatusCreated {
		t.Fatalf("create pledge: status %d body %v", status, resp)
	}
	return resp["manage"].(string)
}

// expireKhatam moves a khatam's deadline into the past, directly in the DB.
func (e *testEnv) expireKhatam(t *testing.T, slug string) {
	t.Helper()
	err := e.db.Model(&models.Khatam{}).Where("slug = ?", slug).
		Update("read_by_at", time.Now().Add(-time.Hour)).Error
	if err != nil {
		t.Fatalf("expire khatam: %v", err)
	}
}
