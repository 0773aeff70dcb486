package management

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/yishaik/winter-wellness-bot/internal/log"
	"github.com/yishaik/winter-wellness-bot/internal/sessions"
	"github.com/yishaik/winter-wellness-bot/pkg/config"
)

func TestMain(m *testing.M) {
	if err := log.Init(true); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type stubSource struct {
	samples []sessions.Observation
}

func (s *stubSource) Fetch(ctx context.Context, from, to time.Time) ([]sessions.Observation, error) {
	return s.samples, nil
}

func (s *stubSource) Name() string { return "stub" }

func newTestController(t *testing.T, src *stubSource) *Controller {
	t.Helper()

	cfg := &config.ConfigData{
		Bot: config.BotData{Token: "123:secret-token"},
		Management: config.ManagementData{
			AuthToken: "test-token",
			EnvFile:   filepath.Join(t.TempDir(), ".env"),
		},
	}
	cfg.ApplyDefaults()

	if src == nil {
		src = &stubSource{}
	}

	var wg sync.WaitGroup
	ctrl, err := NewController(context.Background(), &wg, cfg, src, log.GetSugaredLogger())
	if err != nil {
		t.Fatal(err)
	}
	return ctrl
}

func doRequest(ctrl *Controller, method, path, token string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ctrl.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	ctrl := newTestController(t, nil)

	if rec := doRequest(ctrl, "GET", "/api/status", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated request: code = %d, want 401", rec.Code)
	}
	if rec := doRequest(ctrl, "GET", "/api/status", "wrong-token", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: code = %d, want 401", rec.Code)
	}
	if rec := doRequest(ctrl, "GET", "/api/status", "test-token", ""); rec.Code != http.StatusOK {
		t.Errorf("bearer token: code = %d, want 200", rec.Code)
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	ctrl := newTestController(t, nil)

	rec := doRequest(ctrl, "POST", "/login", "", `{"token": "test-token"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: code = %d", rec.Code)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("no session cookie set")
	}

	req := httptest.NewRequest("GET", "/api/status", nil)
	req.AddCookie(cookie)
	rec2 := httptest.NewRecorder()
	ctrl.Server.Handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Errorf("cookie auth: code = %d, want 200", rec2.Code)
	}

	if rec := doRequest(ctrl, "POST", "/login", "", `{"token": "nope"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong login token: code = %d, want 401", rec.Code)
	}
}

func TestGetConfigRedactsSecrets(t *testing.T) {
	ctrl := newTestController(t, nil)

	rec := doRequest(ctrl, "GET", "/api/config", "test-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}

	body := rec.Body.String()
	if strings.Contains(body, "secret-token") {
		t.Error("bot token leaked into config readout")
	}
	if strings.Contains(body, "test-token") {
		t.Error("auth token leaked into config readout")
	}
}

func TestGetSessions(t *testing.T) {
	t0 := time.Now().Add(-2 * time.Hour)
	samples := make([]sessions.Observation, 15)
	for i := range samples {
		samples[i] = sessions.Observation{Time: t0.Add(time.Duration(i) * time.Minute), TemperatureC: 60.0}
	}

	ctrl := newTestController(t, &stubSource{samples: samples})

	rec := doRequest(ctrl, "GET", "/api/sessions?hours=24", "test-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		WindowHours int                `json:"window_hours"`
		SampleCount int                `json:"sample_count"`
		Sessions    []sessions.Session `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.WindowHours != 24 || resp.SampleCount != 15 {
		t.Errorf("window=%d samples=%d", resp.WindowHours, resp.SampleCount)
	}
	if len(resp.Sessions) != 1 || resp.Sessions[0].Minutes != 14 {
		t.Errorf("sessions = %+v", resp.Sessions)
	}
}

func TestGetSessionsRejectsBadWindow(t *testing.T) {
	ctrl := newTestController(t, nil)
	if rec := doRequest(ctrl, "GET", "/api/sessions?hours=never", "test-token", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", rec.Code)
	}
}

func TestEnvFileRoundTrip(t *testing.T) {
	ctrl := newTestController(t, nil)
	path := ctrl.mgmt.EnvFile

	// Missing file reads as empty.
	rec := doRequest(ctrl, "GET", "/api/env", "test-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET empty: code = %d", rec.Code)
	}

	rec = doRequest(ctrl, "PUT", "/api/env", "test-token",
		`{"TELEGRAM_BOT_TOKEN": "999:abc", "MORNING_TIME": "08:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT: code = %d: %s", rec.Code, rec.Body.String())
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if vars["TELEGRAM_BOT_TOKEN"] != "999:abc" || vars["MORNING_TIME"] != "08:00" {
		t.Errorf("written vars = %+v", vars)
	}

	// Sensitive values come back masked.
	rec = doRequest(ctrl, "GET", "/api/env", "test-token", "")
	if strings.Contains(rec.Body.String(), "999:abc") {
		t.Error("sensitive value not masked in readout")
	}
	if !strings.Contains(rec.Body.String(), "08:00") {
		t.Error("non-sensitive value should be readable")
	}

	// Empty value deletes the key.
	rec = doRequest(ctrl, "PUT", "/api/env", "test-token", `{"MORNING_TIME": ""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT delete: code = %d", rec.Code)
	}
	vars, _ = godotenv.Read(path)
	if _, ok := vars["MORNING_TIME"]; ok {
		t.Error("empty value should remove the key")
	}
}

func TestEnvFileRejectsBadKeys(t *testing.T) {
	ctrl := newTestController(t, nil)

	rec := doRequest(ctrl, "PUT", "/api/env", "test-token", `{"lower_case": "x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", rec.Code)
	}
	rec = doRequest(ctrl, "PUT", "/api/env", "test-token", `{"BAD KEY": "x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", rec.Code)
	}
}

func TestServiceControlRequiresAllowlist(t *testing.T) {
	ctrl := newTestController(t, nil)

	rec := doRequest(ctrl, "POST", "/api/system/services/sshd.service/restart", "test-token", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-allowlisted unit: code = %d, want 403", rec.Code)
	}

	rec = doRequest(ctrl, "GET", "/api/system/services/sshd.service", "test-token", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-allowlisted unit status: code = %d, want 403", rec.Code)
	}
}

func TestGetSystemInfo(t *testing.T) {
	ctrl := newTestController(t, nil)

	rec := doRequest(ctrl, "GET", "/api/system/info", "test-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var info SystemInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.OS == "" || info.Architecture == "" {
		t.Errorf("info = %+v", info)
	}
}
