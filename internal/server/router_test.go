package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/shepherd/internal/master"
	"github.com/loykin/shepherd/internal/platform"
	"github.com/loykin/shepherd/internal/supervisor"
)

type stubPlatform struct {
	nextPID int
}

func (s *stubPlatform) Spawn(spec platform.SpawnSpec) (platform.Handle, error) {
	s.nextPID++
	return platform.Handle{Name: spec.Name, PID: s.nextPID, LaunchTime: time.Now()}, nil
}

func (s *stubPlatform) IsAlive(platform.Handle) bool       { return false }
func (s *stubPlatform) Terminate(platform.Handle) error    { return nil }
func (s *stubPlatform) ListWindows(int) []platform.Window  { return nil }
func (s *stubPlatform) RequestClose(platform.Window) error { return nil }

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m, err := master.New(master.Options{
		ControlDir: t.TempDir(),
		MaxHistory: 50,
		Platform:   &stubPlatform{},
		Supervisor: supervisor.Config{Grace: time.Millisecond, Reclaim: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("new master: %v", err)
	}
	return NewRouter(m, "/api").Handler()
}

func doReq(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRegisterAndList(t *testing.T) {
	h := newTestHandler(t)
	w := doReq(t, h, http.MethodPost, "/api/register", `{"name":"w1","path":"/opt/bin/w1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}

	w = doReq(t, h, http.MethodGet, "/api/list", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	var ds []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &ds); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(ds) != 1 || ds[0]["name"] != "w1" {
		t.Fatalf("list body: %v", ds)
	}
}

func TestRegisterRejectsUnsafeInput(t *testing.T) {
	h := newTestHandler(t)
	cases := []string{
		`{"name":"../evil","path":"/bin/x"}`,
		`{"name":"w1","path":"relative/x"}`,
		`{"name":"w/1","path":"/bin/x"}`,
		`{"name":"","path":"/bin/x"}`,
		`not json`,
	}
	for _, body := range cases {
		if w := doReq(t, h, http.MethodPost, "/api/register", body); w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: want 400 got %d", body, w.Code)
		}
	}
}

func TestToggleAndEnabled(t *testing.T) {
	h := newTestHandler(t)
	w := doReq(t, h, http.MethodPost, "/api/toggle?name=w1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("toggle: %d %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["enabled"] != true {
		t.Fatalf("first toggle must enable: %v", resp)
	}

	w = doReq(t, h, http.MethodGet, "/api/enabled?name=w1", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["enabled"] != true {
		t.Fatalf("enabled query: %v", resp)
	}

	// Explicit value pins the state instead of flipping it.
	w = doReq(t, h, http.MethodPost, "/api/toggle?name=w1&value=false", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["enabled"] != false {
		t.Fatalf("pinned toggle: %v", resp)
	}

	if w := doReq(t, h, http.MethodPost, "/api/toggle?name=w1&value=maybe", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad value: want 400 got %d", w.Code)
	}
	if w := doReq(t, h, http.MethodPost, "/api/toggle", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("missing name: want 400 got %d", w.Code)
	}
}

func TestLogAndNotifications(t *testing.T) {
	h := newTestHandler(t)
	w := doReq(t, h, http.MethodPost, "/api/log", `{"level":"warning","source":"w1","message":"watch out"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("log: %d %s", w.Code, w.Body.String())
	}
	if w := doReq(t, h, http.MethodPost, "/api/log", `{"level":"fatal","message":"x"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad level: want 400 got %d", w.Code)
	}

	w = doReq(t, h, http.MethodGet, "/api/notifications?level=warning&source=w1", "")
	var entries []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0]["message"] != "watch out" {
		t.Fatalf("entries: %v", entries)
	}

	w = doReq(t, h, http.MethodGet, "/api/notifications?format=text", "")
	if !strings.Contains(w.Body.String(), "watch out") {
		t.Fatalf("text format: %q", w.Body.String())
	}
}

func TestStateEndpoint(t *testing.T) {
	h := newTestHandler(t)
	w := doReq(t, h, http.MethodGet, "/api/state", "")
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["state"] != "idle" {
		t.Fatalf("state: %v", resp)
	}
}

func TestLaunchRequiresRunning(t *testing.T) {
	h := newTestHandler(t)
	if w := doReq(t, h, http.MethodPost, "/api/launch?name=w1", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("launch while idle: want 400 got %d", w.Code)
	}
}

func TestSanitizeBase(t *testing.T) {
	cases := map[string]string{
		"":      "",
		"/":     "",
		"api":   "/api",
		"/api":  "/api",
		"/api/": "/api",
	}
	for in, want := range cases {
		if got := sanitizeBase(in); got != want {
			t.Fatalf("sanitizeBase(%q): want %q got %q", in, want, got)
		}
	}
}

func TestIsSafeName(t *testing.T) {
	good := []string{"w1", "worker-2", "a.b_c"}
	for _, s := range good {
		if !isSafeName(s) {
			t.Fatalf("%q must be safe", s)
		}
	}
	bad := []string{"", "..", "a/b", `a\b`, "a b", "é"}
	for _, s := range bad {
		if isSafeName(s) {
			t.Fatalf("%q must be rejected", s)
		}
	}
}

func TestIsSafeAbsPath(t *testing.T) {
	if !isSafeAbsPath("/opt/bin/w1") {
		t.Fatalf("absolute clean path must pass")
	}
	for _, p := range []string{"", "relative/x", "/opt/../etc/passwd"} {
		if isSafeAbsPath(p) {
			t.Fatalf("%q must be rejected", p)
		}
	}
}
