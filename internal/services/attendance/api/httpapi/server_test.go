package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ignitehq/attendance/internal/services/attendance/adminauth"
	"github.com/ignitehq/attendance/internal/services/attendance/domain"
	"github.com/ignitehq/attendance/internal/services/attendance/observability"
	"github.com/ignitehq/attendance/internal/services/attendance/service"
	"github.com/ignitehq/attendance/internal/services/attendance/storage/sqlite"
)

const testPassword = "club-secret"

type countingReporter struct {
	counts map[string]int
	err    error
}

func (c *countingReporter) IncrementLateCount(_ context.Context, name string) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.counts[name]++
	return c.counts[name], nil
}

func (c *countingReporter) RecordFirstLate(_ context.Context, name string) error {
	if _, ok := c.counts[name]; !ok {
		c.counts[name] = 1
	}
	return nil
}

type testEnv struct {
	handler  http.Handler
	svc      *service.Service
	clock    *clockwork.FakeClock
	reporter *countingReporter
	auth     *adminauth.Authenticator
}

func newTestEnv(t *testing.T, config Config) *testEnv {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "attendance.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	zone, err := domain.LoadZone("")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))
	reporter := &countingReporter{counts: map[string]int{}}

	svc, err := service.New(store, reporter, service.Config{Zone: zone},
		service.WithClock(clock),
		service.WithMetrics(metrics),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	auth, err := adminauth.New(adminauth.Config{Password: testPassword})
	if err != nil {
		t.Fatalf("new auth: %v", err)
	}
	if config.Gatherer == nil {
		config.Gatherer = registry
	}
	server := NewServer(svc, auth, metrics, config)
	return &testEnv{handler: server.Handler(), svc: svc, clock: clock, reporter: reporter, auth: auth}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookie *http.Cookie, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/login", map[string]string{"password": testPassword}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == adminauth.CookieName {
			return cookie
		}
	}
	t.Fatal("login did not set admin cookie")
	return nil
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	if err := json.Unmarshal(rec.Body.Bytes(), &value); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return value
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	got := decodeBody[errorResponse](t, rec)
	if got.Error != message {
		t.Fatalf("error = %q, want %q", got.Error, message)
	}
}

func TestUp(t *testing.T) {
	env := newTestEnv(t, Config{})
	rec := env.do(t, http.MethodGet, "/up", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("up = %d %q", rec.Code, rec.Body.String())
	}
}

func TestLoginSetsHTTPOnlyCookie(t *testing.T) {
	env := newTestEnv(t, Config{})
	cookie := env.login(t)
	if !cookie.HttpOnly {
		t.Fatal("expected HttpOnly cookie")
	}
	if cookie.MaxAge != 86400 {
		t.Fatalf("max age = %d, want 86400", cookie.MaxAge)
	}

	rec := env.do(t, http.MethodGet, "/auth/check", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("auth check = %d", rec.Code)
	}
	if got := decodeBody[map[string]bool](t, rec); !got["authenticated"] {
		t.Fatalf("auth check body = %v", got)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t, Config{})
	rec := env.do(t, http.MethodPost, "/login", map[string]string{"password": "nope"}, nil)
	assertError(t, rec, http.StatusUnauthorized, "unauthorized")
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t, Config{LoginRate: 0.001, LoginBurst: 2})
	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/login", map[string]string{"password": "nope"}, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d", i, rec.Code)
		}
	}
	rec := env.do(t, http.MethodPost, "/login", map[string]string{"password": testPassword}, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t, Config{})
	rec := env.do(t, http.MethodPost, "/logout", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("cookies = %+v, want expired admin cookie", cookies)
	}
}

func TestAdminRoutesRequireValidCookie(t *testing.T) {
	env := newTestEnv(t, Config{})
	forged := &http.Cookie{Name: adminauth.CookieName, Value: testPassword}

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/auth/check"},
		{http.MethodGet, "/sessions"},
		{http.MethodPost, "/members"},
		{http.MethodPost, "/session"},
		{http.MethodDelete, "/session/member"},
		{http.MethodGet, "/default-time"},
		{http.MethodPut, "/default-time"},
	} {
		rec := env.do(t, route.method, route.path, nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s without cookie = %d", route.method, route.path, rec.Code)
		}
		rec = env.do(t, route.method, route.path, nil, forged)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s with forged cookie = %d", route.method, route.path, rec.Code)
		}
	}
}

func TestMembersRoundTrip(t *testing.T) {
	env := newTestEnv(t, Config{})
	cookie := env.login(t)

	rec := env.do(t, http.MethodPost, "/members", map[string][]string{"members": {"Mina", "Alex"}}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace = %d %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[statusResponse](t, rec); got.Status != "updated" {
		t.Fatalf("status = %q", got.Status)
	}

	rec = env.do(t, http.MethodGet, "/members", nil, nil)
	names := decodeBody[[]string](t, rec)
	if len(names) != 2 || names[0] != "Alex" || names[1] != "Mina" {
		t.Fatalf("members = %v, want [Alex Mina]", names)
	}
}

func TestMembersValidation(t *testing.T) {
	env := newTestEnv(t, Config{})
	cookie := env.login(t)

	rec := env.do(t, http.MethodPost, "/members", map[string]string{}, cookie)
	assertError(t, rec, http.StatusBadRequest, "members is required")

	rec = env.do(t, http.MethodPost, "/members", map[string][]string{"members": {"A", ""}}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, Config{})
	cookie := env.login(t)
	env.do(t, http.MethodPost, "/members", map[string][]string{"members": {"A", "B"}}, cookie)

	rec := env.do(t, http.MethodPost, "/session", map[string]string{"date": "2026-10-25", "time": "16:05"}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("create = %d %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[sessionResponse](t, rec)
	if created.ID == "" {
		t.Fatal("expected session id")
	}
	if created.Datetime != "2026-10-25T16:05:00+11:00" {
		t.Fatalf("datetime = %q", created.Datetime)
	}

	rec = env.do(t, http.MethodGet, "/sessions/"+created.ID, nil, nil)
	got := decodeBody[sessionResponse](t, rec)
	if got.ID != created.ID || len(got.Members) != 2 {
		t.Fatalf("session = %+v", got)
	}

	rec = env.do(t, http.MethodPost, "/sessions/"+created.ID+"/remove", map[string]string{"name": "A"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("opt out = %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/session", nil, nil)
	active := decodeBody[sessionResponse](t, rec)
	if active.ID != created.ID || len(active.Members) != 1 || active.Members[0] != "B" {
		t.Fatalf("active = %+v, want only B", active)
	}

	rec = env.do(t, http.MethodGet, "/sessions", nil, cookie)
	list := decodeBody[[]sessionResponse](t, rec)
	if len(list) != 1 {
		t.Fatalf("sessions = %+v", list)
	}
}

func TestSessionNotFound(t *testing.T) {
	env := newTestEnv(t, Config{})
	rec := env.do(t, http.MethodGet, "/sessions/missing", nil, nil)
	assertError(t, rec, http.StatusNotFound, "session not found")

	rec = env.do(t, http.MethodGet, "/session", nil, nil)
	assertError(t, rec, http.StatusNotFound, "session not found")
}

func TestOptOutAfterWindowLocalized(t *testing.T) {
	env := newTestEnv(t, Config{})
	cookie := env.login(t)
	env.do(t, http.MethodPost, "/members", map[string][]string{"members": {"A"}}, cookie)
	rec := env.do(t, http.MethodPost, "/session", map[string]string{"date": "2026-10-14", "time": "10:00"}, cookie)
	created := decodeBody[sessionResponse](t, rec)

	// 10:00 Sydney is 23:00 UTC the day before; move well past the window.
	env.clock.Advance(2 * time.Hour)

	rec = env.do(t, http.MethodPost, "/sessions/"+created.ID+"/remove", map[string]string{"name": "A"}, nil)
	assertError(t, rec, http.StatusForbidden, "attendance window has closed")

	rec = env.do(t, http.MethodPost, "/session/remove", map[string]string{"name": "A"}, nil, "Accept-Language", "ko")
	assertError(t, rec, http.StatusForbidden, "출석 시간이 마감되었습니다")
	if got := rec.Header().Get("Content-Language"); got != "ko-KR" {
		t.Fatalf("content language = %q, want ko-KR", got)
	}
}

func TestValidationReasonLocalized(t *testing.T) {
	env := newTestEnv(t, Config{})
	cookie := env.login(t)

	rec := env.do(t, http.MethodPut, "/default-time", map[string]string{}, cookie, "Accept-Language", "ko")
	assertError(t, rec, http.StatusBadRequest, "시간이 필요합니다")

	rec = env.do(t, http.MethodPut, "/default-time", map[string]string{"time": "25:00"}, cookie, "Accept-Language", "ko")
	assertError(t, rec, http.StatusBadRequest, "시간 형식이 올바르지 않습니다 (HH:MM)")
}

func TestOptOutUnknownMember(t *testing.T) {
	env := newTestEnv(t, Config{})
	cookie := env.login(t)
	rec := env.do(t, http.MethodPost, "/session", map[string]string{"date": "2026-10-25", "time": "16:05"}, cookie)
	created := decodeBody[sessionResponse](t, rec)

	rec = env.do(t, http.MethodPost, "/sessions/"+created.ID+"/remove", map[string]string{"name": "ghost"}, nil)
	assertError(t, rec, http.StatusNotFound, "member not found")
}

func TestAdminRemoveNotMember(t *testing.T) {
	env := newTestEnv(t, Config{})
	cookie := env.login(t)
	env.do(t, http.MethodPost, "/members", map[string][]string{"members": {"A"}}, cookie)
	env.do(t, http.MethodPost, "/session", map[string]string{"date": "2026-10-25", "time": "16:05"}, cookie)

	rec := env.do(t, http.MethodDelete, "/session/member", map[string]string{"name": "A"}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove = %d %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodDelete, "/session/member", map[string]string{"name": "A"}, cookie)
	assertError(t, rec, http.StatusBadRequest, "A is not a member of this session")
}

func TestAdminMutationsLogTokenID(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	env := newTestEnv(t, Config{})
	cookie := env.login(t)
	claims, err := env.auth.Validate(cookie.Value)
	if err != nil {
		t.Fatalf("validate cookie: %v", err)
	}
	if claims.TokenID == "" {
		t.Fatal("expected token id in claims")
	}

	env.do(t, http.MethodPost, "/members", map[string][]string{"members": {"A"}}, cookie)
	env.do(t, http.MethodPut, "/default-time", map[string]string{"time": "17:00"}, cookie)
	env.do(t, http.MethodPost, "/session", map[string]string{"date": "2026-10-25", "time": "16:05"}, cookie)
	rec := env.do(t, http.MethodDelete, "/session/member", map[string]string{"name": "A"}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove = %d %s", rec.Code, rec.Body.String())
	}

	for _, prefix := range []string{"roster replaced", "default session time set", "admin token " + claims.TokenID + " removed"} {
		found := false
		for _, line := range strings.Split(logs.String(), "\n") {
			if strings.Contains(line, prefix) && strings.Contains(line, claims.TokenID) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("no %q log line with token id %s in:\n%s", prefix, claims.TokenID, logs.String())
		}
	}
}

func TestDefaultTime(t *testing.T) {
	env := newTestEnv(t, Config{})
	cookie := env.login(t)

	rec := env.do(t, http.MethodGet, "/default-time", nil, cookie)
	if got := decodeBody[defaultTimeResponse](t, rec); got.Time != "16:05" {
		t.Fatalf("default time = %q, want 16:05", got.Time)
	}

	rec = env.do(t, http.MethodPut, "/default-time", map[string]string{"time": "9:30"}, cookie)
	if got := decodeBody[defaultTimeResponse](t, rec); got.Time != "09:30" {
		t.Fatalf("set default time = %q, want 09:30", got.Time)
	}

	rec = env.do(t, http.MethodPut, "/default-time", map[string]string{"time": "24:00"}, cookie)
	assertError(t, rec, http.StatusBadRequest, "invalid time format, expected HH:MM")

	rec = env.do(t, http.MethodPut, "/default-time", map[string]string{}, cookie)
	assertError(t, rec, http.StatusBadRequest, "time is required")
}

func TestCleanRunsSweep(t *testing.T) {
	env := newTestEnv(t, Config{})
	rec := env.do(t, http.MethodGet, "/clean", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clean = %d %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[cleanResponse](t, rec)
	if got.Status != "cleaned" || got.SessionsCreated != 1 || got.SessionsDeleted != 0 {
		t.Fatalf("clean = %+v", got)
	}
}

func TestCleanOutlivesClientDisconnect(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/clean", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("clean = %d %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[cleanResponse](t, rec); got.SessionsCreated != 1 {
		t.Fatalf("clean = %+v, want one session created", got)
	}
}

func TestCleanTokenRequired(t *testing.T) {
	env := newTestEnv(t, Config{CleanToken: "cron-token"})

	rec := env.do(t, http.MethodPost, "/clean", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/clean", nil, nil, "Authorization", "Bearer wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/clean", nil, nil, "Authorization", "Bearer cron-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCleanReporterFailure(t *testing.T) {
	env := newTestEnv(t, Config{})
	cookie := env.login(t)
	env.do(t, http.MethodPost, "/members", map[string][]string{"members": {"A"}}, cookie)
	env.do(t, http.MethodPost, "/session", map[string]string{"date": "2026-10-14", "time": "10:00"}, cookie)
	env.clock.Advance(2 * time.Hour)
	env.reporter.err = errors.New("sheet down")

	rec := env.do(t, http.MethodGet, "/clean", nil, nil)
	assertError(t, rec, http.StatusBadGateway, "could not record lateness, try again later")

	sessions, err := env.svc.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1 kept", len(sessions))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.do(t, http.MethodGet, "/up", nil, nil)

	rec := env.do(t, http.MethodGet, "/metrics", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `attendance_http_requests_total{route="GET /up",status="200"} 1`) {
		t.Fatalf("metrics body missing request counter:\n%s", rec.Body.String())
	}
}

func TestMalformedBody(t *testing.T) {
	env := newTestEnv(t, Config{})
	req := httptest.NewRequest(http.MethodPost, "/session/remove", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assertError(t, rec, http.StatusBadRequest, "invalid JSON body")
}

func TestLoginLimiterPrune(t *testing.T) {
	limiter := newLoginLimiter(1, 1)
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	limiter.allow("10.0.0.1", now)
	limiter.allow("10.0.0.2", now.Add(time.Minute))

	limiter.prune(now.Add(90*time.Second), time.Minute)
	if limiter.size() != 1 {
		t.Fatalf("size = %d, want 1", limiter.size())
	}
}
