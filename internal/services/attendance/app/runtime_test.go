package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func testRuntimeConfig(t *testing.T) RuntimeConfig {
	t.Helper()
	return RuntimeConfig{
		HTTPAddr:   "127.0.0.1:0",
		DBPath:     filepath.Join(t.TempDir(), "nested", "attendance.db"),
		AdminToken: "secret",
	}
}

type runningRuntime struct {
	runtime *Runtime
	cancel  context.CancelFunc
	done    chan error
	client  *http.Client
}

func startRuntime(t *testing.T, cfg RuntimeConfig) *runningRuntime {
	t.Helper()
	runtime, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runtime.Serve(ctx)
	}()
	return &runningRuntime{
		runtime: runtime,
		cancel:  cancel,
		done:    done,
		client:  &http.Client{Transport: &http.Transport{}, Timeout: 5 * time.Second},
	}
}

func (r *runningRuntime) stop(t *testing.T) {
	t.Helper()
	r.cancel()
	select {
	case err := <-r.done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runtime did not stop")
	}
	r.client.CloseIdleConnections()
	r.runtime.Close()
}

func (r *runningRuntime) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := r.client.Get("http://" + r.runtime.Addr() + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestRuntimeServesHTTPAndHealth(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testRuntimeConfig(t)
	cfg.HealthAddr = "127.0.0.1:0"
	running := startRuntime(t, cfg)

	status, body := running.get(t, "/up")
	if status != http.StatusOK || body != "OK" {
		t.Fatalf("/up = %d %q", status, body)
	}
	status, body = running.get(t, "/metrics")
	if status != http.StatusOK || !strings.Contains(body, "go_goroutines") {
		t.Fatalf("/metrics = %d, missing go collector", status)
	}

	conn, err := grpc.NewClient(running.runtime.HealthAddr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial health: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	// /up answered, so Serve has already flipped the health status.
	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: HealthService})
	cancel()
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("health status = %s, want SERVING", resp.GetStatus())
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close health conn: %v", err)
	}

	running.stop(t)
}

func TestRuntimeScheduledSweepCreatesSession(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testRuntimeConfig(t)
	cfg.SweepInterval = 20 * time.Millisecond
	running := startRuntime(t, cfg)
	defer running.stop(t)

	deadline := time.Now().Add(5 * time.Second)
	for {
		status, body := running.get(t, "/session")
		if status == http.StatusOK {
			var session struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal([]byte(body), &session); err != nil {
				t.Fatalf("decode session: %v", err)
			}
			if session.ID == "" {
				t.Fatal("expected session id")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("no session after scheduled sweeps, last status %d", status)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestNewRequiresAdminToken(t *testing.T) {
	cfg := testRuntimeConfig(t)
	cfg.AdminToken = " "
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected error without admin token")
	}
}

func TestOpenCoreRejectsPartialSpreadsheetConfig(t *testing.T) {
	cfg := testRuntimeConfig(t)
	cfg.SheetID = "sheet-123"
	if _, err := OpenCore(context.Background(), cfg); err == nil {
		t.Fatal("expected error when spreadsheet credentials are missing")
	}
}

func TestOpenCoreRejectsUnknownWeekday(t *testing.T) {
	cfg := testRuntimeConfig(t)
	cfg.SessionWeekday = "someday"
	if _, err := OpenCore(context.Background(), cfg); err == nil {
		t.Fatal("expected weekday error")
	}
}

func TestSweepOnceSeedsThenKeepsSession(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testRuntimeConfig(t)
	first, err := SweepOnce(context.Background(), cfg)
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if first.Created != 1 || first.Deleted != 0 {
		t.Fatalf("first sweep = %+v, want one created", first)
	}

	second, err := SweepOnce(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if second.Created != 0 || second.Deleted != 0 {
		t.Fatalf("second sweep = %+v, want no changes", second)
	}
}
