package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// probe issues a request against h's mux and decodes the JSON body.
func probe(t *testing.T, h *Handler, method, path string) (*httptest.ResponseRecorder, report) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	var body report
	if rec.Code != http.StatusMethodNotAllowed {
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode %s body: %v", path, err)
		}
	}
	return rec, body
}

func passing(name string) Checker {
	return Checker{Name: name, Check: func(_ context.Context) error { return nil }}
}

func failing(name, msg string) Checker {
	return Checker{Name: name, Check: func(_ context.Context) error { return errors.New(msg) }}
}

func TestHealthz(t *testing.T) {
	rec, body := probe(t, New(failing("engine", "down")), "GET", "/healthz")

	// Liveness ignores checker state entirely.
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body.Status != "ok" {
		t.Errorf("body status = %q, want %q", body.Status, "ok")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestReadyz(t *testing.T) {
	t.Run("all pass", func(t *testing.T) {
		rec, body := probe(t, New(passing("storage"), passing("engine")), "GET", "/readyz")

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if body.Status != "ok" {
			t.Errorf("body status = %q, want %q", body.Status, "ok")
		}
		for _, name := range []string{"storage", "engine"} {
			if body.Checks[name] != "ok" {
				t.Errorf("check %q = %q, want %q", name, body.Checks[name], "ok")
			}
		}
	})

	t.Run("one fails", func(t *testing.T) {
		h := New(failing("engine", "connection refused"), passing("storage"))
		rec, body := probe(t, h, "GET", "/readyz")

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
		}
		if body.Status != "fail" {
			t.Errorf("body status = %q, want %q", body.Status, "fail")
		}
		if body.Checks["engine"] != "fail: connection refused" {
			t.Errorf("engine check = %q, want %q", body.Checks["engine"], "fail: connection refused")
		}
		// A failing sibling must not mask a healthy check.
		if body.Checks["storage"] != "ok" {
			t.Errorf("storage check = %q, want %q", body.Checks["storage"], "ok")
		}
	})

	t.Run("no checkers", func(t *testing.T) {
		rec, body := probe(t, New(), "GET", "/readyz")

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if body.Status != "ok" {
			t.Errorf("body status = %q, want %q", body.Status, "ok")
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec, _ := probe(t, New(), "POST", "/readyz")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})
}

func TestReadyz_CancelledRequest(t *testing.T) {
	h := New(Checker{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestStorageChecker(t *testing.T) {
	t.Run("writable dir", func(t *testing.T) {
		c := Storage("storage", t.TempDir())
		if c.Name != "storage" {
			t.Errorf("Name = %q, want %q", c.Name, "storage")
		}
		if err := c.Check(context.Background()); err != nil {
			t.Fatalf("Check: unexpected error: %v", err)
		}
	})

	t.Run("creates a missing dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data", "voices")
		c := Storage("storage", dir)
		if err := c.Check(context.Background()); err != nil {
			t.Fatalf("Check: unexpected error: %v", err)
		}
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("dir not created: %v", err)
		}
	})

	t.Run("path occupied by a file", func(t *testing.T) {
		blocked := filepath.Join(t.TempDir(), "data")
		if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		c := Storage("storage", blocked)
		if err := c.Check(context.Background()); err == nil {
			t.Fatal("Check: expected error for a path occupied by a file")
		}
	})

	t.Run("leaves no probe file behind", func(t *testing.T) {
		dir := t.TempDir()
		if err := Storage("storage", dir).Check(context.Background()); err != nil {
			t.Fatalf("Check: unexpected error: %v", err)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Fatalf("probe left %d files behind", len(entries))
		}
	})
}

func TestEngineChecker(t *testing.T) {
	calls := 0
	c := Engine(func(_ context.Context) error {
		calls++
		return errors.New("sidecar down")
	})

	if c.Name != "engine" {
		t.Errorf("Name = %q, want %q", c.Name, "engine")
	}
	if err := c.Check(context.Background()); err == nil {
		t.Fatal("Check: expected the probe error")
	}
	if calls != 1 {
		t.Errorf("probe called %d times, want 1", calls)
	}
}
