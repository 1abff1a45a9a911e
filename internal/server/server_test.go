package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matzehuels/tilesim/pkg/buildinfo"
	"github.com/matzehuels/tilesim/pkg/control"
	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/observability"
	"github.com/matzehuels/tilesim/pkg/scenario"
	"github.com/matzehuels/tilesim/pkg/sim"
	"github.com/matzehuels/tilesim/pkg/snapshot"
)

func newServer(t *testing.T, interval time.Duration) (*Server, *control.Controller, *snapshot.MemorySink) {
	t.Helper()
	in, err := scenario.Build("rods")
	if err != nil {
		t.Fatal(err)
	}
	in.Params.Seed = 3
	in.Params.Frozen = true
	s, err := sim.New(in, nil)
	if err != nil {
		t.Fatal(err)
	}
	sink := snapshot.NewMemorySink(0)
	ctrl := control.New(s, sink, control.Options{Interval: interval}, nil)
	return New(ctrl, nil), ctrl, sink
}

func do(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	srv, _, _ := newServer(t, 0)
	w := do(t, srv, http.MethodGet, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}
	if got := decode[buildinfo.Info](t, w); got != buildinfo.Get() {
		t.Errorf("got %+v, want %+v", got, buildinfo.Get())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("got content type %q, want application/json", ct)
	}
}

func TestRunAndSnapshot(t *testing.T) {
	srv, ctrl, sink := newServer(t, 0)

	w := do(t, srv, http.MethodPost, "/run?steps=3")
	if w.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want %d: %s", w.Code, http.StatusAccepted, w.Body.String())
	}
	if err := ctrl.Wait(); err != nil {
		t.Fatalf("run error: %v", err)
	}

	st := decode[control.Status](t, do(t, srv, http.MethodGet, "/status"))
	if st.State != control.StateDone || st.Step != 3 {
		t.Errorf("got status %+v, want done at step 3", st)
	}
	if n := len(sink.All(ctrl.RunID())); n != 3 {
		t.Errorf("got %d snapshots, want 3", n)
	}

	w = do(t, srv, http.MethodGet, "/snapshot")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}
	snap := decode[snapshot.Snapshot](t, w)
	if snap.RunID != ctrl.RunID() || snap.Step != 3 {
		t.Errorf("got snapshot of run %s step %d, want run %s step 3", snap.RunID, snap.Step, ctrl.RunID())
	}
}

func TestSnapshotBeforeRun(t *testing.T) {
	srv, ctrl, _ := newServer(t, 0)
	w := do(t, srv, http.MethodGet, "/snapshot")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}
	if snap := decode[snapshot.Snapshot](t, w); snap.Step != 0 || snap.RunID != ctrl.RunID() || len(snap.Tiles) == 0 {
		t.Errorf("got %+v, want the seeded state at step 0", snap)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
		code  errors.Code
	}{
		{"not a number", "/run?steps=many", http.StatusBadRequest, errors.ErrCodeInvalidConfig},
		{"negative", "/run?steps=-2", http.StatusBadRequest, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newServer(t, 0)
			w := do(t, srv, http.MethodPost, tt.query)
			if w.Code != tt.want {
				t.Fatalf("got status %d, want %d", w.Code, tt.want)
			}
			if body := decode[errorBody](t, w); body.Code != tt.code || body.Error == "" {
				t.Errorf("got %+v, want code %s", body, tt.code)
			}
		})
	}
}

func TestRunConflictAndStop(t *testing.T) {
	srv, ctrl, _ := newServer(t, 5*time.Millisecond)

	if w := do(t, srv, http.MethodPost, "/run"); w.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusAccepted)
	}
	w := do(t, srv, http.MethodPost, "/run?steps=1")
	if w.Code != http.StatusConflict {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusConflict)
	}
	if body := decode[errorBody](t, w); body.Code != errors.ErrCodeInvalidState {
		t.Errorf("got code %s, want %s", body.Code, errors.ErrCodeInvalidState)
	}

	for _, path := range []string{"/pause", "/resume", "/stop"} {
		if w := do(t, srv, http.MethodPost, path); w.Code != http.StatusAccepted {
			t.Errorf("POST %s: got status %d, want %d", path, w.Code, http.StatusAccepted)
		}
	}
	if err := ctrl.Wait(); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if st := ctrl.Status(); st.State != control.StateStopped {
		t.Errorf("got state %s, want %s", st.State, control.StateStopped)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := newServer(t, 0)
	if w := do(t, srv, http.MethodGet, "/run"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("got status %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

type recordingHooks struct {
	observability.NoopHTTPHooks
	statuses []int
}

func (h *recordingHooks) OnResponse(_ context.Context, _, _ string, status int, _ time.Duration) {
	h.statuses = append(h.statuses, status)
}

func TestHTTPHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	srv, _, _ := newServer(t, 0)
	do(t, srv, http.MethodGet, "/status")
	do(t, srv, http.MethodGet, "/missing")

	want := []int{http.StatusOK, http.StatusNotFound}
	if len(hooks.statuses) != len(want) {
		t.Fatalf("got %v, want %v", hooks.statuses, want)
	}
	for i := range want {
		if hooks.statuses[i] != want[i] {
			t.Errorf("got %v, want %v", hooks.statuses, want)
		}
	}
}

func TestHurt(t *testing.T) {
	srv, _, _ := newServer(t, 0)
	w := do(t, srv, http.MethodPost, "/hurt?n=2")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d: %s", w.Code, http.StatusOK, w.Body)
	}
	body := decode[struct {
		Removed []uint64 `json:"removed"`
	}](t, w)
	if body.Removed == nil {
		t.Error("got null removed list, want an array")
	}

	tests := []struct {
		path string
		want int
	}{
		{"/hurt", http.StatusBadRequest},
		{"/hurt?n=-1", http.StatusBadRequest},
		{"/hurt?n=x", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if w := do(t, srv, http.MethodPost, tt.path); w.Code != tt.want {
				t.Errorf("got status %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHurtWhileRunning(t *testing.T) {
	srv, ctrl, _ := newServer(t, 5*time.Millisecond)
	if w := do(t, srv, http.MethodPost, "/run"); w.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusAccepted)
	}
	if w := do(t, srv, http.MethodPost, "/hurt?n=1"); w.Code != http.StatusConflict {
		t.Errorf("got status %d, want %d", w.Code, http.StatusConflict)
	}
	ctrl.Stop()
	if err := ctrl.Wait(); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
}
