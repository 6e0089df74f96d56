package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xpresstask/core/internal/domain/entities"
	"github.com/xpresstask/core/internal/infrastructure/logger"
	"github.com/xpresstask/core/internal/ports"
)

const testGrace = 20 * time.Millisecond

func signedToken(t *testing.T, username string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  1,
		"username": username,
	}).SignedString([]byte("any-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

type loginWatcher struct {
	calls atomic.Int32
	fired chan struct{}
}

func newLoginWatcher() *loginWatcher {
	return &loginWatcher{fired: make(chan struct{}, 8)}
}

func (w *loginWatcher) callback() {
	w.calls.Add(1)
	w.fired <- struct{}{}
}

func (w *loginWatcher) waitFired(t *testing.T) {
	t.Helper()
	select {
	case <-w.fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected login to be requested")
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *MemoryTokenStore, *loginWatcher) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := &MemoryTokenStore{}
	watcher := newLoginWatcher()
	session := NewSession(store, testGrace, watcher.callback, logger.NewNop())
	t.Cleanup(session.Close)
	return New(srv.URL, session, logger.NewNop()), store, watcher
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginStoresTokenAndMyTasksSendsIt(t *testing.T) {
	token := signedToken(t, "alice")
	var gotAuth string

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var req ports.CredentialsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "alice" || req.Password != "pw1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, ports.AuthResponse{Token: token, Username: "alice"})
	})
	mux.HandleFunc("/user/tasks", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, []entities.Task{{ID: 1, Title: "Buy milk", Status: entities.TaskStatusOpen}})
	})
	c, store, _ := newTestClient(t, mux)

	if _, err := c.Login(context.Background(), "alice", "wrong"); !IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}
	var apiErr *APIError
	if _, err := c.Login(context.Background(), "alice", "wrong"); !errors.As(err, &apiErr) || apiErr.Message != "invalid credentials" {
		t.Fatalf("expected server message, got %v", err)
	}

	if _, err := c.Login(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if stored, _ := store.Load(); stored != token {
		t.Fatalf("expected token to be stored")
	}
	if got := c.Session().Username(); got != "alice" {
		t.Fatalf("expected username alice, got %q", got)
	}

	tasks, err := c.MyTasks(context.Background())
	if err != nil {
		t.Fatalf("my tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Buy milk" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
	if gotAuth != "Bearer "+token {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
}

func TestMyTasksWithoutTokenRequiresLoginImmediately(t *testing.T) {
	var requests atomic.Int32
	c, _, watcher := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))

	if _, err := c.MyTasks(context.Background()); !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("expected ErrLoginRequired, got %v", err)
	}
	if watcher.calls.Load() != 1 {
		t.Fatalf("expected login to be requested synchronously")
	}
	if requests.Load() != 0 {
		t.Fatalf("expected no request to be sent")
	}
}

func TestMyTasksRejectionClearsTokenAndRedirectsLater(t *testing.T) {
	c, store, watcher := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	}))
	_ = store.Save(signedToken(t, "alice"))

	if _, err := c.MyTasks(context.Background()); !IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}
	if stored, _ := store.Load(); stored != "" {
		t.Fatalf("expected token to be cleared")
	}
	if watcher.calls.Load() != 0 {
		t.Fatalf("login must wait for the grace period")
	}
	watcher.waitFired(t)
}

func TestMyTasksTransportErrorAlsoEndsSession(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	store := &MemoryTokenStore{}
	_ = store.Save(signedToken(t, "alice"))
	watcher := newLoginWatcher()
	session := NewSession(store, testGrace, watcher.callback, logger.NewNop())
	defer session.Close()
	c := New(url, session, logger.NewNop())

	if _, err := c.MyTasks(context.Background()); err == nil {
		t.Fatalf("expected transport error")
	}
	if stored, _ := store.Load(); stored != "" {
		t.Fatalf("expected token to be cleared")
	}
	watcher.waitFired(t)
}

func TestRevalidateReplacesPendingRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}))
	defer srv.Close()

	const grace = 200 * time.Millisecond
	store := &MemoryTokenStore{}
	watcher := newLoginWatcher()
	session := NewSession(store, grace, watcher.callback, logger.NewNop())
	defer session.Close()
	c := New(srv.URL, session, logger.NewNop())

	_ = store.Save(signedToken(t, "alice"))
	_ = c.Revalidate(context.Background())
	_ = store.Save(signedToken(t, "alice"))
	_ = c.Revalidate(context.Background())

	watcher.waitFired(t)
	time.Sleep(2 * grace)
	if got := watcher.calls.Load(); got != 1 {
		t.Fatalf("expected a single login request, got %d", got)
	}
}

func TestAllTasksUnauthorizedDropsTokenWithoutRedirect(t *testing.T) {
	var gotAuth string
	c, store, watcher := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	}))
	_ = store.Save("stale")

	if _, err := c.AllTasks(context.Background()); !IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}
	if gotAuth != "Bearer stale" {
		t.Fatalf("expected token to be attached, got %q", gotAuth)
	}
	if stored, _ := store.Load(); stored != "" {
		t.Fatalf("expected token to be cleared")
	}

	time.Sleep(5 * testGrace)
	if watcher.calls.Load() != 0 {
		t.Fatalf("home listing must not ask for a login")
	}
}

func TestAllTasksWithoutToken(t *testing.T) {
	var gotAuth string
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, []entities.Task{})
	}))

	tasks, err := c.AllTasks(context.Background())
	if err != nil {
		t.Fatalf("all tasks: %v", err)
	}
	if len(tasks) != 0 || gotAuth != "" {
		t.Fatalf("unexpected result %v, auth %q", tasks, gotAuth)
	}
}

func TestCreateAndUpdateSendTypedBodies(t *testing.T) {
	var created, updated map[string]interface{}
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&created)
		writeJSON(w, http.StatusCreated, entities.Task{ID: 3, Title: "Fix bike", Status: entities.TaskStatusOpen})
	})
	mux.HandleFunc("/tasks/3", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&updated)
		writeJSON(w, http.StatusOK, entities.Task{ID: 3, Title: "Fix bike", Status: entities.TaskStatusDone})
	})
	c, store, _ := newTestClient(t, mux)
	_ = store.Save(signedToken(t, "alice"))

	task, err := c.CreateTask(context.Background(), ports.TaskRequest{Title: "Fix bike"})
	if err != nil || task.ID != 3 {
		t.Fatalf("create: %+v, %v", task, err)
	}
	if created["title"] != "Fix bike" {
		t.Fatalf("unexpected create body: %v", created)
	}

	done := entities.TaskStatusDone
	task, err = c.UpdateTask(context.Background(), 3, ports.TaskRequest{Title: "Fix bike", Status: &done})
	if err != nil || task.Status != entities.TaskStatusDone {
		t.Fatalf("update: %+v, %v", task, err)
	}
	if updated["status"] != "done" {
		t.Fatalf("unexpected update body: %v", updated)
	}
}

func TestDeleteTaskNeedsConfirmation(t *testing.T) {
	var requests atomic.Int32
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Method != http.MethodDelete || r.URL.Path != "/tasks/7" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "task deleted"})
	}))

	if err := c.DeleteTask(context.Background(), 7, func() bool { return false }); !errors.Is(err, ErrDeleteCancelled) {
		t.Fatalf("expected ErrDeleteCancelled, got %v", err)
	}
	if requests.Load() != 0 {
		t.Fatalf("declined delete must not send a request")
	}

	if err := c.DeleteTask(context.Background(), 7, func() bool { return true }); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if requests.Load() != 1 {
		t.Fatalf("expected one request, got %d", requests.Load())
	}
}
