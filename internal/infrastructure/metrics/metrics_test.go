package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestRecordAuthAttempt(t *testing.T) {
	m := New()
	m.RecordAuthAttempt("login", OutcomeSuccess)
	m.RecordAuthAttempt("login", OutcomeRejected)
	m.RecordAuthAttempt("login", OutcomeRejected)

	body := scrape(t, m)
	want := `xpresstask_auth_attempts_total{operation="login",outcome="rejected"} 2`
	if !strings.Contains(body, want) {
		t.Fatalf("expected %q in:\n%s", want, body)
	}

	var nilMetrics *Metrics
	nilMetrics.RecordAuthAttempt("signup", OutcomeSuccess)
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/tasks/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := scrape(t, m)
	want := `http_requests_total{method="GET",path="/tasks/:id",status="200"} 1`
	if !strings.Contains(body, want) {
		t.Fatalf("expected %q in:\n%s", want, body)
	}
}
