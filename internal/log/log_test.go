package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(component string, level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: level, Component: component, Output: &buf}), &buf
}

func TestLoggerTagsComponent(t *testing.T) {
	l, buf := newBufferLogger(ComponentFinance, slog.LevelInfo)
	l.InfoContext(context.Background(), "Summary refreshed", FieldUserID, "u1")
	l.DebugContext(context.Background(), "hidden")

	out := buf.String()
	if !strings.Contains(out, "component=finance") || !strings.Contains(out, "user_id=u1") {
		t.Fatalf("unexpected output: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatal("debug line written at info level")
	}

	buf.Reset()
	l.WithComponent(ComponentFriends).Warn("switched")
	if !strings.Contains(buf.String(), "component=friends") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestMiddlewareInjectsRequestLogger(t *testing.T) {
	l, buf := newBufferLogger(ComponentHTTP, slog.LevelInfo)
	h := Middleware(l, func(*http.Request) string { return "req_1" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "inside")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/me", nil))

	if !strings.Contains(buf.String(), "request_id=req_1") {
		t.Fatalf("request id missing: %s", buf.String())
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("fallback logger = %+v", l)
	}
}

func TestStructuredLoggerLogErrorLevels(t *testing.T) {
	l, buf := newBufferLogger(ComponentHTTP, slog.LevelInfo)
	sl := NewStructuredLogger(l)

	sl.LogError(context.Background(), "Request failed", errors.New("boom"), ComponentHTTP, OpRead, ErrorTypeInternal, nil)
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "error=boom") {
		t.Fatalf("unexpected output: %s", buf.String())
	}

	buf.Reset()
	sl.LogError(context.Background(), "Request rejected", errors.New("bad"), ComponentHTTP, OpCreate, ErrorTypeValidation, NewFields().WithUser("u1"))
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "user_id=u1") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestLogFieldsSkipEmpty(t *testing.T) {
	f := NewFields().WithUser("").WithRequestID("").WithError(nil)
	if len(f) != 0 {
		t.Fatalf("fields = %v", f)
	}
}
