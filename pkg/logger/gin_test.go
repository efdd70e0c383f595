package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMiddleware_AttachesRequestAndCallIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := NewWithWriter("production", &buf)

	r := gin.New()
	r.Use(Middleware(l))
	var gotRID string
	var gotFromCtx bool
	r.POST("/ivr/entry", func(c *gin.Context) {
		gotRID = RequestID(c)
		gotFromCtx = From(c.Request.Context()) == FromGin(c)
		if c.PostForm("CallSid") != "CA1" {
			t.Errorf("form must still be readable by the handler")
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/ivr/entry", strings.NewReader("CallSid=CA1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(headerRequestID, "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if gotRID != "rid-1" || w.Header().Get(headerRequestID) != "rid-1" {
		t.Fatalf("expected request id to be propagated, got %q", gotRID)
	}
	if !gotFromCtx {
		t.Fatalf("expected request context to carry the request logger")
	}

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected one json log line, got %q: %v", buf.String(), err)
	}
	if line["call_sid"] != "CA1" || line["request_id"] != "rid-1" {
		t.Fatalf("unexpected log attrs: %v", line)
	}
}

func TestMiddleware_GeneratesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(NewWithWriter("local", &bytes.Buffer{})))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Header().Get(headerRequestID) == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestFromFallsBackToDefault(t *testing.T) {
	if From(httptest.NewRequest(http.MethodGet, "/", nil).Context()) == nil {
		t.Fatalf("expected default logger")
	}
}
