package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedact(t *testing.T) {
	key := strings.Repeat("ab12", 16)
	cases := map[string]string{
		"":                                 "",
		"community 123456789012345678":     "community [REDACTED:id]",
		"key=" + key:                       "key=[REDACTED:token]",
		"Authorization: Bearer s3cr3t":     "Authorization: Bearer [REDACTED]",
		"mail ops@example.com now":         "mail [REDACTED:email] now",
		"short 12345 stays":                "short 12345 stays",
	}
	for in, want := range cases {
		if got := redact(in); got != want {
			t.Fatalf("redact(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestRedactingLogger_InfoAndRedactions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/communities/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/communities/123456789012345678?user=223456789012345678&mail=a@b.io", nil)
	req.Header.Set("Authorization", "Bearer topsecret")
	req.Header.Set("X-Api-Key", "k")
	req.Header.Set("X-Note", "for 323456789012345678")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["level"] != "info" || line["message"] != "http_request" {
		t.Fatalf("unexpected level/message: %v", line)
	}
	if line["path"] != "/communities/:id" {
		t.Fatalf("expected route template as path, got %v", line["path"])
	}
	q, _ := line["query"].(string)
	if strings.Contains(q, "223456789012345678") || strings.Contains(q, "a@b.io") {
		t.Fatalf("query not redacted: %q", q)
	}
	headers, _ := line["headers"].(map[string]any)
	if headers["Authorization"] != "[REDACTED]" || headers["X-Api-Key"] != "[REDACTED]" {
		t.Fatalf("masked headers leaked: %v", headers)
	}
	if headers["X-Note"] != "for [REDACTED:id]" {
		t.Fatalf("header value not redacted: %v", headers["X-Note"])
	}
	if strings.Contains(buf.String(), "topsecret") {
		t.Fatalf("bearer token leaked:\n%s", buf.String())
	}
}

func TestRedactingLogger_LevelsAndUnmatchedPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}))
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing/123456789012345678", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	logs := buf.String()
	if !strings.Contains(logs, `"level":"warn"`) || !strings.Contains(logs, `"path":"/missing/[REDACTED:id]"`) {
		t.Fatalf("expected redacted warn line for 404, got:\n%s", logs)
	}
	if !strings.Contains(logs, `"level":"error"`) {
		t.Fatalf("expected error line for 500, got:\n%s", logs)
	}
}
