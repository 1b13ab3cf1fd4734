package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/babycare-backend/internal/auth"
	"github.com/yungbote/babycare-backend/internal/platform/ctxutil"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

func init() { gin.SetMode(gin.TestMode) }

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	t.Parallel()
	origin := "http://localhost:5173"
	r := gin.New()
	r.Use(CORS([]string{origin}))
	r.OPTIONS("/symptom-intake", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodOptions, "/symptom-intake", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusNoContent)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != origin {
		t.Fatalf("unexpected allow-origin header: got=%q want=%q", got, origin)
	}
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()
	am := NewAuthMiddleware(logger.Nop(), auth.StaticVerifier{})
	r := gin.New()
	r.GET("/history", am.RequireAuth(), func(c *gin.Context) {
		id := ctxutil.GetIdentity(c.Request.Context())
		c.String(http.StatusOK, id.UID+"|"+id.Email)
	})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"valid", "Bearer parent-1:p@example.com", http.StatusOK, "parent-1|p@example.com"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/history", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status: want=%d got=%d body=%s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Fatalf("body: want=%q got=%q", tt.body, rec.Body.String())
			}
		})
	}
}

func TestTraceContextEchoesRequestID(t *testing.T) {
	t.Parallel()
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/", func(c *gin.Context) {
		td := ctxutil.GetTraceData(c.Request.Context())
		c.String(http.StatusOK, td.RequestID)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("X-Request-Id: want=%q got=%q", "req-42", got)
	}
	if rec.Body.String() != "req-42" {
		t.Fatalf("context request id: want=%q got=%q", "req-42", rec.Body.String())
	}
	if rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("X-Trace-Id not set")
	}
}

func TestBodyLimitRejectsLargeBody(t *testing.T) {
	t.Parallel()
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: want=%d got=%d", http.StatusRequestEntityTooLarge, rec.Code)
	}
}
