package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/", RequireAuth(testKey, testIssuer))
	if len(roles) > 0 {
		group.Use(RequireRole(roles...))
	}
	group.GET("/protected", func(c *gin.Context) {
		claims := ClaimsFrom(c)
		c.JSON(http.StatusOK, gin.H{"success": true, "userId": claims.UserID})
	})
	return r
}

func doRequest(t *testing.T, r *gin.Engine, authz string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuthMissingToken(t *testing.T) {
	w := doRequest(t, newTestRouter(), "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	w := doRequest(t, newTestRouter(), "Bearer not-a-token")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthValidToken(t *testing.T) {
	token, _, err := Issue("user-1", "student", testIssuer, testKey, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	w := doRequest(t, newTestRouter(), "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		allowed  []string
		wantCode int
	}{
		{"staff hits staff route", "staff", []string{"staff"}, http.StatusOK},
		{"student blocked from staff route", "student", []string{"staff"}, http.StatusForbidden},
		{"admin allowed where listed", "admin", []string{"admin", "staff"}, http.StatusOK},
		{"student blocked regardless of request shape", "student", []string{"staff", "admin"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _, err := Issue("user-1", tt.role, testIssuer, testKey, time.Hour)
			if err != nil {
				t.Fatalf("Issue() error: %v", err)
			}
			w := doRequest(t, newTestRouter(tt.allowed...), "Bearer "+token)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}
