package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KevinKickass/ioplusd/internal/config"
)

func testHasher() *PasswordHasher {
	return NewPasswordHasherWithParams(64, 1, 1)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	h := testHasher()
	encoded, err := h.HashPassword("relay-secret")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	ok, err := h.VerifyPassword("relay-secret", encoded)
	if err != nil || !ok {
		t.Fatalf("expected password to verify, got %v, %v", ok, err)
	}
	ok, err = h.VerifyPassword("wrong", encoded)
	if err != nil || ok {
		t.Fatalf("expected mismatch, got %v, %v", ok, err)
	}

	// parameters come from the hash, not the hasher
	ok, err = NewPasswordHasher().VerifyPassword("relay-secret", encoded)
	if err != nil || !ok {
		t.Fatalf("expected verification with default hasher, got %v, %v", ok, err)
	}

	if _, err := h.VerifyPassword("x", "$bcrypt$nope"); !errors.Is(err, ErrInvalidHash) {
		t.Errorf("expected ErrInvalidHash, got %v", err)
	}
}

func TestJWTRoundTripAndExpiry(t *testing.T) {
	j := NewJWTHandler("0123456789abcdef0123456789abcdef", time.Minute)
	token, expires, err := j.GenerateAccessToken([16]byte{1}, "alice", "technician")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Errorf("expiry in the past: %v", expires)
	}

	claims, err := j.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken failed: %v", err)
	}
	if claims.Username != "alice" || claims.Role != "technician" {
		t.Errorf("unexpected claims %+v", claims)
	}

	other := NewJWTHandler("another-secret-another-secret-xx", time.Minute)
	if _, err := other.ValidateAccessToken(token); err == nil {
		t.Error("expected signature mismatch")
	}

	expired := NewJWTHandler("0123456789abcdef0123456789abcdef", -time.Minute)
	old, _, err := expired.GenerateAccessToken([16]byte{1}, "alice", "admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if _, err := j.ValidateAccessToken(old); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func newTestService(t *testing.T) *AuthService {
	t.Helper()
	hash, err := testHasher().HashPassword("pw")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	t.Setenv("IOPLUS_TEST_JWT", "0123456789abcdef0123456789abcdef")
	return NewAuthService(config.AuthConfig{
		JWTSecretEnv:   "IOPLUS_TEST_JWT",
		AccessTokenTTL: time.Hour,
		Users: []config.UserConfig{
			{Username: "op", PasswordHash: hash, Role: "operator"},
			{Username: "root", PasswordHash: hash, Role: "admin"},
		},
	}, zap.NewNop())
}

func TestLoginUser(t *testing.T) {
	a := newTestService(t)

	if _, _, err := a.LoginUser("op", "bad", "127.0.0.1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := a.LoginUser("nobody", "pw", "127.0.0.1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}

	token, _, err := a.LoginUser("root", "pw", "127.0.0.1")
	if err != nil {
		t.Fatalf("LoginUser failed: %v", err)
	}
	claims, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Role != "admin" {
		t.Errorf("expected admin role, got %q", claims.Role)
	}
}

func TestMiddlewarePermissions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := newTestService(t)

	r := gin.New()
	g := r.Group("/", a.AuthMiddleware())
	g.GET("/read", RequirePermission(PermOperator), func(c *gin.Context) { c.Status(http.StatusOK) })
	g.GET("/admin", RequirePermission(PermAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	opToken, _, err := a.LoginUser("op", "pw", "")
	if err != nil {
		t.Fatalf("LoginUser failed: %v", err)
	}

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/read", "", http.StatusUnauthorized},
		{"bad scheme", "/read", "Basic abc", http.StatusUnauthorized},
		{"bad token", "/read", "Bearer nope", http.StatusUnauthorized},
		{"operator read", "/read", "Bearer " + opToken, http.StatusOK},
		{"operator admin", "/admin", "Bearer " + opToken, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestRoleToPermissions(t *testing.T) {
	if p := RoleToPermissions("technician"); len(p) != 2 || p[1] != PermTechnician {
		t.Errorf("unexpected technician permissions %v", p)
	}
	if p := RoleToPermissions("admin"); len(p) != 3 {
		t.Errorf("unexpected admin permissions %v", p)
	}
}
