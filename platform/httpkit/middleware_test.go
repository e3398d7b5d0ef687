package httpkit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"homeaccess_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type testJWTConfig struct{}

func (testJWTConfig) GetJWTAccessSecret() string { return "test-secret" }

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newTestEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/ping", handlers...)
	return engine
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestAuthRequiredSetsIdentity(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, jwt.MapClaims{
		"sub":  userID.String(),
		"type": "access",
		"role": "contractor",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	var seen Identity
	engine := newTestEngine(AuthRequired(testJWTConfig{}), RequireRole("contractor"), func(c *gin.Context) {
		seen = GetIdentity(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if seen == nil || seen.UserID() != userID {
		t.Fatalf("expected identity %s, got %+v", userID, seen)
	}
	if PrimaryRole(seen) != "contractor" {
		t.Fatalf("expected primary role contractor, got %q", PrimaryRole(seen))
	}
	if rec.Header().Get(HeaderRequestID) == "" {
		t.Fatal("expected a generated request id header")
	}
}

func TestAuthRequiredRejectsMissingToken(t *testing.T) {
	engine := newTestEngine(AuthRequired(testJWTConfig{}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.ErrorCode != apperr.CodeUnauthorized {
		t.Fatalf("expected %s, got %s", apperr.CodeUnauthorized, body.ErrorCode)
	}
}

func TestRequireRoleForbidsOtherRoles(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":   uuid.NewString(),
		"type":  "access",
		"roles": []string{"homeowner"},
	})
	engine := newTestEngine(AuthRequired(testJWTConfig{}), RequireRole("contractor"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestOptionalAuthAllowsAnonymous(t *testing.T) {
	engine := newTestEngine(OptionalAuth(testJWTConfig{}), func(c *gin.Context) {
		if GetIdentity(c).IsAuthenticated() {
			t.Error("expected anonymous identity")
		}
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestHandleErrorRendersErrorCode(t *testing.T) {
	engine := newTestEngine(func(c *gin.Context) {
		HandleError(c, apperr.Conflict("lead already purchased").WithCode(apperr.CodeLeadUnavailable))
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.ErrorCode != apperr.CodeLeadUnavailable || body.Message != "lead already purchased" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestHandleErrorHidesUntypedErrors(t *testing.T) {
	engine := newTestEngine(func(c *gin.Context) {
		HandleError(c, errors.New("pq: connection reset"))
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Message != "internal server error" {
		t.Fatalf("expected generic message, got %q", body.Message)
	}
}
