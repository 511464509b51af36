package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runAuth(t *testing.T, configured string, setup func(req *http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	handler := TokenAuth(configured)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	if setup != nil {
		setup(req)
	}
	rec := httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	return rec
}

func TestTokenAuth_ValidBearer(t *testing.T) {
	rec := runAuth(t, "secret-token", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer secret-token")
	})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestTokenAuth_MissingHeader(t *testing.T) {
	rec := runAuth(t, "secret-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestTokenAuth_WrongToken(t *testing.T) {
	rec := runAuth(t, "secret-token", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer not-the-token")
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestTokenAuth_QueryParamFallback(t *testing.T) {
	e := echo.New()
	handler := TokenAuth("secret-token")(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws?token=secret-token", nil)
	rec := httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestTokenAuth_DisabledWhenUnconfigured(t *testing.T) {
	rec := runAuth(t, "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", rec.Code)
	}
}
