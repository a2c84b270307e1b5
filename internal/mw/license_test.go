package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-vendor-secret"

func signedLicense(t *testing.T, secret string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"licensee": "test kitchen",
		"exp":      time.Now().Add(expiresIn).Unix(),
	})
	key, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign license: %v", err)
	}
	return key
}

func TestValidateLicense(t *testing.T) {
	valid := signedLicense(t, testSecret, time.Hour)
	if err := ValidateLicense(valid, testSecret); err != nil {
		t.Errorf("valid license rejected: %v", err)
	}

	expired := signedLicense(t, testSecret, -time.Hour)
	if err := ValidateLicense(expired, testSecret); err == nil {
		t.Error("expired license accepted")
	}

	wrongSecret := signedLicense(t, "someone-else", time.Hour)
	if err := ValidateLicense(wrongSecret, testSecret); err == nil {
		t.Error("license signed with wrong secret accepted")
	}

	if err := ValidateLicense("", testSecret); err == nil {
		t.Error("empty license accepted")
	}

	if err := ValidateLicense("garbage.token.here", testSecret); err == nil {
		t.Error("garbage license accepted")
	}
}

func TestLicenseMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid license passes through", func(t *testing.T) {
		h := LicenseMiddleware(signedLicense(t, testSecret, time.Hour), testSecret)(next)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("expired license blocks with 402", func(t *testing.T) {
		h := LicenseMiddleware(signedLicense(t, testSecret, -time.Hour), testSecret)(next)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))
		if rec.Code != http.StatusPaymentRequired {
			t.Errorf("status = %d, want 402", rec.Code)
		}
	})

	t.Run("missing license blocks with 402", func(t *testing.T) {
		h := LicenseMiddleware("", testSecret)(next)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))
		if rec.Code != http.StatusPaymentRequired {
			t.Errorf("status = %d, want 402", rec.Code)
		}
	})
}
