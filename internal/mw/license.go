package mw

import (
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoLicense      = errors.New("license key is not configured")
	ErrInvalidLicense = errors.New("license invalid or expired")
)

// ValidateLicense checks the offline license: the key is a JWT signed
// with the vendor secret, and jwt.Parse enforces its exp claim.
func ValidateLicense(licenseKey, secret string) error {
	if licenseKey == "" {
		return ErrNoLicense
	}

	token, err := jwt.Parse(licenseKey, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidLicense
	}

	return nil
}

// LicenseMiddleware blocks order and queue mutations while the license
// is missing, invalid or expired, answering 402 so the front end can
// show the regularize-your-license message.
func LicenseMiddleware(licenseKey, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := ValidateLicense(licenseKey, secret); err != nil {
				http.Error(w, "license invalid or expired", http.StatusPaymentRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
