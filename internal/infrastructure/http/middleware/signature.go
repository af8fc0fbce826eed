package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body
const SignatureHeader = "X-Signature-256"

// VerifyHMAC verifies a sha256 HMAC hex signature against payload and secret.
// A "sha256=" prefix on the signature is accepted.
func VerifyHMAC(secret string, payload []byte, signatureHex string) bool {
	signatureHex = strings.TrimPrefix(signatureHex, "sha256=")
	if secret == "" || signatureHex == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signatureHex)))
}

// EchoSignature rejects requests whose body is not signed with secret. The
// body is restored so handlers can bind it.
func EchoSignature(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bodyBytes, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "Failed to read body")
			}
			c.Request().Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

			if !VerifyHMAC(secret, bodyBytes, c.Request().Header.Get(SignatureHeader)) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid webhook signature")
			}
			return next(c)
		}
	}
}
