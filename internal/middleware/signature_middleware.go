package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"supporthub/internal/transport/httpdto"
)

const signatureHeader = "X-Hub-Signature-256"

// SignatureMiddleware verifies the platform's HMAC-SHA256 body signature
// on webhook POSTs. The body is re-buffered so downstream handlers can
// read it again.
func SignatureMiddleware(appSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("unreadable body", "INVALID_REQUEST"))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !validSignature(appSecret, c.GetHeader(signatureHeader), body) {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("invalid signature", "INVALID_SIGNATURE"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func validSignature(secret, header string, body []byte) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}
