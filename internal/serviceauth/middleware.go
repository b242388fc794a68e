package serviceauth

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const errForbidden = "Forbidden"

// Middleware verifies the HMAC request signature on every call into the
// Executor Bridge. It re-buffers the request body so downstream
// handlers can still read it.
func Middleware(secret string, maxSkew time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
			c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		err = Verify(secret, body,
			c.GetHeader(HeaderTimestamp), c.GetHeader(HeaderSignature),
			maxSkew, time.Now())
		if err != nil {
			// Bad HMAC / stale timestamp is domain.ErrForbidden, not
			// ErrUnauthorized: the caller has no way to present a fresh
			// credential and retrying with the same secret won't help.
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errForbidden})
			return
		}

		c.Next()
	}
}
