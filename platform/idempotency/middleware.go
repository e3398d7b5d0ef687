package idempotency

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"homeaccess_backend/platform/httpkit"
	"homeaccess_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// HeaderKey is the request header that carries the client's idempotency key.
const HeaderKey = "Idempotency-Key"

const maxKeyLength = 255

type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *bodyRecorder) WriteString(s string) (int, error) {
	r.buf.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// Middleware replays the stored response of a completed request with the same
// Idempotency-Key, scoped to the caller and route. Requests without the header
// pass through untouched. 5xx outcomes are not stored so clients can retry.
func Middleware(store *Store, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		idemKey := strings.TrimSpace(c.GetHeader(HeaderKey))
		if idemKey == "" || store == nil {
			c.Next()
			return
		}
		if len(idemKey) > maxKeyLength {
			httpkit.ValidationError(c, "Idempotency-Key is too long", nil)
			c.Abort()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		bodyHash := HashBody(body)

		subject := "anonymous"
		if id := httpkit.GetIdentity(c); id.IsAuthenticated() {
			subject = id.UserID().String()
		}
		key := Key(c.Request.Method+" "+c.Request.URL.Path, subject, idemKey)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		entry, started, err := store.Begin(ctx, key, bodyHash)
		cancel()
		if err != nil {
			// Redis is an accelerator; the lead CAS still guarantees exclusivity.
			log.Warn("idempotency store unavailable", "error", err)
			c.Next()
			return
		}

		if !started {
			switch {
			case entry.BodySHA256 != "" && entry.BodySHA256 != bodyHash:
				httpkit.Error(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "Idempotency-Key reused with a different body", nil)
			case entry.InProgress:
				httpkit.Error(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "a request with this Idempotency-Key is still in progress", nil)
			default:
				c.Header("Idempotent-Replayed", "true")
				c.Data(entry.Status, "application/json; charset=utf-8", entry.Body)
			}
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 2*time.Second)
		defer saveCancel()

		status := rec.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(saveCtx, key); err != nil {
				log.Warn("idempotency release failed", "error", err)
			}
			return
		}
		if err := store.Complete(saveCtx, key, status, rec.buf.Bytes(), bodyHash); err != nil {
			log.Warn("idempotency save failed", "error", err)
		}
	}
}
