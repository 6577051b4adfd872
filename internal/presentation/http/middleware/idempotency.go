package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sangkips/khata-api/internal/domain/entity"
	"github.com/sangkips/khata-api/internal/domain/repository"
	"github.com/sangkips/khata-api/internal/presentation/http/dto/response"
	"github.com/sangkips/khata-api/pkg/logger"
)

const (
	// IdempotencyKeyHeader is the HTTP header for idempotency keys
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyKeyTTL is how long keys are valid
	IdempotencyKeyTTL = 24 * time.Hour
	// IdempotencyLockTTL bounds how long an unfinished request holds its
	// key, so a crashed handler does not block retries forever
	IdempotencyLockTTL = 30 * time.Second
)

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Repo    repository.IdempotencyRepository
	TTL     time.Duration
	LockTTL time.Duration
}

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a write is retried with the
// same Idempotency-Key, so a client retrying a payment after a timeout does
// not record it twice. Requests without the header pass through.
//
// The key is claimed before the handler runs. A request that arrives while
// another one holds the key gets 409 with Retry-After, and reusing a key for
// a different request is rejected with 422. Server errors and responses
// marked retryable release the key instead of pinning it.
func Idempotency(config IdempotencyConfig) gin.HandlerFunc {
	ttl := config.TTL
	if ttl <= 0 {
		ttl = IdempotencyKeyTTL
	}
	lockTTL := config.LockTTL
	if lockTTL <= 0 {
		lockTTL = IdempotencyLockTTL
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			c.Next()
			return
		}

		userID := ownerID(c)
		if userID == uuid.Nil {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.BadRequest(c, "Unable to read request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		endpoint := c.Request.Method + " " + c.Request.URL.Path
		requestHash := hashRequest(endpoint, body)

		ctx := c.Request.Context()
		claimed, err := config.Repo.Claim(ctx, &entity.IdempotencyKey{
			Key:         idempotencyKey,
			UserID:      userID,
			Endpoint:    endpoint,
			RequestHash: requestHash,
			Status:      entity.IdempotencyStatusProcessing,
			ExpiresAt:   time.Now().Add(lockTTL),
		})
		if err != nil {
			logger.Warn("idempotency claim failed", "key", idempotencyKey, "error", err)
			c.Next()
			return
		}

		if !claimed {
			replayOrReject(c, config.Repo, idempotencyKey, userID, requestHash)
			c.Abort()
			return
		}

		blw := &responseWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// the client may be gone by now; the key still has to be settled
		ctx = context.WithoutCancel(ctx)
		status := c.Writer.Status()
		if status >= http.StatusInternalServerError || c.Writer.Header().Get("Retry-After") != "" {
			if err := config.Repo.Release(ctx, idempotencyKey, userID); err != nil {
				logger.Warn("idempotency key not released", "key", idempotencyKey, "error", err)
			}
			return
		}

		err = config.Repo.Complete(ctx, &entity.IdempotencyKey{
			Key:          idempotencyKey,
			UserID:       userID,
			ResponseCode: status,
			ResponseBody: blw.body.String(),
			ExpiresAt:    time.Now().Add(ttl),
		})
		if err != nil {
			logger.Warn("idempotency key not stored", "key", idempotencyKey, "error", err)
		}
	}
}

// replayOrReject answers a request whose key is already held
func replayOrReject(c *gin.Context, repo repository.IdempotencyRepository, key string, userID uuid.UUID, requestHash string) {
	existing, err := repo.GetByKey(c.Request.Context(), key, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	switch {
	case existing != nil && existing.RequestHash != requestHash:
		response.ErrorWithCode(c, http.StatusUnprocessableEntity, "Idempotency-Key was already used for a different request")
	case existing == nil || existing.IsProcessing() || existing.IsExpired():
		c.Header("Retry-After", "1")
		response.ErrorWithCode(c, http.StatusConflict, "A request with this Idempotency-Key is still being processed")
	default:
		c.Header("X-Idempotency-Replayed", "true")
		c.Data(existing.ResponseCode, "application/json; charset=utf-8", []byte(existing.ResponseBody))
	}
}

func hashRequest(endpoint string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(endpoint))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
