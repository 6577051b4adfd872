package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sangkips/khata-api/internal/presentation/http/dto/request"
	"github.com/sangkips/khata-api/internal/presentation/http/dto/response"
	"github.com/sangkips/khata-api/pkg/apperror"
	"github.com/sangkips/khata-api/pkg/pagination"
)

// Context keys set by the auth middleware
const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
)

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) *uuid.UUID {
	userIDVal, exists := c.Get(UserIDKey)
	if !exists {
		return nil
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return nil
	}
	return &userID
}

// GetUserEmail extracts the user email from the Gin context
func GetUserEmail(c *gin.Context) string {
	return c.GetString(UserEmailKey)
}

// pathID parses a uuid path parameter, writing a 400 when it is malformed
func pathID(c *gin.Context, param, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.BadRequest(c, "Invalid "+resource+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// listQuery binds the page and cursor query parameters. Malformed numbers
// fall back to the defaults applied by the conversions.
func listQuery(c *gin.Context) *pagination.UnifiedPaginationParams {
	var q pagination.UnifiedPaginationParams
	_ = c.ShouldBindQuery(&q)
	return &q
}

func pageParams(c *gin.Context) *pagination.PaginationParams {
	return listQuery(c).ToPaginationParams()
}

// wantsCursor reports whether the caller asked for keyset pagination
func wantsCursor(c *gin.Context) bool {
	return listQuery(c).IsCursorBased()
}

func cursorParams(c *gin.Context) *pagination.CursorParams {
	return listQuery(c).ToCursorParams()
}

// bodyDate parses an optional YYYY-MM-DD body field into a validation error
func bodyDate(field, value string) (*time.Time, error) {
	date, err := request.ParseDate(value)
	if err != nil {
		return nil, apperror.NewFieldValidationError(field, "must be a date in YYYY-MM-DD format")
	}
	return date, nil
}

// firstQuery returns the first non-empty query value among names
func firstQuery(c *gin.Context, names ...string) string {
	for _, name := range names {
		if v := c.Query(name); v != "" {
			return v
		}
	}
	return ""
}
