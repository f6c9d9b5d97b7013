package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/carewellhq/carewell/config"
	"github.com/carewellhq/carewell/model"
	"github.com/carewellhq/carewell/util"
	"github.com/gin-gonic/gin"
)

// BearerToken extracts the token from the Authorization header. Both
// "Bearer <token>" and "Token <token>" prefixes are accepted.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	scheme := strings.ToLower(parts[0])
	if scheme != "bearer" && scheme != "token" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// ValidateLoginToken authenticates the request from its Authorization
// header. Redis holds a "userID:staffFlag" fast path per token; when Redis
// is unavailable or disagrees, the sessions table is the source of truth.
// Expired or unknown tokens get a 401.
func ValidateLoginToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Authentication credentials were not provided",
				Err: fmt.Errorf("missing bearer token"),
			})
			c.Abort()
			return
		}

		if userID, staff, ok := lookupSessionInRedis(token); ok {
			c.Set(UserIDKey, userID)
			c.Set(IsStaffKey, staff)
			c.Next()
			return
		}

		db := GetDB(c)
		if db == nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Database connection not available",
				Err: fmt.Errorf("db is nil"),
			})
			c.Abort()
			return
		}

		var result struct {
			model.Session
			IsStaff bool
		}
		err := db.Table("sessions").
			Select("sessions.*, users.is_staff as is_staff").
			Joins("JOIN users ON sessions.user_id = users.id").
			Where("session_token = ? AND expires_at > ? AND sessions.deleted_at IS NULL", token, time.Now()).
			First(&result).Error
		if err != nil {
			util.LogUnauthorizedAccess("", "", c.ClientIP(), c.Request.URL.Path, "invalid or expired token")
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Invalid or expired token",
				Err: fmt.Errorf("session not found"),
			})
			c.Abort()
			return
		}

		c.Set(UserIDKey, result.UserID)
		c.Set(IsStaffKey, result.IsStaff)
		c.Next()
	}
}

// RequireStaff allows only staff accounts past; run it after ValidateLoginToken.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetIsStaff(c) {
			userID, _ := GetUserID(c)
			util.LogUnauthorizedAccess(fmt.Sprintf("%d", userID), "", c.ClientIP(), c.Request.URL.Path, "staff required")
			util.CallUserForbidden(c, util.APIErrorParams{
				Msg: "Staff access required",
				Err: fmt.Errorf("insufficient permissions"),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// lookupSessionInRedis resolves a token via the session cache. A malformed
// or missing entry falls through to the DB path.
func lookupSessionInRedis(token string) (uint, bool, bool) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return 0, false, false
	}

	val, err := rdb.Get(context.Background(), fmt.Sprintf("session:%s", token)).Result()
	if err != nil {
		return 0, false, false
	}

	parts := strings.Split(val, ":")
	if len(parts) != 2 {
		return 0, false, false
	}
	uid, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || uid == 0 {
		return 0, false, false
	}
	staffFlag, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false, false
	}
	return uint(uid), staffFlag == 1, true
}

// CacheSession stores the token fast path in Redis (best-effort).
func CacheSession(token string, userID uint, staff bool, ttl time.Duration) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return
	}
	flag := 0
	if staff {
		flag = 1
	}
	_ = rdb.Set(context.Background(), fmt.Sprintf("session:%s", token), fmt.Sprintf("%d:%d", userID, flag), ttl).Err()
}

// DropSession removes the token fast path from Redis (best-effort).
func DropSession(token string) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return
	}
	_ = rdb.Del(context.Background(), fmt.Sprintf("session:%s", token)).Err()
}
