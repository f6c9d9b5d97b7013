package endpoint

import (
	"fmt"
	"strings"
	"time"

	"github.com/carewellhq/carewell/middleware"
	"github.com/carewellhq/carewell/model"
	"github.com/carewellhq/carewell/util"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

const sessionTTL = time.Hour

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token   string `json:"token"`
	UserID  uint   `json:"user_id"`
	IsStaff bool   `json:"is_staff"`
}

func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: err})
		return false
	}
	return true
}

func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: fmt.Errorf("db is nil")})
		return nil, false
	}
	return db, true
}

// helper types and functions to simplify the login flow
type clientInfo struct {
	IP    string
	Agent string
}

type loginContext struct {
	C        *gin.Context
	DB       *gorm.DB
	Username string
	CI       clientInfo
}

func loadUserByUsername(db *gorm.DB, username string) (model.User, error) {
	var user model.User
	err := db.Model(&user).Where("username = ?", username).First(&user).Error
	return user, err
}

func loadUserForLogin(ctx loginContext) (model.User, bool) {
	user, err := loadUserByUsername(ctx.DB, ctx.Username)
	if err == gorm.ErrRecordNotFound {
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "user not found")
		util.CallUserNotAuthorized(ctx.C, util.APIErrorParams{Msg: "Invalid username or password", Err: fmt.Errorf("user not found")})
		return model.User{}, false
	}
	if err != nil {
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "database error")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Database error", Err: err})
		return model.User{}, false
	}
	return user, true
}

func isAccountLocked(user *model.User) (bool, time.Time) {
	if user.LockedUntil != nil && *user.LockedUntil > time.Now().Unix() {
		return true, time.Unix(*user.LockedUntil, 0)
	}
	return false, time.Time{}
}

func ensureAccountNotLocked(ctx loginContext, user *model.User) bool {
	if locked, expiry := isAccountLocked(user); locked {
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "account locked")
		util.CallUserError(ctx.C, util.APIErrorParams{
			Msg: fmt.Sprintf("Account is locked until %s due to multiple failed login attempts", expiry.Format(time.RFC3339)),
			Err: fmt.Errorf("account locked"),
		})
		return false
	}
	return true
}

func incrementFailedAttempts(db *gorm.DB, user *model.User, ci clientInfo) {
	user.FailedAttempts++
	if user.FailedAttempts >= 5 {
		lockUntil := time.Now().Add(15 * time.Minute).Unix()
		user.LockedUntil = &lockUntil
		util.LogAccountLocked(user.ID, user.Username, ci.IP, "too many failed login attempts")
	}
	if err := db.Save(user).Error; err != nil {
		util.LogLoginFailure(user.Username, ci.IP, ci.Agent, "failed to update failed attempts")
	}
}

func resetFailedAttempts(db *gorm.DB, user *model.User) error {
	if user.FailedAttempts > 0 || user.LockedUntil != nil {
		user.FailedAttempts = 0
		user.LockedUntil = nil
		return db.Save(user).Error
	}
	return nil
}

func verifyPasswordOrRespond(ctx loginContext, user *model.User, plain string) bool {
	match, err := util.VerifyPassword(plain, user.Password, user.PasswordSalt)
	if err != nil {
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "password verification error")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Password verification failed", Err: err})
		return false
	}
	if !match {
		incrementFailedAttempts(ctx.DB, user, ctx.CI)
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "invalid password")
		util.CallUserNotAuthorized(ctx.C, util.APIErrorParams{Msg: "Invalid username or password", Err: fmt.Errorf("invalid password")})
		return false
	}
	return true
}

func upgradeLegacyPasswordIfNeeded(db *gorm.DB, user *model.User, plain string) error {
	if strings.HasPrefix(user.Password, "argon2id$") {
		return nil
	}
	salt, err := util.GenerateSalt()
	if err != nil {
		return err
	}
	hashed, err := util.HashPasswordArgon2(plain, salt)
	if err != nil {
		return err
	}
	user.Password = hashed
	user.PasswordSalt = salt
	return db.Save(user).Error
}

func createJWTToken(user model.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"user_id":  user.ID,
		"is_staff": user.IsStaff,
		"exp":      time.Now().Add(sessionTTL).Unix(),
	})
	return token.SignedString(util.GetJWTSecretByte())
}

// SessionInfo groups parameters for creating a session to avoid long argument lists.
type SessionInfo struct {
	UserID  uint
	Token   string
	Client  clientInfo
	Expires time.Time
}

func recordSession(db *gorm.DB, info SessionInfo) (model.Session, error) {
	session := model.Session{
		UserID:       info.UserID,
		SessionToken: info.Token,
		ExpiresAt:    info.Expires,
		ClientIP:     info.Client.IP,
		Browser:      info.Client.Agent,
	}
	err := db.Create(&session).Error
	return session, err
}

func issueSession(ctx loginContext, user *model.User) (string, bool) {
	tokenString, err := createJWTToken(*user)
	if err != nil {
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "token generation failed")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return "", false
	}

	info := SessionInfo{UserID: user.ID, Token: tokenString, Client: ctx.CI, Expires: time.Now().Add(sessionTTL)}
	session, err := recordSession(ctx.DB, info)
	if err != nil {
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "session creation failed")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Failed to record session", Err: err})
		return "", false
	}

	// Redis fast path for the auth middleware (best-effort).
	middleware.CacheSession(tokenString, session.UserID, user.IsStaff, time.Until(session.ExpiresAt))
	return tokenString, true
}

// GetAuthToken authenticates a user by username and password and issues a
// bearer token backed by a session record.
func GetAuthToken(c *gin.Context) {
	var req LoginRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	ci := clientInfo{IP: c.ClientIP(), Agent: c.Request.UserAgent()}
	ctx := loginContext{C: c, DB: db, Username: req.Username, CI: ci}

	user, ok := loadUserForLogin(ctx)
	if !ok {
		return
	}
	if !ensureAccountNotLocked(ctx, &user) {
		return
	}
	if !verifyPasswordOrRespond(ctx, &user, req.Password) {
		return
	}

	if err := resetFailedAttempts(db, &user); err != nil {
		util.LogSecurityEvent(util.SecurityEvent{
			EventType: util.EventSuspiciousActivity,
			UserID:    fmt.Sprintf("%d", user.ID),
			Username:  user.Username,
			IP:        ci.IP,
			Message:   fmt.Sprintf("Failed to reset failed attempts: %v", err),
		})
	}

	// Upgrade legacy password hashes in place (best-effort).
	_ = upgradeLegacyPasswordIfNeeded(db, &user, req.Password)

	tokenString, ok := issueSession(ctx, &user)
	if !ok {
		return
	}

	util.LogLoginSuccess(user.ID, user.Username, ci.IP, ci.Agent)
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Login successful",
		Data: LoginResponse{Token: tokenString, UserID: user.ID, IsStaff: user.IsStaff},
	})
}

func loadAuthenticatedUser(c *gin.Context, db *gorm.DB) (model.User, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "User not authenticated",
			Err: fmt.Errorf("user id not found in context"),
		})
		return model.User{}, false
	}

	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "User not found",
			Err: err,
		})
		return model.User{}, false
	}
	return user, true
}

// RefreshAuthToken revokes the caller's live sessions and issues a fresh
// token. Any unexpected failure surfaces as a generic server error so the
// old token's state stays opaque.
func RefreshAuthToken(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	user, ok := loadAuthenticatedUser(c, db)
	if !ok {
		return
	}

	ci := clientInfo{IP: c.ClientIP(), Agent: c.Request.UserAgent()}
	ctx := loginContext{C: c, DB: db, Username: user.Username, CI: ci}

	var sessions []model.Session
	if err := db.Where("user_id = ?", user.ID).Find(&sessions).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to refresh token", Err: fmt.Errorf("token refresh failed")})
		return
	}
	for i := range sessions {
		middleware.DropSession(sessions[i].SessionToken)
	}
	if err := db.Where("user_id = ?", user.ID).Delete(&model.Session{}).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to refresh token", Err: fmt.Errorf("token refresh failed")})
		return
	}

	tokenString, ok := issueSession(ctx, &user)
	if !ok {
		return
	}

	util.LogTokenRefreshed(user.ID, user.Username, ci.IP)
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Token refreshed",
		Data: LoginResponse{Token: tokenString, UserID: user.ID, IsStaff: user.IsStaff},
	})
}

// GetUserInfo returns the authenticated user's identity record.
func GetUserInfo(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	user, ok := loadAuthenticatedUser(c, db)
	if !ok {
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "User info retrieved",
		Data: map[string]interface{}{
			"user":         user.ToResponse(),
			"is_staff":     user.IsStaff,
			"is_superuser": user.IsSuperuser,
		},
	})
}

// CORSTest is an open probe endpoint for verifying browser access.
func CORSTest(c *gin.Context) {
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "CORS is working",
		Data: map[string]interface{}{
			"method": c.Request.Method,
			"origin": c.GetHeader("Origin"),
		},
	})
}
