package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carewellhq/carewell/config"
	"github.com/carewellhq/carewell/model"
	"github.com/carewellhq/carewell/util"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Setenv("APPENV", "test")

	db, err := config.ConnectMySQL()
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Session{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		db.Migrator().DropTable(&model.Session{}, &model.User{})
	})
	return db
}

func setupAuthRouter(db *gorm.DB, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(DatabaseMiddleware(db))

	handlers := append([]gin.HandlerFunc{ValidateLoginToken()}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		userID, _ := GetUserID(c)
		util.CallSuccessOK(c, util.APISuccessParams{
			Msg: "OK",
			Data: map[string]interface{}{
				"user_id":  userID,
				"is_staff": GetIsStaff(c),
			},
		})
	})
	router.GET("/protected", handlers...)
	return router
}

func createSessionUser(t *testing.T, db *gorm.DB, token string, staff bool, expiresAt time.Time) model.User {
	user := model.User{
		Username: fmt.Sprintf("session-user-%d", time.Now().UnixNano()),
		IsStaff:  staff,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	session := model.Session{
		UserID:       user.ID,
		SessionToken: token,
		ExpiresAt:    expiresAt,
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return user
}

func performAuthed(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBearerToken_Prefixes(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	c.Request.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", BearerToken(c))

	c.Request.Header.Set("Authorization", "Token abc123")
	assert.Equal(t, "abc123", BearerToken(c))

	c.Request.Header.Set("Authorization", "Basic abc123")
	assert.Equal(t, "", BearerToken(c))

	c.Request.Header.Del("Authorization")
	assert.Equal(t, "", BearerToken(c))
}

func TestValidateLoginToken_MissingToken(t *testing.T) {
	db := setupAuthTestDB(t)
	r := setupAuthRouter(db)

	w := performAuthed(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidateLoginToken_DatabaseFallback(t *testing.T) {
	db := setupAuthTestDB(t)
	r := setupAuthRouter(db)

	user := createSessionUser(t, db, "db-token-1", true, time.Now().Add(time.Hour))

	w := performAuthed(r, "Bearer db-token-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf(`"user_id":%d`, user.ID))
	assert.Contains(t, w.Body.String(), `"is_staff":true`)
}

func TestValidateLoginToken_TokenPrefixAccepted(t *testing.T) {
	db := setupAuthTestDB(t)
	r := setupAuthRouter(db)

	createSessionUser(t, db, "db-token-2", false, time.Now().Add(time.Hour))

	w := performAuthed(r, "Token db-token-2")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidateLoginToken_ExpiredSession(t *testing.T) {
	db := setupAuthTestDB(t)
	r := setupAuthRouter(db)

	createSessionUser(t, db, "db-token-3", false, time.Now().Add(-time.Minute))

	w := performAuthed(r, "Bearer db-token-3")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidateLoginToken_RedisFastPath(t *testing.T) {
	db := setupAuthTestDB(t)
	r := setupAuthRouter(db)

	rdb, mock := redismock.NewClientMock()
	config.SetRedisClientForTest(rdb)
	t.Cleanup(config.ResetRedisClientForTest)

	// No session row exists; the cached entry alone authenticates.
	mock.ExpectGet("session:cached-token").SetVal("5:1")

	w := performAuthed(r, "Bearer cached-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":5`)
	assert.Contains(t, w.Body.String(), `"is_staff":true`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateLoginToken_RedisMissFallsThroughToDB(t *testing.T) {
	db := setupAuthTestDB(t)
	r := setupAuthRouter(db)

	user := createSessionUser(t, db, "db-token-4", false, time.Now().Add(time.Hour))

	rdb, mock := redismock.NewClientMock()
	config.SetRedisClientForTest(rdb)
	t.Cleanup(config.ResetRedisClientForTest)

	mock.ExpectGet("session:db-token-4").RedisNil()

	w := performAuthed(r, "Bearer db-token-4")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf(`"user_id":%d`, user.ID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateLoginToken_MalformedCacheEntryFallsThrough(t *testing.T) {
	db := setupAuthTestDB(t)
	r := setupAuthRouter(db)

	createSessionUser(t, db, "db-token-5", false, time.Now().Add(time.Hour))

	rdb, mock := redismock.NewClientMock()
	config.SetRedisClientForTest(rdb)
	t.Cleanup(config.ResetRedisClientForTest)

	mock.ExpectGet("session:db-token-5").SetVal("not-a-session")

	w := performAuthed(r, "Bearer db-token-5")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireStaff_RejectsNonStaff(t *testing.T) {
	db := setupAuthTestDB(t)
	r := setupAuthRouter(db, RequireStaff())

	createSessionUser(t, db, "db-token-6", false, time.Now().Add(time.Hour))

	w := performAuthed(r, "Bearer db-token-6")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireStaff_AllowsStaff(t *testing.T) {
	db := setupAuthTestDB(t)
	r := setupAuthRouter(db, RequireStaff())

	createSessionUser(t, db, "db-token-7", true, time.Now().Add(time.Hour))

	w := performAuthed(r, "Bearer db-token-7")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCacheAndDropSession_NilClientIsSafe(t *testing.T) {
	config.ResetRedisClientForTest()

	CacheSession("tok", 1, false, time.Minute)
	DropSession("tok")
}

func TestCacheSession_WritesExpectedEntry(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	config.SetRedisClientForTest(rdb)
	t.Cleanup(config.ResetRedisClientForTest)

	mock.ExpectSet("session:tok", "9:1", time.Hour).SetVal("OK")
	CacheSession("tok", 9, true, time.Hour)

	mock.ExpectDel("session:tok").SetVal(1)
	DropSession("tok")

	assert.NoError(t, mock.ExpectationsWereMet())
}
