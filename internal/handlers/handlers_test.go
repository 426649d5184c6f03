package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/auth"
	"github.com/nextolk/backend/internal/cache"
	"github.com/nextolk/backend/internal/database"
	"github.com/nextolk/backend/internal/models"
	"github.com/nextolk/backend/internal/otp"
	"github.com/nextolk/backend/internal/storage"
	"github.com/nextolk/backend/internal/util"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// HandlersTestSuite runs the API against in-memory SQLite and an in-memory
// media store
type HandlersTestSuite struct {
	suite.Suite
	db       *gorm.DB
	store    *storage.MemoryStore
	handlers *Handlers
	router   *gin.Engine

	alice *models.User
	bob   *models.User
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (suite *HandlersTestSuite) SetupTest() {
	db, err := database.OpenSQLite(":memory:", false)
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), database.MigrateDB(db))
	database.DB = db
	suite.db = db

	suite.store = storage.NewMemoryStore("http://test")
	authService := auth.NewService([]byte("test-secret"), 5*time.Minute, 24*time.Hour)
	suite.handlers = NewHandlers(authService, suite.store, nil)
	suite.handlers.SetCache(cache.NewMemoryStore())
	suite.handlers.SetOTPService(otp.NewService(5*time.Minute, 3, otp.LogSender{}, cache.NewMemoryStore()))
	suite.handlers.SetDebug(true)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.handlers.RegisterRoutes(suite.router, RouteOptions{Auth: headerAuth})

	suite.alice = suite.createUser("alice", false)
	suite.bob = suite.createUser("bob", false)
}

func (suite *HandlersTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
	database.DB = nil
}

// headerAuth authenticates the user named by X-User-ID
func headerAuth(c *gin.Context) {
	id, ok := util.ParseUint(c.GetHeader("X-User-ID"))
	if !ok {
		util.RespondUnauthorized(c)
		return
	}
	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		util.RespondUnauthorized(c, "not_authenticated")
		return
	}
	c.Set(util.ContextUserKey, &user)
	c.Set(util.ContextUserIDKey, user.ID)
}

func (suite *HandlersTestSuite) createUser(username string, admin bool) *models.User {
	user := &models.User{Username: username, Email: username + "@test.com", PasswordHash: "x", IsActive: true, IsAdmin: admin}
	require.NoError(suite.T(), suite.db.Create(user).Error)
	require.NoError(suite.T(), suite.db.Create(&models.Profile{UserID: user.ID}).Error)
	return user
}

func (suite *HandlersTestSuite) profileOf(user *models.User) models.Profile {
	var p models.Profile
	require.NoError(suite.T(), suite.db.Where("user_id = ?", user.ID).First(&p).Error)
	return p
}

func (suite *HandlersTestSuite) createVideo(user *models.User, caption string) *models.Video {
	video := &models.Video{
		UserID:           user.ID,
		VideoFile:        fmt.Sprintf("videos/%s_%d_transcoded.mp4", user.Username, time.Now().UnixNano()),
		Caption:          caption,
		ProcessingStatus: models.ProcessingComplete,
	}
	require.NoError(suite.T(), suite.db.Create(video).Error)
	return video
}

func (suite *HandlersTestSuite) request(method, path string, user *models.User, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(suite.T(), err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set("X-User-ID", fmt.Sprint(user.ID))
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

type upload struct {
	field    string
	filename string
	data     []byte
}

func (suite *HandlersTestSuite) multipartRequest(method, path string, user *models.User, fields map[string]string, file *upload) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(suite.T(), mw.WriteField(k, v))
	}
	if file != nil {
		part, err := mw.CreateFormFile(file.field, file.filename)
		require.NoError(suite.T(), err)
		_, err = part.Write(file.data)
		require.NoError(suite.T(), err)
	}
	require.NoError(suite.T(), mw.Close())

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if user != nil {
		req.Header.Set("X-User-ID", fmt.Sprint(user.ID))
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlersTestSuite) decode(w *httptest.ResponseRecorder, v interface{}) {
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (suite *HandlersTestSuite) errorBody(w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	suite.decode(w, &body)
	return body
}

// Profiles

func (suite *HandlersTestSuite) TestListProfiles() {
	w := suite.request(http.MethodGet, "/api/profiles/", suite.alice, nil)
	suite.Equal(http.StatusOK, w.Code)
	var all []map[string]interface{}
	suite.decode(w, &all)
	suite.Len(all, 2)

	w = suite.request(http.MethodGet, fmt.Sprintf("/api/profiles/?user_id=%d", suite.bob.ID), suite.alice, nil)
	var only []map[string]interface{}
	suite.decode(w, &only)
	suite.Require().Len(only, 1)
	suite.Equal("bob", only[0]["user"])
	suite.Nil(only[0]["profile_picture_url"])
}

func (suite *HandlersTestSuite) TestProfilesRequireAuth() {
	w := suite.request(http.MethodGet, "/api/profiles/", nil, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlersTestSuite) TestGetProfileNotFound() {
	w := suite.request(http.MethodGet, "/api/profiles/9999/", suite.alice, nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("Profile not found.", suite.errorBody(w)["error"])
}

func (suite *HandlersTestSuite) TestCurrentUserProfileIsCreated() {
	carol := &models.User{Username: "carol", PasswordHash: "x", IsActive: true}
	suite.Require().NoError(suite.db.Create(carol).Error)

	w := suite.request(http.MethodGet, "/api/profiles/current_user/", carol, nil)
	suite.Equal(http.StatusOK, w.Code)
	var body map[string]interface{}
	suite.decode(w, &body)
	suite.Equal("carol", body["user"])
	suite.EqualValues(carol.ID, body["user_id"])

	suite.request(http.MethodGet, "/api/profiles/current_user/", carol, nil)
	var count int64
	suite.db.Model(&models.Profile{}).Where("user_id = ?", carol.ID).Count(&count)
	suite.Equal(int64(1), count)
}

func (suite *HandlersTestSuite) TestCreateProfileConflicts() {
	w := suite.request(http.MethodPost, "/api/profiles/", suite.alice, map[string]string{"bio": "hi"})
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *HandlersTestSuite) TestUpdateProfileBio() {
	profile := suite.profileOf(suite.alice)
	path := fmt.Sprintf("/api/profiles/%d/", profile.ID)

	w := suite.request(http.MethodPatch, path, suite.alice, map[string]string{"bio": "dancer"})
	suite.Equal(http.StatusOK, w.Code)
	var body map[string]interface{}
	suite.decode(w, &body)
	suite.Equal("dancer", body["bio"])
	suite.Equal("dancer", suite.profileOf(suite.alice).Bio)

	w = suite.request(http.MethodPatch, path, suite.bob, map[string]string{"bio": "hacked"})
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal("You do not have permission to perform this action.", suite.errorBody(w)["error"])

	w = suite.request(http.MethodPut, path, suite.alice, map[string]string{"bio": strings.Repeat("é", 501)})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("bio", suite.errorBody(w)["field"])
	suite.Equal("dancer", suite.profileOf(suite.alice).Bio)
}

func (suite *HandlersTestSuite) TestUpdateProfilePictureReplacesOld() {
	profile := suite.profileOf(suite.alice)
	path := fmt.Sprintf("/api/profiles/%d/", profile.ID)

	w := suite.multipartRequest(http.MethodPatch, path, suite.alice, map[string]string{"bio": "new"},
		&upload{field: "profile_picture", filename: "avatar.png", data: []byte("png")})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var body map[string]interface{}
	suite.decode(w, &body)
	suite.Equal("new", body["bio"])
	suite.True(strings.HasPrefix(body["profile_picture_url"].(string), "http://test/media/profile_pics/"))
	first := suite.profileOf(suite.alice).ProfilePicture
	suite.Equal([]string{first}, suite.store.Keys())

	w = suite.multipartRequest(http.MethodPatch, path, suite.alice, nil,
		&upload{field: "profile_picture", filename: "second.jpg", data: []byte("jpg")})
	suite.Require().Equal(http.StatusOK, w.Code)
	second := suite.profileOf(suite.alice).ProfilePicture
	suite.NotEqual(first, second)
	suite.Equal([]string{second}, suite.store.Keys())
	suite.Equal("new", suite.profileOf(suite.alice).Bio)
}

func (suite *HandlersTestSuite) TestUpdateProfileRejectsNonImage() {
	profile := suite.profileOf(suite.alice)
	w := suite.multipartRequest(http.MethodPatch, fmt.Sprintf("/api/profiles/%d/", profile.ID), suite.alice, nil,
		&upload{field: "profile_picture", filename: "notes.txt", data: []byte("text")})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("profile_picture", suite.errorBody(w)["field"])
	suite.Empty(suite.store.Keys())
}

func (suite *HandlersTestSuite) TestDeleteProfileDeletesAccount() {
	profile := suite.profileOf(suite.alice)
	path := fmt.Sprintf("/api/profiles/%d/", profile.ID)
	video := suite.createVideo(suite.alice, "bye")
	_, err := suite.store.Save(suite.T().Context(), video.VideoFile, strings.NewReader("v"), 1, "video/mp4")
	suite.Require().NoError(err)

	w := suite.request(http.MethodDelete, path, suite.bob, nil)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodDelete, path, suite.alice, nil)
	suite.Equal(http.StatusNoContent, w.Code)

	var count int64
	suite.db.Model(&models.User{}).Where("id = ?", suite.alice.ID).Count(&count)
	suite.Zero(count)
	suite.db.Model(&models.Video{}).Where("user_id = ?", suite.alice.ID).Count(&count)
	suite.Zero(count)
	suite.Empty(suite.store.Keys())
}

func (suite *HandlersTestSuite) TestIsFollowedBy() {
	bobProfile := suite.profileOf(suite.bob)
	path := fmt.Sprintf("/api/profiles/%d/is_followed_by/%d/", bobProfile.ID, suite.alice.ID)

	w := suite.request(http.MethodGet, path, suite.alice, nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"is_following": false}`, w.Body.String())

	suite.request(http.MethodPost, "/api/follow/", suite.alice, map[string]uint{"following_id": suite.bob.ID})
	w = suite.request(http.MethodGet, path, suite.alice, nil)
	suite.JSONEq(`{"is_following": true}`, w.Body.String())

	w = suite.request(http.MethodGet, fmt.Sprintf("/api/profiles/9999/is_followed_by/%d/", suite.alice.ID), suite.alice, nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("Target profile not found.", suite.errorBody(w)["error"])

	w = suite.request(http.MethodGet, fmt.Sprintf("/api/profiles/%d/is_followed_by/9999/", bobProfile.ID), suite.alice, nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("Current user not found.", suite.errorBody(w)["error"])
}

// Follows

func (suite *HandlersTestSuite) TestToggleFollow() {
	w := suite.request(http.MethodPost, "/api/follow/", suite.alice, map[string]uint{"following_id": suite.bob.ID})
	suite.Equal(http.StatusCreated, w.Code)
	suite.JSONEq(`{"status": "followed"}`, w.Body.String())
	suite.Equal(1, suite.profileOf(suite.alice).FollowingCount)
	suite.Equal(1, suite.profileOf(suite.bob).FollowerCount)

	w = suite.request(http.MethodPost, "/api/follow/", suite.alice, map[string]uint{"following_id": suite.bob.ID})
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"status": "unfollowed"}`, w.Body.String())
	suite.Equal(0, suite.profileOf(suite.alice).FollowingCount)
	suite.Equal(0, suite.profileOf(suite.bob).FollowerCount)
}

// insertFirst makes the next create on table collide with a row inserted
// just before it, the way a concurrent request would
func (suite *HandlersTestSuite) insertFirst(table, insertSQL string, args ...interface{}) {
	fired := false
	err := suite.db.Callback().Create().Before("gorm:create").Register("test:insert_first", func(tx *gorm.DB) {
		if fired || tx.Statement.Schema == nil || tx.Statement.Schema.Table != table {
			return
		}
		fired = true
		if err := tx.Session(&gorm.Session{NewDB: true}).Exec(insertSQL, args...).Error; err != nil {
			tx.AddError(err)
		}
	})
	suite.Require().NoError(err)
}

func (suite *HandlersTestSuite) TestToggleFollowLosingRaceStillFollows() {
	suite.insertFirst("follows",
		"INSERT INTO follows (follower_id, following_id, created_at) VALUES (?, ?, ?)",
		suite.alice.ID, suite.bob.ID, time.Now())

	w := suite.request(http.MethodPost, "/api/follow/", suite.alice, map[string]uint{"following_id": suite.bob.ID})
	suite.Equal(http.StatusCreated, w.Code)
	suite.JSONEq(`{"status": "followed"}`, w.Body.String())
}

func (suite *HandlersTestSuite) TestToggleFollowErrors() {
	cases := []struct {
		name    string
		body    interface{}
		status  int
		message string
	}{
		{"missing", map[string]string{}, http.StatusBadRequest, "following_id is required."},
		{"unknown", map[string]uint{"following_id": 9999}, http.StatusNotFound, "User to follow not found."},
		{"self", map[string]uint{"following_id": suite.alice.ID}, http.StatusBadRequest, "You cannot follow yourself."},
	}
	for _, tc := range cases {
		suite.Run(tc.name, func() {
			w := suite.request(http.MethodPost, "/api/follow/", suite.alice, tc.body)
			suite.Equal(tc.status, w.Code)
			suite.Equal(tc.message, suite.errorBody(w)["error"])
		})
	}
}

func (suite *HandlersTestSuite) TestFollowingFeedIsCachedUntilFollowChanges() {
	suite.createVideo(suite.bob, "bob's clip")
	suite.createVideo(suite.alice, "alice's clip")

	w := suite.request(http.MethodGet, "/api/videos/following_feed/", suite.alice, nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`[]`, w.Body.String())

	suite.request(http.MethodPost, "/api/follow/", suite.alice, map[string]uint{"following_id": suite.bob.ID})

	w = suite.request(http.MethodGet, "/api/videos/following_feed/", suite.alice, nil)
	suite.Equal("MISS", w.Header().Get("X-Cache"))
	var feed []map[string]interface{}
	suite.decode(w, &feed)
	suite.Require().Len(feed, 1)
	suite.Equal("bob's clip", feed[0]["caption"])
	suite.Equal("bob", feed[0]["user_username"])

	w = suite.request(http.MethodGet, "/api/videos/following_feed/", suite.alice, nil)
	suite.Equal("HIT", w.Header().Get("X-Cache"))

	suite.request(http.MethodPost, "/api/follow/", suite.alice, map[string]uint{"following_id": suite.bob.ID})
	w = suite.request(http.MethodGet, "/api/videos/following_feed/", suite.alice, nil)
	suite.Equal("MISS", w.Header().Get("X-Cache"))
	suite.JSONEq(`[]`, w.Body.String())
}

// Health

func (suite *HandlersTestSuite) TestHealth() {
	w := suite.request(http.MethodGet, "/health", nil, nil)
	suite.Equal(http.StatusOK, w.Code)
	body := suite.errorBody(w)
	suite.Equal("ok", body["status"])
	suite.Equal(map[string]interface{}{"status": "up"}, body["database"])
	suite.Equal(map[string]interface{}{"status": "disabled"}, body["redis"])
}
