package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/models"
	"github.com/nextolk/backend/internal/queue"
)

// copyTranscoder stands in for ffmpeg
type copyTranscoder struct{}

func (copyTranscoder) Transcode(ctx context.Context, in, out string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	return os.WriteFile(out, append([]byte("h264:"), data...), 0o644)
}

func (copyTranscoder) Probe(ctx context.Context, path string) (float64, error) {
	return 3.5, nil
}

func (copyTranscoder) Thumbnail(ctx context.Context, in, out string) error {
	return os.WriteFile(out, []byte("jpeg"), 0o644)
}

// withQueue rebuilds the router around a running transcode queue
func (suite *HandlersTestSuite) withQueue() *queue.VideoQueue {
	q := queue.NewVideoQueue(queue.Options{
		DB:         suite.db,
		Store:      suite.store,
		Transcoder: copyTranscoder{},
		Workers:    1,
		QueueSize:  4,
		Timeout:    10 * time.Second,
		TempDir:    suite.T().TempDir(),
	})
	h := NewHandlers(suite.handlers.auth, suite.store, q)
	q.SetCompletionCallback(h.OnVideoProcessed)
	q.Start()
	suite.T().Cleanup(q.Stop)

	suite.handlers = h
	suite.router = gin.New()
	h.RegisterRoutes(suite.router, RouteOptions{Auth: headerAuth})
	return q
}

func (suite *HandlersTestSuite) videoPath(v *models.Video, suffix string) string {
	return fmt.Sprintf("/api/videos/%d/%s", v.ID, suffix)
}

func (suite *HandlersTestSuite) reloadVideo(id uint) models.Video {
	var v models.Video
	suite.Require().NoError(suite.db.First(&v, id).Error)
	return v
}

func (suite *HandlersTestSuite) TestUploadVideoIsTranscoded() {
	suite.withQueue()

	w := suite.multipartRequest(http.MethodPost, "/api/videos/", suite.alice, map[string]string{
		"caption":         "sunset #beach #Summer",
		"applied_filters": `["sepia","blur"]`,
		"audio_name":      "waves",
		"is_live":         "false",
	}, &upload{field: "video_file", filename: "clip.mov", data: []byte("raw")})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var body map[string]interface{}
	suite.decode(w, &body)
	suite.Equal("pending", body["processing_status"])
	suite.Equal([]interface{}{"beach", "summer"}, body["hashtags"])
	suite.Equal([]interface{}{"sepia", "blur"}, body["applied_filters"])
	suite.Equal("waves", body["audio_name"])
	id := uint(body["id"].(float64))

	suite.Eventually(func() bool {
		return suite.reloadVideo(id).ProcessingStatus == models.ProcessingComplete
	}, 5*time.Second, 20*time.Millisecond)

	video := suite.reloadVideo(id)
	suite.True(video.IsTranscoded())
	suite.Equal(3.5, video.DurationSeconds)
	suite.NotEmpty(video.ThumbnailFile)
	suite.ElementsMatch([]string{video.VideoFile, video.ThumbnailFile}, suite.store.Keys())

	w = suite.request(http.MethodGet, suite.videoPath(&video, "status/"), suite.alice, nil)
	suite.Equal(http.StatusOK, w.Code)
	var status map[string]interface{}
	suite.decode(w, &status)
	suite.Equal("complete", status["processing_status"])
	suite.Nil(status["processing_error"])
	suite.Equal("http://test/media/"+video.VideoFile, status["video_file"])
}

func (suite *HandlersTestSuite) TestUploadVideoWithoutQueueStaysPending() {
	w := suite.multipartRequest(http.MethodPost, "/api/videos/", suite.alice, map[string]string{"caption": "hello"},
		&upload{field: "video_file", filename: "clip.mp4", data: []byte("raw")})
	suite.Require().Equal(http.StatusCreated, w.Code)

	var video models.Video
	suite.Require().NoError(suite.db.Where("user_id = ?", suite.alice.ID).First(&video).Error)
	suite.Equal(models.ProcessingPending, video.ProcessingStatus)
	suite.True(strings.HasPrefix(video.VideoFile, "videos/"))
	suite.Equal([]string{video.VideoFile}, suite.store.Keys())
}

func (suite *HandlersTestSuite) TestUploadVideoValidation() {
	w := suite.multipartRequest(http.MethodPost, "/api/videos/", suite.alice, map[string]string{"caption": "no file"}, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("video_file", suite.errorBody(w)["field"])

	w = suite.multipartRequest(http.MethodPost, "/api/videos/", suite.alice, nil,
		&upload{field: "video_file", filename: "clip.exe", data: []byte("raw")})
	suite.Equal(http.StatusBadRequest, w.Code)

	suite.handlers.SetMaxVideoUploadBytes(4)
	w = suite.multipartRequest(http.MethodPost, "/api/videos/", suite.alice, nil,
		&upload{field: "video_file", filename: "clip.mp4", data: []byte("far too large")})
	suite.Equal(http.StatusRequestEntityTooLarge, w.Code)

	suite.Empty(suite.store.Keys())
	var count int64
	suite.db.Model(&models.Video{}).Count(&count)
	suite.Zero(count)
}

func (suite *HandlersTestSuite) TestListVideosFilters() {
	older := suite.createVideo(suite.alice, "first")
	suite.Require().NoError(suite.db.Model(older).Updates(map[string]interface{}{
		"hashtags":   models.StringList{"dance"},
		"created_at": time.Now().Add(-time.Hour),
	}).Error)
	suite.createVideo(suite.alice, "second")
	suite.createVideo(suite.bob, "third")

	var all []map[string]interface{}
	suite.decode(suite.request(http.MethodGet, "/api/videos/", suite.alice, nil), &all)
	suite.Require().Len(all, 3)
	suite.Equal("first", all[2]["caption"])

	var mine []map[string]interface{}
	suite.decode(suite.request(http.MethodGet, fmt.Sprintf("/api/videos/?user_id=%d", suite.alice.ID), suite.alice, nil), &mine)
	suite.Len(mine, 2)

	var tagged []map[string]interface{}
	suite.decode(suite.request(http.MethodGet, "/api/videos/?hashtag=%23Dance", suite.alice, nil), &tagged)
	suite.Require().Len(tagged, 1)
	suite.Equal("first", tagged[0]["caption"])

	var paged []map[string]interface{}
	suite.decode(suite.request(http.MethodGet, "/api/videos/?limit=1&offset=1", suite.alice, nil), &paged)
	suite.Len(paged, 1)
}

func (suite *HandlersTestSuite) TestGetVideoNotFound() {
	w := suite.request(http.MethodGet, "/api/videos/9999/", suite.alice, nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("Video not found.", suite.errorBody(w)["error"])
}

func (suite *HandlersTestSuite) TestUpdateVideoOwnerOnly() {
	video := suite.createVideo(suite.alice, "draft")
	path := suite.videoPath(video, "")

	w := suite.request(http.MethodPatch, path, suite.bob, map[string]string{"caption": "mine now"})
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPatch, path, suite.alice, map[string]interface{}{
		"caption":  "final",
		"hashtags": []string{"#Travel", "travel"},
		"is_live":  true,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	stored := suite.reloadVideo(video.ID)
	suite.Equal("final", stored.Caption)
	suite.Equal(models.StringList{"travel"}, stored.Hashtags)
	suite.True(stored.IsLive)
}

func (suite *HandlersTestSuite) TestDeleteVideoRemovesMedia() {
	video := suite.createVideo(suite.alice, "gone soon")
	ctx := context.Background()
	_, err := suite.store.Save(ctx, video.VideoFile, strings.NewReader("v"), 1, "video/mp4")
	suite.Require().NoError(err)
	suite.Require().NoError(suite.db.Create(&models.Comment{VideoID: video.ID, UserID: suite.bob.ID, Text: "nice"}).Error)

	w := suite.request(http.MethodDelete, suite.videoPath(video, ""), suite.bob, nil)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodDelete, suite.videoPath(video, ""), suite.alice, nil)
	suite.Equal(http.StatusNoContent, w.Code)
	suite.Empty(suite.store.Keys())

	var count int64
	suite.db.Model(&models.Comment{}).Count(&count)
	suite.Zero(count)
}

func (suite *HandlersTestSuite) TestToggleLike() {
	video := suite.createVideo(suite.alice, "likeable")

	w := suite.request(http.MethodPost, suite.videoPath(video, "toggle_like/"), suite.bob, nil)
	suite.Equal(http.StatusCreated, w.Code)
	suite.JSONEq(`{"status": "liked", "likes_count": 1}`, w.Body.String())

	w = suite.request(http.MethodGet, suite.videoPath(video, "check_like/"), suite.bob, nil)
	suite.JSONEq(`{"is_liked": true}`, w.Body.String())

	w = suite.request(http.MethodPost, suite.videoPath(video, "toggle_like/"), suite.bob, nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"status": "unliked", "likes_count": 0}`, w.Body.String())
	suite.Equal(0, suite.reloadVideo(video.ID).LikesCount)

	w = suite.request(http.MethodGet, suite.videoPath(video, "check_like/"), suite.bob, nil)
	suite.JSONEq(`{"is_liked": false}`, w.Body.String())

	w = suite.request(http.MethodPost, "/api/videos/9999/toggle_like/", suite.bob, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestToggleLikeLosingRaceStillLikes() {
	video := suite.createVideo(suite.alice, "contested")
	suite.insertFirst("likes",
		"INSERT INTO likes (video_id, user_id, created_at) VALUES (?, ?, ?)",
		video.ID, suite.bob.ID, time.Now())

	w := suite.request(http.MethodPost, suite.videoPath(video, "toggle_like/"), suite.bob, nil)
	suite.Equal(http.StatusCreated, w.Code)
	var body map[string]interface{}
	suite.decode(w, &body)
	suite.Equal("liked", body["status"])
}

// Comments

func (suite *HandlersTestSuite) TestCommentLifecycle() {
	video := suite.createVideo(suite.alice, "talk to me")
	list := suite.videoPath(video, "comments/")

	w := suite.request(http.MethodPost, list, suite.bob, map[string]string{"text": "first!"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created map[string]interface{}
	suite.decode(w, &created)
	suite.Equal("bob", created["user"])
	suite.EqualValues(video.ID, created["video"])
	suite.Equal(1, suite.reloadVideo(video.ID).CommentsCount)

	suite.request(http.MethodPost, list, suite.alice, map[string]string{"text": "thanks"})

	var comments []map[string]interface{}
	suite.decode(suite.request(http.MethodGet, list, suite.alice, nil), &comments)
	suite.Require().Len(comments, 2)
	suite.Equal("first!", comments[0]["text"])
	suite.Equal("thanks", comments[1]["text"])

	detail := fmt.Sprintf("%s%d/", list, uint(created["id"].(float64)))

	w = suite.request(http.MethodPatch, detail, suite.alice, map[string]string{"text": "edited"})
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPatch, detail, suite.bob, map[string]string{"text": "edited"})
	suite.Equal(http.StatusOK, w.Code)
	var single map[string]interface{}
	suite.decode(suite.request(http.MethodGet, detail, suite.alice, nil), &single)
	suite.Equal("edited", single["text"])

	w = suite.request(http.MethodDelete, detail, suite.alice, nil)
	suite.Equal(http.StatusForbidden, w.Code)
	w = suite.request(http.MethodDelete, detail, suite.bob, nil)
	suite.Equal(http.StatusNoContent, w.Code)
	suite.Equal(1, suite.reloadVideo(video.ID).CommentsCount)

	w = suite.request(http.MethodGet, detail, suite.bob, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestCreateCommentValidation() {
	video := suite.createVideo(suite.alice, "quiet")

	w := suite.request(http.MethodPost, suite.videoPath(video, "comments/"), suite.bob, map[string]string{"text": ""})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("text", suite.errorBody(w)["field"])

	w = suite.request(http.MethodPost, "/api/videos/9999/comments/", suite.bob, map[string]string{"text": "hi"})
	suite.Equal(http.StatusNotFound, w.Code)
}

// Search

func (suite *HandlersTestSuite) TestSearchFallsBackToDatabase() {
	suite.createVideo(suite.alice, "Cooking pasta")
	suite.createVideo(suite.bob, "skateboarding")

	w := suite.request(http.MethodGet, "/api/search/?q=pasta", suite.alice, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var body struct {
		Type    string                   `json:"type"`
		Backend string                   `json:"backend"`
		Total   int                      `json:"total"`
		Results []map[string]interface{} `json:"results"`
	}
	suite.decode(w, &body)
	suite.Equal("videos", body.Type)
	suite.Equal("database", body.Backend)
	suite.Equal(1, body.Total)
	suite.Require().Len(body.Results, 1)
	suite.Equal("Cooking pasta", body.Results[0]["caption"])

	w = suite.request(http.MethodGet, "/api/search/?q=x&type=people", suite.alice, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}
